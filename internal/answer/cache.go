// Package answer orchestrates retrieval-augmented generation: retrieve
// chunks, build a context prompt, invoke the model and cache the rendered
// response.
package answer

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheTTL is how long a rendered response stays servable.
	DefaultCacheTTL = 30 * time.Second
	// DefaultCacheSize bounds the number of cached responses.
	DefaultCacheSize = 1024
)

// Cache holds rendered ask responses keyed by request signature. Entries
// expire after a fixed TTL; a bounded LRU keeps memory flat.
type Cache struct {
	lru *expirable.LRU[string, string]
}

// NewCache creates a response cache. Zero values fall back to defaults.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Signature builds the cache key for an ask request. Every request knob is
// part of the key: the same question with a different top_k, model or
// response type is a different entry.
func Signature(query string, topK int, modelID, responseType string) string {
	return fmt.Sprintf("ask:%s|%d|%s|%s", query, topK, modelID, responseType)
}

// Get returns the cached body for a signature.
func (c *Cache) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

// Set stores a rendered body under a signature.
func (c *Cache) Set(key, body string) {
	c.lru.Add(key, body)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
