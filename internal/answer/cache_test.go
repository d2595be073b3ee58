package answer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignature(t *testing.T) {
	key := Signature("floral motifs", 5, "amazon.nova-lite-v1:0", "answer_only")
	assert.Equal(t, "ask:floral motifs|5|amazon.nova-lite-v1:0|answer_only", key)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(4, 30*time.Millisecond)
	c.Set("k", "body")

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "body", got)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
