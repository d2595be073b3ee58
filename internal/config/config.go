// Package config loads miarag configuration from a YAML file with
// environment variable overrides. All values have working defaults so the
// binary runs with zero configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/artsmia/miarag/internal/errors"
)

// Config represents the complete miarag configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Answer    AnswerConfig    `yaml:"answer"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	LogLevel  string          `yaml:"log_level"`
}

// PathsConfig configures where index data lives on disk.
type PathsConfig struct {
	// DataDir holds the vector index, the metadata database and the run lock.
	DataDir string `yaml:"data_dir"`
	// Collection names the chunk index files inside DataDir.
	Collection string `yaml:"collection"`
}

// CorpusConfig configures the versioned JSON corpus.
type CorpusConfig struct {
	// RepoURL is the git remote holding the corpus.
	RepoURL string `yaml:"repo_url"`
	// LocalPath is the working checkout directory.
	LocalPath string `yaml:"local_path"`
	// Subdir is the directory inside the checkout that holds the JSON
	// documents, relative to the repository root.
	Subdir string `yaml:"subdir"`
}

// ChunkingConfig configures token-window chunking.
type ChunkingConfig struct {
	// ChunkSize is the window length in tokens.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the number of tokens shared by consecutive windows.
	// Must be smaller than ChunkSize.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	// Backend selects the embedder: "ollama" (default) or "static".
	Backend string `yaml:"backend"`
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions is the embedding dimension. 0 means auto-detect from the
	// first embedding returned by the backend.
	Dimensions int `yaml:"dimensions"`
	// CacheSize is the number of query embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size"`
}

// AnswerConfig configures generation and the answer cache.
type AnswerConfig struct {
	// Region is the AWS region for the Bedrock runtime.
	Region string `yaml:"region"`
	// DefaultModelID is used when a request does not name a model.
	DefaultModelID string `yaml:"default_model_id"`
	// CacheTTLSeconds is the answer cache expiry, applied uniformly to
	// every entry kind.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	// MaxTokens bounds generated output length.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature"`
	// TopP is the nucleus sampling threshold.
	TopP float64 `yaml:"top_p"`
}

// SearchConfig configures retrieval.
type SearchConfig struct {
	// DefaultTopK is used when a request does not specify top_k.
	DefaultTopK int `yaml:"default_top_k"`
	// MaxTopK bounds top_k; larger values are a client error.
	MaxTopK int `yaml:"max_top_k"`
	// MaxBatchSize is the vector store's advertised maximum upsert batch
	// size; hash record batches respect the same bound.
	MaxBatchSize int `yaml:"max_batch_size"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:    defaultDataDir(),
			Collection: "mia_collection",
		},
		Corpus: CorpusConfig{
			RepoURL:   "https://github.com/artsmia/collection.git",
			LocalPath: "./collection",
			Subdir:    "objects",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    800,
			ChunkOverlap: 100,
		},
		Embedding: EmbeddingConfig{
			Backend:    "ollama",
			OllamaHost: "http://localhost:11434",
			Model:      "all-minilm",
			Dimensions: 0,
			CacheSize:  1000,
		},
		Answer: AnswerConfig{
			Region:          "eu-north-1",
			DefaultModelID:  "amazon.nova-lite-v1:0",
			CacheTTLSeconds: 30,
			MaxTokens:       512,
			Temperature:     0.7,
			TopP:            0.9,
		},
		Search: SearchConfig{
			DefaultTopK:  5,
			MaxTopK:      100,
			MaxBatchSize: 256,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		LogLevel: "info",
	}
}

// Load reads configuration in precedence order: defaults, then the YAML file
// at path (optional), then environment variables. An optional .env file in
// the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	// Missing .env is not an error; environment-only operation is fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrap(errors.CodeConfigNotFound, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.CodeConfigInvalid, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies MIARAG_* environment variables on top of the
// loaded configuration. Env vars have the highest precedence.
func (c *Config) applyEnvOverrides() {
	setString(&c.Paths.DataDir, "MIARAG_DATA_DIR")
	setString(&c.Paths.Collection, "MIARAG_COLLECTION")
	setString(&c.Corpus.RepoURL, "MIARAG_CORPUS_REPO_URL")
	setString(&c.Corpus.LocalPath, "MIARAG_CORPUS_PATH")
	setString(&c.Corpus.Subdir, "MIARAG_CORPUS_SUBDIR")
	setInt(&c.Chunking.ChunkSize, "MIARAG_CHUNK_SIZE")
	setInt(&c.Chunking.ChunkOverlap, "MIARAG_CHUNK_OVERLAP")
	setString(&c.Embedding.Backend, "MIARAG_EMBED_BACKEND")
	setString(&c.Embedding.OllamaHost, "MIARAG_OLLAMA_HOST")
	setString(&c.Embedding.Model, "MIARAG_EMBED_MODEL")
	setInt(&c.Embedding.Dimensions, "MIARAG_EMBED_DIMENSIONS")
	setString(&c.Answer.Region, "AWS_REGION")
	setString(&c.Answer.DefaultModelID, "MIARAG_MODEL_ID")
	setInt(&c.Answer.CacheTTLSeconds, "MIARAG_CACHE_TTL")
	setInt(&c.Search.DefaultTopK, "MIARAG_TOP_K")
	setString(&c.Server.Addr, "MIARAG_ADDR")
	setString(&c.LogLevel, "MIARAG_LOG_LEVEL")
}

// Validate checks configuration invariants that would otherwise surface as
// runtime failures deep inside the pipeline.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("chunk_size must be positive, got %d", c.Chunking.ChunkSize), nil)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("chunk_overlap must be in [0, chunk_size), got %d with chunk_size %d",
				c.Chunking.ChunkOverlap, c.Chunking.ChunkSize), nil)
	}
	if c.Answer.CacheTTLSeconds <= 0 {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("cache_ttl_seconds must be positive, got %d", c.Answer.CacheTTLSeconds), nil)
	}
	if c.Search.MaxTopK < c.Search.DefaultTopK || c.Search.DefaultTopK < 1 {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("top_k defaults out of range: default %d, max %d",
				c.Search.DefaultTopK, c.Search.MaxTopK), nil)
	}
	if c.Search.MaxBatchSize < 1 {
		return errors.New(errors.CodeConfigInvalid,
			fmt.Sprintf("max_batch_size must be positive, got %d", c.Search.MaxBatchSize), nil)
	}
	return nil
}

// CacheTTL returns the answer cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Answer.CacheTTLSeconds) * time.Second
}

// defaultDataDir returns ~/.miarag, falling back to a relative directory
// when the home directory cannot be resolved.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".miarag"
	}
	return filepath.Join(home, ".miarag")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
