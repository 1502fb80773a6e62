// Package config provides configuration loading for foldertalk.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Auth       AuthConfig       `koanf:"auth"`
	Drive      DriveConfig      `koanf:"drive"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	LLM        LLMConfig        `koanf:"llm"`
	Index      IndexConfig      `koanf:"index"`
	Chat       ChatConfig       `koanf:"chat"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Storage    StorageConfig    `koanf:"storage"`
	Cache      CacheConfig      `koanf:"cache"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Format is "console" or "json".
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// AuthConfig holds token validation configuration.
type AuthConfig struct {
	// ClientID is the OAuth client id ID tokens must be issued for.
	// Empty disables ID token verification.
	ClientID      string        `koanf:"client_id"`
	UserInfoURL   string        `koanf:"userinfo_url"`
	JWKSURL       string        `koanf:"jwks_url"`
	Timeout       time.Duration `koanf:"timeout"`
	TokenCacheTTL time.Duration `koanf:"token_cache_ttl"`
	// TokenCacheSize is the number of validated tokens kept; zero disables caching.
	TokenCacheSize int `koanf:"token_cache_size"`
}

// DriveConfig holds Google Drive access configuration.
type DriveConfig struct {
	Recursive         bool          `koanf:"recursive"`
	PageSize          int64         `koanf:"page_size"`
	MaxFileSize       int64         `koanf:"max_file_size"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	// Endpoint overrides the Drive API base URL.
	Endpoint string `koanf:"endpoint"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider          string        `koanf:"provider"`
	Model             string        `koanf:"model"`
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Dimensions        int           `koanf:"dimensions"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	MaxConcurrent     int64         `koanf:"max_concurrent"`
}

// LLMConfig holds language model configuration.
type LLMConfig struct {
	Provider          string        `koanf:"provider"`
	Model             string        `koanf:"model"`
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	MaxConcurrent     int64         `koanf:"max_concurrent"`
	MaxTokens         int           `koanf:"max_tokens"`
	Temperature       float64       `koanf:"temperature"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	FileWorkers  int `koanf:"file_workers"`
	EmbedWorkers int `koanf:"embed_workers"`
	// MaxJobs caps the finished jobs kept; zero disables eviction.
	MaxJobs      int `koanf:"max_jobs"`
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`
}

// ChatConfig holds retrieval and conversation configuration.
type ChatConfig struct {
	TopK         int `koanf:"top_k"`
	HistoryTurns int `koanf:"history_turns"`
	Window       int `koanf:"window"`
}

// ExtractionConfig holds text extraction configuration.
type ExtractionConfig struct {
	PDFMinText  int    `koanf:"pdf_min_text"`
	OCR         bool   `koanf:"ocr"`
	OCRLanguage string `koanf:"ocr_language"`
	DPI         int    `koanf:"dpi"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `koanf:"backend"`
	DSN     string `koanf:"dsn"`
}

// CacheConfig holds the embedding cache configuration.
type CacheConfig struct {
	// EmbeddingSize is the number of cached vectors; zero disables the cache.
	EmbeddingSize int           `koanf:"embedding_size"`
	EmbeddingTTL  time.Duration `koanf:"embedding_ttl"`
}

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			CORSOrigins:     []string{"http://localhost:5173"},
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Log: LogConfig{
			Format: FormatConsole,
			Level:  "info",
		},
		Auth: AuthConfig{
			Timeout:        10 * time.Second,
			TokenCacheTTL:  5 * time.Minute,
			TokenCacheSize: 1024,
		},
		Drive: DriveConfig{
			PageSize:          100,
			MaxFileSize:       50 << 20,
			Timeout:           60 * time.Second,
			RequestsPerSecond: 8,
		},
		Embedding: EmbeddingConfig{
			Provider:          string(domain.AIProviderOpenAI),
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			Burst:             10,
			MaxConcurrent:     4,
		},
		LLM: LLMConfig{
			Provider:          string(domain.AIProviderOpenAI),
			Timeout:           120 * time.Second,
			RequestsPerSecond: 2,
			Burst:             4,
			MaxConcurrent:     4,
			MaxTokens:         1024,
			Temperature:       0.2,
		},
		Index: IndexConfig{
			FileWorkers:  1,
			EmbedWorkers: 1,
			MaxJobs:      50,
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Chat: ChatConfig{
			TopK:         5,
			HistoryTurns: 9,
			Window:       20,
		},
		Extraction: ExtractionConfig{
			PDFMinText:  50,
			OCR:         true,
			OCRLanguage: "eng",
			DPI:         300,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			DSN:     ":memory:",
		},
		Cache: CacheConfig{
			EmbeddingSize: 4096,
			EmbeddingTTL:  time.Hour,
		},
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.Log.Format {
	case FormatConsole, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Log.Format))
	}

	if p := domain.AIProvider(c.Embedding.Provider); !p.CanEmbed() {
		errs = append(errs, fmt.Errorf("embedding.provider must be ollama or openai, got %q", c.Embedding.Provider))
	}
	if p := domain.AIProvider(c.LLM.Provider); !p.IsValid() {
		errs = append(errs, fmt.Errorf("llm.provider must be ollama, openai or anthropic, got %q", c.LLM.Provider))
	}

	if c.Index.ChunkSize <= 0 || c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		errs = append(errs, fmt.Errorf("index.chunk_size %d and index.chunk_overlap %d: %w",
			c.Index.ChunkSize, c.Index.ChunkOverlap, domain.ErrInvalidChunkConfig))
	}
	if c.Index.MaxJobs < 0 {
		errs = append(errs, errors.New("index.max_jobs must not be negative"))
	}
	if c.Chat.TopK <= 0 {
		errs = append(errs, errors.New("chat.top_k must be positive"))
	}
	if c.Chat.Window <= 0 {
		errs = append(errs, errors.New("chat.window must be positive"))
	}

	switch strings.ToLower(c.Storage.Backend) {
	case BackendMemory, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q, got %q", BackendMemory, BackendSQLite, c.Storage.Backend))
	}

	return errors.Join(errs...)
}

// EmbeddingSettings converts the section to provider settings.
func (c *Config) EmbeddingSettings() *domain.EmbeddingSettings {
	provider := domain.AIProvider(c.Embedding.Provider)
	model := c.Embedding.Model
	if model == "" {
		model = provider.DefaultEmbeddingModel()
	}
	return &domain.EmbeddingSettings{
		Provider:   provider,
		Model:      model,
		BaseURL:    c.Embedding.BaseURL,
		APIKey:     c.Embedding.APIKey,
		Dimensions: c.Embedding.Dimensions,
	}
}

// LLMSettings converts the section to provider settings.
func (c *Config) LLMSettings() *domain.LLMSettings {
	provider := domain.AIProvider(c.LLM.Provider)
	model := c.LLM.Model
	if model == "" {
		model = provider.DefaultLLMModel()
	}
	return &domain.LLMSettings{
		Provider: provider,
		Model:    model,
		BaseURL:  c.LLM.BaseURL,
		APIKey:   c.LLM.APIKey,
	}
}

// PipelineConfig returns the chunker pipeline for the index section.
func (c *Config) PipelineConfig() domain.PipelineConfig {
	return domain.ChunkingPipeline(c.Index.ChunkSize, c.Index.ChunkOverlap)
}
