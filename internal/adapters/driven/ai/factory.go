// Package ai builds the embedding and LLM services from settings and wraps
// them with the guard and cache decorators.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ollamaembed "github.com/custodia-labs/foldertalk/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/foldertalk/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/foldertalk/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/foldertalk/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/foldertalk/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Options configures the decorators applied by NewEmbeddingService and
// NewLLMService.
type Options struct {
	Guard GuardConfig

	// CacheSize is the embedding cache capacity; zero disables caching.
	CacheSize int
	// CacheTTL bounds how long a cached vector is reused.
	CacheTTL time.Duration

	// HTTPClient is passed to the provider adapters. Nil uses their defaults.
	HTTPClient *http.Client
}

// Services holds the AI services the application uses.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
}

// Close releases all resources held by Services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
}

// NewEmbeddingService creates the configured embedding service, guarded and
// optionally cached.
func NewEmbeddingService(settings *domain.EmbeddingSettings, opts Options) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings, opts.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: embedding provider is not configured", domain.ErrEmbeddingUnavailable)
	}

	var out driven.EmbeddingService = NewGuardedEmbedding(svc, opts.Guard)
	if opts.CacheSize > 0 {
		out = NewCachedEmbedding(out, opts.CacheSize, opts.CacheTTL)
	}
	return out, nil
}

// NewLLMService creates the configured LLM service behind the guard.
func NewLLMService(settings *domain.LLMSettings, opts Options) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings, opts.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, fmt.Errorf("%w: LLM provider is not configured", domain.ErrLLMUnavailable)
	}
	return NewGuardedLLM(svc, opts.Guard), nil
}

// pinger is satisfied by both service kinds.
type pinger interface {
	Ping(ctx context.Context) error
	ModelName() string
}

// Check pings a service and logs a warning when it is unreachable.
// Startup continues either way: chat degrades and embeddings fail per chunk.
func Check(ctx context.Context, kind string, svc pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		logger.Warn("%s service %s unreachable: %v", kind, svc.ModelName(), err)
		return err
	}
	logger.Debug("%s service %s reachable", kind, svc.ModelName())
	return nil
}

// CreateEmbeddingService creates the raw adapter for the configured provider.
// Returns nil when the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, client *http.Client) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider.IsValid() && !settings.Provider.CanEmbed() {
		return nil, fmt.Errorf("%s does not support embeddings, use ollama or openai", settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			HTTPClient: client,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			HTTPClient: client,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the raw adapter for the configured provider.
// Returns nil when the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings, client *http.Client) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			HTTPClient: client,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			HTTPClient: client,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			HTTPClient: client,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
