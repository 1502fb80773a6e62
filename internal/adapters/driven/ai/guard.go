package ai

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// GuardConfig bounds outbound calls to an AI provider.
type GuardConfig struct {
	// RequestsPerSecond is the sustained call rate; zero means unlimited.
	RequestsPerSecond float64
	// Burst is the token bucket size.
	Burst int
	// MaxConcurrent caps in-flight calls; zero means unlimited.
	MaxConcurrent int64
	// Timeout bounds each call; zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// guard applies a concurrency cap, a token bucket and a timeout around a call.
type guard struct {
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	timeout time.Duration
}

func newGuard(cfg GuardConfig) *guard {
	g := &guard{timeout: cfg.Timeout}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	if cfg.MaxConcurrent > 0 {
		g.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return g
}

func (g *guard) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer g.sem.Release(1)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// GuardedEmbedding wraps an EmbeddingService with a guard.
type GuardedEmbedding struct {
	inner driven.EmbeddingService
	guard *guard
}

var _ driven.EmbeddingService = (*GuardedEmbedding)(nil)

// NewGuardedEmbedding wraps inner.
func NewGuardedEmbedding(inner driven.EmbeddingService, cfg GuardConfig) *GuardedEmbedding {
	return &GuardedEmbedding{inner: inner, guard: newGuard(cfg)}
}

// Embed implements driven.EmbeddingService.
func (g *GuardedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := g.guard.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch implements driven.EmbeddingService. A batch counts as one call.
func (g *GuardedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := g.guard.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

func (g *GuardedEmbedding) Dimensions() int                { return g.inner.Dimensions() }
func (g *GuardedEmbedding) ModelName() string              { return g.inner.ModelName() }
func (g *GuardedEmbedding) Ping(ctx context.Context) error { return g.inner.Ping(ctx) }
func (g *GuardedEmbedding) Close() error                   { return g.inner.Close() }

// GuardedLLM wraps an LLMService with a guard.
type GuardedLLM struct {
	inner driven.LLMService
	guard *guard
}

var _ driven.LLMService = (*GuardedLLM)(nil)

// NewGuardedLLM wraps inner.
func NewGuardedLLM(inner driven.LLMService, cfg GuardConfig) *GuardedLLM {
	return &GuardedLLM{inner: inner, guard: newGuard(cfg)}
}

// Chat implements driven.LLMService.
func (g *GuardedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var out string
	err := g.guard.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Chat(ctx, messages, opts)
		return err
	})
	return out, err
}

func (g *GuardedLLM) ModelName() string              { return g.inner.ModelName() }
func (g *GuardedLLM) Ping(ctx context.Context) error { return g.inner.Ping(ctx) }
func (g *GuardedLLM) Close() error                   { return g.inner.Close() }
