package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/metrics"
)

const cacheName = "embedding"

// CachedEmbedding memoises vectors by model and text.
// Identical chunk text and repeated questions are embedded once.
type CachedEmbedding struct {
	inner driven.EmbeddingService
	lru   *expirable.LRU[string, []float32]
}

var _ driven.EmbeddingService = (*CachedEmbedding)(nil)

// NewCachedEmbedding wraps inner with an LRU of the given size. A zero ttl
// keeps entries until they are evicted by size.
func NewCachedEmbedding(inner driven.EmbeddingService, size int, ttl time.Duration) *CachedEmbedding {
	return &CachedEmbedding{
		inner: inner,
		lru:   expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *CachedEmbedding) key(text string) string {
	sum := sha256.Sum256([]byte(c.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *CachedEmbedding) get(text string) ([]float32, bool) {
	vec, ok := c.lru.Get(c.key(text))
	metrics.CacheLookup(cacheName, ok)
	if !ok {
		return nil, false
	}
	return clone(vec), true
}

func (c *CachedEmbedding) put(text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	c.lru.Add(c.key(text), clone(vec))
}

// Embed implements driven.EmbeddingService.
func (c *CachedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.get(text); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(text, vec)
	return vec, nil
}

// EmbedBatch implements driven.EmbeddingService. Only misses reach the
// wrapped service.
func (c *CachedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missText []string
	for i, text := range texts {
		if vec, ok := c.get(text); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missText = append(missText, text)
	}
	if len(missText) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missText)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		if j >= len(missIdx) {
			break
		}
		out[missIdx[j]] = vec
		c.put(missText[j], vec)
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedding) Len() int { return c.lru.Len() }

func (c *CachedEmbedding) Dimensions() int                { return c.inner.Dimensions() }
func (c *CachedEmbedding) ModelName() string              { return c.inner.ModelName() }
func (c *CachedEmbedding) Ping(ctx context.Context) error { return c.inner.Ping(ctx) }

// Close purges the cache and closes the wrapped service.
func (c *CachedEmbedding) Close() error {
	c.lru.Purge()
	return c.inner.Close()
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
