package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// fakeEmbedding returns a vector derived from the text length and counts calls.
type fakeEmbedding struct {
	mu        sync.Mutex
	calls     []string
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	delay     time.Duration
	fail      bool
}

func (f *fakeEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxFlight.Load()
		if n <= cur || f.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, errors.New("provider down")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedding) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEmbedding) Dimensions() int            { return 2 }
func (f *fakeEmbedding) ModelName() string          { return "fake" }
func (f *fakeEmbedding) Ping(context.Context) error { return nil }
func (f *fakeEmbedding) Close() error               { return nil }

var _ driven.EmbeddingService = (*fakeEmbedding)(nil)
