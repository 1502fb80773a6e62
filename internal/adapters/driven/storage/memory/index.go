package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// Ensure DocumentIndex implements the interface.
var _ driven.DocumentIndex = (*DocumentIndex)(nil)

type jobIndex struct {
	// dims is fixed by the first embedded chunk added to the job.
	dims   int
	chunks []domain.Chunk
}

// DocumentIndex is an in-memory, brute-force vector index partitioned by job.
type DocumentIndex struct {
	mu   sync.RWMutex
	jobs map[string]*jobIndex
}

// NewDocumentIndex creates an empty index.
func NewDocumentIndex() *DocumentIndex {
	return &DocumentIndex{jobs: make(map[string]*jobIndex)}
}

// Add appends chunks to a job. The batch is rejected as a whole if any
// embedding length differs from the job's dimension.
func (x *DocumentIndex) Add(_ context.Context, jobID string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	idx, ok := x.jobs[jobID]
	if !ok {
		idx = &jobIndex{}
	}

	dims := idx.dims
	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		if dims == 0 {
			dims = len(c.Embedding)
			continue
		}
		if len(c.Embedding) != dims {
			return fmt.Errorf("chunk %s has %d dimensions, job %s uses %d: %w",
				c.ID, len(c.Embedding), jobID, dims, domain.ErrDimensionMismatch)
		}
	}

	for _, c := range chunks {
		c.JobID = jobID
		c.Embedding = append([]float32(nil), c.Embedding...)
		idx.chunks = append(idx.chunks, c)
	}
	idx.dims = dims
	x.jobs[jobID] = idx
	return nil
}

// Search returns the k most similar embedded chunks of a job.
func (x *DocumentIndex) Search(_ context.Context, jobID string, query []float32, k int) ([]domain.ScoredChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	idx, ok := x.jobs[jobID]
	if !ok {
		return []domain.ScoredChunk{}, nil
	}
	// RankChunks copies the chunk values it returns; embeddings are never
	// mutated after Add, so sharing their backing arrays is safe.
	return domain.RankChunks(idx.chunks, query, k), nil
}

// Stats reports chunk counts for a job.
func (x *DocumentIndex) Stats(_ context.Context, jobID string) (total, embedded int, err error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	idx, ok := x.jobs[jobID]
	if !ok {
		return 0, 0, nil
	}
	for _, c := range idx.chunks {
		if c.HasEmbedding() {
			embedded++
		}
	}
	return len(idx.chunks), embedded, nil
}

// Delete drops every chunk of a job.
func (x *DocumentIndex) Delete(_ context.Context, jobID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.jobs, jobID)
	return nil
}
