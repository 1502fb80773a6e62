package driven

import (
	"context"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// JobStore holds indexing jobs.
type JobStore interface {
	// Save inserts or replaces a job.
	Save(ctx context.Context, job *domain.Job) error

	// Get returns a copy of a job, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// List returns all jobs ordered by creation time, oldest first.
	List(ctx context.Context) ([]*domain.Job, error)

	// Delete removes a job. Deleting a missing job is not an error.
	Delete(ctx context.Context, id string) error
}

// DocumentIndex maps chunks to embeddings per job and answers
// nearest-neighbour queries.
type DocumentIndex interface {
	// Add appends chunks to a job. Chunks without an embedding are stored
	// but never returned by Search. Returns domain.ErrDimensionMismatch when
	// an embedding length differs from the job's first embedding.
	Add(ctx context.Context, jobID string, chunks []domain.Chunk) error

	// Search returns at most k embedded chunks of a job ordered by
	// descending cosine similarity. Ties keep insertion order.
	Search(ctx context.Context, jobID string, query []float32, k int) ([]domain.ScoredChunk, error)

	// Stats returns how many chunks a job holds and how many are searchable.
	Stats(ctx context.Context, jobID string) (total, embedded int, err error)

	// Delete removes all chunks of a job.
	Delete(ctx context.Context, jobID string) error
}

// ConversationStore keeps a bounded, ordered log of turns per job.
type ConversationStore interface {
	// Append adds a turn, evicting the oldest turns beyond the window.
	Append(ctx context.Context, jobID string, turn domain.ConversationTurn) error

	// History returns the retained turns, oldest first. Unknown jobs
	// have an empty history.
	History(ctx context.Context, jobID string) ([]domain.ConversationTurn, error)

	// Clear empties a job's history. Idempotent.
	Clear(ctx context.Context, jobID string) error
}

// SessionStore holds sessions created at sign-in.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error

	// Get returns a session, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Session, error)
}
