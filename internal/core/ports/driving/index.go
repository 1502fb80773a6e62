package driving

import (
	"context"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// IndexRequest asks for a folder to be indexed.
type IndexRequest struct {
	// AccessToken is used to read the folder on the caller's behalf.
	AccessToken string

	// FolderURL is a shared-folder URL or bare folder id.
	FolderURL string

	// Async returns the pending job immediately instead of waiting.
	Async bool
}

// IndexService runs indexing jobs.
type IndexService interface {
	// Index creates a job for the folder and processes it. The returned job
	// is terminal unless req.Async is set. When the folder cannot be read the
	// failed job is returned together with an error wrapping
	// domain.ErrSourceAccess.
	Index(ctx context.Context, req IndexRequest) (*domain.Job, error)

	// Status returns a job, or domain.ErrNotFound.
	Status(ctx context.Context, jobID string) (*domain.Job, error)

	// Jobs lists known jobs, oldest first.
	Jobs(ctx context.Context) ([]*domain.Job, error)
}
