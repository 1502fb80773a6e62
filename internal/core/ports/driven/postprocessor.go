package driven

import (
	"context"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// PostProcessor is one step that turns a document into chunks.
type PostProcessor interface {
	// Name is the registry key for the processor.
	Name() string

	// Process returns the chunks for doc. The first step in a pipeline
	// gets nil and creates chunks; later steps rewrite their input.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline produces the final chunks for a document, each
// attributed to the document's job and file.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
