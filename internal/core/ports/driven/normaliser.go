package driven

import (
	"context"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// Normaliser turns the bytes of one format into text.
// Each normaliser handles specific MIME types (e.g., PDF, DOCX).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise extracts text from a raw document. Failures are returned as
	// *domain.ExtractionError.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}

// TextExtractor picks the right normaliser for a raw document's content
// kind and returns its text.
type TextExtractor interface {
	Extract(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}
