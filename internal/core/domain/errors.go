package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidFolderURL indicates no folder identifier could be found in a URL.
	ErrInvalidFolderURL = errors.New("invalid folder URL")

	// ErrInvalidChunkConfig indicates a chunk size/overlap pair that cannot make progress.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrJobFinalised indicates an attempt to change a job that has already
	// completed or failed.
	ErrJobFinalised = errors.New("job already finalised")

	// ErrDimensionMismatch indicates an embedding whose length differs from
	// the dimension already established for a job.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmbedding indicates an embedding call failed for a single text.
	ErrEmbedding = errors.New("embedding failed")

	// ErrExtraction is the target for errors.Is on any *ExtractionError.
	ErrExtraction = errors.New("extraction failed")

	// Authentication Errors.

	// ErrAuthRequired indicates no credentials were supplied.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the supplied credentials were rejected.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Source Errors.

	// ErrSourceAccess indicates the file source could not be read
	// (folder missing, permission denied, upstream failure).
	ErrSourceAccess = errors.New("source access failed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ExtractionError describes why a file produced no text.
// It never carries partial content; callers record the reason and move on.
type ExtractionError struct {
	// FileName is the file being extracted, when known.
	FileName string

	// MIMEType is the content type that was attempted.
	MIMEType string

	// Reason is a short human-readable explanation.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// NewExtractionError creates an ExtractionError.
func NewExtractionError(mimeType, reason string, err error) *ExtractionError {
	return &ExtractionError{MIMEType: mimeType, Reason: reason, Err: err}
}

func (e *ExtractionError) Error() string {
	msg := "extract"
	if e.FileName != "" {
		msg += " " + e.FileName
	}
	if e.MIMEType != "" {
		msg += fmt.Sprintf(" (%s)", e.MIMEType)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is reports ErrExtraction as a match so callers can test with errors.Is.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}
