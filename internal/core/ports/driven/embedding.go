package driven

import "context"

// EmbeddingService turns text into vectors. Chunks and questions must be
// embedded by the same service for similarity scores to mean anything.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in one request where the provider allows it.
	// The result is index-aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, or zero when not known up front.
	Dimensions() int

	ModelName() string

	// Ping makes a cheap request to confirm the provider is reachable.
	Ping(ctx context.Context) error

	Close() error
}
