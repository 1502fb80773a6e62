package domain

// Document is the extracted text of one file.
// It is the canonical representation after normalisation.
type Document struct {
	// JobID is the indexing job this document belongs to.
	JobID string

	// FileID is the source file identifier.
	FileID string

	// FileName is the human-readable file name, used in prompts and citations.
	FileName string

	// MIMEType is the content type the text was extracted from.
	MIMEType string

	// Title is a document title found during extraction, if any.
	Title string

	// Content is the full text before chunking.
	Content string

	// Metadata contains extractor-specific key-value pairs.
	Metadata map[string]any
}

// Chunk is a searchable window of a Document.
// Attribution (job, file, sequence) is fixed when the chunk is created.
type Chunk struct {
	// ID is unique within a job: "{fileID}_{sequence}".
	ID string

	// JobID links to the owning Job.
	JobID string

	// FileID links to the source file.
	FileID string

	// FileName is copied from the file for citations.
	FileName string

	// MIMEType is the content type of the source file.
	MIMEType string

	// Sequence is the ordinal position within the file, from zero.
	Sequence int

	// Content is the chunk text. Never empty after trimming.
	Content string

	// Embedding is the vector for semantic search.
	// Empty means embedding failed and the chunk is not searchable.
	Embedding []float32
}

// HasEmbedding reports whether the chunk can take part in search.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float64
}
