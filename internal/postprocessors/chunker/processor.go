// Package chunker provides an overlapping word-window chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of words shared by neighbouring chunks.
const DefaultChunkOverlap = 50

// Processor splits document content into overlapping word windows.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a chunker. A size/overlap pair that cannot advance
// (size <= 0, overlap < 0 or overlap >= size) is rejected.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := validate(p.chunkSize, p.overlap); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return domain.ChunkerName
}

// Process splits the document content into chunks attributed to the
// document's job and file. Input chunks are ignored.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	windows, err := Split(doc.Content, p.chunkSize, p.overlap)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(windows))
	for seq, text := range windows {
		chunks = append(chunks, domain.Chunk{
			ID:       fmt.Sprintf("%s_%d", doc.FileID, seq),
			JobID:    doc.JobID,
			FileID:   doc.FileID,
			FileName: doc.FileName,
			MIMEType: doc.MIMEType,
			Sequence: seq,
			Content:  text,
		})
	}
	return chunks, nil
}

// Split breaks text into windows of size words, each starting size-overlap
// words after the previous one. Words are whitespace-separated and rejoined
// with single spaces. Splitting stops once a window reaches the last word.
func Split(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	windows := make([]string, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		if window := strings.Join(words[start:end], " "); window != "" {
			windows = append(windows, window)
		}
		if end == len(words) {
			break
		}
	}
	return windows, nil
}

func validate(size, overlap int) error {
	if size <= 0 || overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: size %d, overlap %d", domain.ErrInvalidChunkConfig, size, overlap)
	}
	return nil
}
