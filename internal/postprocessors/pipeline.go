// Package postprocessors turns extracted documents into chunks.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order. The first receives no chunks and
// creates them; later ones rewrite the previous output.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a pipeline over processors, in order.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process runs doc through every processor. Blank chunks are dropped and
// each remaining chunk is checked to belong to doc.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := proc.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
		chunks = out
	}

	return attribute(doc, chunks)
}

// attribute fills missing attribution from doc and rejects chunks that
// name another job or file.
func attribute(doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if chunks == nil {
		return nil, nil
	}

	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		if (c.JobID != "" && c.JobID != doc.JobID) || (c.FileID != "" && c.FileID != doc.FileID) {
			return nil, fmt.Errorf("%w: chunk %q belongs to %s/%s, not %s/%s",
				domain.ErrInvalidInput, c.ID, c.JobID, c.FileID, doc.JobID, doc.FileID)
		}
		c.JobID = doc.JobID
		c.FileID = doc.FileID
		if c.FileName == "" {
			c.FileName = doc.FileName
		}
		if c.MIMEType == "" {
			c.MIMEType = doc.MIMEType
		}
		out = append(out, c)
	}
	return out, nil
}

// Add appends a processor.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
