package normalisers

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/normalisers/docx"
	"github.com/custodia-labs/foldertalk/internal/normalisers/html"
	"github.com/custodia-labs/foldertalk/internal/normalisers/pdf"
	"github.com/custodia-labs/foldertalk/internal/normalisers/plaintext"
	"github.com/custodia-labs/foldertalk/internal/normalisers/xlsx"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor dispatches a raw document to the normaliser for its content kind.
type Extractor struct {
	text driven.Normaliser
	html driven.Normaliser
	pdf  driven.Normaliser
	docx driven.Normaliser
	xlsx driven.Normaliser
}

// Option configures the extractor.
type Option func(*Extractor)

// WithPDF replaces the PDF normaliser, e.g. to pass OCR settings.
func WithPDF(n driven.Normaliser) Option {
	return func(e *Extractor) {
		e.pdf = n
	}
}

// NewExtractor creates an extractor with the built-in normalisers.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		text: plaintext.New(),
		html: html.New(),
		pdf:  pdf.New(),
		docx: docx.New(),
		xlsx: xlsx.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the document text for raw. Every failure, including
// formats that are listed but cannot be read, is a *domain.ExtractionError.
func (e *Extractor) Extract(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	var n driven.Normaliser
	switch kind := domain.ClassifyMIME(raw.MIMEType); kind {
	case domain.KindPlainText, domain.KindCSV, domain.KindRTF:
		n = e.text
	case domain.KindHTML:
		n = e.html
	case domain.KindPDF:
		n = e.pdf
	case domain.KindDOCX:
		n = e.docx
	case domain.KindXLSX:
		n = e.xlsx
	case domain.KindNativeExport:
		return nil, fileError(raw, domain.NewExtractionError(raw.MIMEType, "native document was not exported", nil))
	case domain.KindLegacyOffice:
		return nil, fileError(raw, domain.NewExtractionError(raw.MIMEType, "legacy binary format not supported", nil))
	case domain.KindUnsupported:
		return nil, fileError(raw, domain.NewExtractionError(raw.MIMEType, "unsupported content type", nil))
	default:
		panic(fmt.Sprintf("normalisers: unhandled content kind %s", kind))
	}

	result, err := n.Normalise(ctx, raw)
	if err != nil {
		var extErr *domain.ExtractionError
		if !errors.As(err, &extErr) {
			extErr = domain.NewExtractionError(raw.MIMEType, "normalise", err)
		}
		return nil, fileError(raw, extErr)
	}

	doc := result.Document
	return &doc, nil
}

func fileError(raw *domain.RawDocument, err *domain.ExtractionError) *domain.ExtractionError {
	if err.FileName == "" {
		err.FileName = raw.File.Name
	}
	return err
}
