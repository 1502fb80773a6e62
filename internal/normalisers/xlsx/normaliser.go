// Package xlsx provides a Normaliser for Office Open XML spreadsheets.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles XLSX workbooks.
type Normaliser struct{}

// New creates a new XLSX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMETypeXLSX}
}

// Normalise writes each sheet as a "Sheet: <name>" header followed by its
// non-empty rows, cells joined with commas.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	book, err := excelize.OpenReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.NewExtractionError(raw.MIMEType, "open workbook", err)
	}
	defer book.Close()

	var sb strings.Builder
	sheets := book.GetSheetList()
	for _, sheet := range sheets {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, domain.NewExtractionError(raw.MIMEType, fmt.Sprintf("read sheet %q", sheet), err)
		}

		var lines []string
		for _, row := range rows {
			if line := strings.Join(row, ", "); strings.Trim(line, ", ") != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Sheet: %s\n%s", sheet, strings.Join(lines, "\n"))
	}

	if sb.Len() == 0 {
		return nil, domain.NewExtractionError(raw.MIMEType, "no text", nil)
	}

	doc := domain.Document{
		FileID:   raw.File.ID,
		FileName: raw.File.Name,
		MIMEType: raw.MIMEType,
		Title:    raw.File.Name,
		Content:  sb.String(),
		Metadata: map[string]any{
			"mime_type": raw.MIMEType,
			"format":    "xlsx",
			"sheets":    len(sheets),
		},
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}
