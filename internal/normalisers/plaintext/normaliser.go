// Package plaintext provides a Normaliser for plain text, CSV, RTF and
// exported native documents.
package plaintext

import (
	"context"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles text-like documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
// RTF is read as text: control words stay in the output.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		domain.MIMETypePlainText,
		domain.MIMETypeCSV,
		domain.MIMETypeRTF,
		domain.MIMETypeTextRTF,
	}
}

// Normalise decodes the bytes as text. A UTF-8 or UTF-16 byte order mark
// selects the encoding; otherwise UTF-8 is assumed and invalid sequences
// become U+FFFD.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content, err := Decode(raw.Content)
	if err != nil {
		return nil, domain.NewExtractionError(raw.MIMEType, "decode text", err)
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.NewExtractionError(raw.MIMEType, "no text", nil)
	}

	doc := domain.Document{
		FileID:   raw.File.ID,
		FileName: raw.File.Name,
		MIMEType: raw.MIMEType,
		Title:    raw.File.Name,
		Content:  content,
		Metadata: map[string]any{"mime_type": raw.MIMEType},
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// Decode converts bytes to a valid UTF-8 string.
func Decode(b []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, b)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(out), "�"), nil
}
