package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
)

func rawText(content []byte, mimeType string) *domain.RawDocument {
	return &domain.RawDocument{
		File:     domain.FileDescriptor{ID: "file-1", Name: "notes.txt", MIMEType: mimeType},
		MIMEType: mimeType,
		Content:  content,
	}
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	assert.Contains(t, mimeTypes, "text/plain")
	assert.Contains(t, mimeTypes, "text/csv")
	assert.Contains(t, mimeTypes, "application/rtf")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestNormalise_Success(t *testing.T) {
	result, err := New().Normalise(context.Background(), rawText([]byte("This is plain text content."), "text/plain"))
	require.NoError(t, err)
	require.NotNil(t, result)

	doc := result.Document
	assert.Equal(t, "file-1", doc.FileID)
	assert.Equal(t, "notes.txt", doc.FileName)
	assert.Equal(t, "notes.txt", doc.Title)
	assert.Equal(t, "This is plain text content.", doc.Content)
	assert.Equal(t, "text/plain", doc.Metadata["mime_type"])
}

func TestNormalise_CSV(t *testing.T) {
	result, err := New().Normalise(context.Background(), rawText([]byte("name,age\nada,36\n"), "text/csv"))
	require.NoError(t, err)
	assert.Equal(t, "name,age\nada,36\n", result.Document.Content)
}

func TestNormalise_Empty(t *testing.T) {
	for _, content := range [][]byte{nil, []byte(""), []byte(" \n\t ")} {
		_, err := New().Normalise(context.Background(), rawText(content, "text/plain"))
		assert.ErrorIs(t, err, domain.ErrExtraction)
	}
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{name: "utf8", input: []byte("héllo"), expected: "héllo"},
		{name: "utf8 bom stripped", input: []byte("\xef\xbb\xbfhello"), expected: "hello"},
		{name: "utf16 little endian", input: []byte{0xff, 0xfe, 'h', 0, 'i', 0}, expected: "hi"},
		{name: "utf16 big endian", input: []byte{0xfe, 0xff, 0, 'h', 0, 'i'}, expected: "hi"},
		{name: "invalid bytes replaced", input: []byte("ok\xffgo"), expected: "ok�go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
