package domain

import "time"

// FileDescriptor describes a file listed by a FileSource.
type FileDescriptor struct {
	// ID is the source's identifier for the file.
	ID string

	// Name is the display name.
	Name string

	// MIMEType is the content type reported by the source.
	MIMEType string

	// Size is the byte size, zero when the source does not report it
	// (native documents).
	Size int64

	// ModifiedTime is the last modification time, if known.
	ModifiedTime time.Time
}

// IsIndexable reports whether the file's type is on the allow-list.
func (f FileDescriptor) IsIndexable() bool {
	return IsIndexableMIME(f.MIMEType)
}

// RawDocument represents opaque bytes fetched for a file.
// It is the source's output before extraction.
type RawDocument struct {
	// File is the descriptor the bytes were fetched for.
	File FileDescriptor

	// MIMEType is the effective content type of Content. For native
	// documents this is the export type, not the file's own type.
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
