// Package domain defines the core business entities for foldertalk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Job: one indexing run over a Drive folder
//   - FileDescriptor: a file listed by a FileSource
//   - RawDocument: opaque bytes fetched for a file
//   - Document: extracted text for a file
//   - Chunk: a searchable window of a Document, with its embedding
//   - ConversationTurn: one message in a job's conversation
//   - Answer and Citation: the output of a chat turn
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
