// Package sqlite provides a SQLite-backed implementation of the store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. A single database serves every store through wrapper types:
//
//   - JobStore: indexing jobs
//   - DocumentIndex: chunks and their embeddings, searched by brute-force cosine scan
//   - ConversationStore: bounded per-job conversation logs
//   - SessionStore: sessions created at sign-in
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/ directory.
// Each migration is a pair of .up.sql and .down.sql files; applied versions are
// recorded in schema_migrations.
//
// # Data Location
//
// The DSN defaults to ":memory:", in which case the store holds a single connection
// so every caller sees the same database. File databases run in WAL mode.
package sqlite
