// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - FileSourceFactory / FileSource: lists a folder and fetches file bytes
//   - TextExtractor: turns fetched bytes into text
//   - PostProcessorPipeline: splits text into chunks
//   - EmbeddingService: turns text into vectors
//   - LLMService: produces answers
//   - JobStore, DocumentIndex, ConversationStore, SessionStore: in-process state
//   - TokenValidator: checks a caller's access token
//
// # Optional Interfaces
//
// These can be nil and the application degrades gracefully:
//
//   - IDTokenVerifier: verifies an ID token presented at sign-in.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
