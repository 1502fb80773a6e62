// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// IndexService runs the write path (fetch, extract, chunk, embed, index) and
// retention. ChatService runs the query path through AnswerGenerator.
// AuthService turns provider tokens into sessions.
package services
