// Package normalisers turns fetched file bytes into text.
//
// Each sub-package handles one family of formats. The Extractor in this
// package dispatches on domain.ContentKind, so every kind the service
// accepts has exactly one handler and adding a kind forces a compile-time
// decision here.
package normalisers
