// Package memory provides in-memory implementations of the storage ports.
//
// State lives for the life of the process. Each store guards its maps with
// a mutex and copies values on the way in and out, so callers never share
// slices with the store.
package memory
