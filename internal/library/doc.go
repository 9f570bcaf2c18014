// Package library is the collection facade used by the CLI and HTTP API.
//
// It owns the local record list and applies changes optimistically: a change
// is applied to the local list first, then written through the CAS store. When
// the write fails the local list is replaced by a fresh read, so callers never
// keep showing a record the store rejected.
//
// OpenBackend selects the document backend named by store.backend.
// Successful adds and removes publish change events through notifications.
package library
