// Package collection persists the shared movie collection as one JSON
// document and mutates it with compare-and-swap writes.
//
// A Backend loads the document together with a concurrency token and saves a
// new document only if the stored token still matches. The Store layers the
// read-modify-write protocol on top: every write starts from a fresh read,
// duplicate adds are suppressed, and precondition failures are retried a
// bounded number of times with a fixed pause.
//
// Backends live in subpackages: github (contents API), public (read-only raw
// URL), sqlitedoc, and filedoc.
package collection
