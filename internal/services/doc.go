// Package services defines shared utilities consumed by the lookup sources,
// the collection store, and the command surfaces.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers and the active lookup
//     source for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified with errors.Is (timeout, HTTP status, parse, conflict).
//   - StatusText, which turns any failure into a short line for a person rather
//     than a crash.
//
// Use these helpers when wiring new sources so operational behaviour stays
// uniform across the pipeline.
package services
