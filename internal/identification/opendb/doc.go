// Package opendb reads the static open barcode database: a barcode index, a
// normalized-title index, and per-code record files sharded by the first
// three digits of the code.
//
// The two indexes are loaded at most once per IndexCache. Callers keep one
// cache for the lifetime of a session and pass it to every lookup.
package opendb
