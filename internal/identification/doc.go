// Package identification resolves a scanned barcode or typed title into
// ranked movie candidates.
//
// The Resolver runs an ordered cascade of named strategies. Barcodes try the
// metadata provider's find-by-code endpoint, then the open barcode database
// (indexes, then per-code records), then the generic UPC lookup; the first
// strategy that yields candidates wins. Titles merge open-database title hits
// with a provider search and fall back to a single manual candidate.
//
// Every source sits behind its own circuit breaker. Source failures are logged
// and the cascade advances; only invalid input is returned as an error.
package identification
