// Package tmdb provides the minimal TMDB API client used by the lookup cascade
// and the enrichment pass.
//
// It authenticates requests with the api_key query parameter and exposes
// barcode lookup through the external-id endpoint, free-text movie search, and
// movie details. Requests go through the bounded fetcher so every call shares
// the same deadline and retry schedule. A status_message in an otherwise
// successful body is treated as a failure.
package tmdb
