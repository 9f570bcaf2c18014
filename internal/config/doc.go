// Package config loads, normalizes, and validates discshelf configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and GITHUB_TOKEN. Credential absence degrades rather than fails:
// without a store token the github backend falls back to the read-only public
// collection, and without a provider key the lookup cascade uses the open
// database only.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
