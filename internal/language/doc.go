// Package language turns the ISO 639 codes reported by the metadata provider
// into the English language names stored on enriched records.
package language
