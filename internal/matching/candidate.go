package matching

import (
	"strconv"

	"discshelf/internal/normalize"
)

// Source names the lookup strategy that produced a candidate.
type Source string

const (
	SourceProvider    Source = "provider"
	SourceOpenDBIndex Source = "open-db-index"
	SourceOpenDBChunk Source = "open-db-chunk"
	SourceOpenDBTitle Source = "open-db-title"
	SourceUPCLookup   Source = "upc-lookup"
	SourceManual      Source = "manual"
)

// Candidate is a possible identity for a scanned or typed disc. Candidates are
// never persisted directly.
type Candidate struct {
	ExternalID  int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Year        int    `json:"year,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	Overview    string `json:"overview,omitempty"`
	PosterPath  string `json:"poster_path,omitempty"`
	EditionNote string `json:"edition_note,omitempty"`
	Source      Source `json:"source"`
	Score       int    `json:"score"`
}

// ReleaseYear prefers the explicit year and falls back to the release date.
func (c Candidate) ReleaseYear() int {
	if c.Year > 0 {
		return c.Year
	}
	if year, ok := normalize.SafeYear(c.ReleaseDate); ok {
		return year
	}
	return 0
}

// Label is the human-readable "Title (Year)" form.
func (c Candidate) Label() string {
	if year := c.ReleaseYear(); year > 0 {
		return c.Title + " (" + strconv.Itoa(year) + ")"
	}
	return c.Title
}

// dedupeKey groups candidates that describe the same film.
func (c Candidate) dedupeKey() string {
	if c.ExternalID > 0 {
		return "id:" + strconv.FormatInt(c.ExternalID, 10)
	}
	return "title:" + normalize.NormalizeTitle(c.Title) + "|" + strconv.Itoa(c.ReleaseYear())
}
