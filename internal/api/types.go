package api

import (
	"discshelf/internal/collection"
	"discshelf/internal/identification"
	"discshelf/internal/matching"
)

// LookupResponse is the transport form of a cascade result.
type LookupResponse struct {
	Input       string                   `json:"input"`
	Kind        string                   `json:"kind"`
	UPC         string                   `json:"upc,omitempty"`
	Outcome     matching.Outcome         `json:"outcome"`
	Reason      string                   `json:"reason,omitempty"`
	EditionNote string                   `json:"edition_note,omitempty"`
	Source      matching.Source          `json:"source,omitempty"`
	Selected    *matching.Candidate      `json:"selected,omitempty"`
	Candidates  []matching.Candidate     `json:"candidates"`
	Attempts    []identification.Attempt `json:"attempts"`
	Status      string                   `json:"status"`
}

// AddMovieRequest adds either an explicit candidate or the result of looking
// up Input. With Input, Pick selects a 1-based position from the choices; zero
// takes the auto-selected candidate.
type AddMovieRequest struct {
	Candidate *matching.Candidate `json:"candidate,omitempty"`
	Input     string              `json:"input,omitempty"`
	Pick      int                 `json:"pick,omitempty"`
	UPC       string              `json:"upc,omitempty"`
	Note      string              `json:"note,omitempty"`
}

// AddMovieResponse reports the stored record and whether it already existed.
type AddMovieResponse struct {
	Record    collection.MovieRecord   `json:"record"`
	Duplicate bool                     `json:"duplicate"`
	Movies    []collection.MovieRecord `json:"movies"`
}

// DeleteMovieRequest identifies records to remove.
type DeleteMovieRequest struct {
	RecordID   string `json:"record_id,omitempty"`
	AddedAt    string `json:"added_at,omitempty"`
	ExternalID int64  `json:"id,omitempty"`
	Title      string `json:"title,omitempty"`
	UPC        string `json:"upc,omitempty"`
}

// DeleteMovieResponse reports whether anything was removed.
type DeleteMovieResponse struct {
	Removed bool `json:"removed"`
}

// MoviesResponse lists records.
type MoviesResponse struct {
	Backend  string                   `json:"backend"`
	ReadOnly bool                     `json:"read_only"`
	Count    int                      `json:"count"`
	Movies   []collection.MovieRecord `json:"movies"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
