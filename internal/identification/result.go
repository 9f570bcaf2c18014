package identification

import (
	"time"

	"discshelf/internal/matching"
)

// Attempt records what one cascade strategy did.
type Attempt struct {
	Strategy   string        `json:"strategy"`
	Outcome    string        `json:"outcome"`
	Candidates int           `json:"candidates"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

const (
	attemptMatched = "matched"
	attemptEmpty   = "empty"
	attemptFailed  = "failed"
	attemptSkipped = "skipped"
)

// Result is the outcome of one lookup.
type Result struct {
	Input          string               `json:"input"`
	Kind           string               `json:"kind"`
	UPC            string               `json:"upc,omitempty"`
	PreferredTitle string               `json:"preferred_title,omitempty"`
	PreferredYear  int                  `json:"preferred_year,omitempty"`
	EditionNote    string               `json:"edition_note,omitempty"`
	Source         matching.Source      `json:"source,omitempty"`
	Candidates     []matching.Candidate `json:"candidates"`
	Decision       matching.Decision    `json:"decision"`
	Attempts       []Attempt            `json:"attempts"`
}

// NotFound reports that no strategy produced a candidate.
func (r *Result) NotFound() bool {
	return r == nil || r.Decision.Outcome == matching.OutcomeNotFound
}

// Selected returns the auto-selected candidate, if the policy chose one.
func (r *Result) Selected() (matching.Candidate, bool) {
	if r == nil || r.Decision.Selected == nil {
		return matching.Candidate{}, false
	}
	return *r.Decision.Selected, true
}

// Pick returns the candidate at a 1-based position in the ranked list.
func (r *Result) Pick(position int) (matching.Candidate, bool) {
	if r == nil || position < 1 || position > len(r.Candidates) {
		return matching.Candidate{}, false
	}
	return r.Candidates[position-1], true
}
