package api

import (
	"discshelf/internal/collection"
	"discshelf/internal/identification"
	"discshelf/internal/matching"
)

// FromLookupResult converts a cascade result.
func FromLookupResult(result *identification.Result) LookupResponse {
	if result == nil {
		return LookupResponse{Outcome: matching.OutcomeNotFound, Candidates: []matching.Candidate{}, Attempts: []identification.Attempt{}}
	}
	resp := LookupResponse{
		Input:       result.Input,
		Kind:        result.Kind,
		UPC:         result.UPC,
		Outcome:     result.Decision.Outcome,
		Reason:      result.Decision.Reason,
		EditionNote: result.EditionNote,
		Source:      result.Source,
		Selected:    result.Decision.Selected,
		Candidates:  result.Candidates,
		Attempts:    result.Attempts,
	}
	if resp.Candidates == nil {
		resp.Candidates = []matching.Candidate{}
	}
	if resp.Attempts == nil {
		resp.Attempts = []identification.Attempt{}
	}
	resp.Status = lookupStatus(result)
	return resp
}

func lookupStatus(result *identification.Result) string {
	switch result.Decision.Outcome {
	case matching.OutcomeAuto:
		if result.Decision.Selected != nil {
			return "Matched " + result.Decision.Selected.Label()
		}
		return "Matched"
	case matching.OutcomeChoices:
		return "Several matches. Pick one."
	default:
		return "No match found. Type a title instead?"
	}
}

// CriteriaFromRequest converts a delete request into match criteria.
func CriteriaFromRequest(req DeleteMovieRequest) collection.MovieRecord {
	return collection.MovieRecord{
		RecordID:   req.RecordID,
		AddedAt:    req.AddedAt,
		ExternalID: req.ExternalID,
		Title:      req.Title,
		UPC:        req.UPC,
	}
}
