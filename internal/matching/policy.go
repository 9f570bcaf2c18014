package matching

import (
	"fmt"

	"discshelf/internal/config"
)

// Outcome is the result of applying the disambiguation policy.
type Outcome string

const (
	OutcomeNotFound Outcome = "not_found"
	OutcomeAuto     Outcome = "auto_selected"
	OutcomeChoices  Outcome = "choices"
)

// Policy holds the auto-accept thresholds applied to every ranked list.
type Policy struct {
	AutoAcceptScore int
	MinLead         int
	MaxChoices      int
}

// DefaultPolicy returns the standard thresholds: accept at 120 with a lead of
// at least 25, otherwise offer up to 8 choices.
func DefaultPolicy() Policy {
	return Policy{AutoAcceptScore: 120, MinLead: 25, MaxChoices: 8}
}

// PolicyFromConfig reads the thresholds from [matching], falling back to the
// defaults for unset values.
func PolicyFromConfig(cfg *config.Config) Policy {
	policy := DefaultPolicy()
	if cfg == nil {
		return policy
	}
	if cfg.Matching.AutoAcceptScore > 0 {
		policy.AutoAcceptScore = cfg.Matching.AutoAcceptScore
	}
	if cfg.Matching.MinLead > 0 {
		policy.MinLead = cfg.Matching.MinLead
	}
	if cfg.Matching.MaxChoices > 0 {
		policy.MaxChoices = cfg.Matching.MaxChoices
	}
	return policy
}

// Decision is what the policy concluded about a ranked list.
type Decision struct {
	Outcome  Outcome     `json:"outcome"`
	Selected *Candidate  `json:"selected,omitempty"`
	Choices  []Candidate `json:"choices,omitempty"`
	Reason   string      `json:"reason"`
}

// Decide applies the policy to a list already sorted by descending score.
// A single candidate is always selected; several are auto-selected only when
// the top score clears the threshold with enough lead over the runner-up.
func (p Policy) Decide(ranked []Candidate) Decision {
	switch len(ranked) {
	case 0:
		return Decision{Outcome: OutcomeNotFound, Reason: "no candidates"}
	case 1:
		top := ranked[0]
		return Decision{Outcome: OutcomeAuto, Selected: &top, Reason: "single candidate"}
	}

	top, runnerUp := ranked[0], ranked[1]
	lead := top.Score - runnerUp.Score
	if top.Score >= p.AutoAcceptScore && lead >= p.MinLead {
		return Decision{
			Outcome:  OutcomeAuto,
			Selected: &top,
			Reason:   fmt.Sprintf("score %d with lead %d", top.Score, lead),
		}
	}

	limit := p.MaxChoices
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	choices := append([]Candidate(nil), ranked[:limit]...)
	return Decision{
		Outcome: OutcomeChoices,
		Choices: choices,
		Reason:  fmt.Sprintf("score %d with lead %d below auto-accept", top.Score, lead),
	}
}
