package matching

import (
	"sort"
	"strings"

	"discshelf/internal/normalize"
)

const (
	exactTitleBonus    = 100
	containsTitleBonus = 65
	sharedWordBonus    = 6
	sharedWordCap      = 30
	exactYearBonus     = 35
	nearYearBonus      = 20
	closeYearBonus     = 8
)

// Score rates a candidate against the preferred title and year. Identical
// titles earn the exact bonus only; shared words count toward partial matches.
func Score(c Candidate, preferredTitle string, preferredYear int) int {
	score := 0

	want := normalize.NormalizeTitle(preferredTitle)
	got := normalize.NormalizeTitle(c.Title)
	if want != "" && got != "" {
		if want == got {
			score += exactTitleBonus
		} else {
			if strings.Contains(got, want) || strings.Contains(want, got) {
				score += containsTitleBonus
			}
			score += sharedWordScore(want, got)
		}
	}

	score += yearScore(c.ReleaseYear(), preferredYear)
	return score
}

func sharedWordScore(want, got string) int {
	wanted := make(map[string]struct{})
	for _, word := range strings.Fields(want) {
		wanted[word] = struct{}{}
	}
	bonus := 0
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(got) {
		if _, ok := wanted[word]; !ok {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		bonus += sharedWordBonus
	}
	if bonus > sharedWordCap {
		bonus = sharedWordCap
	}
	return bonus
}

func yearScore(candidateYear, preferredYear int) int {
	if candidateYear <= 0 || preferredYear <= 0 {
		return 0
	}
	diff := candidateYear - preferredYear
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return exactYearBonus
	case diff == 1:
		return nearYearBonus
	case diff <= 3:
		return closeYearBonus
	default:
		return 0
	}
}

// Rank removes duplicate candidates (same external id, else same normalized
// title and year, first occurrence wins), scores the rest, and sorts them by
// descending score. Ties keep their input order.
func Rank(results []Candidate, preferredTitle string, preferredYear int) []Candidate {
	if len(results) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(results))
	ranked := make([]Candidate, 0, len(results))
	for _, c := range results {
		key := c.dedupeKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		c.Score = Score(c, preferredTitle, preferredYear)
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
