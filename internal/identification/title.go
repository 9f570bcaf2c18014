package identification

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"discshelf/internal/logging"
	"discshelf/internal/matching"
	"discshelf/internal/normalize"
)

// LookupTitle runs the title path: open-database title hits with a fixed
// score, merged with a ranked provider search. When both are empty the raw
// title becomes a single manual candidate.
//
// The index lookup and the provider search run concurrently. The preferred
// year comes from a trailing year in the input ("Inception (2010)"), else the
// first open-database title hit, else the provider results whose title
// matches exactly, when they agree on a single year.
func (r *Resolver) LookupTitle(ctx context.Context, text string) (*Result, error) {
	raw := strings.TrimSpace(text)
	result := &Result{Input: raw, Kind: normalize.QueryTitle.String()}
	if raw == "" {
		r.decide(ctx, result)
		return result, nil
	}

	title, year, _ := normalize.SplitYearHint(raw)
	if title == "" {
		title = raw
	}
	result.PreferredTitle = title
	result.PreferredYear = year
	result.EditionNote = normalize.EditionNote(raw)

	// each branch records into its own scratch result
	indexRun := &Result{PreferredTitle: title, PreferredYear: year}
	providerRun := &Result{PreferredTitle: title, PreferredYear: year}
	var indexHits, providerHits []matching.Candidate

	var group errgroup.Group
	if r.openDB != nil {
		group.Go(func() error {
			indexHits = r.runStrategy(ctx, strategy{
				name:    "open-db-title",
				breaker: sourceOpenDB,
				run:     r.openDBTitle,
			}, indexRun)
			return nil
		})
	}
	if r.provider.available() {
		group.Go(func() error {
			providerHits = r.runStrategy(ctx, strategy{
				name:    "provider-search",
				breaker: sourceProvider,
				run: func(ctx context.Context, run *Result) ([]matching.Candidate, error) {
					found, err := r.provider.search(ctx, run.PreferredTitle)
					if err != nil {
						return nil, err
					}
					return providerCandidates(found), nil
				},
			}, providerRun)
			return nil
		})
	}
	_ = group.Wait()
	result.Attempts = append(result.Attempts, indexRun.Attempts...)
	result.Attempts = append(result.Attempts, providerRun.Attempts...)

	if result.PreferredYear == 0 {
		result.PreferredYear = indexRun.PreferredYear
	}
	if result.PreferredYear == 0 {
		result.PreferredYear = exactTitleYear(providerHits, title)
	}
	providerHits = matching.Rank(providerHits, result.PreferredTitle, result.PreferredYear)

	merged := mergeTitleCandidates(providerHits, indexHits)
	if len(merged) == 0 {
		merged = []matching.Candidate{{
			Title:  raw,
			Source: matching.SourceManual,
			Score:  manualScore,
		}}
		result.Attempts = append(result.Attempts, Attempt{Strategy: "manual", Outcome: attemptMatched, Candidates: 1})
	}
	result.Candidates = withEdition(merged, result.EditionNote)
	result.Source = merged[0].Source

	r.decide(ctx, result)
	return result, nil
}

// exactTitleYear returns the release year shared by every candidate whose
// normalized title equals title. Zero when none match or their years differ.
func exactTitleYear(candidates []matching.Candidate, title string) int {
	want := normalize.NormalizeTitle(title)
	year := 0
	for _, c := range candidates {
		if normalize.NormalizeTitle(c.Title) != want {
			continue
		}
		y := c.ReleaseYear()
		if y == 0 {
			continue
		}
		if year != 0 && y != year {
			return 0
		}
		year = y
	}
	return year
}

func (r *Resolver) openDBTitle(ctx context.Context, result *Result) ([]matching.Candidate, error) {
	if err := r.openDB.EnsureIndexes(ctx, r.indexes); err != nil {
		return nil, err
	}
	records := r.indexes.LookupTitle(result.PreferredTitle)
	if len(records) == 0 {
		if cleaned := normalize.CleanProductTitle(result.PreferredTitle); cleaned != result.PreferredTitle {
			records = r.indexes.LookupTitle(cleaned)
		}
	}
	if len(records) == 0 {
		return nil, nil
	}

	if result.PreferredYear == 0 {
		result.PreferredYear = int(records[0].Year)
	}
	candidates := make([]matching.Candidate, 0, len(records))
	for _, record := range records {
		candidates = append(candidates, matching.Candidate{
			Title:       strings.TrimSpace(record.Title),
			Year:        int(record.Year),
			EditionNote: strings.TrimSpace(record.Edition),
			Source:      matching.SourceOpenDBTitle,
			Score:       r.titleIndexScore,
		})
	}
	logging.WithContext(ctx, r.logger).Debug("open database title hits",
		logging.String("title", result.PreferredTitle),
		logging.Int("hits", len(candidates)),
	)
	return candidates, nil
}

// mergeTitleCandidates keeps every provider candidate and adds the index hits
// the provider did not already return, then re-sorts by score.
func mergeTitleCandidates(provider, index []matching.Candidate) []matching.Candidate {
	seen := make(map[string]struct{}, len(provider)+len(index))
	merged := make([]matching.Candidate, 0, len(provider)+len(index))
	for _, c := range provider {
		seen[titleYearKey(c)] = struct{}{}
		merged = append(merged, c)
	}
	for _, c := range index {
		key := titleYearKey(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, c)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func titleYearKey(c matching.Candidate) string {
	return normalize.NormalizeTitle(c.Title) + "|" + strconv.Itoa(c.ReleaseYear())
}
