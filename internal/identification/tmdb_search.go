package identification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"discshelf/internal/identification/tmdb"
	"discshelf/internal/matching"
	"discshelf/internal/normalize"
)

// ProviderClient is the subset of the TMDB client used by the cascade.
type ProviderClient interface {
	FindByUPC(ctx context.Context, code string) ([]tmdb.Result, error)
	SearchMovie(ctx context.Context, query string) (*tmdb.Response, error)
}

// tmdbSearch paces provider calls so concurrent variant searches do not
// burst the API.
type tmdbSearch struct {
	client     ProviderClient
	rateLimit  time.Duration
	mu         sync.Mutex
	lastLookup time.Time
}

func newTMDBSearch(client ProviderClient, rateLimit time.Duration) *tmdbSearch {
	return &tmdbSearch{
		client:     client,
		rateLimit:  rateLimit,
		lastLookup: time.Unix(0, 0),
	}
}

func (s *tmdbSearch) available() bool {
	return s != nil && s.client != nil
}

func (s *tmdbSearch) pace(ctx context.Context) error {
	s.mu.Lock()
	wait := s.rateLimit - time.Since(s.lastLookup)
	if wait > 0 {
		s.lastLookup = s.lastLookup.Add(s.rateLimit)
	} else {
		s.lastLookup = time.Now()
	}
	s.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (s *tmdbSearch) find(ctx context.Context, code string) ([]tmdb.Result, error) {
	if !s.available() {
		return nil, errors.New("tmdb client unavailable")
	}
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	return s.client.FindByUPC(ctx, code)
}

func (s *tmdbSearch) search(ctx context.Context, title string) ([]tmdb.Result, error) {
	if !s.available() {
		return nil, errors.New("tmdb client unavailable")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	if err := s.pace(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.SearchMovie(ctx, title)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return resp.Results, nil
}

// searchVariants runs one provider search per title variant concurrently and
// concatenates the results in variant order. It fails only when every
// search failed.
func (s *tmdbSearch) searchVariants(ctx context.Context, variants []string) ([]tmdb.Result, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	results := make([][]tmdb.Result, len(variants))
	errs := make([]error, len(variants))

	var group errgroup.Group
	for i, variant := range variants {
		group.Go(func() error {
			results[i], errs[i] = s.search(ctx, variant)
			return nil
		})
	}
	_ = group.Wait()

	var (
		merged   []tmdb.Result
		failures int
		firstErr error
	)
	for i := range variants {
		if errs[i] != nil {
			failures++
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		merged = append(merged, results[i]...)
	}
	if failures == len(variants) {
		return nil, firstErr
	}
	return merged, nil
}

func providerCandidates(results []tmdb.Result) []matching.Candidate {
	if len(results) == 0 {
		return nil
	}
	out := make([]matching.Candidate, 0, len(results))
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		candidate := matching.Candidate{
			ExternalID:  r.ID,
			Title:       title,
			ReleaseDate: strings.TrimSpace(r.ReleaseDate),
			Overview:    strings.TrimSpace(r.Overview),
			PosterPath:  strings.TrimSpace(r.PosterPath),
			Source:      matching.SourceProvider,
		}
		if year, ok := normalize.SafeYear(candidate.ReleaseDate); ok {
			candidate.Year = year
		}
		out = append(out, candidate)
	}
	return out
}
