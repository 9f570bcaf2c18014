package enrich_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"discshelf/internal/collection"
	"discshelf/internal/enrich"
	"discshelf/internal/identification/tmdb"
	"discshelf/internal/notifications"
	"discshelf/internal/testsupport"
)

type fakeDetails struct {
	details map[int64]*tmdb.MovieDetails
}

func (f *fakeDetails) GetMovieDetails(_ context.Context, id int64) (*tmdb.MovieDetails, error) {
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, errors.New("not found")
}

type fakeScraper struct {
	mu      sync.Mutex
	pages   map[string]string
	specs   map[string]enrich.Specs
	queries []string
}

func (f *fakeScraper) FindDetailsURL(_ context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.pages[query], nil
}

func (f *fakeScraper) Specs(_ context.Context, pageURL string) (enrich.Specs, error) {
	return f.specs[pageURL], nil
}

type countingNotifier struct {
	events []notifications.Event
}

func (c *countingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	c.events = append(c.events, event)
	return nil
}

func (c *countingNotifier) Close() {}

func TestRunEnrichesPendingRecords(t *testing.T) {
	backend := testsupport.NewMemoryBackend(
		collection.MovieRecord{RecordID: "1", ExternalID: 27205, Title: "Inception", UPC: "883929800815", Status: collection.StatusPendingEnrichment},
		collection.MovieRecord{RecordID: "2", Title: "Mystery Disc", UPC: "000000000000", Status: collection.StatusPendingEnrichment},
		collection.MovieRecord{RecordID: "3", ExternalID: 949, Title: "Heat", Status: collection.StatusEnriched, Runtime: 170},
	)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := collection.NewStore(backend, collection.WithRetry(3, 0), collection.WithClock(func() time.Time { return fixed }))
	scraper := &fakeScraper{
		pages: map[string]string{"883929800815": "https://details.example/movies/inception/1/"},
		specs: map[string]enrich.Specs{"https://details.example/movies/inception/1/": {Region: "A", Audio: "Dolby Atmos"}},
	}
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{
		27205: {
			ID:                  27205,
			Runtime:             148,
			ProductionCountries: []tmdb.Country{{ISO3166: "US"}, {ISO3166: "GB"}},
			SpokenLanguages:     []tmdb.Language{{ISO639: "en", EnglishName: "English"}, {ISO639: "ja"}},
		},
	}}
	notifier := &countingNotifier{}
	var sleeps int
	enricher := enrich.New(store,
		enrich.WithDetails(details),
		enrich.WithScraper(scraper),
		enrich.WithNotifier(notifier),
		enrich.WithSleeper(func(context.Context, time.Duration) error { sleeps++; return nil }),
	)

	summary, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Pending != 2 || summary.Enriched != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if sleeps != 1 {
		t.Fatalf("expected one pause between two records, got %d", sleeps)
	}
	if backend.Saves() != 1 {
		t.Fatalf("expected a single write, got %d", backend.Saves())
	}

	records := backend.Records()
	inception := records[0]
	if inception.Status != collection.StatusEnriched || inception.Runtime != 148 {
		t.Fatalf("unexpected enriched record %+v", inception)
	}
	if len(inception.ProductionCountries) != 2 || inception.AudioTracks[1] != "Japanese" {
		t.Fatalf("unexpected provider fields %+v", inception)
	}
	if inception.Region != "A" || inception.Audio != "Dolby Atmos" || inception.DetailsURL == "" {
		t.Fatalf("unexpected scraped fields %+v", inception)
	}
	if inception.EnrichedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected enriched_at %q", inception.EnrichedAt)
	}
	if records[1].Status != collection.StatusFailedEnrichment {
		t.Fatalf("expected failed enrichment, got %+v", records[1])
	}
	if records[2].Runtime != 170 || records[2].Status != collection.StatusEnriched {
		t.Fatalf("already enriched record changed: %+v", records[2])
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventEnrichmentCompleted {
		t.Fatalf("unexpected events %v", notifier.events)
	}
}

func TestRunPreservesConcurrentEdits(t *testing.T) {
	backend := testsupport.NewMemoryBackend(
		collection.MovieRecord{RecordID: "1", ExternalID: 27205, Title: "Inception", UPC: "1", Status: collection.StatusPendingEnrichment},
	)
	store := collection.NewStore(backend, collection.WithRetry(3, 0))
	details := &fakeDetails{details: map[int64]*tmdb.MovieDetails{27205: {ID: 27205, Runtime: 148}}}
	backend.BeforeSave = func(attempt int) {
		if attempt == 1 {
			backend.Put(
				collection.MovieRecord{RecordID: "1", ExternalID: 27205, Title: "Inception", UPC: "1", Note: "signed", Status: collection.StatusPendingEnrichment},
				collection.MovieRecord{RecordID: "2", Title: "Heat", UPC: "2", Status: collection.StatusNeedsMatch},
			)
		}
	}

	enricher := enrich.New(store, enrich.WithDetails(details), enrich.WithDelay(0))
	if _, err := enricher.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	records := backend.Records()
	if len(records) != 2 {
		t.Fatalf("expected concurrent add to survive, got %+v", records)
	}
	if records[0].Note != "signed" || records[0].Runtime != 148 || records[0].Status != collection.StatusEnriched {
		t.Fatalf("expected note and enrichment merged, got %+v", records[0])
	}
}

func TestRunWithNothingPending(t *testing.T) {
	backend := testsupport.NewMemoryBackend(collection.MovieRecord{Title: "Heat", Status: collection.StatusEnriched})
	enricher := enrich.New(collection.NewStore(backend))
	summary, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Pending != 0 || backend.Saves() != 0 {
		t.Fatalf("expected no work, got %+v saves=%d", summary, backend.Saves())
	}
}

func TestNewFromConfigScrapesFakeSite(t *testing.T) {
	provider := testsupport.NewProviderServer(t, testsupport.ProviderFixture{
		Details: map[string]map[string]any{
			"27205": {"id": 27205, "runtime": 148, "spoken_languages": []map[string]any{{"english_name": "English"}}},
		},
	})
	cfg := testsupport.NewConfig(t, testsupport.WithTMDBBaseURL(provider.URL))
	cfg.Enrichment.DetailsSearchURL = ""

	backend := testsupport.NewMemoryBackend(
		collection.MovieRecord{RecordID: "1", ExternalID: 27205, Title: "Inception", Status: collection.StatusPendingEnrichment},
	)
	enricher, err := enrich.NewFromConfig(cfg, collection.NewStore(backend), nil, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	summary, err := enricher.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Enriched != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := backend.Records()[0]; got.Runtime != 148 || len(got.AudioTracks) != 1 {
		t.Fatalf("unexpected record %+v", got)
	}
}
