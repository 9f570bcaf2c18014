package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"discshelf/internal/collection"
	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/identification/tmdb"
	"discshelf/internal/language"
	"discshelf/internal/logging"
	"discshelf/internal/notifications"
)

// DetailsClient fetches provider movie details.
type DetailsClient interface {
	GetMovieDetails(ctx context.Context, movieID int64) (*tmdb.MovieDetails, error)
}

// PageScraper finds and reads disc details pages.
type PageScraper interface {
	FindDetailsURL(ctx context.Context, query string) (string, error)
	Specs(ctx context.Context, pageURL string) (Specs, error)
}

// Enricher processes pending records.
type Enricher struct {
	store    *collection.Store
	details  DetailsClient
	scraper  PageScraper
	notifier notifications.Service
	delay    time.Duration
	sleep    func(context.Context, time.Duration) error
	logger   *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithDetails sets the provider details client.
func WithDetails(client DetailsClient) Option {
	return func(e *Enricher) { e.details = client }
}

// WithScraper sets the details page scraper.
func WithScraper(scraper PageScraper) Option {
	return func(e *Enricher) { e.scraper = scraper }
}

// WithNotifier publishes a completion event after each run that changed records.
func WithNotifier(svc notifications.Service) Option {
	return func(e *Enricher) { e.notifier = svc }
}

// WithDelay sets the pause between records.
func WithDelay(delay time.Duration) Option {
	return func(e *Enricher) {
		if delay >= 0 {
			e.delay = delay
		}
	}
}

// WithSleeper replaces the pause implementation.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Enricher) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) { e.logger = logging.NewComponentLogger(logger, "enrich") }
}

// New builds an enricher writing through store.
func New(store *collection.Store, opts ...Option) *Enricher {
	e := &Enricher{
		store:  store,
		delay:  2 * time.Second,
		sleep:  sleepContext,
		logger: logging.NewComponentLogger(nil, "enrich"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig wires the provider client and scraper from configuration.
func NewFromConfig(cfg *config.Config, store *collection.Store, fetcher *fetch.Fetcher, logger *slog.Logger, opts ...Option) (*Enricher, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if fetcher == nil {
		fetcher = fetch.NewFromConfig(cfg, logger)
	}
	base := []Option{
		WithLogger(logger),
		WithDelay(time.Duration(cfg.Enrichment.RequestDelayMS) * time.Millisecond),
	}
	if cfg.HasProviderKey() {
		client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithFetcher(fetcher))
		if err != nil {
			return nil, fmt.Errorf("tmdb client: %w", err)
		}
		base = append(base, WithDetails(client))
	}
	if strings.TrimSpace(cfg.Enrichment.DetailsSearchURL) != "" {
		scraper, err := NewScraper(cfg.Enrichment.DetailsSearchURL, fetcher)
		if err != nil {
			return nil, err
		}
		base = append(base, WithScraper(scraper))
	}
	return New(store, append(base, opts...)...), nil
}

// Summary reports what one run did.
type Summary struct {
	Pending  int      `json:"pending"`
	Enriched int      `json:"enriched"`
	Failed   int      `json:"failed"`
	Titles   []string `json:"titles,omitempty"`
}

// Run enriches every pending record and writes the results in one update.
func (e *Enricher) Run(ctx context.Context) (Summary, error) {
	snapshot, err := e.store.ReadCollection(ctx)
	if err != nil {
		return Summary{}, err
	}
	var pending []collection.MovieRecord
	for _, record := range snapshot.Document.Movies {
		if record.Status == collection.StatusPendingEnrichment {
			pending = append(pending, record)
		}
	}
	summary := Summary{Pending: len(pending)}
	if len(pending) == 0 {
		e.logger.Info("no records awaiting enrichment")
		return summary, nil
	}

	patches := make([]collection.MovieRecord, 0, len(pending))
	for i, record := range pending {
		if i > 0 {
			if err := e.sleep(ctx, e.delay); err != nil {
				return summary, err
			}
		}
		patches = append(patches, e.enrichOne(ctx, record))
	}

	message := fmt.Sprintf("Enrich %d movies", len(patches))
	_, changed, err := e.store.UpdateRecords(ctx, message, func(current []collection.MovieRecord) ([]collection.MovieRecord, bool) {
		applied := false
		for i := range current {
			if current[i].Status != collection.StatusPendingEnrichment {
				continue
			}
			for _, patch := range patches {
				if sameRecord(current[i], patch) {
					current[i] = applyPatch(current[i], patch)
					applied = true
					break
				}
			}
		}
		return current, applied
	})
	if err != nil {
		return summary, err
	}
	for _, patch := range patches {
		if patch.Status == collection.StatusEnriched {
			summary.Enriched++
			summary.Titles = append(summary.Titles, patch.Title)
		} else {
			summary.Failed++
		}
	}
	e.logger.Info("enrichment complete",
		logging.Int("enriched", summary.Enriched),
		logging.Int("failed", summary.Failed),
		logging.Bool("written", changed),
	)
	if changed && e.notifier != nil {
		if err := e.notifier.Publish(ctx, notifications.EventEnrichmentCompleted, notifications.Payload{
			"enriched": summary.Enriched,
			"failed":   summary.Failed,
		}); err != nil {
			logging.WarnWithContext(e.logger, "enrichment event not published", "event_publish_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the NATS server"),
				logging.String(logging.FieldImpact, "subscribers miss this run"),
			)
		}
	}
	return summary, nil
}

// enrichOne gathers provider details and page specs concurrently. Source
// failures are logged; the record fails only when nothing was learned.
func (e *Enricher) enrichOne(ctx context.Context, record collection.MovieRecord) collection.MovieRecord {
	logger := e.logger.With(logging.String("title", record.Title))
	patch := record

	var (
		details  *tmdb.MovieDetails
		pageURL  string
		specs    Specs
		learned  bool
		detailOK bool
		pageOK   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	if e.details != nil && record.ExternalID > 0 {
		g.Go(func() error {
			d, err := e.details.GetMovieDetails(gctx, record.ExternalID)
			if err != nil {
				logging.WarnWithContext(logger, "provider details unavailable", "enrich_details_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the provider key and movie id"),
					logging.String(logging.FieldImpact, "runtime and languages left empty"),
				)
				return nil
			}
			details, detailOK = d, true
			return nil
		})
	}
	if e.scraper != nil {
		g.Go(func() error {
			found, s, err := e.scrape(gctx, record)
			if err != nil {
				logging.WarnWithContext(logger, "details page unavailable", "enrich_scrape_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the details site may be blocking requests"),
					logging.String(logging.FieldImpact, "region and audio left empty"),
				)
				return nil
			}
			pageURL, specs, pageOK = found, s, found != ""
			return nil
		})
	}
	_ = g.Wait()

	if detailOK {
		learned = true
		patch.Runtime = details.Runtime
		patch.ProductionCountries = nil
		for _, c := range details.ProductionCountries {
			patch.ProductionCountries = append(patch.ProductionCountries, c.ISO3166)
		}
		codes := make([]string, 0, len(details.SpokenLanguages))
		names := make([]string, 0, len(details.SpokenLanguages))
		for _, l := range details.SpokenLanguages {
			codes = append(codes, l.ISO639)
			names = append(names, l.EnglishName)
		}
		patch.AudioTracks = language.TrackNames(codes, names)
		if patch.PosterPath == "" {
			patch.PosterPath = details.PosterPath
		}
	}
	if pageOK {
		learned = true
		patch.DetailsURL = pageURL
		if specs.Region != "" {
			patch.Region = specs.Region
		}
		if specs.Audio != "" {
			patch.Audio = specs.Audio
		}
	}

	if learned {
		patch.Status = collection.StatusEnriched
		patch.EnrichedAt = collection.Timestamp(e.store.Now())
		logger.Info("record enriched",
			logging.Int("runtime", patch.Runtime),
			logging.String("region", patch.Region),
			logging.String("audio", patch.Audio),
		)
	} else {
		patch.Status = collection.StatusFailedEnrichment
		logger.Info("no details found", logging.Args(logging.DecisionAttrs("enrichment", "failed", "no source returned data")...)...)
	}
	return patch
}

// scrape searches by UPC first, then by title.
func (e *Enricher) scrape(ctx context.Context, record collection.MovieRecord) (string, Specs, error) {
	var lastErr error
	for _, query := range []string{record.UPC, record.Title} {
		if strings.TrimSpace(query) == "" {
			continue
		}
		pageURL, err := e.scraper.FindDetailsURL(ctx, query)
		if err != nil {
			lastErr = err
			continue
		}
		if pageURL == "" {
			continue
		}
		specs, err := e.scraper.Specs(ctx, pageURL)
		if err != nil {
			return "", Specs{}, err
		}
		return pageURL, specs, nil
	}
	return "", Specs{}, lastErr
}

func sameRecord(a, b collection.MovieRecord) bool {
	if a.RecordID != "" || b.RecordID != "" {
		return a.RecordID == b.RecordID
	}
	return collection.SameDisc(a, b) && a.AddedAt == b.AddedAt
}

// applyPatch copies enrichment fields only, leaving anything another writer
// changed meanwhile untouched.
func applyPatch(current, patch collection.MovieRecord) collection.MovieRecord {
	current.Status = patch.Status
	current.EnrichedAt = patch.EnrichedAt
	current.Runtime = patch.Runtime
	current.ProductionCountries = patch.ProductionCountries
	current.AudioTracks = patch.AudioTracks
	current.Region = patch.Region
	current.Audio = patch.Audio
	current.DetailsURL = patch.DetailsURL
	if current.PosterPath == "" {
		current.PosterPath = patch.PosterPath
	}
	return current
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
