package library

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"discshelf/internal/collection"
	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/logging"
	"discshelf/internal/matching"
	"discshelf/internal/notifications"
	"discshelf/internal/services"
)

// Library holds the local view of the collection and writes through a CAS store.
type Library struct {
	store    *collection.Store
	notifier notifications.Service
	readOnly bool
	logger   *slog.Logger

	mu      sync.Mutex
	records []collection.MovieRecord
	loaded  bool
	closers []func() error
}

// Option configures a Library.
type Option func(*Library)

// WithNotifier publishes change events through svc.
func WithNotifier(svc notifications.Service) Option {
	return func(l *Library) {
		if svc != nil {
			l.notifier = svc
		}
	}
}

// WithReadOnly rejects writes before they reach the backend.
func WithReadOnly(readOnly bool) Option {
	return func(l *Library) { l.readOnly = readOnly }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) { l.logger = logging.NewComponentLogger(logger, "library") }
}

// New wraps store.
func New(store *collection.Store, opts ...Option) *Library {
	l := &Library{
		store:    store,
		notifier: noopNotifier{},
		logger:   logging.NewComponentLogger(nil, "library"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewFromConfig opens the configured backend and event publisher.
func NewFromConfig(ctx context.Context, cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) (*Library, error) {
	backend, closeBackend, err := OpenBackend(ctx, cfg, fetcher, logger)
	if err != nil {
		return nil, err
	}
	notifier, err := notifications.NewService(cfg, logger)
	if err != nil {
		logging.WarnWithContext(logging.NewComponentLogger(logger, "library"), "change events disabled", "notifications_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check events.nats_url"),
			logging.String(logging.FieldImpact, "collection changes are not published"),
		)
		notifier = noopNotifier{}
	}
	opts := append(collection.StoreOptionsFromConfig(cfg), collection.WithLogger(logger))
	l := New(collection.NewStore(backend, opts...),
		WithNotifier(notifier),
		WithReadOnly(cfg.ReadOnly()),
		WithLogger(logger),
	)
	l.closers = append(l.closers, closeBackend, func() error { notifier.Close(); return nil })
	return l, nil
}

// Close releases the backend and event connection.
func (l *Library) Close() error {
	var errs []error
	for _, fn := range l.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	l.closers = nil
	return errors.Join(errs...)
}

// Store exposes the underlying CAS store.
func (l *Library) Store() *collection.Store { return l.store }

// Notifier returns the change event publisher.
func (l *Library) Notifier() notifications.Service { return l.notifier }

// BackendName reports which backend holds the collection.
func (l *Library) BackendName() string { return l.store.Backend().Name() }

// ReadOnly reports whether writes are rejected.
func (l *Library) ReadOnly() bool { return l.readOnly }

// Records returns a copy of the local view.
func (l *Library) Records() []collection.MovieRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]collection.MovieRecord(nil), l.records...)
}

// Loaded reports whether the local view reflects a successful read.
func (l *Library) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Refresh replaces the local view with a fresh read.
func (l *Library) Refresh(ctx context.Context) ([]collection.MovieRecord, error) {
	snapshot, err := l.store.ReadCollection(ctx)
	if err != nil {
		return nil, err
	}
	l.replace(snapshot.Document.Movies)
	return append([]collection.MovieRecord(nil), snapshot.Document.Movies...), nil
}

// List refreshes and returns the records whose title or note contains filter.
func (l *Library) List(ctx context.Context, filter string) ([]collection.MovieRecord, error) {
	records, err := l.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return collection.FilterRecords(records, filter), nil
}

// AddRequest describes a chosen candidate to store.
type AddRequest struct {
	Candidate matching.Candidate
	UPC       string
	// Note overrides the detected edition note when non-empty.
	Note string
}

// RecordFromCandidate builds the record stored for a chosen candidate.
// Manual entries are stored as needs_match so enrichment can find them later.
func RecordFromCandidate(req AddRequest) collection.MovieRecord {
	c := req.Candidate
	record := collection.MovieRecord{
		ExternalID:  c.ExternalID,
		Title:       strings.TrimSpace(c.Title),
		PosterPath:  c.PosterPath,
		ReleaseDate: c.ReleaseDate,
		UPC:         strings.TrimSpace(req.UPC),
		Note:        strings.TrimSpace(req.Note),
		Status:      collection.StatusPendingEnrichment,
		MatchSource: string(c.Source),
		MatchScore:  c.Score,
	}
	if record.ReleaseDate == "" && c.Year > 0 {
		record.ReleaseDate = strconv.Itoa(c.Year)
	}
	if record.Note == "" {
		record.Note = c.EditionNote
	}
	if c.Source == matching.SourceManual || c.ExternalID == 0 {
		record.Status = collection.StatusNeedsMatch
	}
	return record
}

// AddCandidate stores the chosen candidate.
func (l *Library) AddCandidate(ctx context.Context, req AddRequest) (collection.AddResult, error) {
	return l.Add(ctx, RecordFromCandidate(req))
}

// Add applies record to the local view, writes it, and reconciles on failure.
func (l *Library) Add(ctx context.Context, record collection.MovieRecord) (collection.AddResult, error) {
	if l.readOnly {
		return collection.AddResult{}, services.Wrap(services.ErrReadOnly, "library", "add", "no store token configured", nil)
	}
	record = l.store.PrepareRecord(record)
	if record.Title == "" {
		return collection.AddResult{}, services.Wrap(services.ErrValidation, "library", "add", "title is required", nil)
	}

	l.apply(func(current []collection.MovieRecord) []collection.MovieRecord {
		for _, existing := range current {
			if collection.SameDisc(existing, record) {
				return current
			}
		}
		return append(current, record)
	})

	result, err := l.store.AddRecord(ctx, record)
	if err != nil {
		l.reconcile(ctx, "add", err)
		return collection.AddResult{}, err
	}
	l.replace(result.Movies)
	if !result.Duplicate {
		l.publish(ctx, notifications.EventMovieAdded, result.Record)
	}
	return result, nil
}

// Remove deletes every record matching criteria. It reports whether anything
// was removed; a missing record is not an error.
func (l *Library) Remove(ctx context.Context, criteria collection.MovieRecord) (bool, error) {
	if l.readOnly {
		return false, services.Wrap(services.ErrReadOnly, "library", "remove", "no store token configured", nil)
	}
	l.apply(func(current []collection.MovieRecord) []collection.MovieRecord {
		next := current[:0:0]
		for _, existing := range current {
			if !collection.Matches(existing, criteria) {
				next = append(next, existing)
			}
		}
		return next
	})

	movies, removed, err := l.store.DeleteRecord(ctx, criteria)
	if err != nil {
		l.reconcile(ctx, "remove", err)
		return false, err
	}
	l.replace(movies)
	if removed {
		l.publish(ctx, notifications.EventMovieRemoved, criteria)
	}
	return removed, nil
}

// Find returns the stored records matching criteria from the local view.
func (l *Library) Find(criteria collection.MovieRecord) []collection.MovieRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []collection.MovieRecord
	for _, record := range l.records {
		if collection.Matches(record, criteria) {
			out = append(out, record)
		}
	}
	return out
}

// Notify publishes an event through the configured notifier.
func (l *Library) Notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := l.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, l.logger), "change event not published", "event_publish_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the NATS server"),
			logging.String(logging.FieldImpact, "subscribers miss this change"),
		)
	}
}

func (l *Library) publish(ctx context.Context, event notifications.Event, record collection.MovieRecord) {
	l.Notify(ctx, event, notifications.Payload{
		"record_id": record.RecordID,
		"id":        record.ExternalID,
		"title":     record.Title,
		"upc":       record.UPC,
		"status":    string(record.Status),
	})
}

func (l *Library) apply(mutate func([]collection.MovieRecord) []collection.MovieRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = mutate(append([]collection.MovieRecord(nil), l.records...))
}

func (l *Library) replace(records []collection.MovieRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]collection.MovieRecord(nil), records...)
	l.loaded = true
}

// reconcile drops the optimistic change by re-reading the collection. When the
// re-read also fails the local view is cleared rather than left stale.
func (l *Library) reconcile(ctx context.Context, operation string, cause error) {
	logger := logging.WithContext(ctx, l.logger)
	logging.WarnWithContext(logger, "write failed; reloading collection", "collection_reconcile",
		logging.String("operation", operation),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, services.StatusText(cause)),
		logging.String(logging.FieldImpact, "local changes reverted"),
	)
	if _, err := l.Refresh(ctx); err != nil {
		logging.WarnWithContext(logger, "collection reload failed", "collection_reload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry once the store is reachable"),
			logging.String(logging.FieldImpact, "local view cleared"),
		)
		l.mu.Lock()
		l.records = nil
		l.loaded = false
		l.mu.Unlock()
	}
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, notifications.Event, notifications.Payload) error {
	return nil
}

func (noopNotifier) Close() {}
