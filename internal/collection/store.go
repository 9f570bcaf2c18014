package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"discshelf/internal/config"
	"discshelf/internal/logging"
	"discshelf/internal/services"
)

const (
	defaultMaxRetries = 3
	defaultRetryPause = time.Second
)

// Store runs read-modify-write cycles against a Backend.
type Store struct {
	backend    Backend
	maxRetries int
	pause      time.Duration
	sleep      func(context.Context, time.Duration) error
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRetry sets the number of retries after a precondition failure and the
// fixed pause between attempts.
func WithRetry(maxRetries int, pause time.Duration) Option {
	return func(s *Store) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		if pause >= 0 {
			s.pause = pause
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "collection")
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleeper replaces the pause between attempts.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(s *Store) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		maxRetries: defaultMaxRetries,
		pause:      defaultRetryPause,
		sleep:      sleepContext,
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     logging.NewComponentLogger(nil, "collection"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StoreOptionsFromConfig maps [store] retry settings to options.
func StoreOptionsFromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		return nil
	}
	return []Option{WithRetry(cfg.Store.MaxRetries, time.Duration(cfg.Store.RetryPauseMS)*time.Millisecond)}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Now returns the store clock's current time.
func (s *Store) Now() time.Time { return s.now() }

// ReadCollection returns the current document and token.
func (s *Store) ReadCollection(ctx context.Context) (Snapshot, error) {
	snapshot, err := s.backend.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if snapshot.Document.Movies == nil {
		snapshot.Document.Movies = []MovieRecord{}
	}
	return snapshot, nil
}

// PrepareRecord fills the record id, creation time, and status when unset.
// AddRecord calls it before its first attempt so retries write the same record.
func (s *Store) PrepareRecord(record MovieRecord) MovieRecord {
	record.Title = strings.TrimSpace(record.Title)
	record.UPC = strings.TrimSpace(record.UPC)
	record.Note = strings.TrimSpace(record.Note)
	if record.RecordID == "" {
		record.RecordID = s.newID()
	}
	if record.AddedAt == "" {
		record.AddedAt = Timestamp(s.now())
	}
	if record.Status == "" {
		record.Status = StatusPendingEnrichment
	}
	return record
}

// AddResult describes the outcome of AddRecord.
type AddResult struct {
	Movies    []MovieRecord
	Record    MovieRecord
	Duplicate bool
}

// AddRecord appends record unless a record with the same UPC and title already
// exists, in which case nothing is written.
func (s *Store) AddRecord(ctx context.Context, record MovieRecord) (AddResult, error) {
	record = s.PrepareRecord(record)
	if record.Title == "" {
		return AddResult{}, services.Wrap(services.ErrValidation, "collection", "add record", "title is required", nil)
	}

	duplicate := false
	movies, err := s.update(ctx, "add record", fmt.Sprintf("Add movie: %s", record.Title), func(current []MovieRecord) ([]MovieRecord, bool) {
		for _, existing := range current {
			if SameDisc(existing, record) {
				duplicate = true
				return current, false
			}
		}
		duplicate = false
		return append(current, record), true
	})
	if err != nil {
		return AddResult{}, err
	}
	if duplicate {
		s.logger.Info("record already in collection; skipping write",
			logging.String("title", record.Title),
			logging.String("upc", record.UPC),
		)
	}
	return AddResult{Movies: movies, Record: record, Duplicate: duplicate}, nil
}

// DeleteRecord removes every stored record matching criteria. When nothing
// matches no write happens and the current records are returned unchanged.
func (s *Store) DeleteRecord(ctx context.Context, criteria MovieRecord) ([]MovieRecord, bool, error) {
	removed := false
	movies, err := s.update(ctx, "delete record", fmt.Sprintf("Remove movie: %s", removalLabel(criteria)), func(current []MovieRecord) ([]MovieRecord, bool) {
		next := make([]MovieRecord, 0, len(current))
		for _, existing := range current {
			if Matches(existing, criteria) {
				continue
			}
			next = append(next, existing)
		}
		removed = len(next) != len(current)
		if !removed {
			return current, false
		}
		return next, true
	})
	if err != nil {
		return nil, false, err
	}
	if !removed {
		s.logger.Info("delete skipped; record not in collection", logging.String("title", criteria.Title))
	}
	return movies, removed, nil
}

// UpdateRecords applies mutate to a fresh copy of the records and writes the
// result when mutate reports a change.
func (s *Store) UpdateRecords(ctx context.Context, message string, mutate func([]MovieRecord) ([]MovieRecord, bool)) ([]MovieRecord, bool, error) {
	changed := false
	movies, err := s.update(ctx, "update records", message, func(current []MovieRecord) ([]MovieRecord, bool) {
		next, ok := mutate(current)
		changed = ok
		return next, ok
	})
	if err != nil {
		return nil, false, err
	}
	return movies, changed, nil
}

// update is the compare-and-swap loop. Each attempt re-reads the document,
// recomputes the full record list, and writes conditioned on the token just
// read. Precondition failures pause and retry up to maxRetries times.
func (s *Store) update(ctx context.Context, operation, message string, mutate func([]MovieRecord) ([]MovieRecord, bool)) ([]MovieRecord, error) {
	for attempt := 0; ; attempt++ {
		snapshot, err := s.ReadCollection(ctx)
		if err != nil {
			return nil, err
		}
		current := append([]MovieRecord(nil), snapshot.Document.Movies...)
		next, changed := mutate(current)
		if !changed {
			return snapshot.Document.Movies, nil
		}

		doc := Document{UpdatedAt: Timestamp(s.now()), Movies: next}
		_, err = s.backend.Save(ctx, doc, snapshot.Token, message)
		if err == nil {
			s.logger.Debug("collection written",
				logging.String("operation", operation),
				logging.String("backend", s.backend.Name()),
				logging.Int("attempt", attempt+1),
				logging.Int("records", len(next)),
			)
			return next, nil
		}
		if !errors.Is(err, ErrPreconditionFailed) {
			return nil, err
		}
		if attempt >= s.maxRetries {
			return nil, services.Wrap(services.ErrWriteConflict, "collection", operation,
				fmt.Sprintf("gave up after %d attempts", attempt+1), err)
		}
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "collection changed during write; retrying", "collection_conflict",
			logging.String("operation", operation),
			logging.String("backend", s.backend.Name()),
			logging.Int("attempts_left", s.maxRetries-attempt),
			logging.String(logging.FieldErrorHint, "another writer saved first"),
			logging.String(logging.FieldImpact, "write retried from a fresh read"),
		)
		if err := s.sleep(ctx, s.pause); err != nil {
			return nil, err
		}
	}
}

func removalLabel(record MovieRecord) string {
	if record.Title != "" {
		return record.Title
	}
	if record.ExternalID != 0 {
		return fmt.Sprintf("%d", record.ExternalID)
	}
	return "unknown"
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
