package collection_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"discshelf/internal/collection"
	"discshelf/internal/services"
	"discshelf/internal/testsupport"
)

func newTestStore(backend collection.Backend, opts ...collection.Option) *collection.Store {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := []collection.Option{
		collection.WithRetry(3, 0),
		collection.WithClock(func() time.Time { return fixed }),
	}
	return collection.NewStore(backend, append(base, opts...)...)
}

func inceptionRecord() collection.MovieRecord {
	return collection.MovieRecord{
		ExternalID:  27205,
		Title:       "Inception",
		ReleaseDate: "2010-07-15",
		UPC:         "883929800815",
		Note:        "Steelbook",
	}
}

func TestReadCollectionMissingDocument(t *testing.T) {
	store := newTestStore(testsupport.NewMemoryBackend())
	snapshot, err := store.ReadCollection(context.Background())
	if err != nil {
		t.Fatalf("ReadCollection: %v", err)
	}
	if snapshot.Token != "" {
		t.Fatalf("expected empty token, got %q", snapshot.Token)
	}
	if snapshot.Document.Movies == nil || len(snapshot.Document.Movies) != 0 {
		t.Fatalf("expected empty record list, got %+v", snapshot.Document.Movies)
	}
}

func TestAddRecordTwiceWritesOnce(t *testing.T) {
	backend := testsupport.NewMemoryBackend()
	store := newTestStore(backend)

	first, err := store.AddRecord(context.Background(), inceptionRecord())
	if err != nil {
		t.Fatalf("first AddRecord: %v", err)
	}
	if first.Duplicate || first.Record.RecordID == "" || first.Record.AddedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.Record.Status != collection.StatusPendingEnrichment {
		t.Fatalf("expected default status, got %q", first.Record.Status)
	}

	second, err := store.AddRecord(context.Background(), inceptionRecord())
	if err != nil {
		t.Fatalf("second AddRecord: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("expected second add to be reported as duplicate")
	}
	if got := len(backend.Records()); got != 1 {
		t.Fatalf("expected 1 stored record, got %d", got)
	}
	if backend.Saves() != 1 {
		t.Fatalf("expected a single write, got %d", backend.Saves())
	}
	if backend.Messages[0] != "Add movie: Inception" {
		t.Fatalf("unexpected change message %q", backend.Messages[0])
	}
}

func TestAddRecordRetriesAfterConcurrentWriter(t *testing.T) {
	backend := testsupport.NewMemoryBackend()
	other := collection.MovieRecord{Title: "Heat", UPC: "024543123456", AddedAt: "2026-02-01T00:00:00.000Z"}
	backend.BeforeSave = func(attempt int) {
		if attempt == 1 {
			backend.Append(other)
		}
	}
	var pauses int
	store := newTestStore(backend, collection.WithSleeper(func(context.Context, time.Duration) error {
		pauses++
		return nil
	}))

	result, err := store.AddRecord(context.Background(), inceptionRecord())
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	records := backend.Records()
	if len(records) != 2 {
		t.Fatalf("expected both records to survive, got %+v", records)
	}
	if records[0].Title != "Heat" || records[1].Title != "Inception" {
		t.Fatalf("unexpected order %+v", records)
	}
	if len(result.Movies) != 2 {
		t.Fatalf("expected returned list to include both records, got %d", len(result.Movies))
	}
	if pauses != 1 {
		t.Fatalf("expected one pause between attempts, got %d", pauses)
	}
}

func TestAddRecordRetryKeepsIdentity(t *testing.T) {
	backend := testsupport.NewMemoryBackend()
	backend.BeforeSave = func(attempt int) {
		if attempt == 1 {
			backend.Append(collection.MovieRecord{Title: "Heat", UPC: "1"})
		}
	}
	store := newTestStore(backend)
	result, err := store.AddRecord(context.Background(), inceptionRecord())
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	stored := backend.Records()[1]
	if stored.RecordID != result.Record.RecordID || stored.AddedAt != result.Record.AddedAt {
		t.Fatalf("retry changed record identity: stored %+v returned %+v", stored, result.Record)
	}
}

func TestAddRecordExhaustsRetries(t *testing.T) {
	backend := testsupport.NewMemoryBackend()
	backend.BeforeSave = func(attempt int) {
		backend.Append(collection.MovieRecord{Title: "Writer", UPC: string(rune('a' + attempt))})
	}
	store := newTestStore(backend)

	_, err := store.AddRecord(context.Background(), inceptionRecord())
	if !errors.Is(err, services.ErrWriteConflict) {
		t.Fatalf("expected write conflict, got %v", err)
	}
	if backend.Saves() != 4 {
		t.Fatalf("expected initial attempt plus 3 retries, got %d", backend.Saves())
	}
}

func TestAddRecordRequiresTitle(t *testing.T) {
	store := newTestStore(testsupport.NewMemoryBackend())
	_, err := store.AddRecord(context.Background(), collection.MovieRecord{UPC: "123"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRecordPropagatesBackendFailure(t *testing.T) {
	backend := testsupport.NewMemoryBackend()
	backend.SaveErr = services.Wrap(services.ErrReadOnly, "memory", "save", "read only", nil)
	store := newTestStore(backend)
	_, err := store.AddRecord(context.Background(), inceptionRecord())
	if !errors.Is(err, services.ErrReadOnly) {
		t.Fatalf("expected read-only error, got %v", err)
	}
	if backend.Saves() != 1 {
		t.Fatalf("non-conflict failures must not retry, got %d saves", backend.Saves())
	}
}

func TestDeleteRecordMissingLeavesCollection(t *testing.T) {
	existing := inceptionRecord()
	existing.AddedAt = "2026-01-01T00:00:00.000Z"
	backend := testsupport.NewMemoryBackend(existing)
	store := newTestStore(backend)

	movies, removed, err := store.DeleteRecord(context.Background(), collection.MovieRecord{Title: "Heat", UPC: "999"})
	if err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if removed {
		t.Fatal("expected nothing removed")
	}
	if len(movies) != 1 || movies[0].Title != "Inception" {
		t.Fatalf("expected unchanged collection, got %+v", movies)
	}
	if backend.Saves() != 0 {
		t.Fatalf("expected no write, got %d", backend.Saves())
	}
}

func TestDeleteRecordMatchRules(t *testing.T) {
	stored := collection.MovieRecord{
		RecordID:   "rec-1",
		ExternalID: 27205,
		Title:      "Inception",
		UPC:        "883929800815",
		AddedAt:    "2026-01-01T00:00:00.000Z",
	}
	tests := []struct {
		name     string
		criteria collection.MovieRecord
		want     bool
	}{
		{name: "record id", criteria: collection.MovieRecord{RecordID: "rec-1"}, want: true},
		{name: "added at", criteria: collection.MovieRecord{AddedAt: "2026-01-01T00:00:00.000Z"}, want: true},
		{name: "upc and title", criteria: collection.MovieRecord{UPC: "883929800815", Title: "Inception"}, want: true},
		{name: "external id and title", criteria: collection.MovieRecord{ExternalID: 27205, Title: "Inception"}, want: true},
		{name: "upc with other title", criteria: collection.MovieRecord{UPC: "883929800815", Title: "Heat"}, want: false},
		{name: "external id alone", criteria: collection.MovieRecord{ExternalID: 27205}, want: false},
		{name: "empty", criteria: collection.MovieRecord{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collection.Matches(stored, tt.criteria); got != tt.want {
				t.Fatalf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeleteRecordRemovesAndDescribes(t *testing.T) {
	keep := collection.MovieRecord{Title: "Heat", UPC: "1", AddedAt: "a"}
	drop := collection.MovieRecord{Title: "Inception", UPC: "2", AddedAt: "b"}
	backend := testsupport.NewMemoryBackend(keep, drop)
	store := newTestStore(backend)

	movies, removed, err := store.DeleteRecord(context.Background(), collection.MovieRecord{AddedAt: "b", Title: "Inception"})
	if err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if !removed || len(movies) != 1 || movies[0].Title != "Heat" {
		t.Fatalf("unexpected delete result removed=%v movies=%+v", removed, movies)
	}
	if backend.Messages[0] != "Remove movie: Inception" {
		t.Fatalf("unexpected change message %q", backend.Messages[0])
	}
}

func TestUpdateRecordsNoChangeSkipsWrite(t *testing.T) {
	backend := testsupport.NewMemoryBackend(inceptionRecord())
	store := newTestStore(backend)
	_, changed, err := store.UpdateRecords(context.Background(), "noop", func(records []collection.MovieRecord) ([]collection.MovieRecord, bool) {
		return records, false
	})
	if err != nil || changed {
		t.Fatalf("expected untouched update, got changed=%v err=%v", changed, err)
	}
	if backend.Saves() != 0 {
		t.Fatal("expected no write")
	}
}
