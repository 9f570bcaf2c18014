package filedoc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"discshelf/internal/collection"
)

func TestLoadMissingFile(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "movies.json"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snapshot.Token != "" || len(snapshot.Document.Movies) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
}

func TestSaveDetectsExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "movies.json")
	store, _ := New(path, nil)
	ctx := context.Background()

	token, err := store.Save(ctx, collection.Document{Movies: []collection.MovieRecord{{Title: "Heat", UPC: "1"}}}, "", "Add movie: Heat")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"title": "Heat"`) {
		t.Fatalf("unexpected file contents:\n%s", data)
	}

	if _, err := store.Save(ctx, collection.Document{}, "", "create again"); !errors.Is(err, collection.ErrPreconditionFailed) {
		t.Fatalf("expected create over existing file to fail, got %v", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		t.Fatalf("external edit: %v", err)
	}
	if _, err := store.Save(ctx, collection.Document{}, token, "stale"); !errors.Is(err, collection.ErrPreconditionFailed) {
		t.Fatalf("expected stale token to fail, got %v", err)
	}
}

func TestConcurrentStoresShareFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.json")
	titles := []string{"Alien", "Aliens", "Heat", "Inception"}

	var wg sync.WaitGroup
	errs := make(chan error, len(titles))
	for _, title := range titles {
		backend, _ := New(path, nil)
		store := collection.NewStore(backend, collection.WithRetry(10, 0))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AddRecord(context.Background(), collection.MovieRecord{Title: title, UPC: title})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AddRecord: %v", err)
		}
	}

	backend, _ := New(path, nil)
	snapshot, err := backend.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snapshot.Document.Movies) != len(titles) {
		t.Fatalf("expected %d records, got %d", len(titles), len(snapshot.Document.Movies))
	}
}
