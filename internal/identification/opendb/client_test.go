package opendb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"discshelf/internal/fetch"
	"discshelf/internal/services"
)

func newTestServer(t *testing.T, files map[string]any) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		payload, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := New(baseURL, WithFetcher(fetch.New(fetch.WithRetry(0, 0))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestEnsureIndexesLoadsOnce(t *testing.T) {
	srv, hits := newTestServer(t, map[string]any{
		"/upc_index.json": map[string]any{
			"883929800815": map[string]any{"title": "Inception", "year": 2010, "edition": "Steelbook"},
		},
		"/title_index.json": map[string]any{
			"Inception": []map[string]any{{"title": "Inception", "year": "2010"}},
		},
	})
	client := newTestClient(t, srv.URL)
	cache := NewIndexCache()

	for i := 0; i < 3; i++ {
		if err := client.EnsureIndexes(context.Background(), cache); err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
	}
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Fatalf("expected 2 index downloads, got %d", got)
	}
	if !cache.Loaded() {
		t.Fatal("expected cache to be loaded")
	}

	record, code, ok := cache.LookupUPC([]string{"0883929800815", "883929800815"})
	if !ok || code != "883929800815" {
		t.Fatalf("expected barcode hit on second variant, got %v %q", ok, code)
	}
	if record.Title != "Inception" || record.Year != 2010 || record.Edition != "Steelbook" {
		t.Fatalf("unexpected record %+v", record)
	}

	titles := cache.LookupTitle("  INCEPTION ")
	if len(titles) != 1 || titles[0].Year != 2010 {
		t.Fatalf("expected quoted year to decode, got %+v", titles)
	}
}

func TestEnsureIndexesMissingFilesCountAsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, map[string]any{})
	client := newTestClient(t, srv.URL)
	cache := NewIndexCache()

	if err := client.EnsureIndexes(context.Background(), cache); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	if !cache.Loaded() {
		t.Fatal("expected cache to be marked loaded")
	}
	if upc, titles := cache.Size(); upc != 0 || titles != 0 {
		t.Fatalf("expected empty indexes, got %d/%d", upc, titles)
	}
}

func TestEnsureIndexesTransportFailureLeavesCacheUnloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL,
		WithFetcher(fetch.New(fetch.WithRetry(0, 0))),
		WithIndexTimeout(20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cache := NewIndexCache()
	err = client.EnsureIndexes(context.Background(), cache)
	if !errors.Is(err, services.ErrNetworkTimeout) {
		t.Fatalf("expected network timeout, got %v", err)
	}
	if cache.Loaded() {
		t.Fatal("expected cache to stay unloaded after failure")
	}
}

func TestChunkPath(t *testing.T) {
	path, err := ChunkPath("883929800815")
	if err != nil {
		t.Fatalf("ChunkPath: %v", err)
	}
	if path != "8/8/3/883929800815.json" {
		t.Fatalf("unexpected path %q", path)
	}
	if _, err := ChunkPath("12ab"); err == nil {
		t.Fatal("expected error for non-barcode input")
	}
}

func TestFetchChunk(t *testing.T) {
	srv, _ := newTestServer(t, map[string]any{
		"/8/8/3/883929800815.json": map[string]any{"title": "Inception", "year": 2010, "edition": "Steelbook"},
	})
	client := newTestClient(t, srv.URL)

	record, code, ok, err := client.FetchChunk(context.Background(), []string{"883929800815", "0883929800815"})
	if err != nil {
		t.Fatalf("FetchChunk: %v", err)
	}
	if !ok || code != "883929800815" || record.Title != "Inception" {
		t.Fatalf("unexpected chunk result %v %q %+v", ok, code, record)
	}

	_, _, ok, err = client.FetchChunk(context.Background(), []string{"012345678905"})
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}
