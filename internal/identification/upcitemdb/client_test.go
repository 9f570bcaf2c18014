package upcitemdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"discshelf/internal/fetch"
	"discshelf/internal/services"
)

func TestRequestURLEscapesTargetForProxy(t *testing.T) {
	client, err := New("https://relay.example/raw?url=", "https://api.example/lookup?upc=", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := client.RequestURL("883929800815")
	want := "https://relay.example/raw?url=" + url.QueryEscape("https://api.example/lookup?upc=883929800815")
	if got != want {
		t.Fatalf("unexpected url\n got: %s\nwant: %s", got, want)
	}

	direct, _ := New("", "https://api.example/lookup?upc=", nil)
	if got := direct.RequestURL("123"); got != "https://api.example/lookup?upc=123" {
		t.Fatalf("unexpected direct url %s", got)
	}
}

func TestFirstTitleThroughRelay(t *testing.T) {
	var target string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"OK","total":2,"items":[{"title":"  Inception (Steelbook) [Blu-ray]  "},{"title":"Other"}]}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/raw?url=", "https://api.example/lookup?upc=", fetch.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	title, err := client.FirstTitle(context.Background(), "883929800815")
	if err != nil {
		t.Fatalf("FirstTitle: %v", err)
	}
	if title != "Inception (Steelbook) [Blu-ray]" {
		t.Fatalf("unexpected title %q", title)
	}
	if target != "https://api.example/lookup?upc=883929800815" {
		t.Fatalf("relay received %q", target)
	}
}

func TestLookupEmptyAndFailure(t *testing.T) {
	status := http.StatusOK
	body := `{"code":"OK","total":0,"items":[]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	client, _ := New("", srv.URL+"/lookup?upc=", fetch.New(fetch.WithRetry(0, 0)))

	title, err := client.FirstTitle(context.Background(), "1234567890")
	if err != nil || title != "" {
		t.Fatalf("expected empty result, got %q %v", title, err)
	}

	status = http.StatusTooManyRequests
	items, err := client.Lookup(context.Background(), "1234567890")
	if err != nil || items != nil {
		t.Fatalf("expected rate limit to read as empty, got %v %v", items, err)
	}

	status = http.StatusOK
	body = `{"code":"INVALID_UPC","message":"Not a valid UPC code."}`
	_, err = client.Lookup(context.Background(), "1234567890")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
