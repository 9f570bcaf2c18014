package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// ProviderFixture holds canned metadata provider responses.
type ProviderFixture struct {
	// Search maps a query string to its results.
	Search map[string][]map[string]any
	// Find maps a barcode to its movie_results.
	Find map[string][]map[string]any
	// Details maps a movie id (as a string) to its details payload.
	Details map[string]map[string]any
}

// ProviderServer is a fake metadata provider.
type ProviderServer struct {
	*httptest.Server
	hits atomic.Int64
}

// Hits returns the number of requests served.
func (p *ProviderServer) Hits() int64 { return p.hits.Load() }

// NewProviderServer serves /find/{code}, /search/movie, and /movie/{id}.
func NewProviderServer(t testing.TB, fixture ProviderFixture) *ProviderServer {
	t.Helper()
	p := &ProviderServer{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/find/"):
			results := fixture.Find[strings.TrimPrefix(r.URL.Path, "/find/")]
			if results == nil {
				results = []map[string]any{}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"movie_results": results})
		case r.URL.Path == "/search/movie":
			results := fixture.Search[r.URL.Query().Get("query")]
			if results == nil {
				results = []map[string]any{}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"page": 1, "results": results, "total_results": len(results)})
		case strings.HasPrefix(r.URL.Path, "/movie/"):
			details, ok := fixture.Details[strings.TrimPrefix(r.URL.Path, "/movie/")]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(map[string]any{"status_message": "The resource you requested could not be found."})
				return
			}
			_ = json.NewEncoder(w).Encode(details)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(p.Close)
	return p
}

// NewStaticServer serves each value in files as JSON at its path and 404s
// everything else. It stands in for the open barcode database.
func NewStaticServer(t testing.TB, files map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}
