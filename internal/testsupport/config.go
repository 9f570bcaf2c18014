package testsupport

import (
	"path/filepath"
	"testing"

	"discshelf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The collection defaults to the file backend inside the temp directory and
// the API binds to an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.TMDB.APIKey = "test"
	cfgVal.Store.Backend = config.BackendFile
	cfgVal.Store.FilePath = filepath.Join(base, "state", "movies.json")
	cfgVal.Store.SQLitePath = filepath.Join(base, "state", "collection.db")
	cfgVal.Store.GitHub.Token = ""
	cfgVal.Store.RetryPauseMS = 1
	cfgVal.Fetch.Retries = 0
	cfgVal.Fetch.BackoffMS = 1
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Enrichment.RequestDelayMS = 0

	builder := &configBuilder{cfg: &cfgVal}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTMDBBaseURL points the provider client at a fake server.
func WithTMDBBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = url
	}
}

// WithOpenDBURL points the open-database client at a fake server.
func WithOpenDBURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenDB.BaseURL = url
	}
}

// WithBackend selects the collection backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = backend
	}
}

// WithoutUPCLookup disables the generic UPC lookup.
func WithoutUPCLookup() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.UPCLookup.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
