package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"discshelf/internal/config"
)

func TestLoadDefaultConfigFallsBackToPublicWithoutToken(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("NATS_URL", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "discshelf")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Store.Backend != config.BackendPublic {
		t.Fatalf("expected public backend without token, got %q", cfg.Store.Backend)
	}
	if !cfg.ReadOnly() {
		t.Fatal("expected read-only collection without token")
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if !cfg.HasProviderKey() {
		t.Fatal("expected provider key to be reported")
	}
	if cfg.Store.SQLitePath != filepath.Join(wantState, "collection.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Store.SQLitePath)
	}
	if cfg.Matching.AutoAcceptScore != 120 || cfg.Matching.MinLead != 25 || cfg.Matching.MaxChoices != 8 {
		t.Fatalf("unexpected matching defaults: %+v", cfg.Matching)
	}
	if cfg.Fetch.TimeoutMS != 7000 || cfg.Fetch.BulkTimeoutMS != 9000 || cfg.Fetch.Retries != 2 {
		t.Fatalf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.StateDir); err != nil || !info.IsDir() {
		t.Fatalf("expected state dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	configPath := filepath.Join(tempDir, "discshelf.toml")

	type payload struct {
		TMDB struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"tmdb"`
		Store struct {
			Backend    string `toml:"backend"`
			SQLitePath string `toml:"sqlite_path"`
			MaxRetries int    `toml:"max_retries"`
		} `toml:"store"`
		Matching struct {
			AutoAcceptScore int `toml:"auto_accept_score"`
		} `toml:"matching"`
	}
	custom := payload{}
	custom.TMDB.APIKey = "abc123"
	custom.TMDB.BaseURL = "https://example.com/tmdb/"
	custom.Store.Backend = "SQLite"
	custom.Store.SQLitePath = filepath.Join(tempDir, "db", "shelf.db")
	custom.Store.MaxRetries = 5
	custom.Matching.AutoAcceptScore = 110
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.TMDB.APIKey != "abc123" {
		t.Fatalf("expected TMDB key from file, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != "https://example.com/tmdb" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.TMDB.BaseURL)
	}
	if cfg.Store.Backend != config.BackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Store.Backend)
	}
	if cfg.ReadOnly() {
		t.Fatal("sqlite backend should be writable")
	}
	if cfg.Store.MaxRetries != 5 {
		t.Fatalf("expected max retries 5, got %d", cfg.Store.MaxRetries)
	}
	if cfg.Matching.AutoAcceptScore != 110 {
		t.Fatalf("expected auto accept override, got %d", cfg.Matching.AutoAcceptScore)
	}
	if cfg.Matching.MinLead != 25 {
		t.Fatalf("expected untouched min lead default, got %d", cfg.Matching.MinLead)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "db")); err != nil {
		t.Fatalf("expected sqlite directory created: %v", err)
	}
}

func TestConfigFileValuesWinOverEnvFallbacks(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "discshelf.toml")
	contents := "[tmdb]\napi_key = \"file-tmdb\"\n\n[store.github]\ntoken = \"file-token\"\nowner = \"shelf\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TMDB_API_KEY", "env-tmdb")
	t.Setenv("GITHUB_TOKEN", "env-token")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "file-tmdb" {
		t.Errorf("expected TMDB key from file, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Store.GitHub.Token != "file-token" {
		t.Errorf("expected store token from file, got %q", cfg.Store.GitHub.Token)
	}
	if cfg.Store.Backend != config.BackendGitHub {
		t.Errorf("expected github backend with token, got %q", cfg.Store.Backend)
	}
	if cfg.Store.GitHub.Owner != "shelf" {
		t.Errorf("unexpected owner %q", cfg.Store.GitHub.Owner)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "TMDB_API_KEY") {
		t.Fatalf("sample config missing TMDB key hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Store.Backend != config.BackendGitHub {
		t.Fatalf("expected sample backend github, got %q", cfg.Store.Backend)
	}
	if cfg.Matching.MaxChoices != 8 {
		t.Fatalf("expected sample max choices 8, got %d", cfg.Matching.MaxChoices)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for github backend without token")
	}

	cfg = config.Default()
	cfg.Store.Backend = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg = config.Default()
	cfg.Store.Backend = config.BackendPublic
	cfg.Store.PublicURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid public url")
	}

	cfg = config.Default()
	cfg.Store.Backend = config.BackendPublic
	cfg.Fetch.TimeoutMS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive timeout")
	}

	cfg = config.Default()
	cfg.Store.Backend = config.BackendPublic
	cfg.Matching.MinLead = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative lead")
	}

	cfg = config.Default()
	cfg.Store.Backend = config.BackendFile
	cfg.Store.FilePath = "/tmp/movies.json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected file backend to validate: %v", err)
	}
}
