package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local state locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
	Language     string `toml:"language"`
	ImageBaseURL string `toml:"image_base_url"`
}

// OpenDB points at the static open barcode database.
type OpenDB struct {
	BaseURL      string `toml:"base_url"`
	IndexTimeout int    `toml:"index_timeout_ms"`
}

// UPCLookup configures the generic UPC lookup reached through a CORS relay.
type UPCLookup struct {
	Enabled   bool   `toml:"enabled"`
	ProxyURL  string `toml:"proxy_url"`
	LookupURL string `toml:"lookup_url"`
}

// GitHubStore addresses the collection document inside a GitHub repository.
type GitHubStore struct {
	Owner  string `toml:"owner"`
	Repo   string `toml:"repo"`
	Path   string `toml:"path"`
	Branch string `toml:"branch"`
	APIURL string `toml:"api_url"`
	Token  string `toml:"token"`
}

// Store selects and configures the collection document backend.
type Store struct {
	Backend      string      `toml:"backend"`
	PublicURL    string      `toml:"public_url"`
	SQLitePath   string      `toml:"sqlite_path"`
	FilePath     string      `toml:"file_path"`
	MaxRetries   int         `toml:"max_retries"`
	RetryPauseMS int         `toml:"retry_pause_ms"`
	GitHub       GitHubStore `toml:"github"`
}

// Fetch contains the bounded HTTP fetcher defaults.
type Fetch struct {
	TimeoutMS     int `toml:"timeout_ms"`
	BulkTimeoutMS int `toml:"bulk_timeout_ms"`
	Retries       int `toml:"retries"`
	BackoffMS     int `toml:"backoff_ms"`
}

// Matching contains the shared auto-accept policy.
type Matching struct {
	AutoAcceptScore int `toml:"auto_accept_score"`
	MinLead         int `toml:"min_lead"`
	MaxChoices      int `toml:"max_choices"`
	TitleIndexScore int `toml:"title_index_score"`
}

// API contains the HTTP surface bind address and CORS origins.
type API struct {
	Bind           string   `toml:"bind"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Events configures collection change notifications.
type Events struct {
	NATSURL       string `toml:"nats_url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// Enrichment configures the background enrichment pass.
type Enrichment struct {
	DetailsSearchURL string `toml:"details_search_url"`
	RequestDelayMS   int    `toml:"request_delay_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for discshelf.
//
// Configuration sections by subsystem:
//   - Paths: local state and log directories
//   - TMDB: metadata provider credentials and endpoints
//   - OpenDB: static open barcode database
//   - UPCLookup: generic UPC lookup behind a CORS relay
//   - Store: collection document backend and CAS retry policy
//   - Fetch: per-request timeouts and retry schedule
//   - Matching: auto-accept thresholds
//   - API: HTTP surface for the browser scanner
//   - Events: NATS change notifications
//   - Enrichment: background metadata enrichment
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	TMDB       TMDB       `toml:"tmdb"`
	OpenDB     OpenDB     `toml:"open_db"`
	UPCLookup  UPCLookup  `toml:"upc_lookup"`
	Store      Store      `toml:"store"`
	Fetch      Fetch      `toml:"fetch"`
	Matching   Matching   `toml:"matching"`
	API        API        `toml:"api"`
	Events     Events     `toml:"events"`
	Enrichment Enrichment `toml:"enrichment"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/discshelf/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("discshelf.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory and, for local backends, the
// directory holding the collection document.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir}
	switch c.Store.Backend {
	case BackendSQLite:
		dirs = append(dirs, filepath.Dir(c.Store.SQLitePath))
	case BackendFile:
		dirs = append(dirs, filepath.Dir(c.Store.FilePath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HasProviderKey reports whether the metadata provider can be queried. Without
// a key the cascade runs against the open database only.
func (c *Config) HasProviderKey() bool {
	return strings.TrimSpace(c.TMDB.APIKey) != ""
}

// ReadOnly reports whether the configured backend cannot accept writes.
func (c *Config) ReadOnly() bool {
	return c.Store.Backend == BackendPublic
}

// LockPath is the single-instance lock used by the API server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "serve.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}
