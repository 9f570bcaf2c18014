package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeSources()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeMatching()
	c.normalizeAPI()
	c.normalizeEvents()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
}

func (c *Config) normalizeSources() {
	c.OpenDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenDB.BaseURL), "/")
	if c.OpenDB.IndexTimeout <= 0 {
		c.OpenDB.IndexTimeout = defaultOpenDBTimeoutMS
	}
	c.UPCLookup.ProxyURL = strings.TrimSpace(c.UPCLookup.ProxyURL)
	c.UPCLookup.LookupURL = strings.TrimSpace(c.UPCLookup.LookupURL)
	if c.UPCLookup.LookupURL == "" {
		c.UPCLookup.LookupURL = defaultUPCLookupURL
	}
	c.Enrichment.DetailsSearchURL = strings.TrimSpace(c.Enrichment.DetailsSearchURL)
	if c.Enrichment.RequestDelayMS < 0 {
		c.Enrichment.RequestDelayMS = 0
	}
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = BackendGitHub
	}

	gh := &c.Store.GitHub
	if gh.Token == "" {
		if value, ok := os.LookupEnv("GITHUB_TOKEN"); ok {
			gh.Token = value
		}
	}
	gh.Token = strings.TrimSpace(gh.Token)
	gh.Owner = strings.TrimSpace(gh.Owner)
	gh.Repo = strings.TrimSpace(gh.Repo)
	if gh.Repo == "" {
		gh.Repo = defaultGitHubRepo
	}
	gh.Path = strings.Trim(strings.TrimSpace(gh.Path), "/")
	if gh.Path == "" {
		gh.Path = defaultGitHubPath
	}
	gh.Branch = strings.TrimSpace(gh.Branch)
	gh.APIURL = strings.TrimRight(strings.TrimSpace(gh.APIURL), "/")
	if gh.APIURL == "" {
		gh.APIURL = defaultGitHubAPIURL
	}

	// Without a write token the shared collection is only reachable read-only.
	if c.Store.Backend == BackendGitHub && gh.Token == "" {
		c.Store.Backend = BackendPublic
	}

	c.Store.PublicURL = strings.TrimSpace(c.Store.PublicURL)
	if c.Store.PublicURL == "" {
		c.Store.PublicURL = defaultPublicURL
	}

	var err error
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = filepath.Join(c.Paths.StateDir, defaultSQLiteFile)
	}
	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath); err != nil {
		return fmt.Errorf("store.sqlite_path: %w", err)
	}
	if strings.TrimSpace(c.Store.FilePath) == "" {
		c.Store.FilePath = filepath.Join(c.Paths.StateDir, defaultDocumentFile)
	}
	if c.Store.FilePath, err = expandPath(c.Store.FilePath); err != nil {
		return fmt.Errorf("store.file_path: %w", err)
	}

	if c.Store.MaxRetries < 0 {
		c.Store.MaxRetries = defaultStoreMaxRetries
	}
	if c.Store.RetryPauseMS < 0 {
		c.Store.RetryPauseMS = defaultStoreRetryPause
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.TimeoutMS <= 0 {
		c.Fetch.TimeoutMS = defaultFetchTimeoutMS
	}
	if c.Fetch.BulkTimeoutMS <= 0 {
		c.Fetch.BulkTimeoutMS = defaultFetchBulkTimeout
	}
	if c.Fetch.Retries < 0 {
		c.Fetch.Retries = 0
	}
	if c.Fetch.BackoffMS < 0 {
		c.Fetch.BackoffMS = 0
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.MaxChoices <= 0 {
		c.Matching.MaxChoices = defaultMaxChoices
	}
	if c.Matching.TitleIndexScore <= 0 {
		c.Matching.TitleIndexScore = defaultTitleIndexScore
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	origins := make([]string, 0, len(c.API.AllowedOrigins))
	for _, origin := range c.API.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.AllowedOrigins = origins
}

func (c *Config) normalizeEvents() {
	if c.Events.NATSURL == "" {
		if value, ok := os.LookupEnv("NATS_URL"); ok {
			c.Events.NATSURL = value
		}
	}
	c.Events.NATSURL = strings.TrimSpace(c.Events.NATSURL)
	c.Events.SubjectPrefix = strings.Trim(strings.TrimSpace(c.Events.SubjectPrefix), ".")
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = defaultSubjectPrefix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
