package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"fetch.timeout_ms":         c.Fetch.TimeoutMS,
		"fetch.bulk_timeout_ms":    c.Fetch.BulkTimeoutMS,
		"open_db.index_timeout_ms": c.OpenDB.IndexTimeout,
	})
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendGitHub:
		if strings.TrimSpace(c.Store.GitHub.Token) == "" {
			return errors.New("store.github.token is required for the github backend. Set GITHUB_TOKEN or switch store.backend to \"public\"")
		}
		if err := validateURL("store.github.api_url", c.Store.GitHub.APIURL); err != nil {
			return err
		}
	case BackendPublic:
		if err := validateURL("store.public_url", c.Store.PublicURL); err != nil {
			return err
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("store.sqlite_path must be set for the sqlite backend")
		}
	case BackendFile:
		if strings.TrimSpace(c.Store.FilePath) == "" {
			return errors.New("store.file_path must be set for the file backend")
		}
	default:
		return fmt.Errorf("store.backend: unsupported value %q (want github, public, sqlite, or file)", c.Store.Backend)
	}
	return nil
}

func (c *Config) validateSources() error {
	if c.HasProviderKey() {
		if err := validateURL("tmdb.base_url", c.TMDB.BaseURL); err != nil {
			return err
		}
	}
	if c.OpenDB.BaseURL != "" {
		if err := validateURL("open_db.base_url", c.OpenDB.BaseURL); err != nil {
			return err
		}
	}
	if c.UPCLookup.Enabled && c.UPCLookup.ProxyURL != "" {
		if err := validateURL("upc_lookup.proxy_url", c.UPCLookup.ProxyURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.AutoAcceptScore < 0 {
		return errors.New("matching.auto_accept_score must be >= 0")
	}
	if c.Matching.MinLead < 0 {
		return errors.New("matching.min_lead must be >= 0")
	}
	return nil
}

func validateURL(key, value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
