package library

import (
	"context"
	"fmt"
	"log/slog"

	"discshelf/internal/collection"
	"discshelf/internal/collection/filedoc"
	"discshelf/internal/collection/github"
	"discshelf/internal/collection/public"
	"discshelf/internal/collection/sqlitedoc"
	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/services"
)

// OpenBackend constructs the backend named by cfg.Store.Backend. The returned
// close function releases backend resources and is never nil.
func OpenBackend(ctx context.Context, cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) (collection.Backend, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, services.Wrap(services.ErrConfiguration, "library", "open backend", "config is nil", nil)
	}
	if fetcher == nil {
		fetcher = fetch.NewFromConfig(cfg, logger)
	}

	switch cfg.Store.Backend {
	case config.BackendGitHub:
		backend, err := github.NewFromConfig(cfg, fetcher, logger)
		if err != nil {
			return nil, noop, err
		}
		return backend, noop, nil
	case config.BackendPublic:
		backend, err := public.NewFromConfig(cfg, fetcher, logger)
		if err != nil {
			return nil, noop, err
		}
		return backend, noop, nil
	case config.BackendSQLite:
		if err := ctx.Err(); err != nil {
			return nil, noop, err
		}
		store, err := sqlitedoc.OpenFromConfig(cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.BackendFile:
		store, err := filedoc.NewFromConfig(cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	default:
		return nil, noop, services.Wrap(services.ErrConfiguration, "library", "open backend",
			fmt.Sprintf("unknown store backend %q", cfg.Store.Backend), nil)
	}
}
