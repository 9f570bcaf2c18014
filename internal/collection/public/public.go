// Package public reads the published collection document from a plain URL.
// It is the read-only backend used when no store token is configured.
package public

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"discshelf/internal/collection"
	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/logging"
	"discshelf/internal/services"
)

// Backend implements a read-only collection.Backend.
type Backend struct {
	url     string
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

// New constructs a backend reading rawURL.
func New(rawURL string, fetcher *fetch.Fetcher, logger *slog.Logger) (*Backend, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("public collection url required")
	}
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &Backend{url: rawURL, fetcher: fetcher, logger: logging.NewComponentLogger(logger, "public_store")}, nil
}

// NewFromConfig builds a backend from store.public_url.
func NewFromConfig(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) (*Backend, error) {
	return New(cfg.Store.PublicURL, fetcher, logger)
}

func (b *Backend) Name() string { return "public" }

// Load reads the whole document under the fetcher's bulk timeout. The token
// is a content hash; it only reports whether two reads saw the same bytes.
func (b *Backend) Load(ctx context.Context) (collection.Snapshot, error) {
	resp, err := b.fetcher.Do(ctx, fetch.Request{
		URL:     b.url,
		Timeout: b.fetcher.BulkTimeout(),
		Header:  http.Header{"Cache-Control": []string{"no-cache"}},
	})
	if err != nil {
		return collection.Snapshot{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return collection.Snapshot{Document: collection.Document{Movies: []collection.MovieRecord{}}}, nil
	}
	if !resp.OK() {
		return collection.Snapshot{}, services.Wrap(services.ErrHTTP, "public", "load", resp.URL, resp.Err())
	}
	doc, err := collection.DecodeDocument(resp.Body)
	if err != nil {
		return collection.Snapshot{}, err
	}
	sum := sha256.Sum256(resp.Body)
	b.logger.Debug("public collection loaded", logging.Int("records", len(doc.Movies)))
	return collection.Snapshot{Document: doc, Token: hex.EncodeToString(sum[:])}, nil
}

// Save always fails: the public copy has no write path.
func (b *Backend) Save(context.Context, collection.Document, string, string) (string, error) {
	return "", services.Wrap(services.ErrReadOnly, "public", "save", "no store token configured", nil)
}
