package opendb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/logging"
	"discshelf/internal/normalize"
	"discshelf/internal/services"
)

const (
	upcIndexFile   = "upc_index.json"
	titleIndexFile = "title_index.json"
	shardDepth     = 3
)

// Client fetches open-database files relative to a base URL.
type Client struct {
	baseURL      string
	indexTimeout time.Duration
	fetcher      *fetch.Fetcher
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithFetcher overrides the default bounded fetcher.
func WithFetcher(fetcher *fetch.Fetcher) Option {
	return func(c *Client) {
		if fetcher != nil {
			c.fetcher = fetcher
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "opendb")
	}
}

// WithIndexTimeout sets the deadline for each index download.
func WithIndexTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.indexTimeout = timeout
		}
	}
}

// New constructs a client for the database rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("open database base url required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetch.New(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.indexTimeout <= 0 {
		c.indexTimeout = c.fetcher.BulkTimeout()
	}
	return c, nil
}

// NewFromConfig builds a client from the [open_db] section.
func NewFromConfig(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) (*Client, error) {
	return New(cfg.OpenDB.BaseURL,
		WithFetcher(fetcher),
		WithLogger(logger),
		WithIndexTimeout(time.Duration(cfg.OpenDB.IndexTimeout)*time.Millisecond),
	)
}

// EnsureIndexes loads both indexes into cache unless it already holds them.
// The two downloads run concurrently. A missing index file counts as empty;
// a transport failure leaves the cache unloaded so a later call can retry.
func (c *Client) EnsureIndexes(ctx context.Context, cache *IndexCache) error {
	if cache == nil {
		return errors.New("index cache is nil")
	}
	cache.load.Lock()
	defer cache.load.Unlock()
	if cache.Loaded() {
		return nil
	}

	var (
		upc    map[string]Record
		titles map[string][]Record
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.fetchIndex(groupCtx, upcIndexFile, &upc)
	})
	group.Go(func() error {
		return c.fetchIndex(groupCtx, titleIndexFile, &titles)
	})
	if err := group.Wait(); err != nil {
		return err
	}

	if upc == nil {
		upc = map[string]Record{}
	}
	indexed := make(map[string][]Record, len(titles))
	for key, records := range titles {
		normalized := normalize.NormalizeTitle(key)
		if normalized == "" {
			continue
		}
		indexed[normalized] = append(indexed[normalized], records...)
	}
	cache.store(upc, indexed)

	c.logger.Debug("open database indexes loaded",
		logging.Int("upc_keys", len(upc)),
		logging.Int("title_keys", len(indexed)),
	)
	return nil
}

func (c *Client) fetchIndex(ctx context.Context, name string, dest any) error {
	req := fetch.Request{URL: c.baseURL + "/" + name, Timeout: c.indexTimeout}
	found, err := c.fetcher.FetchJSON(ctx, req, dest)
	if err != nil {
		return services.Wrap(services.ErrTransient, "opendb", "load index", name, err)
	}
	if !found {
		c.logger.Debug("open database index unavailable", logging.String("index", name))
	}
	return nil
}

// ChunkPath returns the sharded path of a code's record file, for example
// "8/8/3/883929800815.json".
func ChunkPath(code string) (string, error) {
	if len(code) < shardDepth || !normalize.IsBarcode(code) {
		return "", fmt.Errorf("invalid barcode %q", code)
	}
	parts := make([]string, 0, shardDepth+1)
	for i := 0; i < shardDepth; i++ {
		parts = append(parts, code[i:i+1])
	}
	parts = append(parts, code+".json")
	return strings.Join(parts, "/"), nil
}

// FetchChunk returns the per-code record for the first variant that has one.
func (c *Client) FetchChunk(ctx context.Context, variants []string) (Record, string, bool, error) {
	var lastErr error
	for _, code := range variants {
		path, err := ChunkPath(code)
		if err != nil {
			continue
		}
		var record Record
		found, err := c.fetcher.FetchJSON(ctx, fetch.Request{URL: c.baseURL + "/" + path}, &record)
		if err != nil {
			lastErr = services.Wrap(services.ErrTransient, "opendb", "fetch chunk", code, err)
			continue
		}
		if found && record.Valid() {
			return record, code, true, nil
		}
	}
	return Record{}, "", false, lastErr
}
