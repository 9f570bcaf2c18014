package identification

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/identification/opendb"
	"discshelf/internal/identification/tmdb"
	"discshelf/internal/identification/upcitemdb"
	"discshelf/internal/logging"
	"discshelf/internal/matching"
	"discshelf/internal/normalize"
	"discshelf/internal/services"
)

const (
	sourceProvider = "provider"
	sourceOpenDB   = "open-db"
	sourceUPC      = "upc-lookup"

	defaultTitleIndexScore = 50
	manualScore            = 1
	defaultRateLimit       = 250 * time.Millisecond
)

// OpenDatabase is the subset of the open-database client used by the cascade.
type OpenDatabase interface {
	EnsureIndexes(ctx context.Context, cache *opendb.IndexCache) error
	FetchChunk(ctx context.Context, variants []string) (opendb.Record, string, bool, error)
}

// BarcodeLookup resolves a barcode to a raw product title.
type BarcodeLookup interface {
	FirstTitle(ctx context.Context, code string) (string, error)
}

// Resolver runs the lookup cascade.
type Resolver struct {
	provider        *tmdbSearch
	openDB          OpenDatabase
	upc             BarcodeLookup
	indexes         *opendb.IndexCache
	policy          matching.Policy
	titleIndexScore int
	breakers        map[string]*gobreaker.CircuitBreaker
	logger          *slog.Logger
}

// Option configures a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	provider        ProviderClient
	openDB          OpenDatabase
	upc             BarcodeLookup
	indexes         *opendb.IndexCache
	policy          *matching.Policy
	titleIndexScore int
	rateLimit       time.Duration
	disableBreakers bool
	logger          *slog.Logger
}

// WithProvider sets the metadata provider. Without one the cascade only uses
// the open database.
func WithProvider(client ProviderClient) Option {
	return func(o *resolverOptions) { o.provider = client }
}

// WithOpenDB sets the open-database client.
func WithOpenDB(client OpenDatabase) Option {
	return func(o *resolverOptions) { o.openDB = client }
}

// WithUPCLookup sets the generic UPC lookup.
func WithUPCLookup(lookup BarcodeLookup) Option {
	return func(o *resolverOptions) { o.upc = lookup }
}

// WithIndexCache shares an index cache across resolvers.
func WithIndexCache(cache *opendb.IndexCache) Option {
	return func(o *resolverOptions) { o.indexes = cache }
}

// WithPolicy overrides the auto-accept policy.
func WithPolicy(policy matching.Policy) Option {
	return func(o *resolverOptions) { o.policy = &policy }
}

// WithTitleIndexScore sets the fixed score given to open-database title hits.
func WithTitleIndexScore(score int) Option {
	return func(o *resolverOptions) { o.titleIndexScore = score }
}

// WithRateLimit sets the minimum spacing between provider calls.
func WithRateLimit(spacing time.Duration) Option {
	return func(o *resolverOptions) { o.rateLimit = spacing }
}

// WithoutBreakers disables the per-source circuit breakers.
func WithoutBreakers() Option {
	return func(o *resolverOptions) { o.disableBreakers = true }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolverOptions) { o.logger = logger }
}

// New constructs a Resolver.
func New(opts ...Option) *Resolver {
	o := resolverOptions{rateLimit: defaultRateLimit}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.NewComponentLogger(o.logger, "identification")
	r := &Resolver{
		openDB:          o.openDB,
		upc:             o.upc,
		indexes:         o.indexes,
		policy:          matching.DefaultPolicy(),
		titleIndexScore: defaultTitleIndexScore,
		breakers:        make(map[string]*gobreaker.CircuitBreaker),
		logger:          logger,
	}
	if o.provider != nil {
		r.provider = newTMDBSearch(o.provider, o.rateLimit)
	}
	if r.indexes == nil {
		r.indexes = opendb.NewIndexCache()
	}
	if o.policy != nil {
		r.policy = *o.policy
	}
	if o.titleIndexScore > 0 {
		r.titleIndexScore = o.titleIndexScore
	}
	if !o.disableBreakers {
		for _, name := range []string{sourceProvider, sourceOpenDB, sourceUPC} {
			r.breakers[name] = newBreaker(name, logger)
		}
	}
	return r
}

// NewFromConfig wires the cascade from configuration. Missing provider
// credentials leave the resolver in open-database-only mode.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	fetcher := fetch.NewFromConfig(cfg, logger)
	base := []Option{
		WithLogger(logger),
		WithPolicy(matching.PolicyFromConfig(cfg)),
		WithTitleIndexScore(cfg.Matching.TitleIndexScore),
	}

	if strings.TrimSpace(cfg.OpenDB.BaseURL) != "" {
		client, err := opendb.NewFromConfig(cfg, fetcher, logger)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "identification", "open database", "init", err)
		}
		base = append(base, WithOpenDB(client))
	}

	if cfg.HasProviderKey() {
		client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithFetcher(fetcher))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "identification", "tmdb", "init", err)
		}
		base = append(base, WithProvider(client))

		if cfg.UPCLookup.Enabled {
			lookup, err := upcitemdb.NewFromConfig(cfg, fetcher)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "identification", "upc lookup", "init", err)
			}
			base = append(base, WithUPCLookup(lookup))
		}
	} else {
		logging.WarnWithContext(logging.NewComponentLogger(logger, "identification"),
			"metadata provider key missing; using open database only",
			"provider_unconfigured",
			logging.String(logging.FieldErrorHint, "set tmdb.api_key or TMDB_API_KEY"),
			logging.String(logging.FieldImpact, "lookups rely on the open database"),
		)
	}

	return New(append(base, opts...)...), nil
}

// Indexes exposes the session index cache.
func (r *Resolver) Indexes() *opendb.IndexCache { return r.indexes }

// Policy returns the active auto-accept policy.
func (r *Resolver) Policy() matching.Policy { return r.policy }

// HasProvider reports whether a metadata provider is configured.
func (r *Resolver) HasProvider() bool { return r.provider.available() }

// Lookup normalizes raw scan or typed input and runs the matching path.
func (r *Resolver) Lookup(ctx context.Context, input string) (*Result, error) {
	query := normalize.NormalizeScanOrInput(input)
	switch query.Kind {
	case normalize.QueryCode:
		return r.LookupBarcode(ctx, query.Value)
	case normalize.QueryTitle:
		return r.LookupTitle(ctx, query.Value)
	default:
		return nil, services.Wrap(services.ErrValidation, "identification", "lookup", "input is empty", nil)
	}
}

// strategy is one named step of the cascade.
type strategy struct {
	name    string
	breaker string
	run     func(ctx context.Context, result *Result) ([]matching.Candidate, error)
}

// runStrategy executes one step and records the attempt. Failures are logged
// and reported as an empty step so the cascade can advance.
func (r *Resolver) runStrategy(ctx context.Context, s strategy, result *Result) []matching.Candidate {
	logger := logging.WithContext(ctx, r.logger)
	start := time.Now()
	candidates, err := r.guarded(s.breaker, func() ([]matching.Candidate, error) {
		return s.run(ctx, result)
	})
	attempt := Attempt{Strategy: s.name, Candidates: len(candidates), Duration: time.Since(start)}
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		attempt.Outcome = attemptSkipped
		attempt.Error = err.Error()
		logger.Debug("lookup source skipped",
			logging.String("strategy", s.name),
			logging.String("reason", err.Error()),
		)
	case err != nil:
		attempt.Outcome = attemptFailed
		attempt.Error = err.Error()
		logging.WarnWithContext(logger, "lookup source failed", "lookup_source_failed",
			logging.String("strategy", s.name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.StatusText(err)),
			logging.String(logging.FieldImpact, "continuing with the next source"),
		)
		candidates = nil
	case len(candidates) == 0:
		attempt.Outcome = attemptEmpty
	default:
		attempt.Outcome = attemptMatched
	}
	result.Attempts = append(result.Attempts, attempt)
	return candidates
}

func (r *Resolver) decide(ctx context.Context, result *Result) {
	result.Decision = r.policy.Decide(result.Candidates)
	if selected := result.Decision.Selected; selected != nil && selected.EditionNote == "" {
		selected.EditionNote = result.EditionNote
	}
	logger := logging.WithContext(ctx, r.logger)
	attrs := logging.DecisionAttrs("lookup_match", string(result.Decision.Outcome), result.Decision.Reason)
	attrs = append(attrs,
		logging.String("kind", result.Kind),
		logging.String("input", result.Input),
		logging.Source(string(result.Source)),
		logging.Int("candidates", len(result.Candidates)),
	)
	if selected := result.Decision.Selected; selected != nil {
		attrs = append(attrs,
			logging.String("selected_title", selected.Label()),
			logging.Int("selected_score", selected.Score),
		)
	}
	logger.Info("lookup decision", logging.Args(attrs...)...)
}

func withEdition(candidates []matching.Candidate, note string) []matching.Candidate {
	if note == "" {
		return candidates
	}
	for i := range candidates {
		if candidates[i].EditionNote == "" {
			candidates[i].EditionNote = note
		}
	}
	return candidates
}
