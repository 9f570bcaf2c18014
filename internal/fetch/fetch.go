package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"discshelf/internal/config"
	"discshelf/internal/logging"
	"discshelf/internal/services"
)

const (
	defaultTimeout      = 7 * time.Second
	defaultBulkTimeout  = 9 * time.Second
	defaultRetries      = 2
	defaultBackoff      = 500 * time.Millisecond
	backoffMultiplier   = 1.5
	defaultMaxBodyBytes = 32 << 20
	userAgent           = "discshelf/1.0"
)

// Request describes one HTTP call. Timeout falls back to the fetcher default.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
	Latency    time.Duration
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a typed HTTP error for non-2xx responses.
func (r *Response) Err() error {
	if r == nil || r.OK() {
		return nil
	}
	return &services.HTTPError{Status: r.StatusCode, URL: r.URL}
}

// DecodeJSON unmarshals the body, tagging failures as parse errors.
func (r *Response) DecodeJSON(dest any) error {
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return services.Wrap(services.ErrParse, "fetch", "decode", r.URL, err)
	}
	return nil
}

// Fetcher performs bounded HTTP requests.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	bulkTimeout time.Duration
	retries     int
	backoff     time.Duration
	maxBody     int64
	logger      *slog.Logger
	sleep       func(context.Context, time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithLogger attaches a logger for attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logging.NewComponentLogger(logger, "fetch")
	}
}

// WithTimeouts sets the default and bulk per-request deadlines.
func WithTimeouts(timeout, bulk time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
		if bulk > 0 {
			f.bulkTimeout = bulk
		}
	}
}

// WithRetry sets the default retry count and initial backoff.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(f *Fetcher) {
		if retries >= 0 {
			f.retries = retries
		}
		if backoff >= 0 {
			f.backoff = backoff
		}
	}
}

// WithSleeper replaces the backoff wait, letting tests observe the schedule.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// New constructs a Fetcher with repository defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		timeout:     defaultTimeout,
		bulkTimeout: defaultBulkTimeout,
		retries:     defaultRetries,
		backoff:     defaultBackoff,
		maxBody:     defaultMaxBodyBytes,
		logger:      logging.NewNop(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig builds a Fetcher from the [fetch] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) *Fetcher {
	base := []Option{WithLogger(logger)}
	if cfg != nil {
		base = append(base,
			WithTimeouts(time.Duration(cfg.Fetch.TimeoutMS)*time.Millisecond, time.Duration(cfg.Fetch.BulkTimeoutMS)*time.Millisecond),
			WithRetry(cfg.Fetch.Retries, time.Duration(cfg.Fetch.BackoffMS)*time.Millisecond),
		)
	}
	return New(append(base, opts...)...)
}

// BulkTimeout is the deadline used for whole-collection reads and index loads.
func (f *Fetcher) BulkTimeout() time.Duration { return f.bulkTimeout }

// Do performs exactly one request. The body is read before the deadline
// expires, so a stalled transfer also ends in ErrNetworkTimeout.
func (f *Fetcher) Do(ctx context.Context, r Request) (*Response, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, r.URL, body)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "build request", r.URL, err)
	}
	for key, values := range r.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if r.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(ctx, reqCtx, r.URL, time.Since(start), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	latency := time.Since(start)
	if err != nil {
		return nil, f.classify(ctx, reqCtx, r.URL, latency, err)
	}

	f.logger.Debug("http request complete",
		logging.String("method", method),
		logging.String("url", redact(r.URL)),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       payload,
		URL:        redact(r.URL),
		Latency:    latency,
	}, nil
}

func (f *Fetcher) classify(parent, reqCtx context.Context, rawURL string, latency time.Duration, err error) error {
	detail := fmt.Sprintf("%s (latency=%v)", redact(rawURL), latency.Round(time.Millisecond))
	if parent.Err() != nil {
		return services.Wrap(services.ErrTransient, "fetch", "request canceled", detail, parent.Err())
	}
	var netErr net.Error
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return services.Wrap(services.ErrNetworkTimeout, "fetch", "request timed out", detail, err)
	}
	return services.Wrap(services.ErrTransient, "fetch", "transport failure", detail, err)
}

// FetchJSON applies the default retry schedule to FetchJSONWithRetry.
func (f *Fetcher) FetchJSON(ctx context.Context, r Request, dest any) (bool, error) {
	return f.FetchJSONWithRetry(ctx, r, dest, f.retries, f.backoff)
}

// FetchJSONWithRetry decodes a JSON response into dest and reports whether
// data was found. Non-2xx statuses yield (false, nil) immediately unless the
// status is 5xx and attempts remain. Transport failures retry on the same
// schedule; once attempts are exhausted the last failure is returned. The
// backoff grows by half after every attempt.
func (f *Fetcher) FetchJSONWithRetry(ctx context.Context, r Request, dest any, retries int, backoff time.Duration) (bool, error) {
	if retries < 0 {
		retries = 0
	}
	wait := backoff
	for attempt := 0; ; attempt++ {
		resp, err := f.Do(ctx, r)
		remaining := attempt < retries
		switch {
		case err != nil:
			if !remaining || ctx.Err() != nil {
				return false, err
			}
			f.logger.Debug("retrying after transport failure",
				logging.Int("attempt", attempt+1),
				logging.String("url", redact(r.URL)),
				logging.Error(err),
			)
		case resp.OK():
			if err := resp.DecodeJSON(dest); err != nil {
				return false, err
			}
			return true, nil
		case resp.StatusCode >= 500 && remaining:
			f.logger.Debug("retrying after server error",
				logging.Int("attempt", attempt+1),
				logging.Int("status", resp.StatusCode),
				logging.String("url", redact(r.URL)),
			)
		default:
			return false, nil
		}

		if err := f.sleep(ctx, wait); err != nil {
			return false, services.Wrap(services.ErrTransient, "fetch", "backoff", redact(r.URL), err)
		}
		wait = time.Duration(float64(wait) * backoffMultiplier)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// redact hides credentials carried in query strings.
func redact(rawURL string) string {
	idx := strings.Index(rawURL, "api_key=")
	if idx < 0 {
		return rawURL
	}
	end := strings.IndexByte(rawURL[idx:], '&')
	if end < 0 {
		return rawURL[:idx] + "api_key=REDACTED"
	}
	return rawURL[:idx] + "api_key=REDACTED" + rawURL[idx+end:]
}
