// Package github stores the collection document in a GitHub repository
// through the contents API. The blob sha is the concurrency token; the API
// rejects a stale sha with 409 or 422.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"discshelf/internal/collection"
	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/logging"
	"discshelf/internal/services"
)

const apiVersion = "2022-11-28"

// Options address the document.
type Options struct {
	APIURL string
	Owner  string
	Repo   string
	Path   string
	Branch string
	Token  string
}

// Backend implements collection.Backend on the GitHub contents API.
type Backend struct {
	opts    Options
	fetcher *fetch.Fetcher
	logger  *slog.Logger

	ownerMu sync.Mutex
	owner   string
}

// New constructs a backend. An empty owner is resolved from the token's
// user on first use.
func New(opts Options, fetcher *fetch.Fetcher, logger *slog.Logger) (*Backend, error) {
	opts.APIURL = strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
	opts.Owner = strings.TrimSpace(opts.Owner)
	opts.Repo = strings.TrimSpace(opts.Repo)
	opts.Path = strings.Trim(strings.TrimSpace(opts.Path), "/")
	opts.Token = strings.TrimSpace(opts.Token)
	switch {
	case opts.APIURL == "":
		return nil, errors.New("github api url required")
	case opts.Repo == "":
		return nil, errors.New("github repo required")
	case opts.Path == "":
		return nil, errors.New("github document path required")
	case opts.Token == "":
		return nil, services.Wrap(services.ErrConfiguration, "github", "init", "a token is required to write", nil)
	}
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &Backend{
		opts:    opts,
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "github_store"),
		owner:   opts.Owner,
	}, nil
}

// NewFromConfig builds a backend from [store.github].
func NewFromConfig(cfg *config.Config, fetcher *fetch.Fetcher, logger *slog.Logger) (*Backend, error) {
	gh := cfg.Store.GitHub
	return New(Options{
		APIURL: gh.APIURL,
		Owner:  gh.Owner,
		Repo:   gh.Repo,
		Path:   gh.Path,
		Branch: gh.Branch,
		Token:  gh.Token,
	}, fetcher, logger)
}

func (b *Backend) Name() string { return "github" }

type userResponse struct {
	Login string `json:"login"`
}

type contentResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// Owner returns the repository owner, asking the API for the authenticated
// user once when it was not configured.
func (b *Backend) Owner(ctx context.Context) (string, error) {
	b.ownerMu.Lock()
	defer b.ownerMu.Unlock()
	if b.owner != "" {
		return b.owner, nil
	}
	resp, err := b.do(ctx, http.MethodGet, b.opts.APIURL+"/user", nil)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", services.Wrap(services.ErrHTTP, "github", "resolve owner", "GET /user", resp.Err())
	}
	var user userResponse
	if err := resp.DecodeJSON(&user); err != nil {
		return "", err
	}
	if strings.TrimSpace(user.Login) == "" {
		return "", services.Wrap(services.ErrParse, "github", "resolve owner", "response has no login", nil)
	}
	b.owner = user.Login
	b.logger.Debug("resolved repository owner", logging.String("owner", b.owner))
	return b.owner, nil
}

func (b *Backend) contentsURL(ctx context.Context) (string, error) {
	owner, err := b.Owner(ctx)
	if err != nil {
		return "", err
	}
	segments := strings.Split(b.opts.Path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		b.opts.APIURL, url.PathEscape(owner), url.PathEscape(b.opts.Repo), strings.Join(segments, "/")), nil
}

// Load fetches the document and its blob sha.
func (b *Backend) Load(ctx context.Context) (collection.Snapshot, error) {
	target, err := b.contentsURL(ctx)
	if err != nil {
		return collection.Snapshot{}, err
	}
	if b.opts.Branch != "" {
		target += "?ref=" + url.QueryEscape(b.opts.Branch)
	}
	resp, err := b.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return collection.Snapshot{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return collection.Snapshot{Document: collection.Document{Movies: []collection.MovieRecord{}}}, nil
	}
	if !resp.OK() {
		return collection.Snapshot{}, services.Wrap(services.ErrHTTP, "github", "load", b.opts.Path, resp.Err())
	}

	var payload contentResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return collection.Snapshot{}, err
	}
	raw, err := decodeContent(payload.Content)
	if err != nil {
		return collection.Snapshot{}, services.Wrap(services.ErrParse, "github", "load", "content is not base64", err)
	}
	doc, err := collection.DecodeDocument(raw)
	if err != nil {
		return collection.Snapshot{}, err
	}
	return collection.Snapshot{Document: doc, Token: payload.SHA}, nil
}

// Save commits doc conditioned on token.
func (b *Backend) Save(ctx context.Context, doc collection.Document, token, message string) (string, error) {
	target, err := b.contentsURL(ctx)
	if err != nil {
		return "", err
	}
	content, err := collection.EncodeDocument(doc)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     token,
		Branch:  b.opts.Branch,
	})
	if err != nil {
		return "", fmt.Errorf("encode commit: %w", err)
	}

	resp, err := b.do(ctx, http.MethodPut, target, body)
	if err != nil {
		return "", err
	}
	switch {
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: github returned %d", collection.ErrPreconditionFailed, resp.StatusCode)
	case !resp.OK():
		return "", services.Wrap(services.ErrHTTP, "github", "save", b.opts.Path, resp.Err())
	}

	var payload putResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return "", err
	}
	b.logger.Info("collection committed",
		logging.String("message", message),
		logging.String("sha", payload.Content.SHA),
	)
	return payload.Content.SHA, nil
}

func (b *Backend) do(ctx context.Context, method, target string, body []byte) (*fetch.Response, error) {
	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("Authorization", "Bearer "+b.opts.Token)
	header.Set("X-GitHub-Api-Version", apiVersion)
	return b.fetcher.Do(ctx, fetch.Request{Method: method, URL: target, Header: header, Body: body})
}

// The API wraps base64 content at 60 columns.
func decodeContent(content string) ([]byte, error) {
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(content)
	return base64.StdEncoding.DecodeString(cleaned)
}
