package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"discshelf/internal/fetch"
	"discshelf/internal/services"
)

// Result represents a single TMDB movie match.
type Result struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
}

// Response models the TMDB paginated search response.
type Response struct {
	Page          int      `json:"page"`
	Results       []Result `json:"results"`
	TotalPages    int      `json:"total_pages"`
	TotalResults  int      `json:"total_results"`
	StatusMessage string   `json:"status_message"`
}

// FindResponse models the /find endpoint payload.
type FindResponse struct {
	MovieResults  []Result `json:"movie_results"`
	StatusMessage string   `json:"status_message"`
}

// Country is a production country entry.
type Country struct {
	ISO3166 string `json:"iso_3166_1"`
	Name    string `json:"name"`
}

// Language is a spoken language entry.
type Language struct {
	ISO639      string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
}

// MovieDetails carries the fields used by enrichment.
type MovieDetails struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Runtime             int        `json:"runtime"`
	ReleaseDate         string     `json:"release_date"`
	PosterPath          string     `json:"poster_path"`
	ProductionCountries []Country  `json:"production_countries"`
	SpokenLanguages     []Language `json:"spoken_languages"`
	StatusMessage       string     `json:"status_message"`
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	fetcher  *fetch.Fetcher
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

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: strings.TrimSpace(language),
		fetcher:  fetch.New(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FindByUPC looks a barcode up through the external-id endpoint.
func (c *Client) FindByUPC(ctx context.Context, code string) ([]Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("code must not be empty")
	}
	params := c.params()
	params.Set("external_source", "upc")

	var payload FindResponse
	found, err := c.fetcher.FetchJSON(ctx, fetch.Request{URL: c.endpoint("/find/"+url.PathEscape(code), params)}, &payload)
	if err != nil {
		return nil, fmt.Errorf("tmdb find: %w", err)
	}
	if !found {
		return nil, nil
	}
	if err := statusError("find", payload.StatusMessage); err != nil {
		return nil, err
	}
	return payload.MovieResults, nil
}

// SearchMovie searches TMDB for the supplied title.
func (c *Client) SearchMovie(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := c.params()
	params.Set("query", query)

	var payload Response
	found, err := c.fetcher.FetchJSON(ctx, fetch.Request{URL: c.endpoint("/search/movie", params)}, &payload)
	if err != nil {
		return nil, fmt.Errorf("tmdb search: %w", err)
	}
	if !found {
		return &Response{}, nil
	}
	if err := statusError("search", payload.StatusMessage); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetMovieDetails fetches movie details by TMDB ID.
func (c *Client) GetMovieDetails(ctx context.Context, movieID int64) (*MovieDetails, error) {
	if movieID <= 0 {
		return nil, errors.New("movie id must be positive")
	}
	var payload MovieDetails
	found, err := c.fetcher.FetchJSON(ctx, fetch.Request{URL: c.endpoint(fmt.Sprintf("/movie/%d", movieID), c.params())}, &payload)
	if err != nil {
		return nil, fmt.Errorf("tmdb movie details: %w", err)
	}
	if !found {
		return nil, services.Wrap(services.ErrNotFound, "tmdb", "movie details", fmt.Sprintf("id %d", movieID), nil)
	}
	if err := statusError("movie details", payload.StatusMessage); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	return params
}

func (c *Client) endpoint(path string, params url.Values) string {
	return c.baseURL + path + "?" + params.Encode()
}

// TMDB reports some failures (bad key, rate limit) as a 200 body with a message.
func statusError(operation, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	return services.Wrap(services.ErrHTTP, "tmdb", operation, message, nil)
}
