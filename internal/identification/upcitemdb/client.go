// Package upcitemdb queries the generic UPC lookup service, optionally through
// a CORS relay that takes the escaped target URL as a suffix.
package upcitemdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"discshelf/internal/config"
	"discshelf/internal/fetch"
	"discshelf/internal/services"
)

// Item is one product returned by the lookup.
type Item struct {
	EAN   string `json:"ean"`
	UPC   string `json:"upc"`
	Title string `json:"title"`
	Brand string `json:"brand"`
}

// Response is the lookup payload.
type Response struct {
	Code    string `json:"code"`
	Total   int    `json:"total"`
	Message string `json:"message"`
	Items   []Item `json:"items"`
}

// Client performs barcode lookups.
type Client struct {
	proxyURL  string
	lookupURL string
	fetcher   *fetch.Fetcher
}

// New constructs a client. An empty proxyURL calls the lookup service directly.
func New(proxyURL, lookupURL string, fetcher *fetch.Fetcher) (*Client, error) {
	lookupURL = strings.TrimSpace(lookupURL)
	if lookupURL == "" {
		return nil, errors.New("upc lookup url required")
	}
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &Client{
		proxyURL:  strings.TrimSpace(proxyURL),
		lookupURL: lookupURL,
		fetcher:   fetcher,
	}, nil
}

// NewFromConfig builds a client from [upc_lookup].
func NewFromConfig(cfg *config.Config, fetcher *fetch.Fetcher) (*Client, error) {
	return New(cfg.UPCLookup.ProxyURL, cfg.UPCLookup.LookupURL, fetcher)
}

// RequestURL returns the URL fetched for code.
func (c *Client) RequestURL(code string) string {
	target := c.lookupURL + url.QueryEscape(code)
	if c.proxyURL == "" {
		return target
	}
	return c.proxyURL + url.QueryEscape(target)
}

// Lookup returns the products known for code. A non-2xx answer is an empty
// result; the relay reports upstream failures that way.
func (c *Client) Lookup(ctx context.Context, code string) ([]Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("code must not be empty")
	}
	var payload Response
	found, err := c.fetcher.FetchJSON(ctx, fetch.Request{URL: c.RequestURL(code)}, &payload)
	if err != nil {
		return nil, fmt.Errorf("upc lookup: %w", err)
	}
	if !found {
		return nil, nil
	}
	if strings.EqualFold(payload.Code, "INVALID_UPC") {
		return nil, services.Wrap(services.ErrValidation, "upcitemdb", "lookup", payload.Message, nil)
	}
	return payload.Items, nil
}

// FirstTitle returns the trimmed title of the first product, if any.
func (c *Client) FirstTitle(ctx context.Context, code string) (string, error) {
	items, err := c.Lookup(ctx, code)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", nil
	}
	return strings.TrimSpace(items[0].Title), nil
}
