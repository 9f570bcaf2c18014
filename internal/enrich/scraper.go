package enrich

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"discshelf/internal/fetch"
	"discshelf/internal/services"
)

const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Specs are the disc details scraped from a details page.
type Specs struct {
	Region string
	Audio  string
}

// Scraper searches the disc details site and reads spec pages.
type Scraper struct {
	searchURL string
	fetcher   *fetch.Fetcher
}

// NewScraper builds a scraper. searchURL is a prefix the query is appended to.
func NewScraper(searchURL string, fetcher *fetch.Fetcher) (*Scraper, error) {
	searchURL = strings.TrimSpace(searchURL)
	if searchURL == "" {
		return nil, errors.New("details search url required")
	}
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &Scraper{searchURL: searchURL, fetcher: fetcher}, nil
}

// FindDetailsURL returns the first movie page linked from the search results
// for query, or "" when the search has no movie link.
func (s *Scraper) FindDetailsURL(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}
	target := s.searchURL + url.QueryEscape(query)
	doc, err := s.document(ctx, target)
	if err != nil {
		return "", err
	}

	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		value, _ := sel.Attr("href")
		if strings.Contains(value, "/movies/") {
			href = strings.TrimSpace(value)
			return false
		}
		return true
	})
	if href == "" {
		return "", nil
	}
	return resolveURL(target, href), nil
}

// Specs fetches pageURL and extracts region and audio.
func (s *Scraper) Specs(ctx context.Context, pageURL string) (Specs, error) {
	doc, err := s.document(ctx, pageURL)
	if err != nil {
		return Specs{}, err
	}
	return ParseSpecs(doc.Text()), nil
}

func (s *Scraper) document(ctx context.Context, target string) (*goquery.Document, error) {
	resp, err := s.fetcher.Do(ctx, fetch.Request{
		URL: target,
		Header: http.Header{
			"User-Agent":      []string{browserUserAgent},
			"Accept":          []string{"text/html,application/xhtml+xml"},
			"Accept-Language": []string{"en-US,en;q=0.5"},
		},
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, resp.Err()
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "enrich", "parse html", resp.URL, err)
	}
	if title := doc.Find("title").First().Text(); strings.Contains(title, "Just a moment") || strings.Contains(title, "Access Denied") {
		return nil, services.Wrap(services.ErrHTTP, "enrich", "fetch page", "blocked by anti-bot page", nil)
	}
	return doc, nil
}

// ParseSpecs reads region and lossless audio markers from page text.
func ParseSpecs(text string) Specs {
	var specs Specs
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "Region: A") || strings.Contains(text, "Region A"):
		specs.Region = "A"
	case strings.Contains(text, "Region: B") || strings.Contains(text, "Region B"):
		specs.Region = "B"
	case strings.Contains(lower, "region free"):
		specs.Region = "Free"
	}
	switch {
	case strings.Contains(text, "DTS-HD Master Audio"):
		specs.Audio = "DTS-HD MA"
	case strings.Contains(text, "Dolby Atmos"):
		specs.Audio = "Dolby Atmos"
	}
	return specs
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
