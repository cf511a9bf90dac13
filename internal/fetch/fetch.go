// Package fetch retrieves quote pages and extracts the displayed price. Every
// failure mode (network, HTTP status, missing price element) is reported as
// an error; callers treat them alike.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is sent with every quote request. Quote pages serve a
// reduced document to clients that do not look like a browser.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 10 * time.Second

// maxPageBytes caps how much of a quote page is read.
const maxPageBytes = 4 << 20

// Fetcher returns the current price text for a source URL.
type Fetcher interface {
	FetchPrice(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (string, error)

// FetchPrice calls f.
func (f FetcherFunc) FetchPrice(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// HTTPFetcher fetches quote pages over HTTP and extracts the price.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher. A zero timeout or empty user agent
// selects the defaults.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchPrice downloads url and returns the normalized price text.
func (f *HTTPFetcher) FetchPrice(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	price, err := extract(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("extracting price from %s: %w", url, err)
	}
	return price, nil
}
