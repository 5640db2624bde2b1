// Package library downloads the script library payload that scripts with
// requiresJQuery depend on. The runner caches it in the store; a run never
// touches the network.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultURL is the payload fetched when no URL is configured.
const DefaultURL = "https://cdnjs.cloudflare.com/ajax/libs/jquery/3.6.0/jquery.min.js"

// MaxSize caps the payload size.
const MaxSize = 8 << 20

// ErrFetch is returned when the payload cannot be downloaded.
var ErrFetch = errors.New("library fetch failed")

// Fetcher downloads the payload from one URL.
type Fetcher struct {
	url    string
	client *http.Client
}

// NewFetcher returns a Fetcher for url. An empty url uses DefaultURL and a
// nil client gets a 30 second timeout.
func NewFetcher(url string, client *http.Client) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{url: url, client: client}
}

// URL returns the payload URL.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch downloads the payload. Non-2xx responses, empty bodies and bodies
// over MaxSize are errors.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: %s", ErrFetch, f.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	if len(body) > MaxSize {
		return nil, fmt.Errorf("%w: payload larger than %d bytes", ErrFetch, MaxSize)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrFetch)
	}
	return body, nil
}

// Cache stores a fetched payload.
type Cache interface {
	CacheLibrary(ctx context.Context, payload []byte) error
}

// Refresh fetches the payload and caches it, returning its size.
func Refresh(ctx context.Context, f *Fetcher, c Cache) (int, error) {
	payload, err := f.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.CacheLibrary(ctx, payload); err != nil {
		return 0, err
	}
	return len(payload), nil
}
