package ics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

const maxFeedBytes = 20 << 20

// Fetcher downloads ICS feeds, reusing the previous body when the server
// answers a conditional request with 304 Not Modified.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedFeed
}

type cachedFeed struct {
	etag         string
	lastModified string
	body         []byte
}

// NewFetcher creates a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
		cache:  make(map[string]cachedFeed),
	}
}

// Fetch downloads feedURL and parses it into venue events.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]domain.VenueEvent, error) {
	body, err := f.fetchBody(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	events, err := Parse(body, f.logger)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", redactURL(feedURL), err)
	}
	return events, nil
}

func (f *Fetcher) fetchBody(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	f.mu.Lock()
	prev, cached := f.cache[feedURL]
	f.mu.Unlock()
	if cached {
		if prev.etag != "" {
			req.Header.Set("If-None-Match", prev.etag)
		}
		if prev.lastModified != "" {
			req.Header.Set("If-Modified-Since", prev.lastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", redactURL(feedURL), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && cached:
		f.logger.Debug("ics feed not modified", "url", redactURL(feedURL))
		return prev.body, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch feed %s: status %d", redactURL(feedURL), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", redactURL(feedURL), err)
	}

	f.mu.Lock()
	f.cache[feedURL] = cachedFeed{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		body:         body,
	}
	f.mu.Unlock()
	return body, nil
}

// redactURL strips credentials and query tokens from private feed URLs
// before they reach the logs.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}
