package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
	"github.com/couchcryptid/event-geo-hierarchy/internal/observability"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Client implements domain.Geocoder against a Nominatim-compatible search API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. An empty baseURL targets the public
// OpenStreetMap instance, whose usage policy requires a descriptive userAgent.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode resolves a free-text address and returns the structured address
// of the best match. Zero results yield an empty RawAddress and no error.
func (c *Client) Geocode(ctx context.Context, address, language string) (domain.RawAddress, error) {
	params := url.Values{
		"q":              {address},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
		"limit":          {"1"},
	}
	if language != "" {
		params.Set("accept-language", language)
	}

	start := time.Now()
	result, err := c.doRequest(ctx, c.baseURL+"/search?"+params.Encode())
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
	case len(result) == 0:
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return result, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.RawAddress, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 || len(places[0].Address) == 0 {
		c.logger.Debug("geocoder returned no match", "url", fullURL)
		return domain.RawAddress{}, nil
	}
	return domain.RawAddress(places[0].Address), nil
}

// Nominatim API response types.

type place struct {
	PlaceID     int64             `json:"place_id"`
	DisplayName string            `json:"display_name"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Address     map[string]string `json:"address"`
}
