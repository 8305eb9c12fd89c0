// Package geocode turns coordinates into display addresses and tracks the
// in-flight lookup of each submission form.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shopmap/internal/apperr"
	"shopmap/internal/geo"
)

const (
	defaultBaseURL        = "https://nominatim.openstreetmap.org"
	defaultUserAgent      = "shopmap/1.0"
	responseBodyReadLimit = 1024
	defaultRequestTimeout = 10 * time.Second
)

// ErrNoResult is returned when the service answers but has no address.
var ErrNoResult = errors.New("no address found for coordinates")

// Lookup resolves a coordinate to a display address.
type Lookup interface {
	Reverse(ctx context.Context, c geo.Coordinate) (string, error)
}

// NominatimClient calls the OpenStreetMap Nominatim reverse endpoint.
type NominatimClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	language   string
}

// Option configures optional client behavior.
type Option func(*NominatimClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *NominatimClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Nominatim base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *NominatimClient) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy requires one.
func WithUserAgent(ua string) Option {
	return func(c *NominatimClient) {
		if trimmed := strings.TrimSpace(ua); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// WithLanguage sets the preferred response language (accept-language).
func WithLanguage(lang string) Option {
	return func(c *NominatimClient) {
		c.language = strings.TrimSpace(lang)
	}
}

// NewNominatimClient builds a client with sane defaults.
func NewNominatimClient(opts ...Option) *NominatimClient {
	client := &NominatimClient{
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Reverse looks up the display name for c.
func (c *NominatimClient) Reverse(ctx context.Context, coord geo.Coordinate) (string, error) {
	if c == nil {
		return "", apperr.New(apperr.CodeGeocodeUnavailable, "geocoding client not configured")
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lng, 'f', -1, 64))
	if c.language != "" {
		q.Set("accept-language", c.language)
	}
	endpoint := strings.TrimRight(c.baseURL, "/") + "/reverse?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeGeocodeUnavailable, err, "build reverse geocode request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeGeocodeUnavailable, err, "execute reverse geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", apperr.Wrap(apperr.CodeGeocodeUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"reverse geocode request failed")
	}

	var body struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apperr.Wrap(apperr.CodeGeocodeUnavailable, err, "decode reverse geocode response")
	}

	addr := strings.TrimSpace(body.DisplayName)
	if addr == "" {
		return "", apperr.Wrap(apperr.CodeGeocodeUnavailable, ErrNoResult, "no address found")
	}
	return addr, nil
}
