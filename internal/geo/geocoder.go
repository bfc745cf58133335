package geo

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

	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "sitetrack/1.0"
	bodyReadLimit    = 1024

	// PlaceholderAddress is used when reverse geocoding fails.
	PlaceholderAddress = "Address unavailable"
)

var errEmptyQuery = errors.New("geocode query is required")

// HTTPGeocoder talks to a Nominatim-compatible service.
type HTTPGeocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	language   string
}

type Option func(*HTTPGeocoder)

func WithHTTPClient(client *http.Client) Option {
	return func(g *HTTPGeocoder) {
		if client != nil {
			g.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(g *HTTPGeocoder) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			g.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithLanguage sets the Accept-Language sent with every request.
func WithLanguage(lang string) Option {
	return func(g *HTTPGeocoder) { g.language = lang }
}

func NewHTTPGeocoder(opts ...Option) *HTTPGeocoder {
	g := &HTTPGeocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

var _ Geocoder = (*HTTPGeocoder)(nil)

func (g *HTTPGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var resp struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := g.get(ctx, "/reverse", q, &resp); err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("reverse geocode: %s", resp.Error)
	}
	return resp.DisplayName, nil
}

func (g *HTTPGeocoder) Geocode(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errEmptyQuery
	}
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", query)
	q.Set("limit", "5")

	var resp []struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := g.get(ctx, "/search", q, &resp); err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}

	places := make([]Place, 0, len(resp))
	for _, r := range resp {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		name := r.Name
		if name == "" {
			name = r.DisplayName
		}
		places = append(places, Place{Name: name, Address: r.DisplayName, Lat: lat, Lng: lng})
	}
	return places, nil
}

func (g *HTTPGeocoder) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")
	if g.language != "" {
		req.Header.Set("Accept-Language", g.language)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, bodyReadLimit))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// AddressAt reverse geocodes and falls back to PlaceholderAddress on any
// failure or empty answer. A nil geocoder always yields the placeholder.
func AddressAt(ctx context.Context, g Geocoder, logger *zap.Logger, lat, lng float64) string {
	if g == nil {
		return PlaceholderAddress
	}
	addr, err := g.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		logger.Warn("reverse geocode failed", zap.Float64("lat", lat), zap.Float64("lng", lng), zap.Error(err))
		return PlaceholderAddress
	}
	if strings.TrimSpace(addr) == "" {
		return PlaceholderAddress
	}
	return addr
}
