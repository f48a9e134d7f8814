// Package geocode implements domain.PlaceGeocoder against a
// Nominatim-compatible search endpoint, used to save manual locations
// by place name.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

// Client is a forward geocoder. Nominatim's usage policy requires an
// identifying User-Agent, so one is always sent.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Lookup resolves a free-text place name to its best match. A query
// that matches nothing returns a zero Place and no error.
func (c *Client) Lookup(ctx context.Context, query string) (domain.Place, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}
	u := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Place{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Place{}, fmt.Errorf("geocode API error: status %d: %s", resp.StatusCode, body)
	}

	var results []result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Place{}, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		c.logger.Debug("geocode query matched nothing", "query", query)
		return domain.Place{}, nil
	}

	// Nominatim serializes coordinates as strings.
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("parse longitude: %w", err)
	}
	coord, err := domain.NewCoordinate(lat, lon)
	if err != nil {
		return domain.Place{}, fmt.Errorf("geocode returned invalid coordinate: %w", err)
	}

	return domain.Place{Coordinate: coord, Label: results[0].DisplayName}, nil
}

type result struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
