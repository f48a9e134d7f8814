// Package geoip implements a network PositionSource against an
// ip-api-compatible geolocation endpoint. Network positioning involves
// no OS prompt, so permission is always granted, and the last
// successful fix is held in memory to serve last-known reads.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

// Client implements domain.PositionSource.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	clock      clockwork.Clock

	mu   sync.Mutex
	last *domain.Position
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, clock clockwork.Clock) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
		clock:  clock,
	}
}

func (c *Client) Permission(context.Context) domain.Permission {
	return domain.PermissionGranted
}

func (c *Client) LastKnown(context.Context) (domain.Position, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return domain.Position{}, false
	}
	return *c.last, true
}

// Locate performs one geolocation lookup for the caller's public IP and
// remembers the fix for subsequent LastKnown reads.
func (c *Client) Locate(ctx context.Context) (domain.Position, error) {
	u := fmt.Sprintf("%s/json?fields=status,message,lat,lon", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Position{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Position{}, fmt.Errorf("geoip request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Position{}, fmt.Errorf("geoip API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Position{}, fmt.Errorf("decode response: %w", err)
	}
	if payload.Status != "success" {
		return domain.Position{}, fmt.Errorf("geoip lookup failed: %s", payload.Message)
	}

	coord, err := domain.NewCoordinate(payload.Lat, payload.Lon)
	if err != nil {
		return domain.Position{}, fmt.Errorf("geoip returned invalid coordinate: %w", err)
	}

	pos := domain.Position{Coordinate: coord, ObservedAt: c.clock.Now().UTC()}
	c.mu.Lock()
	c.last = &pos
	c.mu.Unlock()

	c.logger.Debug("geoip fix acquired", "coordinate", coord)
	return pos, nil
}

type response struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}
