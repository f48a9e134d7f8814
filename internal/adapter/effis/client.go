// Package effis implements the primary risk provider against the EFFIS
// fire danger API.
package effis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

const providerName = "effis"

// Client implements domain.RiskProvider against an EFFIS-compatible
// fire weather index endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an EFFIS client. The service rejects requests
// without a User-Agent, so one is always sent.
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

func (c *Client) Name() string { return providerName }

// Fetch reads the fire weather index for coord and classifies it onto
// the shared danger scale. All failures are typed *domain.ProviderError.
func (c *Client) Fetch(ctx context.Context, coord domain.Coordinate) (domain.Observation, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(coord.Latitude, 'f', 6, 64)},
		"lon": {strconv.FormatFloat(coord.Longitude, 'f', 6, 64)},
	}
	u := fmt.Sprintf("%s/fwi/point?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Observation{}, &domain.ProviderError{
			Kind: domain.ProviderMalformed, Provider: providerName,
			Message: "create request", Cause: err,
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Observation{}, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Observation{}, statusError(resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Observation{}, &domain.ProviderError{
			Kind: domain.ProviderMalformed, Provider: providerName,
			Message: "decode response", Cause: err,
		}
	}
	if payload.ObservedAt.IsZero() {
		return domain.Observation{}, &domain.ProviderError{
			Kind: domain.ProviderMalformed, Provider: providerName,
			Message: "response missing observed_at",
		}
	}
	if payload.FWI < 0 {
		return domain.Observation{}, &domain.ProviderError{
			Kind: domain.ProviderMalformed, Provider: providerName,
			Message: fmt.Sprintf("fwi %g out of range", payload.FWI),
		}
	}

	fwi := payload.FWI
	c.logger.Debug("effis observation fetched", "coordinate", coord, "level", string(domain.LevelFromFWI(fwi)))
	return domain.Observation{
		Level:      domain.LevelFromFWI(fwi),
		FWI:        &fwi,
		ObservedAt: payload.ObservedAt.UTC(),
	}, nil
}

type response struct {
	FWI        float64   `json:"fwi"`
	ObservedAt time.Time `json:"observed_at"`
}

// statusError maps an HTTP status onto the provider error taxonomy:
// 429 rate limited, 5xx unavailable, any other non-200 malformed.
func statusError(status int, body []byte) *domain.ProviderError {
	kind := domain.ProviderMalformed
	switch {
	case status == http.StatusTooManyRequests:
		kind = domain.ProviderRateLimited
	case status >= 500:
		kind = domain.ProviderUnavailable
	}
	return &domain.ProviderError{
		Kind: kind, Provider: providerName,
		Message: fmt.Sprintf("status %d: %s", status, body),
	}
}

// transportError classifies a failed round trip: deadline-ish failures
// are timeouts, everything else counts as the provider being unreachable.
func transportError(err error) *domain.ProviderError {
	kind := domain.ProviderUnavailable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = domain.ProviderTimeout
	}
	return &domain.ProviderError{
		Kind: kind, Provider: providerName,
		Message: "request failed", Cause: err,
	}
}
