// Package sepa implements the secondary, Scotland-only risk provider
// and the coverage region that gates it.
package sepa

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

const providerName = "sepa"

// Client implements domain.RiskProvider against the SEPA wildfire
// danger assessment endpoint. SEPA reports a danger class, not a
// numeric index, so observations carry no FWI value.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) Name() string { return providerName }

// Fetch reads the danger assessment for coord. Callers are expected to
// have checked the coverage region first; SEPA answers for Scottish
// coordinates only.
func (c *Client) Fetch(ctx context.Context, coord domain.Coordinate) (domain.Observation, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(coord.Latitude, 'f', 6, 64)},
		"lon": {strconv.FormatFloat(coord.Longitude, 'f', 6, 64)},
	}
	u := fmt.Sprintf("%s/api/v1/wildfire-danger?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Observation{}, &domain.ProviderError{
			Kind: domain.ProviderMalformed, Provider: providerName,
			Message: "create request", Cause: err,
		}
	}
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
	level, err := domain.ParseLevel(payload.DangerLevel)
	if err != nil {
		return domain.Observation{}, &domain.ProviderError{
			Kind: domain.ProviderMalformed, Provider: providerName,
			Message: "classify danger level", Cause: err,
		}
	}
	if payload.AssessedAt.IsZero() {
		return domain.Observation{}, &domain.ProviderError{
			Kind: domain.ProviderMalformed, Provider: providerName,
			Message: "response missing assessed_at",
		}
	}

	c.logger.Debug("sepa observation fetched", "coordinate", coord, "level", string(level))
	return domain.Observation{
		Level:      level,
		ObservedAt: payload.AssessedAt.UTC(),
	}, nil
}

type response struct {
	DangerLevel string    `json:"danger_level"`
	AssessedAt  time.Time `json:"assessed_at"`
}

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
