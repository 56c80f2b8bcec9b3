// Package routing is the thin client for the external routing/ETA
// collaborator: one synchronous request per estimate, no caching, no retry.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/qri-io/jsonschema"

	"github.com/fieldops/nfotrack/pkg/models"
)

// responseSchema rejects malformed routing responses before they are trusted.
var responseSchema = []byte(`{
	"type": "object",
	"required": ["distance_km", "duration_min"],
	"properties": {
		"distance_km": {"type": "number", "minimum": 0},
		"duration_min": {"type": "number", "minimum": 0}
	}
}`)

// Client calls the routing endpoint. Construct once at process start and
// inject into consumers.
type Client struct {
	http     *resty.Client
	endpoint string
	schema   *jsonschema.Schema
	logger   *slog.Logger
}

// NewClient validates the endpoint and compiles the response schema. An
// optional API key is sent as a bearer token.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid routing endpoint: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(responseSchema, rs); err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}

	hc := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		hc.SetAuthToken(apiKey)
	}

	return &Client{http: hc, endpoint: endpoint, schema: rs, logger: logger}, nil
}

type etaRequest struct {
	Origin      models.Coordinates `json:"origin"`
	Destination models.Coordinates `json:"destination"`
}

// ETA asks the routing collaborator for distance and duration between two
// coordinate pairs. Any failure (transport, non-2xx, malformed body) wraps
// ErrRoutingFailure and is surfaced to the caller verbatim; there is no
// fallback estimate.
func (c *Client) ETA(ctx context.Context, origin, destination models.Coordinates) (*models.RouteEstimate, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(etaRequest{Origin: origin, Destination: destination}).
		Post(c.endpoint)
	if err != nil {
		c.logger.Error("routing call failed", slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", models.ErrRoutingFailure, err)
	}
	if resp.IsError() {
		c.logger.Error("routing call returned error status", slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: status %d", models.ErrRoutingFailure, resp.StatusCode())
	}

	body := resp.Body()
	keyErrs, err := c.schema.ValidateBytes(ctx, body)
	if err != nil || len(keyErrs) > 0 {
		c.logger.Error("routing response failed validation",
			slog.Any("err", err),
			slog.Int("violations", len(keyErrs)),
		)
		return nil, fmt.Errorf("%w: malformed response body", models.ErrRoutingFailure)
	}

	var est models.RouteEstimate
	if err := json.Unmarshal(body, &est); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRoutingFailure, err)
	}
	return &est, nil
}
