// Package client talks to the predictive maintenance API.
package client

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

	"bikedash/pkg/entity"
	"bikedash/pkg/observability"
)

// API paths.
const (
	AtRiskPath      = "/scores/at-risk"
	MaintenancePath = "/maintenance/records"
	BikeScorePath   = "/bikes/score/"
)

// Dataset names used in logs and metrics.
const (
	DatasetRisk        = "risk"
	DatasetMaintenance = "maintenance"
	DatasetBikeScore   = "bike_score"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

var ErrEmptyBaseURL = errors.New("base url is required")

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Client is a read-only client for the maintenance API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. It is applied to a copy of the
// http.Client, never to one passed in through WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("failed to parse base url: %q is not absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "bikedash",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// AtRiskScores fetches the highest-risk bikes. A limit <= 0 leaves the
// server default in place.
func (c *Client) AtRiskScores(ctx context.Context, limit int) ([]entity.RiskRecord, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out []entity.RiskRecord
	if err := c.get(ctx, DatasetRisk, AtRiskPath, query, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.RiskRecord{}
	}

	return out, nil
}

// MaintenanceRecords fetches the most recent maintenance events.
func (c *Client) MaintenanceRecords(ctx context.Context) ([]entity.MaintenanceRecord, error) {
	var out []entity.MaintenanceRecord
	if err := c.get(ctx, DatasetMaintenance, MaintenancePath, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.MaintenanceRecord{}
	}

	return out, nil
}

// BikeScore fetches per-component failure probabilities for one bike.
func (c *Client) BikeScore(ctx context.Context, bikeID string) (entity.BikeScore, error) {
	bikeID = strings.TrimSpace(bikeID)
	if bikeID == "" {
		return entity.BikeScore{}, errors.New("bike id is required")
	}

	var out entity.BikeScore
	if err := c.get(ctx, DatasetBikeScore, BikeScorePath+url.PathEscape(bikeID), nil, &out); err != nil {
		return entity.BikeScore{}, err
	}

	return out, nil
}

func (c *Client) get(ctx context.Context, dataset, path string, query url.Values, out any) (err error) {
	started := time.Now()
	defer func() {
		observability.ObserveFetch(dataset, started, err)
	}()

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}
