// Package lidar provides a client for an aerial LiDAR roof-report provider.
// Coverage is regional: a miss is the normal case outside surveyed areas.
package lidar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// ErrNoCoverage is returned when the provider has no LiDAR sweep covering
// the location.
var ErrNoCoverage = errors.New("lidar: location not covered")

// Client defines the LiDAR provider operations.
type Client interface {
	// RoofReport fetches the point-cloud derived roof report for a location.
	RoofReport(ctx context.Context, lat, lng float64) (*RoofReport, error)
}

// RoofReport is a parsed LiDAR roof measurement.
type RoofReport struct {
	AreaSqM      float64    `json:"area_sqm"`
	PitchDegrees float64    `json:"pitch_degrees"`
	FacetCount   int        `json:"facet_count"`
	PointDensity float64    `json:"point_density"` // points per sq meter
	CaptureDate  *time.Time `json:"capture_date,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a LiDAR provider client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.aerialens.io/v2",
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reportResponse struct {
	Covered bool       `json:"covered"`
	Report  RoofReport `json:"report"`
}

// RoofReport implements Client.
func (c *httpClient) RoofReport(ctx context.Context, lat, lng float64) (*RoofReport, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "lidar: rate limit")
	}

	params := url.Values{
		"lat": {fmt.Sprintf("%.6f", lat)},
		"lng": {fmt.Sprintf("%.6f", lng)},
	}
	reqURL := c.baseURL + "/roof-report?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "lidar: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "lidar: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoCoverage
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("lidar: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "lidar: read body")
	}

	var rr reportResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, eris.Wrap(err, "lidar: parse response")
	}
	if !rr.Covered {
		return nil, ErrNoCoverage
	}
	return &rr.Report, nil
}
