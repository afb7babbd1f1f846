// Package solarapi provides a client for a solar building-insights API that
// returns roof segment geometry derived from aerial imagery.
package solarapi

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

// ErrNotFound is returned when the API has no building at the location.
var ErrNotFound = errors.New("solarapi: no building found")

// Client defines the solar API operations used by the engine.
type Client interface {
	// BuildingInsights fetches the closest building's roof geometry.
	BuildingInsights(ctx context.Context, lat, lng float64) (*BuildingInsights, error)
}

// ImageryDate is the capture date of the imagery backing a response.
type ImageryDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Time converts the imagery date to a time.Time, or zero when unset.
func (d ImageryDate) Time() time.Time {
	if d.Year == 0 {
		return time.Time{}
	}
	month := d.Month
	if month == 0 {
		month = 1
	}
	day := d.Day
	if day == 0 {
		day = 1
	}
	return time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// SizeStats holds area statistics for a roof or roof segment.
type SizeStats struct {
	AreaMeters2       float64 `json:"areaMeters2"`
	GroundAreaMeters2 float64 `json:"groundAreaMeters2"`
}

// RoofSegment is one planar facet of the roof.
type RoofSegment struct {
	PitchDegrees   float64   `json:"pitchDegrees"`
	AzimuthDegrees float64   `json:"azimuthDegrees"`
	Stats          SizeStats `json:"stats"`
}

// LatLng is a coordinate pair in the API's response shape.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BoundingBox is the building footprint bounding box.
type BoundingBox struct {
	SW LatLng `json:"sw"`
	NE LatLng `json:"ne"`
}

// SolarPotential carries the roof geometry portion of the response.
type SolarPotential struct {
	WholeRoofStats SizeStats     `json:"wholeRoofStats"`
	RoofSegments   []RoofSegment `json:"roofSegmentStats"`
	BoundingBox    *BoundingBox  `json:"buildingBoundingBox,omitempty"`
}

// BuildingInsights is the parsed response for one building.
type BuildingInsights struct {
	Name           string         `json:"name"`
	Center         LatLng         `json:"center"`
	ImageryQuality string         `json:"imageryQuality"` // HIGH | MEDIUM | LOW
	ImageryDate    ImageryDate    `json:"imageryDate"`
	SolarPotential SolarPotential `json:"solarPotential"`
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

// WithRateLimit overrides the default request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a solar API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://solar.googleapis.com/v1",
		http:    &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildingInsights implements Client.
func (c *httpClient) BuildingInsights(ctx context.Context, lat, lng float64) (*BuildingInsights, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "solarapi: rate limit")
	}

	params := url.Values{
		"location.latitude":  {fmt.Sprintf("%.6f", lat)},
		"location.longitude": {fmt.Sprintf("%.6f", lng)},
		"requiredQuality":    {"LOW"},
		"key":                {c.apiKey},
	}
	reqURL := c.baseURL + "/buildingInsights:findClosest?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "solarapi: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "solarapi: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("solarapi: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "solarapi: read body")
	}

	var bi BuildingInsights
	if err := json.Unmarshal(body, &bi); err != nil {
		return nil, eris.Wrap(err, "solarapi: parse response")
	}
	return &bi, nil
}
