package lidar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoofReport_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/roof-report", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"covered": true,
			"report": {
				"area_sqm": 198.4,
				"pitch_degrees": 26.2,
				"facet_count": 8,
				"point_density": 12.5
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	rr, err := c.RoofReport(context.Background(), 32.7767, -96.797)
	require.NoError(t, err)

	assert.InDelta(t, 198.4, rr.AreaSqM, 0.001)
	assert.InDelta(t, 26.2, rr.PitchDegrees, 0.001)
	assert.Equal(t, 8, rr.FacetCount)
}

func TestRoofReport_NotCovered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"covered": false}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.RoofReport(context.Background(), 64.2, -149.5)
	require.ErrorIs(t, err, ErrNoCoverage)
}

func TestRoofReport_NotFoundStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.RoofReport(context.Background(), 64.2, -149.5)
	require.ErrorIs(t, err, ErrNoCoverage)
}

func TestRoofReport_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.RoofReport(context.Background(), 32.7, -96.8)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCoverage)
}
