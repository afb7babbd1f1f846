package calibration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// mockStore implements Store for testing.
type mockStore struct {
	exact    *model.GAFReport
	regional *model.RegionalCalibration
	nearby   []model.GAFReport
	err      error
}

func (m *mockStore) FindExactReport(_ context.Context, _ string) (*model.GAFReport, error) {
	return m.exact, m.err
}
func (m *mockStore) FindRegionalCalibration(_ context.Context, _ string) (*model.RegionalCalibration, error) {
	return m.regional, m.err
}
func (m *mockStore) FindNearby(_ context.Context, _, _, _ float64) ([]model.GAFReport, error) {
	return m.nearby, m.err
}

const (
	testLat = 32.7767
	testLng = -96.797
)

func report(factorNum, factorDen float64, lat, lng float64, verified time.Time) model.GAFReport {
	return model.GAFReport{
		Latitude:      lat,
		Longitude:     lng,
		EstimatedSqFt: factorDen,
		VerifiedSqFt:  factorNum,
		VerifiedAt:    verified,
	}
}

func TestGetCalibration_ExactMatch(t *testing.T) {
	verified := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	st := &mockStore{exact: &model.GAFReport{
		Latitude: testLat, Longitude: testLng,
		EstimatedSqFt: 2000, VerifiedSqFt: 2160,
		VerifiedAt: verified,
	}}

	e := NewEngine(st, DefaultConfig())
	cal, err := e.GetCalibration(context.Background(), testLat, testLng, "123 Main St, Dallas, TX")
	require.NoError(t, err)
	require.NotNil(t, cal)

	assert.True(t, cal.ExactMatch)
	assert.Equal(t, 1, cal.BasedOnReports)
	assert.InDelta(t, 1.08, cal.CalibrationFactor, 1e-9)
	assert.Equal(t, verified, cal.LastCalibrated)
}

func TestGetCalibration_ExactMatchTooFarAway(t *testing.T) {
	// Same address string but coordinates ~7 miles off: stale geocode.
	st := &mockStore{exact: &model.GAFReport{
		Latitude: testLat + 0.1, Longitude: testLng,
		EstimatedSqFt: 2000, VerifiedSqFt: 2160,
	}}

	e := NewEngine(st, DefaultConfig())
	cal, err := e.GetCalibration(context.Background(), testLat, testLng, "123 Main St")
	require.NoError(t, err)
	assert.Nil(t, cal)
}

func TestGetCalibration_RegionalBucket(t *testing.T) {
	last := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	st := &mockStore{regional: &model.RegionalCalibration{
		RegionCode:     RegionCode(testLat, testLng),
		Factor:         1.05,
		SampleCount:    12,
		LastCalibrated: last,
	}}

	e := NewEngine(st, DefaultConfig())
	cal, err := e.GetCalibration(context.Background(), testLat, testLng, "")
	require.NoError(t, err)
	require.NotNil(t, cal)

	assert.False(t, cal.ExactMatch)
	assert.Equal(t, 12, cal.BasedOnReports)
	assert.InDelta(t, 1.05, cal.CalibrationFactor, 1e-9)
}

func TestGetCalibration_RegionalBelowMinSamples(t *testing.T) {
	st := &mockStore{regional: &model.RegionalCalibration{Factor: 1.2, SampleCount: 2}}
	e := NewEngine(st, DefaultConfig())
	cal, err := e.GetCalibration(context.Background(), testLat, testLng, "")
	require.NoError(t, err)
	assert.Nil(t, cal)
}

func TestGetCalibration_NearbyAggregate(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	st := &mockStore{nearby: []model.GAFReport{
		report(2100, 2000, testLat, testLng, now.AddDate(0, -6, 0)),
		report(1900, 2000, testLat+0.01, testLng, now),
		report(2200, 2000, testLat, testLng+0.01, now.AddDate(-1, 0, 0)),
		{EstimatedSqFt: 0, VerifiedSqFt: 1500}, // invalid, skipped
	}}

	e := NewEngine(st, DefaultConfig())
	cal, err := e.GetCalibration(context.Background(), testLat, testLng, "")
	require.NoError(t, err)
	require.NotNil(t, cal)

	assert.Equal(t, 3, cal.BasedOnReports)
	// Mean of 1.05, 0.95, 1.10.
	assert.InDelta(t, (1.05+0.95+1.10)/3, cal.CalibrationFactor, 1e-9)
	assert.Equal(t, now, cal.LastCalibrated)
}

func TestGetCalibration_NoHistoryIsNormal(t *testing.T) {
	e := NewEngine(&mockStore{}, DefaultConfig())
	cal, err := e.GetCalibration(context.Background(), testLat, testLng, "123 Main St")
	require.NoError(t, err)
	assert.Nil(t, cal)
}

func TestGetCalibration_NilStore(t *testing.T) {
	e := NewEngine(nil, DefaultConfig())
	cal, err := e.GetCalibration(context.Background(), testLat, testLng, "")
	require.NoError(t, err)
	assert.Nil(t, cal)
}

func TestApply_NewValueNeverMutates(t *testing.T) {
	m := model.MeasurementResult{AdjustedAreaSqFt: 2000, Squares: 20}
	cal := &model.GAFCalibrationResult{CalibrationFactor: 1.1}

	out := Apply(m, cal)
	assert.InDelta(t, 2200.0, out.AdjustedAreaSqFt, 1e-9)
	assert.InDelta(t, 22.0, out.Squares, 1e-9)
	// Original untouched.
	assert.InDelta(t, 2000.0, m.AdjustedAreaSqFt, 1e-9)
}

func TestApply_UnityFactorIdempotent(t *testing.T) {
	m := model.MeasurementResult{AdjustedAreaSqFt: 2000, Squares: 20, RawAreaSqFt: 1800}
	assert.Equal(t, m, Apply(m, &model.GAFCalibrationResult{CalibrationFactor: 1.0}))
	assert.Equal(t, m, Apply(m, nil))
}

func TestRegionCode_StableBuckets(t *testing.T) {
	assert.Equal(t, RegionCode(32.7767, -96.797), RegionCode(32.7712, -96.7901))
	assert.NotEqual(t, RegionCode(32.7767, -96.797), RegionCode(32.9, -96.797))
}

func TestDistanceMiles(t *testing.T) {
	// Dallas to Fort Worth is roughly 31 miles.
	d := DistanceMiles(32.7767, -96.797, 32.7555, -97.3308)
	assert.InDelta(t, 31, d, 2)
	assert.InDelta(t, 0, DistanceMiles(testLat, testLng, testLat, testLng), 1e-9)
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct{ in, want string }{
		{"123 Main Street, Dallas, TX 75201", "123 main st dallas tx 75201"},
		{"123  MAIN st., Dallas, TX 75201", "123 main st dallas tx 75201"},
		{"456 North Oak Avenue", "456 n oak ave"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAddress(tt.in))
	}
}
