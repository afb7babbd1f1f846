package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgecap-labs/roofline/internal/calibration"
	"github.com/ridgecap-labs/roofline/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testReport(address string, lat, lng, estimated, verified float64) model.GAFReport {
	return model.GAFReport{
		Address:       address,
		Latitude:      lat,
		Longitude:     lng,
		EstimatedSqFt: estimated,
		VerifiedSqFt:  verified,
		RoofType:      "asphalt shingle",
		VerifiedAt:    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}
}

// --- Reports ---

func TestSQLite_InsertReport_Defaults(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.InsertReport(ctx, testReport("123 Main Street, Dallas, TX 75201", 32.78, -96.80, 2400, 2520))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	r, err := st.FindExactReport(ctx, calibration.NormalizeAddress("123 Main Street, Dallas, TX 75201"))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, id, r.ID)
	assert.Equal(t, calibration.RegionCode(32.78, -96.80), r.RegionCode)
	assert.InDelta(t, 2520, r.VerifiedSqFt, 0.001)
}

func TestSQLite_InsertReport_RejectsNonPositiveArea(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.InsertReport(ctx, testReport("1 Elm St", 30, -97, 0, 2000))
	assert.Error(t, err)

	_, err = st.InsertReport(ctx, testReport("1 Elm St", 30, -97, 2000, -5))
	assert.Error(t, err)
}

func TestSQLite_FindExactReport_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	r, err := st.FindExactReport(context.Background(), "nowhere usa")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestSQLite_FindExactReport_LatestWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	older := testReport("55 Oak Ave, Austin, TX 78701", 30.27, -97.74, 2000, 2100)
	older.VerifiedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := st.InsertReport(ctx, older)
	require.NoError(t, err)

	newer := testReport("55 Oak Ave, Austin, TX 78701", 30.27, -97.74, 2000, 2250)
	newer.VerifiedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = st.InsertReport(ctx, newer)
	require.NoError(t, err)

	r, err := st.FindExactReport(ctx, calibration.NormalizeAddress("55 Oak Ave, Austin, TX 78701"))
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.InDelta(t, 2250, r.VerifiedSqFt, 0.001)
}

// --- Nearby ---

func TestSQLite_FindNearby_RadiusFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// ~0 miles, ~7 miles, and ~70 miles from the query point.
	_, err := st.InsertReport(ctx, testReport("A", 32.78, -96.80, 2000, 2100))
	require.NoError(t, err)
	_, err = st.InsertReport(ctx, testReport("B", 32.88, -96.80, 2000, 2100))
	require.NoError(t, err)
	_, err = st.InsertReport(ctx, testReport("C", 33.78, -96.80, 2000, 2100))
	require.NoError(t, err)

	reports, err := st.FindNearby(ctx, 32.78, -96.80, 15)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

// --- Regional calibrations ---

func TestSQLite_RebuildRegionalCalibrations(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Two reports in the same 0.1 degree grid cell.
	_, err := st.InsertReport(ctx, testReport("A", 32.781, -96.801, 2000, 2200))
	require.NoError(t, err)
	_, err = st.InsertReport(ctx, testReport("B", 32.789, -96.809, 1000, 1000))
	require.NoError(t, err)

	n, err := st.RebuildRegionalCalibrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rc, err := st.FindRegionalCalibration(ctx, calibration.RegionCode(32.781, -96.801))
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.Equal(t, 2, rc.SampleCount)
	// Mean of 1.1 and 1.0.
	assert.InDelta(t, 1.05, rc.Factor, 0.001)
}

func TestSQLite_FindRegionalCalibration_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	rc, err := st.FindRegionalCalibration(context.Background(), "R99.9:99.9")
	require.NoError(t, err)
	assert.Nil(t, rc)
}

func TestSQLite_Counts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.CountReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = st.InsertReport(ctx, testReport("A", 32.78, -96.80, 2000, 2100))
	require.NoError(t, err)

	n, err = st.CountReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.RebuildRegionalCalibrations(ctx)
	require.NoError(t, err)

	regions, err := st.CountRegions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, regions)
}
