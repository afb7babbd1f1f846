package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgecap-labs/roofline/internal/model"
)

func candidate(source string, adjusted float64, lidar bool, quality model.ImageryQuality) model.MeasurementResult {
	return model.MeasurementResult{
		RawAreaSqFt:      adjusted / 1.1,
		AdjustedAreaSqFt: adjusted,
		Squares:          adjusted / 100,
		PitchMultiplier:  1.1,
		Source:           source,
		Confidence:       80,
		UsedLidar:        lidar,
		ImageryQuality:   quality,
	}
}

func TestCrossValidate_Empty(t *testing.T) {
	_, err := CrossValidate(nil, nil)
	require.Error(t, err)
}

func TestCrossValidate_SingleCandidatePassthrough(t *testing.T) {
	c := candidate("solar-imagery-high", 2400, false, model.ImageryHigh)
	res, err := CrossValidate([]model.MeasurementResult{c}, nil)
	require.NoError(t, err)

	assert.Equal(t, c, res.FinalMeasurement)
	assert.Equal(t, 100.0, res.AgreementScore)
	assert.Empty(t, res.Discrepancies)
	assert.NotEmpty(t, res.Recommendation)
}

func TestCrossValidate_AgreementWithinThreshold(t *testing.T) {
	a := candidate("aerial-lidar", 2400, true, "")
	b := candidate("solar-imagery-high", 2300, false, model.ImageryHigh)

	res, err := CrossValidate([]model.MeasurementResult{a, b}, nil)
	require.NoError(t, err)

	// Deviation 100/2400 ≈ 4.2% — under the 10% threshold.
	assert.Empty(t, res.Discrepancies)
	assert.Greater(t, res.AgreementScore, 90.0)
	// LiDAR outranks imagery.
	assert.Equal(t, "aerial-lidar", res.FinalMeasurement.Source)
}

func TestCrossValidate_FlagsDiscrepancy(t *testing.T) {
	a := candidate("solar-imagery-high", 3000, false, model.ImageryHigh)
	b := candidate("address-estimate", 1800, false, "")

	res, err := CrossValidate([]model.MeasurementResult{a, b}, nil)
	require.NoError(t, err)

	require.Len(t, res.Discrepancies, 1)
	d := res.Discrepancies[0]
	assert.Equal(t, "solar-imagery-high", d.SourceA)
	assert.Equal(t, "address-estimate", d.SourceB)
	assert.InDelta(t, 40.0, d.DeviationPct, 0.01)
	assert.InDelta(t, 20.0, res.AgreementScore, 0.1)
	// Imagery beats an address heuristic even though it read larger.
	assert.Equal(t, "solar-imagery-high", res.FinalMeasurement.Source)
	assert.Contains(t, res.Recommendation, "Manual verification")
}

func TestCrossValidate_WinnerByTrustNotAverage(t *testing.T) {
	lidarC := candidate("aerial-lidar", 2000, true, "")
	solar := candidate("solar-imagery-high", 2600, false, model.ImageryHigh)
	addr := candidate("address-estimate", 2600, false, "")

	res, err := CrossValidate([]model.MeasurementResult{addr, solar, lidarC}, nil)
	require.NoError(t, err)

	// The final value is the LiDAR candidate itself, not any blend.
	assert.Equal(t, lidarC, res.FinalMeasurement)
}

func TestCrossValidate_CalibrationPullsWinner(t *testing.T) {
	// Candidates arrive with the 1.3 factor already applied (2000, 2100 and
	// 3000 raw). Ground truth is their mean, 3076.7, so the high-quality
	// solar read at 2730 is closest despite LiDAR's trust advantage.
	lidarC := candidate("aerial-lidar", 2600, true, "")
	solarHigh := candidate("solar-imagery-high", 2730, false, model.ImageryHigh)
	solarLow := candidate("solar-imagery-low", 3900, false, model.ImageryLow)
	cal := &model.GAFCalibrationResult{CalibrationFactor: 1.3, BasedOnReports: 6}

	res, err := CrossValidate([]model.MeasurementResult{lidarC, solarHigh, solarLow}, cal)
	require.NoError(t, err)
	assert.Equal(t, "solar-imagery-high", res.FinalMeasurement.Source)
}

func TestCrossValidate_CalibrationFactorNotReapplied(t *testing.T) {
	// The factor must not scale the target again once the candidates carry
	// it. A doubled factor would move the target past the largest outlier.
	a := candidate("solar-imagery-high", 2730, false, model.ImageryHigh)
	b := candidate("solar-imagery-low", 3900, false, model.ImageryLow)
	cal := &model.GAFCalibrationResult{CalibrationFactor: 1.3, BasedOnReports: 4}

	res, err := CrossValidate([]model.MeasurementResult{a, b}, cal)
	require.NoError(t, err)

	// Target 3315 is equidistant; trust breaks the tie toward high quality.
	// With factor reapplied (target 4309.5) the low outlier would win.
	assert.Equal(t, "solar-imagery-high", res.FinalMeasurement.Source)
}

func TestCrossValidate_AgreementNeverNegative(t *testing.T) {
	a := candidate("a", 5000, false, "")
	b := candidate("b", 100, false, "")
	res, err := CrossValidate([]model.MeasurementResult{a, b}, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.AgreementScore, 0.0)
}

func TestRelativeDeviationPct(t *testing.T) {
	assert.Equal(t, 0.0, relativeDeviationPct(0, 0))
	assert.InDelta(t, 50.0, relativeDeviationPct(100, 200), 1e-9)
	assert.InDelta(t, 50.0, relativeDeviationPct(200, 100), 1e-9)
}
