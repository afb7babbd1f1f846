package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ridgecap-labs/roofline/internal/model"
)

func baseSignals() Signals {
	return Signals{
		ImageryQuality:   model.ImageryHigh,
		ImageryAgeMonths: 6,
		SegmentCount:     8,
		PitchDegrees:     22,
		SourceCount:      1,
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := baseSignals()
	assert.Equal(t, Score(s), Score(s))
}

func TestScore_LidarNeverLowers(t *testing.T) {
	variants := []Signals{
		baseSignals(),
		{ImageryQuality: model.ImageryLow, ImageryAgeMonths: 48, SourceCount: 1},
		{SourceCount: 3, AgreementPct: 95, HasCalibration: true, ExactCalibration: true,
			ImageryQuality: model.ImageryHigh, ImageryAgeMonths: 2, SegmentCount: 10, PitchDegrees: 30},
		{ImageryAgeMonths: -1},
	}
	for _, s := range variants {
		without := Score(s)
		s.UsedLidar = true
		with := Score(s)
		assert.GreaterOrEqual(t, with.Score, without.Score, "signals: %+v", s)
	}
}

func TestScore_SecondSourceNeverLowers(t *testing.T) {
	for _, pct := range []float64{0, 20, 50, 80, 100} {
		s := baseSignals()
		single := Score(s)

		s.SourceCount = 2
		s.AgreementPct = pct
		multi := Score(s)
		assert.GreaterOrEqual(t, multi.Score, single.Score, "agreement %.0f", pct)
	}
}

func TestScore_MonotonicInAgreement(t *testing.T) {
	s := baseSignals()
	s.SourceCount = 2
	prev := -1.0
	for pct := 0.0; pct <= 100; pct += 10 {
		s.AgreementPct = pct
		got := Score(s).Score
		assert.GreaterOrEqual(t, got, prev, "agreement %.0f", pct)
		prev = got
	}
}

func TestScore_CalibrationBonuses(t *testing.T) {
	s := baseSignals()
	none := Score(s).Score

	s.HasCalibration = true
	regional := Score(s).Score
	assert.Greater(t, regional, none)

	s.ExactCalibration = true
	exact := Score(s).Score
	assert.Greater(t, exact, regional)
}

func TestScore_LowQualityPenalty(t *testing.T) {
	good := baseSignals()
	bad := baseSignals()
	bad.ImageryQuality = model.ImageryLow
	assert.Less(t, Score(bad).Score, Score(good).Score)
}

func TestScore_SingleSourceCapped(t *testing.T) {
	s := Signals{
		UsedLidar:        true,
		ImageryQuality:   model.ImageryHigh,
		ImageryAgeMonths: 1,
		SegmentCount:     10,
		PitchDegrees:     25,
		SourceCount:      1,
		HasCalibration:   true,
		ExactCalibration: true,
	}
	res := Score(s)
	assert.LessOrEqual(t, res.Score, float64(singleSourceCap))
}

func TestScore_Levels(t *testing.T) {
	// Bare low-quality single source lands in low.
	low := Score(Signals{ImageryQuality: model.ImageryLow, ImageryAgeMonths: 60, SourceCount: 1})
	assert.Equal(t, model.ConfidenceLow, low.Level)

	// Decent imagery lands in moderate or better.
	mid := Score(Signals{ImageryQuality: model.ImageryMedium, ImageryAgeMonths: 20, SegmentCount: 4, SourceCount: 1})
	assert.Equal(t, model.ConfidenceModerate, mid.Level)

	// LiDAR plus corroboration lands in high.
	high := Score(Signals{UsedLidar: true, SegmentCount: 8, PitchDegrees: 25,
		ImageryAgeMonths: -1, SourceCount: 2, AgreementPct: 96})
	assert.Equal(t, model.ConfidenceHigh, high.Level)
}

func TestScore_BoundedAndFactorsPresent(t *testing.T) {
	res := Score(Signals{ImageryQuality: model.ImageryLow, ImageryAgeMonths: 120, SourceCount: 1})
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.NotEmpty(t, res.Factors)
}
