// Package provider implements the measurement sources behind each waterfall
// tier. Every provider maps its raw client output into a MeasurementResult
// with the pitch-adjustment invariants already applied.
package provider

import (
	"time"

	"github.com/ridgecap-labs/roofline/internal/model"
	"github.com/ridgecap-labs/roofline/internal/roofmath"
)

// build assembles a MeasurementResult from raw footprint area, enforcing
// adjusted = raw * multiplier and squares = adjusted / 100.
func build(rawAreaSqM, pitchDegrees float64, segments int, source string, tierNum int, confidence float64) model.MeasurementResult {
	rawSqFt := rawAreaSqM * roofmath.SqMToSqFt
	mult := roofmath.PitchMultiplier(pitchDegrees)
	adjusted := roofmath.AdjustArea(rawSqFt, mult)

	return model.MeasurementResult{
		RawAreaSqM:       rawAreaSqM,
		RawAreaSqFt:      rawSqFt,
		AdjustedAreaSqFt: adjusted,
		Squares:          roofmath.AreaToSquares(adjusted),
		PitchDegrees:     pitchDegrees,
		PitchMultiplier:  mult,
		SegmentCount:     segments,
		Complexity:       roofmath.ClassifyComplexity(segments),
		Source:           source,
		Tier:             tierNum,
		Confidence:       confidence,
	}
}

// timePtr returns a pointer to t, or nil when t is zero.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
