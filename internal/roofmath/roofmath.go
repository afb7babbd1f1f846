// Package roofmath provides the pure pitch and area conversions used by
// every measurement source. All functions are stateless and deterministic.
package roofmath

import (
	"math"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// SqMToSqFt is the square-meter to square-foot conversion factor.
const SqMToSqFt = 10.7639

// maxPitchDegrees caps the pitch angle before the secant blows up.
const maxPitchDegrees = 89

// PitchMultiplier converts a roof pitch angle to the multiplicative factor
// between footprint area and true surface area. Returns 1.0 at 0 degrees
// and is non-decreasing on [0, 90).
func PitchMultiplier(degrees float64) float64 {
	if degrees <= 0 {
		return 1.0
	}
	if degrees > maxPitchDegrees {
		degrees = maxPitchDegrees
	}
	return 1.0 / math.Cos(degrees*math.Pi/180)
}

// AreaToSquares converts square feet to roofing squares (100 sq ft each).
func AreaToSquares(areaSqFt float64) float64 {
	return areaSqFt / 100
}

// SquaresToArea is the inverse of AreaToSquares.
func SquaresToArea(squares float64) float64 {
	return squares * 100
}

// AdjustArea applies a pitch multiplier to a footprint area.
func AdjustArea(rawAreaSqFt, multiplier float64) float64 {
	return rawAreaSqFt * multiplier
}

// ClassifyComplexity buckets a roof by its facet count.
func ClassifyComplexity(segments int) model.Complexity {
	switch {
	case segments <= 4:
		return model.ComplexitySimple
	case segments <= 12:
		return model.ComplexityModerate
	default:
		return model.ComplexityComplex
	}
}
