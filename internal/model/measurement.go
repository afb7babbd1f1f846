// Package model defines the value types shared across the measurement
// resolution engine. All result types are immutable once constructed;
// adjustments produce new values rather than mutating in place.
package model

import "time"

// Complexity classifies a roof by facet count.
type Complexity string

// Complexity levels.
const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ImageryQuality is the quality band reported by an imagery-backed source.
type ImageryQuality string

// Imagery quality bands, ordered high to low.
const (
	ImageryHigh   ImageryQuality = "high"
	ImageryMedium ImageryQuality = "medium"
	ImageryLow    ImageryQuality = "low"
)

// Rank returns a comparable ordering for quality bands (higher is better).
// Unknown bands rank below low.
func (q ImageryQuality) Rank() int {
	switch q {
	case ImageryHigh:
		return 3
	case ImageryMedium:
		return 2
	case ImageryLow:
		return 1
	}
	return 0
}

// Location identifies the building being measured.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// MeasurementResult is one source's measurement of a roof.
//
// Invariants: AdjustedAreaSqFt = RawAreaSqFt * PitchMultiplier and
// Squares = AdjustedAreaSqFt / 100.
type MeasurementResult struct {
	RawAreaSqM       float64 `json:"raw_area_sqm"`
	RawAreaSqFt      float64 `json:"raw_area_sqft"`
	AdjustedAreaSqFt float64 `json:"adjusted_area_sqft"`
	Squares          float64 `json:"squares"`

	PitchDegrees    float64 `json:"pitch_degrees"`
	PitchMultiplier float64 `json:"pitch_multiplier"`

	SegmentCount int        `json:"segment_count"`
	Complexity   Complexity `json:"complexity"`

	Source     string  `json:"source"`
	Tier       int     `json:"tier"`
	Confidence float64 `json:"confidence"` // 0-100

	ImageryQuality ImageryQuality `json:"imagery_quality,omitempty"`
	ImageryDate    *time.Time     `json:"imagery_date,omitempty"`
	UsedLidar      bool           `json:"used_lidar"`
}

// ImageryAgeMonths returns the age of the source imagery in whole months
// relative to now, or -1 when no imagery date is known.
func (m MeasurementResult) ImageryAgeMonths(now time.Time) int {
	if m.ImageryDate == nil {
		return -1
	}
	months := int(now.Sub(*m.ImageryDate).Hours() / (24 * 30))
	if months < 0 {
		return 0
	}
	return months
}

// ConfidenceLevel is the three-way classification of a confidence score.
type ConfidenceLevel string

// Confidence levels.
const (
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceModerate ConfidenceLevel = "moderate"
	ConfidenceHigh     ConfidenceLevel = "high"
)

// ConfidenceResult is the scored confidence for a resolved measurement.
type ConfidenceResult struct {
	Score   float64         `json:"score"` // 0-100
	Level   ConfidenceLevel `json:"level"`
	Factors []string        `json:"factors"`
}

// Discrepancy records a pairwise deviation between two candidates that
// exceeded the agreement threshold.
type Discrepancy struct {
	SourceA      string  `json:"source_a"`
	SourceB      string  `json:"source_b"`
	AreaA        float64 `json:"area_a_sqft"`
	AreaB        float64 `json:"area_b_sqft"`
	DeviationPct float64 `json:"deviation_pct"`
}

// CrossValidationResult is the outcome of comparing one or more candidates.
type CrossValidationResult struct {
	FinalMeasurement MeasurementResult `json:"final_measurement"`
	AgreementScore   float64           `json:"agreement_score"` // 0-100
	Discrepancies    []Discrepancy     `json:"discrepancies,omitempty"`
	Recommendation   string            `json:"recommendation"`
}

// GAFReport is a historical ground-truth report: a roof that was estimated
// and later verified during installation.
type GAFReport struct {
	ID                string    `json:"id"`
	Address           string    `json:"address"`
	NormalizedAddress string    `json:"normalized_address"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	RegionCode        string    `json:"region_code"`
	EstimatedSqFt     float64   `json:"estimated_sqft"`
	VerifiedSqFt      float64   `json:"verified_sqft"`
	RoofType          string    `json:"roof_type,omitempty"`
	VerifiedAt        time.Time `json:"verified_at"`
}

// Factor returns the report's verified/estimated area ratio, or 0 when the
// estimate is missing.
func (r GAFReport) Factor() float64 {
	if r.EstimatedSqFt <= 0 {
		return 0
	}
	return r.VerifiedSqFt / r.EstimatedSqFt
}

// RegionalCalibration is an aggregate of GAF reports in one geographic bucket.
type RegionalCalibration struct {
	RegionCode     string    `json:"region_code"`
	Factor         float64   `json:"factor"`
	SampleCount    int       `json:"sample_count"`
	LastCalibrated time.Time `json:"last_calibrated"`
}

// GAFCalibrationResult is the historical adjustment looked up for a location.
// A factor of 1.0 means no adjustment.
type GAFCalibrationResult struct {
	CalibrationFactor float64   `json:"calibration_factor"`
	BasedOnReports    int       `json:"based_on_reports"`
	LastCalibrated    time.Time `json:"last_calibrated"`
	ExactMatch        bool      `json:"exact_match"`
}
