// Package confidence converts measurement quality signals into a 0-100
// score with a three-level classification. Scoring is a pure function:
// identical signals always produce identical output, and every signal is
// independently monotonic, so more corroboration never lowers the score.
package confidence

import (
	"fmt"
	"math"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// Level thresholds: score < 50 is low, < 75 moderate, otherwise high.
const (
	moderateThreshold = 50
	highThreshold     = 75
)

// singleSourceCap bounds the score when only one source contributed and no
// agreement data exists to corroborate it.
const singleSourceCap = 90

// Signals are the quality inputs to the scorer.
type Signals struct {
	ImageryQuality   model.ImageryQuality
	ImageryAgeMonths int // -1 when unknown
	SegmentCount     int
	PitchDegrees     float64
	SourceCount      int
	AgreementPct     float64 // 0 when only one source
	HasCalibration   bool
	ExactCalibration bool
	UsedLidar        bool
}

// Score converts signals into a ConfidenceResult.
func Score(s Signals) model.ConfidenceResult {
	score := 50.0
	var factors []string

	if s.UsedLidar {
		score += 20
		factors = append(factors, "LiDAR-derived geometry (+20)")
	}

	switch s.ImageryQuality {
	case model.ImageryHigh:
		score += 12
		factors = append(factors, "high imagery quality (+12)")
	case model.ImageryMedium:
		score += 6
		factors = append(factors, "medium imagery quality (+6)")
	case model.ImageryLow:
		score -= 8
		factors = append(factors, "low imagery quality (-8)")
	}

	switch {
	case s.ImageryAgeMonths < 0:
		// Unknown age: neutral.
	case s.ImageryAgeMonths <= 12:
		score += 5
		factors = append(factors, "recent imagery (+5)")
	case s.ImageryAgeMonths > 36:
		score -= 5
		factors = append(factors, "imagery older than 3 years (-5)")
	}

	if s.SegmentCount > 0 {
		score += 4
		factors = append(factors, "segment-level geometry (+4)")
	}
	if s.PitchDegrees > 0 {
		score += 3
		factors = append(factors, "measured pitch (+3)")
	}

	if s.SourceCount > 1 {
		score += 3
		factors = append(factors, fmt.Sprintf("%d independent sources (+3)", s.SourceCount))
		// Agreement above the midpoint earns up to +8. Disagreement is
		// never a deduction here; it surfaces through discrepancies, so an
		// extra source cannot score below going single-source.
		agreementAdj := math.Max(0, (s.AgreementPct-50)/50*8)
		score += agreementAdj
		factors = append(factors, fmt.Sprintf("source agreement %.0f%% (%+.1f)", s.AgreementPct, agreementAdj))
	}

	if s.HasCalibration {
		score += 5
		factors = append(factors, "regional historical calibration (+5)")
		if s.ExactCalibration {
			score += 5
			factors = append(factors, "exact address match in history (+5)")
		}
	}

	if s.SourceCount <= 1 && s.AgreementPct == 0 && score > singleSourceCap {
		score = singleSourceCap
		factors = append(factors, fmt.Sprintf("single source, capped at %d", singleSourceCap))
	}

	score = math.Max(0, math.Min(100, score))

	return model.ConfidenceResult{
		Score:   score,
		Level:   levelFor(score),
		Factors: factors,
	}
}

func levelFor(score float64) model.ConfidenceLevel {
	switch {
	case score < moderateThreshold:
		return model.ConfidenceLow
	case score < highThreshold:
		return model.ConfidenceModerate
	default:
		return model.ConfidenceHigh
	}
}
