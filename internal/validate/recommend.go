package validate

import (
	"fmt"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// singleSourceRecommendation narrates the common single-candidate path.
func singleSourceRecommendation(m model.MeasurementResult) string {
	if m.UsedLidar {
		return fmt.Sprintf("LiDAR measurement of %.0f sq ft (%.1f squares) is suitable for quoting without field verification.",
			m.AdjustedAreaSqFt, m.Squares)
	}
	switch {
	case m.ImageryQuality == model.ImageryHigh:
		return fmt.Sprintf("High-quality imagery measurement of %.0f sq ft (%.1f squares); spot-check eave lengths before ordering.",
			m.AdjustedAreaSqFt, m.Squares)
	case m.ImageryQuality == model.ImageryMedium || m.ImageryQuality == model.ImageryLow:
		return fmt.Sprintf("Imagery-based estimate of %.0f sq ft (%.1f squares); verify on site before final material order.",
			m.AdjustedAreaSqFt, m.Squares)
	}
	return fmt.Sprintf("Estimated %.0f sq ft (%.1f squares) from %s; treat as a rough figure and confirm with a field measurement.",
		m.AdjustedAreaSqFt, m.Squares, m.Source)
}

// multiSourceRecommendation narrates the legacy multi-source path.
func multiSourceRecommendation(final model.MeasurementResult, agreement float64, discrepancies []model.Discrepancy) string {
	if len(discrepancies) == 0 {
		return fmt.Sprintf("Sources agree within tolerance (agreement %.0f); using %s at %.0f sq ft (%.1f squares).",
			agreement, final.Source, final.AdjustedAreaSqFt, final.Squares)
	}
	return fmt.Sprintf("%d source pair(s) disagree by more than %.0f%% (agreement %.0f); using most trusted source %s at %.0f sq ft. Manual verification recommended.",
		len(discrepancies), discrepancyThresholdPct, agreement, final.Source, final.AdjustedAreaSqFt)
}
