// Package validate cross-checks measurement candidates from independent
// sources, computes their agreement, and selects a final value by source
// trust rather than averaging.
package validate

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// discrepancyThresholdPct is the relative area difference above which a
// candidate pair is flagged.
const discrepancyThresholdPct = 10.0

// CrossValidate compares candidates and selects a final measurement.
//
// With a single candidate it passes through unchanged with full agreement.
// With several, adjusted areas are compared pairwise; the winner is the most
// trusted source, or the candidate closest to calibration ground truth when
// calibration data exists. Callers apply calibration to the candidates
// before validation; cal only marks that calibration data was found.
func CrossValidate(candidates []model.MeasurementResult, cal *model.GAFCalibrationResult) (*model.CrossValidationResult, error) {
	if len(candidates) == 0 {
		return nil, eris.New("validate: no measurement candidates")
	}

	if len(candidates) == 1 {
		return &model.CrossValidationResult{
			FinalMeasurement: candidates[0],
			AgreementScore:   100,
			Recommendation:   singleSourceRecommendation(candidates[0]),
		}, nil
	}

	discrepancies, maxDevPct := compare(candidates)
	agreement := math.Max(0, 100-2*maxDevPct)

	final := selectWinner(candidates, cal)

	zap.L().Debug("validate: cross-validation complete",
		zap.Int("candidates", len(candidates)),
		zap.Float64("agreement", agreement),
		zap.Int("discrepancies", len(discrepancies)),
		zap.String("winner", final.Source),
	)

	return &model.CrossValidationResult{
		FinalMeasurement: final,
		AgreementScore:   agreement,
		Discrepancies:    discrepancies,
		Recommendation:   multiSourceRecommendation(final, agreement, discrepancies),
	}, nil
}

// compare runs the pairwise area comparison, returning flagged pairs and
// the maximum relative deviation seen (percent).
func compare(candidates []model.MeasurementResult) ([]model.Discrepancy, float64) {
	var discrepancies []model.Discrepancy
	var maxDevPct float64

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			devPct := relativeDeviationPct(a.AdjustedAreaSqFt, b.AdjustedAreaSqFt)
			if devPct > maxDevPct {
				maxDevPct = devPct
			}
			if devPct > discrepancyThresholdPct {
				discrepancies = append(discrepancies, model.Discrepancy{
					SourceA:      a.Source,
					SourceB:      b.Source,
					AreaA:        a.AdjustedAreaSqFt,
					AreaB:        b.AdjustedAreaSqFt,
					DeviationPct: devPct,
				})
			}
		}
	}
	return discrepancies, maxDevPct
}

// relativeDeviationPct is |a-b| relative to the larger of the two, in percent.
func relativeDeviationPct(a, b float64) float64 {
	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return 0
	}
	return math.Abs(a-b) / larger * 100
}

// sourceTrust ranks sources by expected accuracy. LiDAR-backed results beat
// imagery, imagery beats estimates.
func sourceTrust(m model.MeasurementResult) int {
	switch {
	case m.UsedLidar:
		return 5
	case m.ImageryQuality == model.ImageryHigh:
		return 4
	case m.ImageryQuality == model.ImageryMedium:
		return 3
	case m.ImageryQuality == model.ImageryLow:
		return 2
	}
	return 1
}

// selectWinner picks the final measurement. With calibration present, the
// candidate closest to the calibration-implied ground truth wins; trust
// order breaks ties and decides otherwise.
func selectWinner(candidates []model.MeasurementResult, cal *model.GAFCalibrationResult) model.MeasurementResult {
	ranked := make([]model.MeasurementResult, len(candidates))
	copy(ranked, candidates)

	if cal != nil && cal.CalibrationFactor > 0 {
		target := meanAdjustedArea(candidates)
		sort.SliceStable(ranked, func(i, j int) bool {
			di := math.Abs(ranked[i].AdjustedAreaSqFt - target)
			dj := math.Abs(ranked[j].AdjustedAreaSqFt - target)
			if di != dj {
				return di < dj
			}
			return sourceTrust(ranked[i]) > sourceTrust(ranked[j])
		})
		return ranked[0]
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ti, tj := sourceTrust(ranked[i]), sourceTrust(ranked[j])
		if ti != tj {
			return ti > tj
		}
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked[0]
}

// meanAdjustedArea estimates ground-truth area as the mean of the adjusted
// candidate areas. The candidates arrive already calibrated, so the factor
// must not be applied a second time here.
func meanAdjustedArea(candidates []model.MeasurementResult) float64 {
	var sum float64
	for _, c := range candidates {
		sum += c.AdjustedAreaSqFt
	}
	return sum / float64(len(candidates))
}
