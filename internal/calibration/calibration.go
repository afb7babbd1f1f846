// Package calibration adjusts measurements using historical ground truth:
// GAF reports where an estimated roof was later verified during install.
// An exact address match wins; otherwise nearby reports are aggregated into
// a regional factor. No calibration at all is the normal case.
package calibration

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgecap-labs/roofline/internal/model"
	"github.com/ridgecap-labs/roofline/internal/roofmath"
)

// Store is the calibration engine's view of persisted history.
type Store interface {
	// FindExactReport returns the most recent report matching the
	// normalized address, or nil when none exists.
	FindExactReport(ctx context.Context, normalizedAddress string) (*model.GAFReport, error)
	// FindRegionalCalibration returns the precomputed aggregate for a
	// region bucket, or nil.
	FindRegionalCalibration(ctx context.Context, regionCode string) (*model.RegionalCalibration, error)
	// FindNearby returns reports within radiusMiles of the point.
	FindNearby(ctx context.Context, lat, lng, radiusMiles float64) ([]model.GAFReport, error)
}

// Config tunes the lookup.
type Config struct {
	// ExactToleranceMiles bounds how far an address-matched report may sit
	// from the query point before it is rejected as a stale geocode.
	ExactToleranceMiles float64 `yaml:"exact_tolerance_miles" mapstructure:"exact_tolerance_miles"`
	// RadiusMiles is the nearby-report aggregation radius.
	RadiusMiles float64 `yaml:"radius_miles" mapstructure:"radius_miles"`
	// MinSamples is the fewest reports a regional factor may rest on.
	MinSamples int `yaml:"min_samples" mapstructure:"min_samples"`
}

// DefaultConfig returns the standard lookup parameters.
func DefaultConfig() Config {
	return Config{
		ExactToleranceMiles: 0.1,
		RadiusMiles:         15,
		MinSamples:          3,
	}
}

// Engine performs calibration lookups and applications.
type Engine struct {
	store Store
	cfg   Config
}

// NewEngine creates a calibration engine. A nil store disables lookups
// (GetCalibration always returns nil).
func NewEngine(store Store, cfg Config) *Engine {
	if cfg.RadiusMiles <= 0 {
		cfg.RadiusMiles = DefaultConfig().RadiusMiles
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}
	if cfg.ExactToleranceMiles <= 0 {
		cfg.ExactToleranceMiles = DefaultConfig().ExactToleranceMiles
	}
	return &Engine{store: store, cfg: cfg}
}

// GetCalibration looks up the adjustment for a location. A nil result with
// a nil error means no usable history exists, which callers must treat as
// the normal outcome.
func (e *Engine) GetCalibration(ctx context.Context, lat, lng float64, address string) (*model.GAFCalibrationResult, error) {
	if e.store == nil {
		return nil, nil
	}

	// Exact match first.
	if address != "" {
		report, err := e.store.FindExactReport(ctx, NormalizeAddress(address))
		if err != nil {
			return nil, eris.Wrap(err, "calibration: exact lookup")
		}
		if report != nil && report.Factor() > 0 &&
			DistanceMiles(lat, lng, report.Latitude, report.Longitude) <= e.cfg.ExactToleranceMiles {
			zap.L().Debug("calibration: exact match",
				zap.String("address", address),
				zap.Float64("factor", report.Factor()),
			)
			return &model.GAFCalibrationResult{
				CalibrationFactor: report.Factor(),
				BasedOnReports:    1,
				LastCalibrated:    report.VerifiedAt,
				ExactMatch:        true,
			}, nil
		}
	}

	// Precomputed regional bucket.
	regional, err := e.store.FindRegionalCalibration(ctx, RegionCode(lat, lng))
	if err != nil {
		return nil, eris.Wrap(err, "calibration: regional lookup")
	}
	if regional != nil && regional.SampleCount >= e.cfg.MinSamples && regional.Factor > 0 {
		return &model.GAFCalibrationResult{
			CalibrationFactor: regional.Factor,
			BasedOnReports:    regional.SampleCount,
			LastCalibrated:    regional.LastCalibrated,
		}, nil
	}

	// Fall back to aggregating raw nearby reports.
	reports, err := e.store.FindNearby(ctx, lat, lng, e.cfg.RadiusMiles)
	if err != nil {
		return nil, eris.Wrap(err, "calibration: nearby lookup")
	}

	var sum float64
	var count int
	var latest time.Time
	for _, r := range reports {
		f := r.Factor()
		if f <= 0 {
			continue
		}
		sum += f
		count++
		if r.VerifiedAt.After(latest) {
			latest = r.VerifiedAt
		}
	}
	if count < e.cfg.MinSamples {
		return nil, nil
	}

	return &model.GAFCalibrationResult{
		CalibrationFactor: sum / float64(count),
		BasedOnReports:    count,
		LastCalibrated:    latest,
	}, nil
}

// Apply produces a new measurement with the calibration factor applied to
// the adjusted area. The input is never mutated; a nil calibration or a
// factor of 1.0 returns the measurement unchanged.
func Apply(m model.MeasurementResult, cal *model.GAFCalibrationResult) model.MeasurementResult {
	if cal == nil || cal.CalibrationFactor <= 0 || cal.CalibrationFactor == 1.0 {
		return m
	}
	adjusted := m.AdjustedAreaSqFt * cal.CalibrationFactor
	out := m
	out.AdjustedAreaSqFt = adjusted
	out.Squares = roofmath.AreaToSquares(adjusted)
	return out
}

// RegionCode buckets coordinates into a coarse 0.1 degree grid cell
// (~7 mile squares at mid latitudes).
func RegionCode(lat, lng float64) string {
	return fmt.Sprintf("R%.1f:%.1f", math.Floor(lat*10)/10, math.Floor(lng*10)/10)
}
