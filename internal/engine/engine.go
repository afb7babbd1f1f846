// Package engine is the measurement resolution facade. It owns the tier
// waterfall, consults historical calibration, cross-validates candidates,
// and scores confidence, returning one assembled Resolution per request.
package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ridgecap-labs/roofline/internal/calibration"
	"github.com/ridgecap-labs/roofline/internal/confidence"
	"github.com/ridgecap-labs/roofline/internal/model"
	"github.com/ridgecap-labs/roofline/internal/roofmath"
	"github.com/ridgecap-labs/roofline/internal/tier"
	"github.com/ridgecap-labs/roofline/internal/validate"
)

// resolveAllConcurrency bounds the parallel fan-out in ResolveAll.
const resolveAllConcurrency = 4

// manualConfidence is the fixed baseline for manually traced measurements.
const manualConfidence = 85

// manualDefaultPitch is assumed when a manual submission omits pitch.
const manualDefaultPitch = 20.0

// Engine resolves roof measurements. Construct with New; the zero value is
// not usable.
type Engine struct {
	cfg       *tier.Config
	resolver  *tier.Resolver
	calib     *calibration.Engine
	providers []tier.Provider
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source, used for imagery age.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine over the given providers. A nil calibration engine
// disables calibration lookups.
func New(cfg *tier.Config, calib *calibration.Engine, providers []tier.Provider, opts ...Option) *Engine {
	if cfg == nil {
		cfg = tier.DefaultConfig()
	}
	if calib == nil {
		calib = calibration.NewEngine(nil, calibration.DefaultConfig())
	}
	sorted := make([]tier.Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Tier() < sorted[j].Tier() })

	e := &Engine{
		cfg:       cfg,
		resolver:  tier.NewResolver(cfg, providers...),
		calib:     calib,
		providers: sorted,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolution is the full outcome of a measurement request.
type Resolution struct {
	Measurement        model.MeasurementResult     `json:"measurement"`
	TierUsed           int                         `json:"tier_used"`
	TierName           string                      `json:"tier_name"`
	AccuracyBand       string                      `json:"accuracy_band"`
	ManualRequired     bool                        `json:"manual_required"`
	HigherTierFailures []tier.Failure              `json:"higher_tier_failures,omitempty"`
	Calibration        *model.GAFCalibrationResult `json:"gaf_calibration,omitempty"`
	Validation         model.CrossValidationResult `json:"validation"`
	Confidence         model.ConfidenceResult      `json:"confidence"`
}

// ResolveTiered walks the waterfall for a location and assembles the full
// resolution: first viable tier wins, calibration is applied when history
// exists, and the single winning candidate is validated and scored.
func (e *Engine) ResolveTiered(ctx context.Context, loc model.Location) (*Resolution, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	r, err := e.resolver.Resolve(ctx, loc)
	if err != nil {
		return nil, err
	}
	if r.ManualRequired {
		return &Resolution{
			TierUsed:           r.TierUsed,
			TierName:           r.TierName,
			AccuracyBand:       r.AccuracyBand,
			ManualRequired:     true,
			HigherTierFailures: r.HigherTierFailures,
		}, nil
	}

	cal := e.lookupCalibration(ctx, loc)
	final := calibration.Apply(r.Measurement, cal)

	cv, err := validate.CrossValidate([]model.MeasurementResult{final}, cal)
	if err != nil {
		return nil, err
	}

	conf := confidence.Score(e.signals(cv.FinalMeasurement, 1, 0, cal))

	return &Resolution{
		Measurement:        cv.FinalMeasurement,
		TierUsed:           r.TierUsed,
		TierName:           r.TierName,
		AccuracyBand:       r.AccuracyBand,
		HigherTierFailures: r.HigherTierFailures,
		Calibration:        cal,
		Validation:         *cv,
		Confidence:         conf,
	}, nil
}

// ResolveAll queries every enabled provider concurrently and cross-validates
// whatever comes back. Individual provider failures are recorded, not raised;
// when nothing succeeds the result is manual-required, same as the waterfall.
func (e *Engine) ResolveAll(ctx context.Context, loc model.Location) (*Resolution, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	type attempt struct {
		provider tier.Provider
		name     string
	}
	var attempts []attempt
	var failures []tier.Failure

	for _, p := range e.providers {
		tc, ok := e.cfg.Get(p.Tier())
		if !ok || !tc.IsEnabled() {
			continue
		}
		if !p.Available() {
			failures = append(failures, tier.Failure{
				Tier:   p.Tier(),
				Name:   tc.Name,
				Reason: tier.ReasonNoCredentials,
			})
			continue
		}
		attempts = append(attempts, attempt{provider: p, name: tc.Name})
	}

	results := make([]*model.MeasurementResult, len(attempts))
	attemptFailures := make([]*tier.Failure, len(attempts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveAllConcurrency)
	for i, a := range attempts {
		i, a := i, a
		g.Go(func() error {
			m, err := a.provider.Attempt(gctx, loc)
			if err != nil {
				attemptFailures[i] = &tier.Failure{
					Tier:   a.provider.Tier(),
					Name:   a.name,
					Reason: tier.ClassifyError(err),
					Detail: eris.Cause(err).Error(),
				}
				return nil
			}
			if m == nil {
				attemptFailures[i] = &tier.Failure{
					Tier:   a.provider.Tier(),
					Name:   a.name,
					Reason: tier.ReasonNoData,
				}
				return nil
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: parallel resolve")
	}

	var candidates []model.MeasurementResult
	for i := range attempts {
		if results[i] != nil {
			candidates = append(candidates, *results[i])
		} else if attemptFailures[i] != nil {
			failures = append(failures, *attemptFailures[i])
		}
	}
	sort.SliceStable(failures, func(i, j int) bool { return failures[i].Tier < failures[j].Tier })

	if len(candidates) == 0 {
		manual, _ := e.cfg.Get(tier.TierManual)
		return &Resolution{
			TierUsed:           tier.TierManual,
			TierName:           manual.Name,
			AccuracyBand:       manual.AccuracyBand,
			ManualRequired:     true,
			HigherTierFailures: failures,
		}, nil
	}

	cal := e.lookupCalibration(ctx, loc)
	for i := range candidates {
		candidates[i] = calibration.Apply(candidates[i], cal)
	}

	cv, err := validate.CrossValidate(candidates, cal)
	if err != nil {
		return nil, err
	}

	agreement := 0.0
	if len(candidates) > 1 {
		agreement = cv.AgreementScore
	}
	conf := confidence.Score(e.signals(cv.FinalMeasurement, len(candidates), agreement, cal))

	winner := cv.FinalMeasurement
	tc, _ := e.cfg.Get(winner.Tier)
	return &Resolution{
		Measurement:        winner,
		TierUsed:           winner.Tier,
		TierName:           tc.Name,
		AccuracyBand:       tc.AccuracyBand,
		HigherTierFailures: failures,
		Calibration:        cal,
		Validation:         *cv,
		Confidence:         conf,
	}, nil
}

// ManualOption configures a manual measurement.
type ManualOption func(*manualParams)

type manualParams struct {
	pitchDegrees float64
}

// WithPitch sets the roof pitch for a manual measurement. Without it the
// standard residential assumption applies.
func WithPitch(degrees float64) ManualOption {
	return func(p *manualParams) { p.pitchDegrees = degrees }
}

// ManualMeasurement builds a measurement from a manually traced footprint
// area. The result carries the fixed manual confidence baseline.
func (e *Engine) ManualMeasurement(areaSqFt float64, opts ...ManualOption) (*model.MeasurementResult, error) {
	if areaSqFt <= 0 {
		return nil, eris.New("engine: manual area must be positive")
	}
	p := manualParams{pitchDegrees: manualDefaultPitch}
	for _, opt := range opts {
		opt(&p)
	}
	if p.pitchDegrees < 0 || p.pitchDegrees >= 90 {
		return nil, eris.New("engine: manual pitch must be in [0, 90)")
	}

	multiplier := roofmath.PitchMultiplier(p.pitchDegrees)
	adjusted := roofmath.AdjustArea(areaSqFt, multiplier)
	m := model.MeasurementResult{
		RawAreaSqM:       areaSqFt / roofmath.SqMToSqFt,
		RawAreaSqFt:      areaSqFt,
		AdjustedAreaSqFt: adjusted,
		Squares:          roofmath.AreaToSquares(adjusted),
		PitchDegrees:     p.pitchDegrees,
		PitchMultiplier:  multiplier,
		Complexity:       model.ComplexitySimple,
		Source:           "manual-tracing",
		Tier:             tier.TierManual,
		Confidence:       manualConfidence,
	}
	return &m, nil
}

// ResolveManual runs a manual measurement through the single-candidate
// validation path. Manual tracing keeps its fixed confidence baseline; the
// scorer is not consulted.
func (e *Engine) ResolveManual(ctx context.Context, m *model.MeasurementResult, loc *model.Location) (*Resolution, error) {
	if m == nil {
		return nil, eris.New("engine: nil manual measurement")
	}

	var cal *model.GAFCalibrationResult
	if loc != nil {
		if err := validateLocation(*loc); err != nil {
			return nil, err
		}
		cal = e.lookupCalibration(ctx, *loc)
	}
	final := calibration.Apply(*m, cal)

	cv, err := validate.CrossValidate([]model.MeasurementResult{final}, cal)
	if err != nil {
		return nil, err
	}

	manual, _ := e.cfg.Get(tier.TierManual)
	return &Resolution{
		Measurement:  cv.FinalMeasurement,
		TierUsed:     tier.TierManual,
		TierName:     manual.Name,
		AccuracyBand: manual.AccuracyBand,
		Calibration:  cal,
		Validation:   *cv,
		Confidence: model.ConfidenceResult{
			Score:   manualConfidence,
			Level:   model.ConfidenceHigh,
			Factors: []string{"manual tracing baseline (85)"},
		},
	}, nil
}

// ManualFromPolygon builds a manual measurement from traced footprint
// vertices in geographic coordinates.
func (e *Engine) ManualFromPolygon(vertices []roofmath.Vertex, opts ...ManualOption) (*model.MeasurementResult, error) {
	area, err := roofmath.PolygonAreaSqFt(vertices)
	if err != nil {
		return nil, err
	}
	return e.ManualMeasurement(area, opts...)
}

// CrossValidate compares externally supplied candidates.
func (e *Engine) CrossValidate(candidates []model.MeasurementResult, cal *model.GAFCalibrationResult) (*model.CrossValidationResult, error) {
	return validate.CrossValidate(candidates, cal)
}

// ScoreConfidence scores externally supplied signals.
func (e *Engine) ScoreConfidence(s confidence.Signals) model.ConfidenceResult {
	return confidence.Score(s)
}

// GetCalibration exposes the historical calibration lookup. A nil result
// with a nil error means no usable history.
func (e *Engine) GetCalibration(ctx context.Context, lat, lng float64, address string) (*model.GAFCalibrationResult, error) {
	if err := validateLocation(model.Location{Latitude: lat, Longitude: lng}); err != nil {
		return nil, err
	}
	return e.calib.GetCalibration(ctx, lat, lng, address)
}

// lookupCalibration degrades a failed calibration lookup to "no calibration".
// Store trouble should not sink a resolution that already has a measurement.
func (e *Engine) lookupCalibration(ctx context.Context, loc model.Location) *model.GAFCalibrationResult {
	cal, err := e.calib.GetCalibration(ctx, loc.Latitude, loc.Longitude, loc.Address)
	if err != nil {
		zap.L().Warn("engine: calibration lookup failed, continuing uncalibrated", zap.Error(err))
		return nil
	}
	return cal
}

// signals assembles confidence inputs for a final measurement.
func (e *Engine) signals(m model.MeasurementResult, sourceCount int, agreementPct float64, cal *model.GAFCalibrationResult) confidence.Signals {
	return confidence.Signals{
		ImageryQuality:   m.ImageryQuality,
		ImageryAgeMonths: m.ImageryAgeMonths(e.now()),
		SegmentCount:     m.SegmentCount,
		PitchDegrees:     m.PitchDegrees,
		SourceCount:      sourceCount,
		AgreementPct:     agreementPct,
		HasCalibration:   cal != nil,
		ExactCalibration: cal != nil && cal.ExactMatch,
		UsedLidar:        m.UsedLidar,
	}
}

// validateLocation rejects out-of-range or non-finite coordinates before
// any provider is called.
func validateLocation(loc model.Location) error {
	if math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) ||
		math.IsInf(loc.Latitude, 0) || math.IsInf(loc.Longitude, 0) {
		return eris.New("engine: coordinates must be finite")
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return eris.Errorf("engine: latitude %.4f out of range [-90, 90]", loc.Latitude)
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return eris.Errorf("engine: longitude %.4f out of range [-180, 180]", loc.Longitude)
	}
	return nil
}
