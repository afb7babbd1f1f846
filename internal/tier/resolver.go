package tier

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// Resolver runs the measurement waterfall: providers are tried in ascending
// tier order and the first viable result wins. Lower tiers are never called
// once a result is found, so paid providers are not queried needlessly.
type Resolver struct {
	cfg       *Config
	providers []Provider
}

// NewResolver creates a Resolver over the given providers. Providers are
// sorted by tier; the manual tier needs no provider.
func NewResolver(cfg *Config, providers ...Provider) *Resolver {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tier() < sorted[j].Tier()
	})
	return &Resolver{cfg: cfg, providers: sorted}
}

// Resolve walks the waterfall for a location. It never returns an error for
// data-availability problems; those become recorded failures and, when every
// automated tier fails, a manual-required result. The only errors raised are
// context cancellation.
func (r *Resolver) Resolve(ctx context.Context, loc model.Location) (*Result, error) {
	var failures []Failure

	for _, p := range r.providers {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "tier: resolve canceled")
		}

		tc, ok := r.cfg.Get(p.Tier())
		if !ok || !tc.IsEnabled() {
			continue
		}

		if !p.Available() {
			failures = append(failures, Failure{
				Tier:   p.Tier(),
				Name:   tc.Name,
				Reason: ReasonNoCredentials,
			})
			continue
		}

		m, err := p.Attempt(ctx, loc)
		if err != nil {
			reason := ClassifyError(err)
			zap.L().Debug("tier: attempt failed",
				zap.Int("tier", p.Tier()),
				zap.String("provider", p.Name()),
				zap.String("reason", string(reason)),
				zap.Error(err),
			)
			failures = append(failures, Failure{
				Tier:   p.Tier(),
				Name:   tc.Name,
				Reason: reason,
				Detail: rootMessage(err),
			})
			continue
		}
		if m == nil {
			failures = append(failures, Failure{
				Tier:   p.Tier(),
				Name:   tc.Name,
				Reason: ReasonNoData,
			})
			continue
		}

		if reason, viable := checkViability(tc.Viability, *m); !viable {
			failures = append(failures, Failure{
				Tier:   p.Tier(),
				Name:   tc.Name,
				Reason: reason,
			})
			continue
		}

		zap.L().Info("tier: resolved",
			zap.Int("tier", p.Tier()),
			zap.String("provider", p.Name()),
			zap.Float64("adjusted_sqft", m.AdjustedAreaSqFt),
			zap.Int("higher_tier_failures", len(failures)),
		)
		return &Result{
			Measurement:        *m,
			TierUsed:           p.Tier(),
			TierName:           tc.Name,
			AccuracyBand:       tc.AccuracyBand,
			HigherTierFailures: failures,
		}, nil
	}

	// Every automated tier failed. The manual tier is terminal and cannot
	// fail: it signals that the caller must supply a trace.
	manual, _ := r.cfg.Get(TierManual)
	zap.L().Info("tier: all automated tiers failed, manual tracing required",
		zap.Int("failures", len(failures)),
	)
	return &Result{
		TierUsed:           TierManual,
		TierName:           manual.Name,
		AccuracyBand:       manual.AccuracyBand,
		ManualRequired:     true,
		HigherTierFailures: failures,
	}, nil
}

// checkViability applies the tier's minimum bar to a raw result.
func checkViability(v Viability, m model.MeasurementResult) (FailureReason, bool) {
	if m.AdjustedAreaSqFt <= 0 || m.AdjustedAreaSqFt < v.MinAreaSqFt {
		return ReasonBelowFloor, false
	}
	if v.MinImageryQuality != "" && m.ImageryQuality.Rank() < v.MinImageryQuality.Rank() {
		return ReasonLowQuality, false
	}
	return "", true
}

// rootMessage extracts the innermost error message for the failure detail.
func rootMessage(err error) string {
	if err == nil {
		return ""
	}
	return eris.Cause(err).Error()
}
