// Package tier implements the waterfall resolver that tries measurement
// sources in descending accuracy order and records why each skipped tier
// failed. Failures are never discarded: they travel with the final result
// so a caller can explain why a better source was not used.
package tier

import (
	"context"
	"errors"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// Tier numbers. Lower is more accurate and tried first.
const (
	TierLidar       = 1
	TierSolarHigh   = 2
	TierSolarMedium = 3
	TierSolarLow    = 4
	TierGeometric   = 5
	TierAddress     = 6
	TierManual      = 7
)

// FailureReason classifies why a tier could not produce a measurement.
type FailureReason string

// Failure reasons recorded per tier attempt.
const (
	ReasonNoData        FailureReason = "no data"
	ReasonNoCoverage    FailureReason = "no LiDAR coverage"
	ReasonLowQuality    FailureReason = "low imagery quality"
	ReasonAPIError      FailureReason = "API error"
	ReasonNoCredentials FailureReason = "missing credentials"
	ReasonBelowFloor    FailureReason = "below viability floor"
)

// Sentinel errors providers wrap to signal a classified failure. Anything
// else is treated as an API error.
var (
	ErrNoData        = errors.New("no data for location")
	ErrNoCoverage    = errors.New("no coverage for location")
	ErrLowQuality    = errors.New("imagery quality below tier floor")
	ErrNoCredentials = errors.New("provider credentials not configured")
)

// ClassifyError maps a provider error to a failure reason.
func ClassifyError(err error) FailureReason {
	switch {
	case errors.Is(err, ErrNoData):
		return ReasonNoData
	case errors.Is(err, ErrNoCoverage):
		return ReasonNoCoverage
	case errors.Is(err, ErrLowQuality):
		return ReasonLowQuality
	case errors.Is(err, ErrNoCredentials):
		return ReasonNoCredentials
	default:
		return ReasonAPIError
	}
}

// Provider is one measurement source in the waterfall.
type Provider interface {
	// Name returns the source identifier recorded on measurements.
	Name() string
	// Tier returns the provider's position in the accuracy ordering.
	Tier() int
	// Available reports whether the provider is configured (credentials
	// present). Unavailable providers are recorded as failed, not called.
	Available() bool
	// Attempt fetches a measurement for the location. A nil measurement
	// must be accompanied by an error wrapping one of the tier sentinels.
	Attempt(ctx context.Context, loc model.Location) (*model.MeasurementResult, error)
}

// Failure records one tier that was attempted and did not produce a result.
type Failure struct {
	Tier   int           `json:"tier"`
	Name   string        `json:"name"`
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// Result is the outcome of a waterfall resolution.
//
// When ManualRequired is true every automated tier failed; Measurement is
// zero-valued and the caller must collect a manual trace out of band.
type Result struct {
	Measurement        model.MeasurementResult `json:"measurement"`
	TierUsed           int                     `json:"tier_used"`
	TierName           string                  `json:"tier_name"`
	AccuracyBand       string                  `json:"accuracy_band"`
	ManualRequired     bool                    `json:"manual_required"`
	HigherTierFailures []Failure               `json:"higher_tier_failures"`
}
