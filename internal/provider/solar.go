package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/ridgecap-labs/roofline/internal/model"
	"github.com/ridgecap-labs/roofline/internal/tier"
	"github.com/ridgecap-labs/roofline/pkg/solarapi"
)

// Solar is an imagery-backed source. One shared API client serves tiers 2-4;
// each tier instance enforces its own imagery-quality floor so a medium
// image fails tier 2 but satisfies tier 3.
type Solar struct {
	client     solarapi.Client
	tierNum    int
	name       string
	minQuality model.ImageryQuality
	confidence float64
}

// NewSolarHigh creates the tier 2 provider (high-quality imagery only).
func NewSolarHigh(client solarapi.Client) *Solar {
	return &Solar{client: client, tierNum: tier.TierSolarHigh, name: "solar-imagery-high",
		minQuality: model.ImageryHigh, confidence: 88}
}

// NewSolarMedium creates the tier 3 provider (medium imagery acceptable).
func NewSolarMedium(client solarapi.Client) *Solar {
	return &Solar{client: client, tierNum: tier.TierSolarMedium, name: "solar-imagery-medium",
		minQuality: model.ImageryMedium, confidence: 78}
}

// NewSolarLow creates the tier 4 provider (any imagery).
func NewSolarLow(client solarapi.Client) *Solar {
	return &Solar{client: client, tierNum: tier.TierSolarLow, name: "solar-imagery-low",
		minQuality: model.ImageryLow, confidence: 65}
}

// Name implements tier.Provider.
func (p *Solar) Name() string { return p.name }

// Tier implements tier.Provider.
func (p *Solar) Tier() int { return p.tierNum }

// Available implements tier.Provider.
func (p *Solar) Available() bool { return p.client != nil }

// Attempt implements tier.Provider.
func (p *Solar) Attempt(ctx context.Context, loc model.Location) (*model.MeasurementResult, error) {
	if p.client == nil {
		return nil, tier.ErrNoCredentials
	}

	bi, err := p.client.BuildingInsights(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		if errors.Is(err, solarapi.ErrNotFound) {
			return nil, eris.Wrap(tier.ErrNoData, "solar: building insights")
		}
		return nil, eris.Wrap(err, "solar: building insights")
	}

	quality := mapQuality(bi.ImageryQuality)
	if quality.Rank() < p.minQuality.Rank() {
		return nil, eris.Wrapf(tier.ErrLowQuality, "solar: imagery %s below %s floor",
			bi.ImageryQuality, p.minQuality)
	}

	areaSqM := bi.SolarPotential.WholeRoofStats.GroundAreaMeters2
	if areaSqM <= 0 {
		// Some responses omit ground area; fall back to segment sum.
		for _, seg := range bi.SolarPotential.RoofSegments {
			areaSqM += seg.Stats.GroundAreaMeters2
		}
	}
	if areaSqM <= 0 {
		return nil, eris.Wrap(tier.ErrNoData, "solar: no roof area in response")
	}

	m := build(areaSqM, dominantPitch(bi.SolarPotential.RoofSegments),
		len(bi.SolarPotential.RoofSegments), p.name, p.tierNum, p.confidence)
	m.ImageryQuality = quality
	m.ImageryDate = timePtr(bi.ImageryDate.Time())
	return &m, nil
}

// dominantPitch returns the area-weighted mean pitch across segments.
func dominantPitch(segments []solarapi.RoofSegment) float64 {
	var weighted, total float64
	for _, seg := range segments {
		if seg.Stats.AreaMeters2 <= 0 {
			continue
		}
		weighted += seg.PitchDegrees * seg.Stats.AreaMeters2
		total += seg.Stats.AreaMeters2
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// mapQuality translates the API's quality enum to the model band.
func mapQuality(apiQuality string) model.ImageryQuality {
	switch apiQuality {
	case "HIGH":
		return model.ImageryHigh
	case "MEDIUM":
		return model.ImageryMedium
	case "LOW":
		return model.ImageryLow
	}
	return ""
}
