package provider

import (
	"context"
	"errors"
	"math"

	"github.com/rotisserie/eris"

	"github.com/ridgecap-labs/roofline/internal/model"
	"github.com/ridgecap-labs/roofline/internal/tier"
	"github.com/ridgecap-labs/roofline/pkg/solarapi"
)

// Tier 5 assumptions: without segment geometry we assume a common gable
// pitch and discount the bounding box down to a typical footprint.
const (
	geometricAssumedPitch  = 20.0
	boundingBoxFillFactor  = 0.72 // buildings rarely fill their bounding box
	metersPerDegreeLat     = 111320.0
	geometricMaxFootprintM = 2500.0 // sanity cap, sq meters
)

// Geometric is the tier 5 source: a footprint estimate from the building
// bounding box when imagery quality is too poor for segment geometry.
type Geometric struct {
	client solarapi.Client
}

// NewGeometric creates the geometric estimation provider. It reuses the
// solar API client, but only for the footprint bounding box.
func NewGeometric(client solarapi.Client) *Geometric {
	return &Geometric{client: client}
}

// Name implements tier.Provider.
func (p *Geometric) Name() string { return "geometric-estimate" }

// Tier implements tier.Provider.
func (p *Geometric) Tier() int { return tier.TierGeometric }

// Available implements tier.Provider.
func (p *Geometric) Available() bool { return p.client != nil }

// Attempt implements tier.Provider.
func (p *Geometric) Attempt(ctx context.Context, loc model.Location) (*model.MeasurementResult, error) {
	if p.client == nil {
		return nil, tier.ErrNoCredentials
	}

	bi, err := p.client.BuildingInsights(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		if errors.Is(err, solarapi.ErrNotFound) {
			return nil, eris.Wrap(tier.ErrNoData, "geometric: building insights")
		}
		return nil, eris.Wrap(err, "geometric: building insights")
	}

	box := bi.SolarPotential.BoundingBox
	if box == nil {
		return nil, eris.Wrap(tier.ErrNoData, "geometric: no bounding box in response")
	}

	areaSqM := boundingBoxAreaSqM(*box) * boundingBoxFillFactor
	if areaSqM <= 0 {
		return nil, eris.Wrap(tier.ErrNoData, "geometric: degenerate bounding box")
	}
	if areaSqM > geometricMaxFootprintM {
		areaSqM = geometricMaxFootprintM
	}

	m := build(areaSqM, geometricAssumedPitch, 0, p.Name(), p.Tier(), 55)
	return &m, nil
}

// boundingBoxAreaSqM computes the ground area of a lat/lng bounding box.
func boundingBoxAreaSqM(box solarapi.BoundingBox) float64 {
	dLat := math.Abs(box.NE.Latitude - box.SW.Latitude)
	dLng := math.Abs(box.NE.Longitude - box.SW.Longitude)
	midLat := (box.NE.Latitude + box.SW.Latitude) / 2

	heightM := dLat * metersPerDegreeLat
	widthM := dLng * metersPerDegreeLat * math.Cos(midLat*math.Pi/180)
	return heightM * widthM
}
