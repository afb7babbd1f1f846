package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/ridgecap-labs/roofline/internal/model"
	"github.com/ridgecap-labs/roofline/internal/tier"
	"github.com/ridgecap-labs/roofline/pkg/lidar"
)

// minPointDensity is the sparsest point cloud we trust for facet geometry.
const minPointDensity = 4.0

// Lidar is the tier 1 source: point-cloud roof reports.
type Lidar struct {
	client lidar.Client
}

// NewLidar creates the LiDAR provider. A nil client marks the provider
// unavailable (no credentials configured).
func NewLidar(client lidar.Client) *Lidar {
	return &Lidar{client: client}
}

// Name implements tier.Provider.
func (p *Lidar) Name() string { return "aerial-lidar" }

// Tier implements tier.Provider.
func (p *Lidar) Tier() int { return tier.TierLidar }

// Available implements tier.Provider.
func (p *Lidar) Available() bool { return p.client != nil }

// Attempt implements tier.Provider.
func (p *Lidar) Attempt(ctx context.Context, loc model.Location) (*model.MeasurementResult, error) {
	if p.client == nil {
		return nil, tier.ErrNoCredentials
	}

	report, err := p.client.RoofReport(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		if errors.Is(err, lidar.ErrNoCoverage) {
			return nil, eris.Wrap(tier.ErrNoCoverage, "lidar: roof report")
		}
		return nil, eris.Wrap(err, "lidar: roof report")
	}
	if report.AreaSqM <= 0 {
		return nil, eris.Wrap(tier.ErrNoData, "lidar: empty report")
	}
	if report.PointDensity > 0 && report.PointDensity < minPointDensity {
		return nil, eris.Wrapf(tier.ErrNoData, "lidar: point density %.1f too sparse", report.PointDensity)
	}

	m := build(report.AreaSqM, report.PitchDegrees, report.FacetCount, p.Name(), p.Tier(), 95)
	m.UsedLidar = true
	if report.CaptureDate != nil {
		m.ImageryDate = report.CaptureDate
	}
	return &m, nil
}
