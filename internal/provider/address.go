package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ridgecap-labs/roofline/internal/model"
	"github.com/ridgecap-labs/roofline/internal/roofmath"
	"github.com/ridgecap-labs/roofline/internal/tier"
)

// Tier 6 defaults: US single-family averages when nothing about the
// building is known beyond its address.
const (
	addressDefaultFootprintSqFt = 1700.0
	addressDefaultPitch         = 20.0
)

// stateFootprintSqFt adjusts the default footprint for states whose housing
// stock skews notably larger or smaller than the national average.
var stateFootprintSqFt = map[string]float64{
	"TX": 2000, "UT": 2100, "CO": 1950, "GA": 1900,
	"NY": 1500, "CA": 1550, "HI": 1300, "MA": 1550,
}

var stateRe = regexp.MustCompile(`(?i)\b([A-Z]{2})\b[ ,]*\d{5}(?:-\d{4})?`)

// AddressEstimate is the tier 6 source: a rough regional default keyed off
// the address alone. It is the last automated fallback before manual tracing.
type AddressEstimate struct{}

// NewAddressEstimate creates the address-profile provider.
func NewAddressEstimate() *AddressEstimate { return &AddressEstimate{} }

// Name implements tier.Provider.
func (p *AddressEstimate) Name() string { return "address-estimate" }

// Tier implements tier.Provider.
func (p *AddressEstimate) Tier() int { return tier.TierAddress }

// Available implements tier.Provider.
func (p *AddressEstimate) Available() bool { return true }

// Attempt implements tier.Provider.
func (p *AddressEstimate) Attempt(_ context.Context, loc model.Location) (*model.MeasurementResult, error) {
	if strings.TrimSpace(loc.Address) == "" {
		return nil, eris.Wrap(tier.ErrNoData, "address: no address supplied")
	}

	footprint := addressDefaultFootprintSqFt
	if st := extractState(loc.Address); st != "" {
		if f, ok := stateFootprintSqFt[st]; ok {
			footprint = f
		}
	}

	m := build(footprint/roofmath.SqMToSqFt, addressDefaultPitch, 0, p.Name(), p.Tier(), 40)
	return &m, nil
}

// extractState pulls a two-letter state code preceding a ZIP from the
// address, or returns "".
func extractState(address string) string {
	match := stateRe.FindStringSubmatch(address)
	if len(match) < 2 {
		return ""
	}
	return strings.ToUpper(match[1])
}
