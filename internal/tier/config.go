package tier

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// Descriptor is the static metadata for one tier.
type Descriptor struct {
	Tier         int    `yaml:"tier"`
	Name         string `yaml:"name"`
	AccuracyBand string `yaml:"accuracy_band"`
}

// Viability sets the minimum bar a tier's raw result must clear to count
// as a success.
type Viability struct {
	MinAreaSqFt       float64              `yaml:"min_area_sqft"`
	MinImageryQuality model.ImageryQuality `yaml:"min_imagery_quality,omitempty"`
}

// TierConfig configures one tier of the waterfall.
type TierConfig struct {
	Descriptor `yaml:",inline"`
	Enabled    *bool     `yaml:"enabled,omitempty"`
	Viability  Viability `yaml:"viability"`
}

// IsEnabled reports whether the tier participates in resolution.
func (tc TierConfig) IsEnabled() bool {
	return tc.Enabled == nil || *tc.Enabled
}

// Config is the full tier table.
type Config struct {
	Tiers []TierConfig `yaml:"tiers"`
}

// DefaultConfig returns the built-in tier table.
func DefaultConfig() *Config {
	return &Config{
		Tiers: []TierConfig{
			{Descriptor: Descriptor{Tier: TierLidar, Name: "aerial-lidar", AccuracyBand: "90-97%"},
				Viability: Viability{MinAreaSqFt: 100}},
			{Descriptor: Descriptor{Tier: TierSolarHigh, Name: "solar-imagery-high", AccuracyBand: "85-95%"},
				Viability: Viability{MinAreaSqFt: 100, MinImageryQuality: model.ImageryHigh}},
			{Descriptor: Descriptor{Tier: TierSolarMedium, Name: "solar-imagery-medium", AccuracyBand: "75-85%"},
				Viability: Viability{MinAreaSqFt: 100, MinImageryQuality: model.ImageryMedium}},
			{Descriptor: Descriptor{Tier: TierSolarLow, Name: "solar-imagery-low", AccuracyBand: "60-75%"},
				Viability: Viability{MinAreaSqFt: 100, MinImageryQuality: model.ImageryLow}},
			{Descriptor: Descriptor{Tier: TierGeometric, Name: "geometric-estimate", AccuracyBand: "50-60%"},
				Viability: Viability{MinAreaSqFt: 100}},
			{Descriptor: Descriptor{Tier: TierAddress, Name: "address-estimate", AccuracyBand: "35-50%"},
				Viability: Viability{MinAreaSqFt: 1}},
			{Descriptor: Descriptor{Tier: TierManual, Name: "manual-tracing", AccuracyBand: "varies"}},
		},
	}
}

// LoadConfig reads a tier table from a YAML file. Tiers omitted from the
// file keep their built-in defaults; tiers present override them.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tier: read config %s", path)
	}

	var wrapper struct {
		Tiers []TierConfig `yaml:"tiers"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "tier: parse config")
	}

	cfg := DefaultConfig()
	for _, override := range wrapper.Tiers {
		replaced := false
		for i := range cfg.Tiers {
			if cfg.Tiers[i].Tier == override.Tier {
				if override.Name == "" {
					override.Name = cfg.Tiers[i].Name
				}
				if override.AccuracyBand == "" {
					override.AccuracyBand = cfg.Tiers[i].AccuracyBand
				}
				cfg.Tiers[i] = override
				replaced = true
				break
			}
		}
		if !replaced {
			return nil, eris.Errorf("tier: config references unknown tier %d", override.Tier)
		}
	}

	return cfg, nil
}

// Get returns the config for a tier number, or a zero TierConfig when the
// tier is unknown.
func (c *Config) Get(tierNum int) (TierConfig, bool) {
	for _, tc := range c.Tiers {
		if tc.Tier == tierNum {
			return tc, true
		}
	}
	return TierConfig{}, false
}
