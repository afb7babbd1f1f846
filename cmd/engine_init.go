package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgecap-labs/roofline/internal/calibration"
	"github.com/ridgecap-labs/roofline/internal/engine"
	"github.com/ridgecap-labs/roofline/internal/provider"
	"github.com/ridgecap-labs/roofline/internal/store"
	"github.com/ridgecap-labs/roofline/internal/tier"
	"github.com/ridgecap-labs/roofline/pkg/geocode"
	"github.com/ridgecap-labs/roofline/pkg/lidar"
	"github.com/ridgecap-labs/roofline/pkg/solarapi"
)

// engineEnv holds the initialized store, clients, and engine needed by the
// measure/manual/serve commands.
type engineEnv struct {
	Store    store.Store
	Engine   *engine.Engine
	Geocoder geocode.Client
}

// Close releases resources held by the environment.
func (env *engineEnv) Close() {
	if env.Store != nil {
		_ = env.Store.Close()
	}
}

// initEngine sets up the store, provider clients, and the resolution engine.
// Callers should defer env.Close().
func initEngine(ctx context.Context, mode string) (*engineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		Path:        cfg.Store.Path,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	tierCfg := tier.DefaultConfig()
	if cfg.Tiers.Path != "" {
		tierCfg, err = tier.LoadConfig(cfg.Tiers.Path)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	// Provider clients. A missing key leaves the client nil and the
	// provider unavailable; the waterfall records that per tier.
	var solarClient solarapi.Client
	if cfg.Solar.Key != "" {
		opts := []solarapi.Option{solarapi.WithBaseURL(cfg.Solar.BaseURL)}
		if cfg.Solar.RatePerSecond > 0 {
			opts = append(opts, solarapi.WithRateLimit(cfg.Solar.RatePerSecond, 1))
		}
		solarClient = solarapi.NewClient(cfg.Solar.Key, opts...)
	} else {
		zap.L().Debug("ROOFLINE_SOLAR_KEY not set, solar imagery tiers disabled")
	}

	var lidarClient lidar.Client
	if cfg.Lidar.Key != "" {
		lidarOpts := []lidar.Option{}
		if cfg.Lidar.BaseURL != "" {
			lidarOpts = append(lidarOpts, lidar.WithBaseURL(cfg.Lidar.BaseURL))
		}
		lidarClient = lidar.NewClient(cfg.Lidar.Key, lidarOpts...)
	} else {
		zap.L().Debug("ROOFLINE_LIDAR_KEY not set, LiDAR tier disabled")
	}

	providers := []tier.Provider{
		provider.NewLidar(lidarClient),
		provider.NewSolarHigh(solarClient),
		provider.NewSolarMedium(solarClient),
		provider.NewSolarLow(solarClient),
		provider.NewGeometric(solarClient),
		provider.NewAddressEstimate(),
	}

	calEngine := calibration.NewEngine(st, cfg.Calibration)

	var geoOpts []geocode.Option
	if cfg.Geocode.BaseURL != "" {
		geoOpts = append(geoOpts, geocode.WithBaseURL(cfg.Geocode.BaseURL))
	}

	env := &engineEnv{
		Store:    st,
		Engine:   engine.New(tierCfg, calEngine, providers),
		Geocoder: geocode.NewClient(geoOpts...),
	}
	return env, nil
}
