// Package store persists GAF ground-truth reports and the regional
// calibration aggregates derived from them. SQLite serves single-user CLI
// use; Postgres serves the shared server deployment.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ridgecap-labs/roofline/internal/model"
)

// Store is the calibration persistence interface. It is a superset of
// calibration.Store: the engine only reads, the import commands also write.
type Store interface {
	// Reads (calibration.Store).
	FindExactReport(ctx context.Context, normalizedAddress string) (*model.GAFReport, error)
	FindRegionalCalibration(ctx context.Context, regionCode string) (*model.RegionalCalibration, error)
	FindNearby(ctx context.Context, lat, lng, radiusMiles float64) ([]model.GAFReport, error)

	// Writes.
	InsertReport(ctx context.Context, report model.GAFReport) (string, error)
	// RebuildRegionalCalibrations recomputes every regional aggregate from
	// the stored reports and returns the number of regions written.
	RebuildRegionalCalibrations(ctx context.Context) (int, error)

	// Stats.
	CountReports(ctx context.Context) (int, error)
	CountRegions(ctx context.Context) (int, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures the backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"` // sqlite file path
}

// Open creates the configured store backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = "roofline.db"
		}
		return NewSQLite(path)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// degreesPerMile approximates one mile in latitude degrees, used to bound
// the nearby query box before exact distance filtering in Go.
const degreesPerMile = 1.0 / 69.0
