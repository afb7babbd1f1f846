package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ridgecap-labs/roofline/internal/calibration"
	"github.com/ridgecap-labs/roofline/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS gaf_reports (
	id                 TEXT PRIMARY KEY,
	address            TEXT NOT NULL,
	normalized_address TEXT NOT NULL,
	lat                DOUBLE PRECISION NOT NULL,
	lng                DOUBLE PRECISION NOT NULL,
	region_code        TEXT NOT NULL,
	estimated_sqft     DOUBLE PRECISION NOT NULL,
	verified_sqft      DOUBLE PRECISION NOT NULL,
	roof_type          TEXT,
	verified_at        TIMESTAMPTZ NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS regional_calibrations (
	region_code     TEXT PRIMARY KEY,
	factor          DOUBLE PRECISION NOT NULL,
	sample_count    INTEGER NOT NULL,
	last_calibrated TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gaf_reports_normalized ON gaf_reports(normalized_address);
CREATE INDEX IF NOT EXISTS idx_gaf_reports_region ON gaf_reports(region_code);
CREATE INDEX IF NOT EXISTS idx_gaf_reports_latlng ON gaf_reports(lat, lng);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// FindExactReport implements Store.
func (s *PostgresStore) FindExactReport(ctx context.Context, normalizedAddress string) (*model.GAFReport, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, address, normalized_address, lat, lng, region_code,
		       estimated_sqft, verified_sqft, COALESCE(roof_type, ''), verified_at
		FROM gaf_reports
		WHERE normalized_address = $1
		ORDER BY verified_at DESC
		LIMIT 1`,
		normalizedAddress,
	)

	var r model.GAFReport
	err := row.Scan(&r.ID, &r.Address, &r.NormalizedAddress, &r.Latitude, &r.Longitude,
		&r.RegionCode, &r.EstimatedSqFt, &r.VerifiedSqFt, &r.RoofType, &r.VerifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan report")
	}
	return &r, nil
}

// FindRegionalCalibration implements Store.
func (s *PostgresStore) FindRegionalCalibration(ctx context.Context, regionCode string) (*model.RegionalCalibration, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT region_code, factor, sample_count, last_calibrated
		FROM regional_calibrations
		WHERE region_code = $1`,
		regionCode,
	)

	var rc model.RegionalCalibration
	err := row.Scan(&rc.RegionCode, &rc.Factor, &rc.SampleCount, &rc.LastCalibrated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan regional calibration")
	}
	return &rc, nil
}

// FindNearby implements Store.
func (s *PostgresStore) FindNearby(ctx context.Context, lat, lng, radiusMiles float64) ([]model.GAFReport, error) {
	dLat := radiusMiles * degreesPerMile
	dLng := dLat / math.Max(0.1, math.Cos(lat*math.Pi/180))

	rows, err := s.pool.Query(ctx, `
		SELECT id, address, normalized_address, lat, lng, region_code,
		       estimated_sqft, verified_sqft, COALESCE(roof_type, ''), verified_at
		FROM gaf_reports
		WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4`,
		lat-dLat, lat+dLat, lng-dLng, lng+dLng,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query nearby")
	}
	defer rows.Close()

	var reports []model.GAFReport
	for rows.Next() {
		var r model.GAFReport
		if err := rows.Scan(&r.ID, &r.Address, &r.NormalizedAddress, &r.Latitude, &r.Longitude,
			&r.RegionCode, &r.EstimatedSqFt, &r.VerifiedSqFt, &r.RoofType, &r.VerifiedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan nearby report")
		}
		if calibration.DistanceMiles(lat, lng, r.Latitude, r.Longitude) <= radiusMiles {
			reports = append(reports, r)
		}
	}
	return reports, eris.Wrap(rows.Err(), "postgres: iterate nearby")
}

// InsertReport implements Store.
func (s *PostgresStore) InsertReport(ctx context.Context, report model.GAFReport) (string, error) {
	if report.EstimatedSqFt <= 0 || report.VerifiedSqFt <= 0 {
		return "", eris.New("postgres: report areas must be positive")
	}

	id := report.ID
	if id == "" {
		id = uuid.New().String()
	}
	normalized := report.NormalizedAddress
	if normalized == "" {
		normalized = calibration.NormalizeAddress(report.Address)
	}
	region := report.RegionCode
	if region == "" {
		region = calibration.RegionCode(report.Latitude, report.Longitude)
	}
	verifiedAt := report.VerifiedAt
	if verifiedAt.IsZero() {
		verifiedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO gaf_reports
			(id, address, normalized_address, lat, lng, region_code,
			 estimated_sqft, verified_sqft, roof_type, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, report.Address, normalized, report.Latitude, report.Longitude,
		region, report.EstimatedSqFt, report.VerifiedSqFt, report.RoofType, verifiedAt,
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert report")
	}
	return id, nil
}

// RebuildRegionalCalibrations implements Store.
func (s *PostgresStore) RebuildRegionalCalibrations(ctx context.Context) (int, error) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM regional_calibrations`); err != nil {
		return 0, eris.Wrap(err, "postgres: clear regional calibrations")
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO regional_calibrations (region_code, factor, sample_count, last_calibrated)
		SELECT region_code,
		       AVG(verified_sqft / estimated_sqft),
		       COUNT(*),
		       MAX(verified_at)
		FROM gaf_reports
		WHERE estimated_sqft > 0
		GROUP BY region_code`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: rebuild regional calibrations")
	}
	return int(tag.RowsAffected()), nil
}

// CountReports implements Store.
func (s *PostgresStore) CountReports(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM gaf_reports`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count reports")
}

// CountRegions implements Store.
func (s *PostgresStore) CountRegions(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM regional_calibrations`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count regions")
}
