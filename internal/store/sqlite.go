package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ridgecap-labs/roofline/internal/calibration"
	"github.com/ridgecap-labs/roofline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS gaf_reports (
	id                 TEXT PRIMARY KEY,
	address            TEXT NOT NULL,
	normalized_address TEXT NOT NULL,
	lat                REAL NOT NULL,
	lng                REAL NOT NULL,
	region_code        TEXT NOT NULL,
	estimated_sqft     REAL NOT NULL,
	verified_sqft      REAL NOT NULL,
	roof_type          TEXT,
	verified_at        DATETIME NOT NULL,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS regional_calibrations (
	region_code     TEXT PRIMARY KEY,
	factor          REAL NOT NULL,
	sample_count    INTEGER NOT NULL,
	last_calibrated DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_gaf_reports_normalized ON gaf_reports(normalized_address);
CREATE INDEX IF NOT EXISTS idx_gaf_reports_region ON gaf_reports(region_code);
CREATE INDEX IF NOT EXISTS idx_gaf_reports_latlng ON gaf_reports(lat, lng);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindExactReport implements Store.
func (s *SQLiteStore) FindExactReport(ctx context.Context, normalizedAddress string) (*model.GAFReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, address, normalized_address, lat, lng, region_code,
		       estimated_sqft, verified_sqft, COALESCE(roof_type, ''), verified_at
		FROM gaf_reports
		WHERE normalized_address = ?
		ORDER BY verified_at DESC
		LIMIT 1`,
		normalizedAddress,
	)
	return scanReport(row)
}

// FindRegionalCalibration implements Store.
func (s *SQLiteStore) FindRegionalCalibration(ctx context.Context, regionCode string) (*model.RegionalCalibration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT region_code, factor, sample_count, last_calibrated
		FROM regional_calibrations
		WHERE region_code = ?`,
		regionCode,
	)

	var rc model.RegionalCalibration
	err := row.Scan(&rc.RegionCode, &rc.Factor, &rc.SampleCount, &rc.LastCalibrated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan regional calibration")
	}
	return &rc, nil
}

// FindNearby implements Store. A bounding-box query narrows candidates;
// exact haversine filtering happens in Go.
func (s *SQLiteStore) FindNearby(ctx context.Context, lat, lng, radiusMiles float64) ([]model.GAFReport, error) {
	dLat := radiusMiles * degreesPerMile
	dLng := dLat / math.Max(0.1, math.Cos(lat*math.Pi/180))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, normalized_address, lat, lng, region_code,
		       estimated_sqft, verified_sqft, COALESCE(roof_type, ''), verified_at
		FROM gaf_reports
		WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`,
		lat-dLat, lat+dLat, lng-dLng, lng+dLng,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query nearby")
	}
	defer rows.Close() //nolint:errcheck

	var reports []model.GAFReport
	for rows.Next() {
		r, err := scanReportRows(rows)
		if err != nil {
			return nil, err
		}
		if calibration.DistanceMiles(lat, lng, r.Latitude, r.Longitude) <= radiusMiles {
			reports = append(reports, *r)
		}
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: iterate nearby")
}

// InsertReport implements Store. The normalized address and region code
// are derived here so every backend stores them consistently.
func (s *SQLiteStore) InsertReport(ctx context.Context, report model.GAFReport) (string, error) {
	if report.EstimatedSqFt <= 0 || report.VerifiedSqFt <= 0 {
		return "", eris.New("sqlite: report areas must be positive")
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gaf_reports
			(id, address, normalized_address, lat, lng, region_code,
			 estimated_sqft, verified_sqft, roof_type, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, report.Address, normalized, report.Latitude, report.Longitude,
		region, report.EstimatedSqFt, report.VerifiedSqFt, report.RoofType, verifiedAt,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert report")
	}
	return id, nil
}

// RebuildRegionalCalibrations implements Store.
func (s *SQLiteStore) RebuildRegionalCalibrations(ctx context.Context) (int, error) {
	_, err := s.db.ExecContext(ctx, `DELETE FROM regional_calibrations`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear regional calibrations")
	}

	res, err := s.db.ExecContext(ctx, `
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
		return 0, eris.Wrap(err, "sqlite: rebuild regional calibrations")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

// CountReports implements Store.
func (s *SQLiteStore) CountReports(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gaf_reports`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count reports")
}

// CountRegions implements Store.
func (s *SQLiteStore) CountRegions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM regional_calibrations`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count regions")
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanReport scans a single-row query; a miss returns (nil, nil).
func scanReport(row rowScanner) (*model.GAFReport, error) {
	r, err := scanReportRows(row)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func scanReportRows(row rowScanner) (*model.GAFReport, error) {
	var r model.GAFReport
	err := row.Scan(&r.ID, &r.Address, &r.NormalizedAddress, &r.Latitude, &r.Longitude,
		&r.RegionCode, &r.EstimatedSqFt, &r.VerifiedSqFt, &r.RoofType, &r.VerifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "store: scan report")
	}
	return &r, nil
}
