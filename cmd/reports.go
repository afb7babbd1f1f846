package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgecap-labs/roofline/internal/model"
)

var reportsCSVPath string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage historical verified-measurement reports",
}

var reportsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import verified reports from CSV",
	Long:  "CSV columns: address, lat, lng, estimated_sqft, verified_sqft, roof_type, verified_at (RFC 3339 or YYYY-MM-DD). Rows without coordinates are geocoded.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx, "reports")
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(reportsCSVPath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close()

		r := csv.NewReader(f)
		header, err := r.Read()
		if err != nil {
			return eris.Wrap(err, "read csv header")
		}
		col := make(map[string]int, len(header))
		for i, name := range header {
			col[strings.ToLower(strings.TrimSpace(name))] = i
		}
		for _, required := range []string{"address", "estimated_sqft", "verified_sqft"} {
			if _, ok := col[required]; !ok {
				return eris.Errorf("csv missing required column %q", required)
			}
		}

		var imported, skipped int
		for {
			row, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return eris.Wrap(err, "read csv row")
			}

			report, err := parseReportRow(row, col)
			if err != nil {
				zap.L().Warn("skipping row", zap.Error(err))
				skipped++
				continue
			}

			if report.Latitude == 0 && report.Longitude == 0 {
				geo, err := env.Geocoder.Geocode(ctx, report.Address)
				if err != nil || !geo.Matched {
					zap.L().Warn("skipping row, geocode failed", zap.String("address", report.Address))
					skipped++
					continue
				}
				report.Latitude = geo.Latitude
				report.Longitude = geo.Longitude
			}

			if _, err := env.Store.InsertReport(ctx, *report); err != nil {
				zap.L().Warn("skipping row, insert failed", zap.String("address", report.Address), zap.Error(err))
				skipped++
				continue
			}
			imported++
		}

		zap.L().Info("import complete",
			zap.Int("imported", imported),
			zap.Int("skipped", skipped),
			zap.String("csv", reportsCSVPath),
		)
		return nil
	},
}

var reportsRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute regional calibration aggregates from stored reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx, "reports")
		if err != nil {
			return err
		}
		defer env.Close()

		regions, err := env.Store.RebuildRegionalCalibrations(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("rebuild complete", zap.Int("regions", regions))
		return nil
	},
}

var reportsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show report and calibration region counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx, "reports")
		if err != nil {
			return err
		}
		defer env.Close()

		reports, err := env.Store.CountReports(ctx)
		if err != nil {
			return err
		}
		regions, err := env.Store.CountRegions(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]int{
			"reports": reports,
			"regions": regions,
		})
	},
}

// parseReportRow converts one CSV row into a report.
func parseReportRow(row []string, col map[string]int) (*model.GAFReport, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	address := get("address")
	if address == "" {
		return nil, eris.New("row has no address")
	}

	estimated, err := strconv.ParseFloat(get("estimated_sqft"), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "bad estimated_sqft for %q", address)
	}
	verified, err := strconv.ParseFloat(get("verified_sqft"), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "bad verified_sqft for %q", address)
	}

	report := &model.GAFReport{
		Address:       address,
		EstimatedSqFt: estimated,
		VerifiedSqFt:  verified,
		RoofType:      get("roof_type"),
	}

	if s := get("lat"); s != "" {
		if report.Latitude, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, eris.Wrapf(err, "bad lat for %q", address)
		}
	}
	if s := get("lng"); s != "" {
		if report.Longitude, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, eris.Wrapf(err, "bad lng for %q", address)
		}
	}
	if s := get("verified_at"); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			ts, err = time.Parse("2006-01-02", s)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "bad verified_at for %q", address)
		}
		report.VerifiedAt = ts
	}

	return report, nil
}

func init() {
	reportsImportCmd.Flags().StringVar(&reportsCSVPath, "csv", "", "path to CSV file (required)")
	_ = reportsImportCmd.MarkFlagRequired("csv")
	reportsCmd.AddCommand(reportsImportCmd, reportsRebuildCmd, reportsStatusCmd)
	rootCmd.AddCommand(reportsCmd)
}
