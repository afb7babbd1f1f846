package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgecap-labs/roofline/internal/model"
)

var (
	measureAddress string
	measureLat     float64
	measureLng     float64
	measureAll     bool
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Resolve a roof measurement for an address or coordinates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx, "measure")
		if err != nil {
			return err
		}
		defer env.Close()

		loc := model.Location{
			Latitude:  measureLat,
			Longitude: measureLng,
			Address:   measureAddress,
		}

		// Geocode when only an address was given.
		if measureAddress != "" && measureLat == 0 && measureLng == 0 {
			geo, err := env.Geocoder.Geocode(ctx, measureAddress)
			if err != nil {
				return eris.Wrap(err, "geocode address")
			}
			if !geo.Matched {
				return eris.Errorf("address %q could not be geocoded", measureAddress)
			}
			loc.Latitude = geo.Latitude
			loc.Longitude = geo.Longitude
			zap.L().Info("geocoded address",
				zap.String("matched", geo.MatchedAddress),
				zap.Float64("lat", geo.Latitude),
				zap.Float64("lng", geo.Longitude),
			)
		}
		if loc.Address == "" && loc.Latitude == 0 && loc.Longitude == 0 {
			return eris.New("either --address or --lat/--lng is required")
		}

		res, err := resolveLocation(ctx, env, loc, measureAll)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	measureCmd.Flags().StringVar(&measureAddress, "address", "", "street address to measure")
	measureCmd.Flags().Float64Var(&measureLat, "lat", 0, "latitude (skips geocoding)")
	measureCmd.Flags().Float64Var(&measureLng, "lng", 0, "longitude (skips geocoding)")
	measureCmd.Flags().BoolVar(&measureAll, "all", false, "query every source concurrently instead of the tier waterfall")
	rootCmd.AddCommand(measureCmd)
}
