package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ridgecap-labs/roofline/internal/engine"
	"github.com/ridgecap-labs/roofline/internal/roofmath"
)

var (
	manualArea     float64
	manualPitch    float64
	manualVertices string
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Build a measurement from a manually traced roof",
	Long:  "Accepts either a footprint area in square feet (--area) or traced polygon vertices (--vertices \"lat,lng;lat,lng;...\"). Pitch defaults to 20 degrees.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx, "manual")
		if err != nil {
			return err
		}
		defer env.Close()

		var opts []engine.ManualOption
		if cmd.Flags().Changed("pitch") {
			opts = append(opts, engine.WithPitch(manualPitch))
		}

		var m *engine.Resolution
		switch {
		case manualVertices != "":
			verts, err := parseVertices(manualVertices)
			if err != nil {
				return err
			}
			measurement, err := env.Engine.ManualFromPolygon(verts, opts...)
			if err != nil {
				return err
			}
			m, err = env.Engine.ResolveManual(ctx, measurement, nil)
			if err != nil {
				return err
			}
		case manualArea > 0:
			measurement, err := env.Engine.ManualMeasurement(manualArea, opts...)
			if err != nil {
				return err
			}
			m, err = env.Engine.ResolveManual(ctx, measurement, nil)
			if err != nil {
				return err
			}
		default:
			return eris.New("either --area or --vertices is required")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	},
}

// parseVertices parses "lat,lng;lat,lng;..." into polygon vertices.
func parseVertices(s string) ([]roofmath.Vertex, error) {
	var verts []roofmath.Vertex
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, eris.Errorf("invalid vertex %q, want lat,lng", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid latitude in %q", pair)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid longitude in %q", pair)
		}
		verts = append(verts, roofmath.Vertex{Latitude: lat, Longitude: lng})
	}
	return verts, nil
}

func init() {
	manualCmd.Flags().Float64Var(&manualArea, "area", 0, "footprint area in square feet")
	manualCmd.Flags().Float64Var(&manualPitch, "pitch", 20, "roof pitch in degrees")
	manualCmd.Flags().StringVar(&manualVertices, "vertices", "", "traced polygon as lat,lng;lat,lng;...")
	rootCmd.AddCommand(manualCmd)
}
