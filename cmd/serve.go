package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgecap-labs/roofline/internal/engine"
	"github.com/ridgecap-labs/roofline/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the measurement HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API routes over an initialized environment.
func newRouter(env *engineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/measure", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Address   string  `json:"address"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			All       bool    `json:"all"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		loc := model.Location{Latitude: body.Latitude, Longitude: body.Longitude, Address: body.Address}
		if body.Address != "" && body.Latitude == 0 && body.Longitude == 0 {
			geo, err := env.Geocoder.Geocode(req.Context(), body.Address)
			if err != nil || !geo.Matched {
				writeError(w, http.StatusUnprocessableEntity, "address could not be geocoded")
				return
			}
			loc.Latitude = geo.Latitude
			loc.Longitude = geo.Longitude
		}

		res, err := resolveLocation(req.Context(), env, loc, body.All)
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.Cause(err).Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Post("/api/manual", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			AreaSqFt     float64  `json:"area_sqft"`
			PitchDegrees *float64 `json:"pitch_degrees"`
			Latitude     float64  `json:"latitude"`
			Longitude    float64  `json:"longitude"`
			Address      string   `json:"address"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var opts []engine.ManualOption
		if body.PitchDegrees != nil {
			opts = append(opts, engine.WithPitch(*body.PitchDegrees))
		}
		m, err := env.Engine.ManualMeasurement(body.AreaSqFt, opts...)
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.Cause(err).Error())
			return
		}

		var loc *model.Location
		if body.Latitude != 0 || body.Longitude != 0 {
			loc = &model.Location{Latitude: body.Latitude, Longitude: body.Longitude, Address: body.Address}
		}
		res, err := env.Engine.ResolveManual(req.Context(), m, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.Cause(err).Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Get("/api/calibration", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
		if errLat != nil || errLng != nil {
			writeError(w, http.StatusBadRequest, "lat and lng query parameters are required")
			return
		}

		cal, err := env.Engine.GetCalibration(req.Context(), lat, lng, q.Get("address"))
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.Cause(err).Error())
			return
		}
		if cal == nil {
			writeJSON(w, http.StatusOK, map[string]any{"calibration": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"calibration": cal})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
