package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mirelletran/fangallery-backend/api/responses"
	"github.com/mirelletran/fangallery-backend/pkg/config"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
)

const envHeader = "X-FanGallery-Env"

// Pinger is the health-check surface shared by the hard dependencies.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the hard dependencies. Redis and GCS degrade reads
// rather than breaking them, so their failures are reported but do not flip
// readiness; Postgres does.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache, storage Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				checks["postgres"] = err.Error()
				ready = false
			} else {
				checks["postgres"] = "ok"
			}
		}
		for name, dep := range map[string]Pinger{"redis": cache, "gcs": storage} {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "dependency", name), "readiness probe degraded")
				}
			} else {
				checks[name] = "ok"
			}
		}

		payload := map[string]any{"status": "ready", "checks": checks}
		if !ready {
			payload["status"] = "unavailable"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
