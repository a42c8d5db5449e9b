package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/templeconnect/backend/api/responses"
	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is the dependency health surface shared by the DB and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TempleConnect-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports per-dependency status and degrades to 503 when any
// required backend is unreachable.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TempleConnect-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				status[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				healthy = false
				status[name] = "unreachable"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			status[name] = "ok"
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status":       "degraded",
				"dependencies": status,
			})
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"status":       "ready",
			"dependencies": status,
		})
	}
}
