package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dcastellanos/storefront-backend/api/responses"
	"github.com/dcastellanos/storefront-backend/pkg/config"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is implemented by the database client and the Redis ledger store.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		statuses := map[string]string{}
		ready := true
		for name, dep := range deps {
			if dep == nil {
				statuses[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				statuses[name] = "down"
				ready = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			statuses[name] = "up"
		}

		status := http.StatusOK
		label := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			label = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status":       label,
			"dependencies": statuses,
		})
	}
}
