package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/fabtrack/fabtrack-backend/api/responses"
	"github.com/fabtrack/fabtrack-backend/pkg/config"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	pkgerrors "github.com/fabtrack/fabtrack-backend/pkg/errors"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
	"github.com/fabtrack/fabtrack-backend/pkg/redis"
)

const envHeader = "X-FabTrack-Env"

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the database and Redis. A nil pinger is treated as
// "not wired" and skipped, so the API can come up without the worker's
// lock store in development.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failing := map[string]string{}
		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				failing["database"] = err.Error()
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				failing["redis"] = err.Error()
			}
		}

		if len(failing) > 0 {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies not ready").WithDetails(failing)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
