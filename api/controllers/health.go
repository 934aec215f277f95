package controllers

import (
	"net/http"

	"github.com/barekegnn/misrak-shemeta-backend/api/responses"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/config"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/db"
	pkgerrors "github.com/barekegnn/misrak-shemeta-backend/pkg/errors"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/logger"
	"github.com/barekegnn/misrak-shemeta-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Misrak-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Misrak-Env", cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
