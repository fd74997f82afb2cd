package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/tundeabiodun/handyfix-backend/api/responses"
	"github.com/tundeabiodun/handyfix-backend/pkg/config"
	"github.com/tundeabiodun/handyfix-backend/pkg/db"
	pkgerrors "github.com/tundeabiodun/handyfix-backend/pkg/errors"
	"github.com/tundeabiodun/handyfix-backend/pkg/logger"
	"github.com/tundeabiodun/handyfix-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-HandyFix-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every hard dependency and reports not-ready if any fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-HandyFix-Env", cfg.App.Env)

		var err error
		if dbP != nil {
			err = multierr.Append(err, dbP.Ping(ctx))
		}
		if redisP != nil {
			err = multierr.Append(err, redisP.Ping(ctx))
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "readiness probe"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
