package controllers

import (
	"context"
	"net/http"

	"github.com/tooldepot/tooldepot-backend/api/responses"
	"github.com/tooldepot/tooldepot-backend/pkg/config"
	pkgerrors "github.com/tooldepot/tooldepot-backend/pkg/errors"
	"github.com/tooldepot/tooldepot-backend/pkg/logger"
)

// Pinger reports whether a downstream dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ToolDepot-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the catalog and media services before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, catalog, mediaStore Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ToolDepot-Env", cfg.App.Env)

		checks := map[string]Pinger{
			"catalog":    catalog,
			"mediastore": mediaStore,
		}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" not ready"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
