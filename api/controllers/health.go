package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/eshop/storefront/api/responses"
	"github.com/eshop/storefront/pkg/config"
	pkgerrors "github.com/eshop/storefront/pkg/errors"
	"github.com/eshop/storefront/pkg/logger"
)

const (
	envHeader    = "X-Storefront-Env"
	readyTimeout = 2 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the document store and the cart cache.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := []struct {
			name string
			p    pinger
		}{
			{"database", dbP},
			{"redis", redisP},
		}
		for _, c := range checks {
			if c.p == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			err := c.p.Ping(ctx)
			cancel()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Remote(err, c.name+" unavailable").
					WithDetails(map[string]any{"component": c.name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
