// Package main provides the promo engine API server.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/scandelicious/promo-engine/cmd/promo-engine-api/handlers"
	"github.com/scandelicious/promo-engine/cmd/promo-engine-api/middleware"
	"github.com/scandelicious/promo-engine/internal/config"
	"github.com/scandelicious/promo-engine/internal/observability"
)

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, promoHandler *handlers.PromoHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	timeout := cfg.Server.WriteTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(chimiddleware.Timeout(timeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"promo-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	r.Route("/api/v1/promos", func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Enabled: cfg.Auth.Enabled,
			Token:   cfg.Auth.Token,
		}))
		r.Get("/recommendations", promoHandler.GetRecommendations)
		r.Get("/limits", promoHandler.GetLimits)
	})

	return r
}
