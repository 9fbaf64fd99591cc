// Package main provides the API router setup.
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-api/handlers"
	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-api/middleware"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/prompts"
)

// RouterDeps holds what the routes serve.
type RouterDeps struct {
	Comparer       handlers.Comparer
	Runs           handlers.RunStore // nil disables history
	Topics         *prompts.Library
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(deps.AllowedOrigins))
	if deps.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"comparison-engine"}`))
	})

	comparisonHandler := handlers.NewComparisonHandler(logger, deps.Comparer, deps.Runs)
	topicsHandler := handlers.NewTopicsHandler(deps.Topics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/comparisons", func(r chi.Router) {
			r.Post("/", comparisonHandler.Create)
			r.Get("/", comparisonHandler.List)
			r.Get("/{id}", comparisonHandler.Get)
		})

		r.Get("/topics", topicsHandler.List)
	})

	return r
}
