// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

// Package api wires the HTTP surface of the collector: the tracker
// endpoints, the Sendgrid webhook, health and metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/snowpack-analytics/snowpack/internal/config"
	"github.com/snowpack-analytics/snowpack/internal/metrics"
)

// NewRouter assembles the route tree with the standard middleware stack.
func NewRouter(cfg *config.Config, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(securityHeaders)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.RateLimit.Enabled {
		r.Use(httprate.LimitByIP(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	r.Get("/i", h.Pixel)
	r.Post("/tracker", h.Tracker)
	r.Post("/sendgrid", h.Sendgrid)
	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
