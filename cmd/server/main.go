// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

// Command server runs the collector: it provisions the ClickHouse tables
// and serves the tracker endpoints until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snowpack-analytics/snowpack/internal/api"
	"github.com/snowpack-analytics/snowpack/internal/clickhouse"
	"github.com/snowpack-analytics/snowpack/internal/config"
	"github.com/snowpack-analytics/snowpack/internal/logging"
	"github.com/snowpack-analytics/snowpack/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Collector failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := clickhouse.New(ctx, cfg.ClickHouse)
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer conn.Close()

	if err := clickhouse.NewTableManager(conn).CreateAll(ctx); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	engine := tracker.NewEngine(cfg.Snowplow.Schemas)
	handler := api.NewHandler(cfg, engine, conn)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(cfg, handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("Collector listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logging.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
