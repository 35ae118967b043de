// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

// Package metrics exposes the collector's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsReceived counts tracker payload elements accepted per endpoint.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snowpack",
		Name:      "events_received_total",
		Help:      "Tracker payload elements accepted.",
	}, []string{"endpoint"})

	// EventsRejected counts payload elements that failed validation.
	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snowpack",
		Name:      "events_rejected_total",
		Help:      "Tracker payload elements rejected by validation.",
	}, []string{"endpoint"})

	// RowsInserted counts rows written to the store per table group.
	RowsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snowpack",
		Name:      "rows_inserted_total",
		Help:      "Rows written to ClickHouse.",
	}, []string{"group"})

	// InsertFailures counts failed batch inserts per table group.
	InsertFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "snowpack",
		Name:      "insert_failures_total",
		Help:      "Batch inserts that failed after retries.",
	}, []string{"group"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
