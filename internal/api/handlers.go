// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/snowpack-analytics/snowpack/internal/clickhouse"
	"github.com/snowpack-analytics/snowpack/internal/config"
	"github.com/snowpack-analytics/snowpack/internal/logging"
	"github.com/snowpack-analytics/snowpack/internal/metrics"
	"github.com/snowpack-analytics/snowpack/internal/schema"
	"github.com/snowpack-analytics/snowpack/internal/tracker"
	"github.com/snowpack-analytics/snowpack/internal/validation"
)

// transparentGIF is the classic 1x1 transparent pixel served to GET
// trackers.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Store is the slice of the storage connector the handlers consume.
// *clickhouse.Connector implements it.
type Store interface {
	InsertRows(ctx context.Context, group string, rows []clickhouse.Row) error
	Ping(ctx context.Context) error
	ActiveTable(group string) string
}

// Handler carries the collector's request handlers and their dependencies.
type Handler struct {
	engine *tracker.Engine
	store  Store
	cfg    *config.Config
}

// NewHandler binds the handlers to the engine and store.
func NewHandler(cfg *config.Config, engine *tracker.Engine, store Store) *Handler {
	return &Handler{engine: engine, store: store, cfg: cfg}
}

// Pixel handles the GET tracking endpoint: one payload element encoded in
// the query string, answered with a transparent GIF regardless of how much
// of the payload survived normalization.
func (h *Handler) Pixel(w http.ResponseWriter, r *http.Request) {
	payload := tracker.PayloadFromValues(r.URL.Query())
	if err := validation.ValidateStruct(payload); err != nil {
		metrics.EventsRejected.WithLabelValues("pixel").Inc()
		logging.Warn().Err(err).Msg("Invalid pixel payload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	metrics.EventsReceived.WithLabelValues("pixel").Inc()

	// The pixel always answers with the GIF; a storage failure is already
	// logged and counted and must not break page rendering.
	record := h.engine.Process(payload, clientInfo(r), r.Header.Get("Cookie"))
	_ = h.insert(r, schema.GroupSnowplow, []clickhouse.Row{record})

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}

// trackerBatch is the POST body shape: a self-describing envelope wrapping
// a list of payload elements.
type trackerBatch struct {
	Schema string             `json:"schema"`
	Data   []*tracker.Payload `json:"data"`
}

// Tracker handles the POST batch endpoint. Elements failing validation are
// dropped individually; the rest of the batch still lands.
func (h *Handler) Tracker(w http.ResponseWriter, r *http.Request) {
	var batch trackerBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "malformed batch", http.StatusBadRequest)
		return
	}

	client := clientInfo(r)
	cookies := r.Header.Get("Cookie")

	rows := make([]clickhouse.Row, 0, len(batch.Data))
	for _, payload := range batch.Data {
		if err := validation.ValidateStruct(payload); err != nil {
			metrics.EventsRejected.WithLabelValues("tracker").Inc()
			logging.Warn().Err(err).Msg("Invalid batch element")
			continue
		}
		metrics.EventsReceived.WithLabelValues("tracker").Inc()
		rows = append(rows, h.engine.Process(payload, client, cookies))
	}

	if err := h.insert(r, schema.GroupSnowplow, rows); err != nil {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Sendgrid handles the Sendgrid event webhook: a JSON array of events
// written to the sendgrid table group.
func (h *Handler) Sendgrid(w http.ResponseWriter, r *http.Request) {
	group, ok := h.cfg.ClickHouse.Tables[schema.GroupSendgrid]
	if !ok || !group.Enabled {
		http.Error(w, "sendgrid ingestion disabled", http.StatusNotFound)
		return
	}

	var events []*sendgridEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		http.Error(w, "malformed webhook body", http.StatusBadRequest)
		return
	}

	rows := make([]clickhouse.Row, 0, len(events))
	for _, event := range events {
		metrics.EventsReceived.WithLabelValues("sendgrid").Inc()
		rows = append(rows, event)
	}

	if err := h.insert(r, schema.GroupSendgrid, rows); err != nil {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Health reports store connectivity and the active clickstream table.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		logging.Warn().Err(err).Msg("Health ping failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"table":  h.store.ActiveTable(schema.GroupSnowplow),
	})
}

// insert writes rows and records the outcome. A failure here means retry
// exhaustion inside the connector; callers decide whether it reaches the
// client.
func (h *Handler) insert(r *http.Request, group string, rows []clickhouse.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := h.store.InsertRows(r.Context(), group, rows); err != nil {
		metrics.InsertFailures.WithLabelValues(group).Inc()
		logging.Error().Err(err).Str("group", group).Int("rows", len(rows)).Msg("Insert failed")
		return err
	}
	metrics.RowsInserted.WithLabelValues(group).Add(float64(len(rows)))
	return nil
}
