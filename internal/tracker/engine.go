// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package tracker

import (
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/snowpack-analytics/snowpack/internal/config"
	"github.com/snowpack-analytics/snowpack/internal/jsonobj"
	"github.com/snowpack-analytics/snowpack/internal/logging"
)

// Engine normalizes validated protocol payloads into EventRecords. It is
// immutable after construction and safe for concurrent use.
type Engine struct {
	schemas  config.SchemaIdentifiers
	handlers map[string]contextHandler
}

// contextHandler merges one decoded context entry into the record. The data
// object is an owned, mutable builder for the single merge call: handlers
// may pop keys they consume, and the builder is discarded afterwards.
type contextHandler func(r *EventRecord, data *jsonobj.Object)

// NewEngine builds an engine with the full context dispatch registry,
// including the configurable page/screen/user/ad-data identifiers.
func NewEngine(schemas config.SchemaIdentifiers) *Engine {
	e := &Engine{schemas: schemas}
	e.handlers = e.buildRegistry()
	return e
}

// Normalize seeds an EventRecord from the payload fields, dispatches every
// decoded context entry and decodes the unstructured-event blob. Malformed
// blobs and unknown schemas are logged and skipped, never fatal.
func (e *Engine) Normalize(p *Payload, client *ClientInfo) *EventRecord {
	r := e.seed(p, client)
	e.applyContexts(r, p)
	e.applyUnstructured(r, p)

	// Contexts describing unstructured events ride along with the event
	// itself; fold them in after the blob so the blob's own entry wins.
	r.ueContext.Merge(r.Unstructured)
	r.Unstructured, r.ueContext = r.ueContext, jsonobj.New()
	return r
}

// seed copies the raw payload fields onto a fresh record 1:1. The only
// transformations are URL-decoding of page/referer fields and the
// "undefined" application id rewrite.
func (e *Engine) seed(p *Payload, client *ClientInfo) *EventRecord {
	r := NewEventRecord()
	now := time.Now().UTC()

	r.AppID = p.Aid
	if r.AppID == "undefined" {
		r.AppID = "other"
	}
	r.Platform = p.P
	r.EventType = p.E
	r.EventID = parseUUID(p.Eid)
	if r.EventID == ZeroUUID {
		r.EventID = uuid.New()
	}
	r.DeviceID = parseUUID(p.Duid)
	r.UserID = p.Uid
	r.SessionID = parseUUID(p.Sid)
	r.VisitCount = parseUint(p.Vid)

	r.PageURL = unquote(p.URL)
	r.Referer = unquote(p.Refr)
	r.Title = p.Page

	r.DeviceTime = parseEpochMillis(p.Dtm, now)
	r.SentTime = parseEpochMillis(p.Stm, now)
	r.ReceivedTime = parseEpochMillis(p.Rtm, now)
	r.Timezone = p.Tz
	r.Language = p.Lang

	r.TrackerVersion = p.Tv
	r.TrackerNamespace = p.Tna

	r.Resolution = p.Res
	r.Viewport = p.Vp
	r.DocumentSize = p.Ds

	r.SeAction = p.SeAc
	r.SeCategory = p.SeCa
	r.SeLabel = p.SeLa
	r.SePropertyRaw = p.SePr
	r.SeValueRaw = p.SeVa

	r.PpMinX = parseInt(p.PpMix)
	r.PpMaxX = parseInt(p.PpMax)
	r.PpMinY = parseInt(p.PpMiy)
	r.PpMaxY = parseInt(p.PpMay)

	if client != nil {
		r.UserAgent = client.UserAgent
		if client.IP != nil {
			r.UserIP = client.IP
		}
		r.BrowserFamily = client.BrowserFamily
		r.BrowserVersion = client.BrowserVersion
		r.OSFamily = client.OSFamily
		r.OSVersion = client.OSVersion
		r.DeviceBrand = client.DeviceBrand
		r.DeviceModel = client.DeviceModel
		r.DeviceIsMobile = client.IsMobile
		r.DeviceIsTablet = client.IsTablet
		r.DeviceIsTouchCapable = client.IsTouchCapable
		r.DeviceIsPC = client.IsPC
		r.DeviceIsBot = client.IsBot
	}

	return r
}

// contextEnvelope is the outer shape of the context blob.
type contextEnvelope struct {
	Schema string            `json:"schema"`
	Data   []json.RawMessage `json:"data"`
}

// contextEntry is one self-describing context.
type contextEntry struct {
	Schema string          `json:"schema"`
	Data   json.RawMessage `json:"data"`
}

// applyContexts decodes the context blob and dispatches every entry. The
// plain-JSON form is preferred when both are supplied.
func (e *Engine) applyContexts(r *EventRecord, p *Payload) {
	raw := p.Co
	if raw == "" && p.Cx != "" {
		decoded, err := decodeBase64(p.Cx)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to decode context blob")
			return
		}
		raw = decoded
	}
	if raw == "" {
		return
	}

	var envelope contextEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		logging.Warn().Err(err).Msg("Malformed context blob")
		return
	}

	for _, entry := range envelope.Data {
		e.dispatch(r, entry)
	}
}

// dispatch decodes one context entry and routes it by the vendor/name
// prefix of its schema identifier. The format/version suffix is ignored:
// all versions of a named schema are treated identically.
func (e *Engine) dispatch(r *EventRecord, raw json.RawMessage) {
	var entry contextEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		logging.Warn().Err(err).Msg("Malformed context entry")
		return
	}
	if entry.Schema == "" {
		logging.Warn().RawJSON("context", raw).Msg("Context entry without schema")
		return
	}

	var data map[string]any
	if err := json.Unmarshal(entry.Data, &data); err != nil {
		logging.Warn().Str("schema", entry.Schema).Msg("Context data is not an object")
		return
	}

	handler, ok := e.handlers[schemaKey(entry.Schema)]
	if !ok {
		logging.Warn().Str("schema", entry.Schema).Msg("Schema has no parser")
		return
	}
	handler(r, jsonobj.FromMap(data))
}

// unstructuredEnvelope is the outer shape of the unstructured-event blob:
// an envelope whose data is itself a self-describing event.
type unstructuredEnvelope struct {
	Schema string       `json:"schema"`
	Data   contextEntry `json:"data"`
}

// applyUnstructured decodes the unstructured-event blob. A payload whose
// inner schema matches the configured structured-event identifier unpacks
// into the structured-event fields; anything else is stored keyed by the
// schema's event name.
func (e *Engine) applyUnstructured(r *EventRecord, p *Payload) {
	raw := p.UePr
	if raw == "" && p.UePx != "" {
		decoded, err := decodeBase64(p.UePx)
		if err != nil {
			logging.Warn().Err(err).Msg("Failed to decode unstructured event blob")
			return
		}
		raw = decoded
	}
	if raw == "" {
		return
	}

	var envelope unstructuredEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		logging.Warn().Err(err).Msg("Malformed unstructured event blob")
		return
	}

	if schemaKey(envelope.Data.Schema) == e.schemas.U2SData {
		e.unpackStructured(r, envelope.Data.Data)
		return
	}

	name := eventName(envelope.Data.Schema)
	if name == "" {
		logging.Warn().Str("schema", envelope.Data.Schema).Msg("Unstructured event schema has no name segment")
		return
	}

	var data any
	if err := json.Unmarshal(envelope.Data.Data, &data); err != nil {
		logging.Warn().Str("schema", envelope.Data.Schema).Err(err).Msg("Malformed unstructured event data")
		return
	}
	if m, ok := data.(map[string]any); ok {
		r.Unstructured.Set(name, jsonobj.FromMap(m))
	} else {
		r.Unstructured.Set(name, data)
	}
}

// structuredAlias is the payload of the structured-event-as-unstructured
// schema; both the protocol short names and the long names are accepted.
type structuredAlias struct {
	SeAc     string `json:"se_ac"`
	Action   string `json:"action"`
	SeCa     string `json:"se_ca"`
	Category string `json:"category"`
	SeLa     string `json:"se_la"`
	Label    string `json:"label"`
	SePr     any    `json:"se_pr"`
	Property any    `json:"property"`
	SeVa     any    `json:"se_va"`
	Value    any    `json:"value"`
}

// unpackStructured pours a structured-event-as-unstructured payload into
// the se_* fields and forces the event type to "se". Coercion of the
// property and value fields happens later in the reconciliation pass, so
// they are re-serialized into the raw carriers here.
func (e *Engine) unpackStructured(r *EventRecord, raw json.RawMessage) {
	var alias structuredAlias
	if err := json.Unmarshal(raw, &alias); err != nil {
		logging.Warn().Err(err).Msg("Malformed structured event payload")
		return
	}

	r.EventType = "se"
	r.SeAction = firstNonEmpty(alias.SeAc, alias.Action)
	r.SeCategory = firstNonEmpty(alias.SeCa, alias.Category)
	r.SeLabel = firstNonEmpty(alias.SeLa, alias.Label)
	r.SePropertyRaw = stringify(coalesce(alias.SePr, alias.Property))
	r.SeValueRaw = stringify(coalesce(alias.SeVa, alias.Value))
}

// schemaKey reduces "iglu:vendor/name/format/version" to "vendor/name".
func schemaKey(schema string) string {
	schema = strings.TrimPrefix(schema, "iglu:")
	parts := strings.Split(schema, "/")
	if len(parts) < 2 {
		return schema
	}
	return parts[0] + "/" + parts[1]
}

// eventName returns the name segment of a schema identifier, e.g.
// "add_to_cart" for "iglu:com.acme/add_to_cart/jsonschema/1-0-0".
func eventName(schema string) string {
	parts := strings.Split(schema, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-3]
}

// parseUUID returns the zero UUID for empty or malformed input.
func parseUUID(s string) uuid.UUID {
	if s == "" {
		return ZeroUUID
	}
	// Trackers occasionally append garbage beyond the canonical 36 chars.
	if len(s) > 36 {
		s = s[:36]
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return ZeroUUID
	}
	return id
}

// unquote URL-decodes page and referer fields, passing through values that
// are not valid percent-encoding.
func unquote(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func coalesce(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// stringify renders a decoded JSON value back into the raw string form the
// coercion step expects.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
