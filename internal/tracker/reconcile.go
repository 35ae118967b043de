// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package tracker

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/snowpack-analytics/snowpack/internal/jsonobj"
	"github.com/snowpack-analytics/snowpack/internal/logging"
)

// Process runs the full pipeline for one payload element: normalization
// followed by reconciliation.
func (e *Engine) Process(p *Payload, client *ClientInfo, cookieHeader string) *EventRecord {
	r := e.Normalize(p, client)
	e.Reconcile(r, cookieHeader)
	return r
}

// Reconcile runs the ordered fix-up pass over a normalized record. The steps
// resolve cross-field interactions that normalization cannot see in
// isolation: page-ping bucketing, AMP identity recovery, cookie fallback,
// screen-view remapping and structured-event coercion. The pass is
// idempotent; running it twice leaves the record unchanged.
func (e *Engine) Reconcile(r *EventRecord, cookieHeader string) {
	reconcilePagePing(r)
	reconcileAMP(r)
	reconcileAMPLinker(r)
	reconcileCookie(r, cookieHeader)
	reconcileScreenView(r)
	reconcileScreenName(r)
	reconcileStructuredProperty(r)
	reconcileStructuredValue(r)
	reconcileClientHints(r)
}

// reconcilePagePing buckets the scroll offsets of a page ping under a
// single extra key. The presence guard keeps a second pass from zeroing
// the bucket after the raw carriers were consumed.
func reconcilePagePing(r *EventRecord) {
	if r.EventType != "pp" || r.Extra.Has("page_ping") {
		return
	}
	bucket := jsonobj.New()
	bucket.Set("min_x", r.PpMinX)
	bucket.Set("max_x", r.PpMaxX)
	bucket.Set("min_y", r.PpMinY)
	bucket.Set("max_y", r.PpMaxY)
	r.Extra.Set("page_ping", bucket)
}

// reconcileAMP recovers identity and event-type information that AMP
// trackers deliver through contexts instead of protocol fields.
func reconcileAMP(r *EventRecord) {
	if r.AMP.Has("userId") {
		r.UserID = r.AMP.PopString("userId")
	}
	if r.EventType == "ue" && r.Unstructured.Has("amp_page_ping") {
		r.EventType = "pp"
		ping, _ := r.Unstructured.Pop("amp_page_ping")
		r.Extra.Set("amp_page_ping", ping)
	}
	if domainUserid := r.AMP.GetString("domainUserid"); domainUserid != "" {
		if id := parseUUID(domainUserid); id != ZeroUUID {
			r.AMP.Pop("domainUserid")
			r.DeviceID = id
		}
	}
}

// reconcileAMPLinker recovers the AMP device id smuggled through the
// sp_amp_linker query parameter of the page URL. The linker value is four
// asterisk-separated segments with a base64-encoded id in the last one;
// malformed linkers are logged and ignored.
func reconcileAMPLinker(r *EventRecord) {
	if r.PageURL == "" {
		return
	}
	parsed, err := url.Parse(r.PageURL)
	if err != nil {
		return
	}
	linker := parsed.Query().Get("sp_amp_linker")
	if linker == "" {
		return
	}

	segments := strings.Split(linker, "*")
	if len(segments) != 4 {
		logging.Warn().Str("linker", linker).Msg("Failed to parse AMP linker")
		return
	}
	deviceID, err := decodeBase64(segments[3])
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to parse AMP linker")
		return
	}
	r.AMP.Set("device_id", deviceID)
}

// reconcileCookie falls back to the first-party id cookie when the payload
// carried no device id.
func reconcileCookie(r *EventRecord, cookieHeader string) {
	if r.DeviceID != ZeroUUID {
		return
	}
	cookie := ParseCookies(cookieHeader)
	if cookie == nil {
		return
	}
	if id := parseUUID(cookie.DeviceID); id != ZeroUUID {
		r.DeviceID = id
	}
}

// reconcileScreenView remaps mobile screen-view events onto the page-view
// shape: the screen id becomes the view id, the screen name stands in for
// the URL and the previous screen for the referer.
func reconcileScreenView(r *EventRecord) {
	raw, ok := r.Unstructured.Pop("screen_view")
	if !ok {
		return
	}
	view, ok := raw.(*jsonobj.Object)
	if !ok {
		r.Unstructured.Set("screen_view", raw)
		return
	}

	r.EventType = "pv"
	if id := parseUUID(view.PopString("id")); id != ZeroUUID {
		r.ViewID = id
	}
	r.PageURL = view.PopString("name")
	if view.Has("previousName") {
		r.Referer = view.PopString("previousName")
		if r.Referer == "Unknown" {
			r.Referer = ""
		}
	} else {
		r.Referer = ""
	}
	r.Screen.Merge(view)
}

// reconcileScreenName lets an explicit screen_name key in the screen
// region override the URL.
func reconcileScreenName(r *EventRecord) {
	if r.Screen.Has("screen_name") {
		r.PageURL = r.Screen.PopString("screen_name")
	}
}

// reconcileStructuredProperty coerces the raw se_pr carrier into a JSON
// object. Valid JSON that is not an object, and strings that are not JSON
// at all, are wrapped under a recovery key instead of being dropped.
func reconcileStructuredProperty(r *EventRecord) {
	raw := r.SePropertyRaw
	r.SePropertyRaw = ""
	if raw == "" {
		return
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		r.SeProperty.Set("ex-property", raw)
		return
	}
	if m, ok := decoded.(map[string]any); ok {
		r.SeProperty.Merge(jsonobj.FromMap(m))
		return
	}
	r.SeProperty.Set("ex-property", decoded)
}

// reconcileStructuredValue coerces the raw se_va carrier into a float. An
// unparseable value is preserved under a recovery key of the property
// object rather than lost.
func reconcileStructuredValue(r *EventRecord) {
	raw := r.SeValueRaw
	r.SeValueRaw = ""
	if raw == "" {
		return
	}

	value, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		r.SeProperty.Set("ex-value", raw)
		r.SeValue = 0
		return
	}
	r.SeValue = float32(value)
}

// reconcileClientHints lets the client-hints context refine the device
// class inferred from the user agent.
func reconcileClientHints(r *EventRecord) {
	hints, ok := r.Extra.Get("client_hints")
	if !ok {
		return
	}
	obj, ok := hints.(*jsonobj.Object)
	if !ok {
		return
	}
	v, ok := obj.Get("isMobile")
	if !ok {
		return
	}
	isMobile, ok := v.(bool)
	if !ok {
		return
	}
	r.DeviceIsMobile = isMobile
	r.DeviceIsPC = !isMobile
}
