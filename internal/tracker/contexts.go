// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package tracker

import (
	"time"

	"github.com/snowpack-analytics/snowpack/internal/jsonobj"
)

// buildRegistry wires every known context schema to its merge handler,
// keyed by the vendor/name prefix of the schema identifier.
func (e *Engine) buildRegistry() map[string]contextHandler {
	registry := map[string]contextHandler{
		"com.acme/static_context":          mergeInto(func(r *EventRecord) *jsonobj.Object { return r.Extra }),
		"org.w3/PerformanceTiming":         nestUnderExtra("performance_timing"),
		"org.ietf/http_client_hints":       nestUnderExtra("client_hints"),
		"com.google.analytics/cookies":     mergeGACookies,
		"com.google.ga4/cookies":           mergeGACookies,
		"com.snowplowanalytics.snowplow/web_page":            handleWebPage,
		"com.snowplowanalytics.snowplow/mobile_context":      handleMobileContext,
		"com.snowplowanalytics.snowplow/client_session":      handleClientSession,
		"com.snowplowanalytics.snowplow/browser_context":     handleBrowserContext,
		"com.snowplowanalytics.snowplow/geolocation_context": mergeInto(func(r *EventRecord) *jsonobj.Object { return r.Geolocation }),
		"com.snowplowanalytics.mobile/application":           handleApplication,
		"com.snowplowanalytics.mobile/screen":                handleMobileScreen,

		// AMP context family; reconciliation untangles the merged result.
		"dev.amp.snowplow/amp_session":  mergeInto(func(r *EventRecord) *jsonobj.Object { return r.AMP }),
		"dev.amp.snowplow/amp_id":       mergeInto(func(r *EventRecord) *jsonobj.Object { return r.AMP }),
		"dev.amp.snowplow/amp_web_page": mergeInto(func(r *EventRecord) *jsonobj.Object { return r.AMP }),

		// Contexts that describe the unstructured event rather than the
		// session or device travel with the event payload.
		"com.snowplowanalytics.mobile/screen_summary":        nestUnderEvent("screen_summary"),
		"com.snowplowanalytics.mobile/application_lifecycle": nestUnderEvent("app_lifecycle"),
		"com.snowplowanalytics.mobile/deep_link_received":    nestUnderEvent("deep_link_received"),
		"com.snowplowanalytics.mobile/message_notification":  nestUnderEvent("message_notification"),
		"com.android.installreferrer.api/referrer_details":   nestUnderEvent("install_referrer"),
		"org.w3/PerformanceNavigationTiming":                 nestUnderEvent("performance_navigation_timing"),
	}

	// Deployment-defined enrichment schemas.
	registry[e.schemas.PageData] = mergeInto(func(r *EventRecord) *jsonobj.Object { return r.PageData })
	registry[e.schemas.ScreenData] = mergeInto(func(r *EventRecord) *jsonobj.Object { return r.Screen })
	registry[e.schemas.UserData] = mergeInto(func(r *EventRecord) *jsonobj.Object { return r.UserData })
	registry[e.schemas.AdData] = nestUnderEvent("ad_data")

	return registry
}

// mergeInto returns a handler that merges the whole context into one
// free-form record region.
func mergeInto(region func(r *EventRecord) *jsonobj.Object) contextHandler {
	return func(r *EventRecord, data *jsonobj.Object) {
		region(r).Merge(data)
	}
}

// nestUnderExtra returns a handler that stores the whole context under a
// single key of the extra region.
func nestUnderExtra(key string) contextHandler {
	return func(r *EventRecord, data *jsonobj.Object) {
		r.Extra.Set(key, data)
	}
}

// nestUnderEvent returns a handler that attaches the context to the
// unstructured event payload under the given key.
func nestUnderEvent(key string) contextHandler {
	return func(r *EventRecord, data *jsonobj.Object) {
		r.ueContext.Set(key, data)
	}
}

// mergeGACookies accumulates Google Analytics cookies from both the UA and
// GA4 cookie schemas under a single extra key.
func mergeGACookies(r *EventRecord, data *jsonobj.Object) {
	if existing, ok := r.Extra.Get("ga_cookies"); ok {
		if obj, ok := existing.(*jsonobj.Object); ok {
			obj.Merge(data)
			return
		}
	}
	r.Extra.Set("ga_cookies", data)
}

// handleWebPage takes the page-view identifier from the web page context.
func handleWebPage(r *EventRecord, data *jsonobj.Object) {
	if id := parseUUID(data.GetString("id")); id != ZeroUUID {
		r.ViewID = id
	}
}

// handleMobileContext maps the well-known device fields onto the record and
// keeps everything else in the device extra region. A mobile context is
// authoritative about the device class.
func handleMobileContext(r *EventRecord, data *jsonobj.Object) {
	if brand := data.PopString("deviceManufacturer"); brand != "" {
		r.DeviceBrand = brand
	}
	if model := data.PopString("deviceModel"); model != "" {
		r.DeviceModel = model
	}
	if osType := data.PopString("osType"); osType != "" {
		r.OSFamily = osType
	}
	if osVersion := data.PopString("osVersion"); osVersion != "" {
		r.OSVersion = osVersion
	}
	r.DeviceIsMobile = true
	r.DeviceIsTablet = false
	r.DeviceIsTouchCapable = true
	r.DeviceIsPC = false
	r.DeviceIsBot = false
	r.DeviceExtra.Merge(data)
}

// handleApplication takes the app version and build identifiers.
func handleApplication(r *EventRecord, data *jsonobj.Object) {
	if v := data.GetString("version"); v != "" {
		r.AppVersion = v
	}
	if b := data.GetString("build"); b != "" {
		r.AppBuild = b
	}
}

// handleClientSession maps the mobile session context onto the session
// fields. Leftover keys are kept in the session extra region.
func handleClientSession(r *EventRecord, data *jsonobj.Object) {
	if idx, ok := popUint(data, "sessionIndex"); ok {
		r.VisitCount = idx
	}
	if id := parseUUID(data.PopString("sessionId")); id != ZeroUUID {
		r.SessionID = id
	}
	if id := parseUUID(data.PopString("userId")); id != ZeroUUID {
		r.DeviceID = id
	}
	if idx, ok := popUint(data, "eventIndex"); ok {
		r.EventIndex = idx
	}
	if ts := data.PopString("firstEventTimestamp"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.FirstEventTime = parsed.UTC()
		}
	}
	if id := parseUUID(data.PopString("previousSessionId")); id != ZeroUUID {
		r.PreviousSessionID = id
	}
	if id := parseUUID(data.PopString("firstEventId")); id != ZeroUUID {
		r.FirstEventID = id
	}
	if sm := data.PopString("storageMechanism"); sm != "" {
		r.StorageMechanism = sm
	}
	r.SessionExtra.Merge(data)
}

// handleMobileScreen maps the mobile screen context: the screen name stands
// in for the page URL and the screen id for the view id.
func handleMobileScreen(r *EventRecord, data *jsonobj.Object) {
	if name := data.PopString("name"); name != "" {
		r.PageURL = name
	}
	if id := parseUUID(data.PopString("id")); id != ZeroUUID {
		r.ViewID = id
	}
	r.Screen.Merge(data)
}

// handleBrowserContext maps the browser context dimensions onto the record
// and keeps the rest in the browser extra region.
func handleBrowserContext(r *EventRecord, data *jsonobj.Object) {
	if res := data.PopString("resolution"); res != "" {
		r.Resolution = res
	}
	if vp := data.PopString("viewport"); vp != "" {
		r.Viewport = vp
	}
	if ds := data.PopString("documentSize"); ds != "" {
		r.DocumentSize = ds
	}
	r.BrowserExtra.Merge(data)
}

// popUint removes a numeric key and converts it, tolerating the float64
// JSON numbers decode to.
func popUint(data *jsonobj.Object, key string) (uint64, bool) {
	v, ok := data.Pop(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}
