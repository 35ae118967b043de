// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package tracker

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/snowpack-analytics/snowpack/internal/config"
	"github.com/snowpack-analytics/snowpack/internal/jsonobj"
	"github.com/snowpack-analytics/snowpack/internal/logging"
)

func testSchemas() config.SchemaIdentifiers {
	return config.SchemaIdentifiers{
		PageData:   "dev.snowplow.simple/page_data",
		ScreenData: "dev.snowplow.simple/screen_data",
		UserData:   "dev.snowplow.simple/user_data",
		AdData:     "dev.snowplow.simple/ad_data",
		U2SData:    "dev.snowplow.simple/u2s_data",
	}
}

func minimalPayload() *Payload {
	return &Payload{
		E:   "pv",
		Aid: "site",
		P:   "web",
		Tv:  "js-3.5.0",
	}
}

func TestNormalizeMinimalPageView(t *testing.T) {
	engine := NewEngine(testSchemas())
	r := engine.Normalize(minimalPayload(), nil)

	if r.EventType != "pv" {
		t.Fatalf("EventType = %q", r.EventType)
	}
	if r.EventID == ZeroUUID {
		t.Fatal("EventID not generated")
	}
	if r.DeviceTime.Equal(ZeroTime) || r.SentTime.Equal(ZeroTime) || r.ReceivedTime.Equal(ZeroTime) {
		t.Fatal("timestamps not defaulted to now")
	}
	if r.Unstructured.Len() != 0 || r.Extra.Len() != 0 {
		t.Fatal("free-form regions not empty")
	}
	if r.SeProperty.Len() != 0 || r.SeValue != 0 {
		t.Fatal("structured event fields not at sentinels")
	}
}

func TestNormalizeSeedFields(t *testing.T) {
	engine := NewEngine(testSchemas())

	t.Run("undefined app id rewritten", func(t *testing.T) {
		p := minimalPayload()
		p.Aid = "undefined"
		r := engine.Normalize(p, nil)
		if r.AppID != "other" {
			t.Fatalf("AppID = %q, want other", r.AppID)
		}
	})

	t.Run("url decoded", func(t *testing.T) {
		p := minimalPayload()
		p.URL = "https%3A%2F%2Fexample.com%2Fpath%3Fq%3D1"
		r := engine.Normalize(p, nil)
		if r.PageURL != "https://example.com/path?q=1" {
			t.Fatalf("PageURL = %q", r.PageURL)
		}
	})

	t.Run("supplied event id kept", func(t *testing.T) {
		p := minimalPayload()
		p.Eid = "6e2c90bd-77a4-4cc7-a0a5-b8b17b79d4df"
		r := engine.Normalize(p, nil)
		if r.EventID.String() != p.Eid {
			t.Fatalf("EventID = %s", r.EventID)
		}
	})

	t.Run("millisecond timestamps parsed", func(t *testing.T) {
		p := minimalPayload()
		p.Dtm = "1700000000000"
		r := engine.Normalize(p, nil)
		if r.DeviceTime.UnixMilli() != 1700000000000 {
			t.Fatalf("DeviceTime = %v", r.DeviceTime)
		}
	})
}

func TestNormalizeContextDispatch(t *testing.T) {
	engine := NewEngine(testSchemas())

	normalize := func(t *testing.T, co string) *EventRecord {
		t.Helper()
		p := minimalPayload()
		p.Co = co
		return engine.Normalize(p, nil)
	}

	t.Run("web page sets view id", func(t *testing.T) {
		r := normalize(t, `{"schema":"iglu:com.snowplowanalytics.snowplow/contexts/jsonschema/1-0-1","data":[
			{"schema":"iglu:com.snowplowanalytics.snowplow/web_page/jsonschema/1-0-0","data":{"id":"81cd8a8f-6e77-4859-b398-a6dbc1e65d4f"}}
		]}`)
		if r.ViewID.String() != "81cd8a8f-6e77-4859-b398-a6dbc1e65d4f" {
			t.Fatalf("ViewID = %s", r.ViewID)
		}
	})

	t.Run("unknown schema warns and leaves record unchanged", func(t *testing.T) {
		var buf bytes.Buffer
		prev := logging.Logger()
		logging.SetLogger(logging.NewTestLogger(&buf))
		defer logging.SetLogger(prev)

		r := normalize(t, `{"schema":"x","data":[
			{"schema":"iglu:com.vendor/unknown_thing/jsonschema/1-0-0","data":{"a":1}}
		]}`)
		if r.Extra.Len() != 0 || r.Unstructured.Len() != 0 {
			t.Fatal("unknown schema mutated the record")
		}
		if !strings.Contains(buf.String(), "Schema has no parser") {
			t.Fatalf("missing warn log, got: %s", buf.String())
		}
	})

	t.Run("mobile context is authoritative for device", func(t *testing.T) {
		r := normalize(t, `{"schema":"x","data":[
			{"schema":"iglu:com.snowplowanalytics.snowplow/mobile_context/jsonschema/1-0-2","data":{
				"deviceManufacturer":"Samsung","deviceModel":"SM-G991B",
				"osType":"android","osVersion":"13","carrier":"EE"
			}}
		]}`)
		if r.DeviceBrand != "Samsung" || r.DeviceModel != "SM-G991B" {
			t.Fatalf("device = %q %q", r.DeviceBrand, r.DeviceModel)
		}
		if r.OSFamily != "android" || r.OSVersion != "13" {
			t.Fatalf("os = %q %q", r.OSFamily, r.OSVersion)
		}
		if !r.DeviceIsMobile || r.DeviceIsPC || r.DeviceIsTablet || r.DeviceIsBot {
			t.Fatal("device class flags wrong")
		}
		if r.DeviceExtra.GetString("carrier") != "EE" {
			t.Fatalf("DeviceExtra = %v", r.DeviceExtra.ToMap())
		}
	})

	t.Run("client session", func(t *testing.T) {
		r := normalize(t, `{"schema":"x","data":[
			{"schema":"iglu:com.snowplowanalytics.snowplow/client_session/jsonschema/1-0-2","data":{
				"sessionIndex":7,
				"sessionId":"5ad90a6b-bbc1-49df-a4c9-2f48ebb04852",
				"userId":"b19e2a43-8ad5-4c7e-9bd4-dd80cf12e2c5",
				"eventIndex":12,
				"firstEventTimestamp":"2024-01-15T10:30:00.000Z",
				"previousSessionId":"e3c43c5c-8f41-4d73-95ff-46a2f3d54f08",
				"firstEventId":"a2b05a7e-22a2-4b9e-bc7e-7024dd308c0a",
				"storageMechanism":"LOCAL_STORAGE",
				"custom":"kept"
			}}
		]}`)
		if r.VisitCount != 7 {
			t.Fatalf("VisitCount = %d", r.VisitCount)
		}
		if r.SessionID.String() != "5ad90a6b-bbc1-49df-a4c9-2f48ebb04852" {
			t.Fatalf("SessionID = %s", r.SessionID)
		}
		if r.DeviceID.String() != "b19e2a43-8ad5-4c7e-9bd4-dd80cf12e2c5" {
			t.Fatalf("DeviceID = %s", r.DeviceID)
		}
		if r.EventIndex != 12 {
			t.Fatalf("EventIndex = %d", r.EventIndex)
		}
		if r.FirstEventTime.Equal(ZeroTime) {
			t.Fatal("FirstEventTime not parsed")
		}
		if r.StorageMechanism != "LOCAL_STORAGE" {
			t.Fatalf("StorageMechanism = %q", r.StorageMechanism)
		}
		if r.SessionExtra.GetString("custom") != "kept" {
			t.Fatalf("SessionExtra = %v", r.SessionExtra.ToMap())
		}
	})

	t.Run("browser context pops dimensions", func(t *testing.T) {
		r := normalize(t, `{"schema":"x","data":[
			{"schema":"iglu:com.snowplowanalytics.snowplow/browser_context/jsonschema/2-0-0","data":{
				"resolution":"1920x1080","viewport":"1200x800","documentSize":"1200x4000","colorDepth":24
			}}
		]}`)
		if r.Resolution != "1920x1080" || r.Viewport != "1200x800" || r.DocumentSize != "1200x4000" {
			t.Fatalf("dimensions = %q %q %q", r.Resolution, r.Viewport, r.DocumentSize)
		}
		if !r.BrowserExtra.Has("colorDepth") {
			t.Fatal("leftover key not kept in BrowserExtra")
		}
	})

	t.Run("ga cookies merge across both schemas", func(t *testing.T) {
		r := normalize(t, `{"schema":"x","data":[
			{"schema":"iglu:com.google.analytics/cookies/jsonschema/1-0-0","data":{"_ga":"GA1.2.1"}},
			{"schema":"iglu:com.google.ga4/cookies/jsonschema/1-0-0","data":{"_ga_ABC":"GS1.1.2"}}
		]}`)
		cookies, ok := r.Extra.Get("ga_cookies")
		if !ok {
			t.Fatal("ga_cookies missing")
		}
		obj := cookies.(*jsonobj.Object)
		if obj.Len() != 2 {
			t.Fatalf("ga_cookies entries = %d, want 2", obj.Len())
		}
	})

	t.Run("performance timing nested under extra", func(t *testing.T) {
		r := normalize(t, `{"schema":"x","data":[
			{"schema":"iglu:org.w3/PerformanceTiming/jsonschema/1-0-0","data":{"domComplete":123}}
		]}`)
		if !r.Extra.Has("performance_timing") {
			t.Fatalf("Extra = %v", r.Extra.ToMap())
		}
	})

	t.Run("screen summary travels with the event", func(t *testing.T) {
		r := normalize(t, `{"schema":"x","data":[
			{"schema":"iglu:com.snowplowanalytics.mobile/screen_summary/jsonschema/1-0-0","data":{"foreground_sec":5}}
		]}`)
		if !r.Unstructured.Has("screen_summary") {
			t.Fatalf("Unstructured = %v", r.Unstructured.ToMap())
		}
	})
}

func TestNormalizeBase64Contexts(t *testing.T) {
	engine := NewEngine(testSchemas())
	blob := `{"schema":"x","data":[{"schema":"iglu:com.acme/static_context/jsonschema/1-0-0","data":{"env":"prod"}}]}`

	p := minimalPayload()
	p.Cx = base64.StdEncoding.EncodeToString([]byte(blob))
	r := engine.Normalize(p, nil)

	if r.Extra.GetString("env") != "prod" {
		t.Fatalf("Extra = %v", r.Extra.ToMap())
	}
}

func TestNormalizeUnstructuredEvent(t *testing.T) {
	engine := NewEngine(testSchemas())

	t.Run("event keyed by schema name", func(t *testing.T) {
		p := minimalPayload()
		p.E = "ue"
		p.UePr = `{"schema":"iglu:com.snowplowanalytics.snowplow/unstruct_event/jsonschema/1-0-0","data":{
			"schema":"iglu:com.acme/add_to_cart/jsonschema/1-0-0","data":{"sku":"ABC","qty":2}
		}}`
		r := engine.Normalize(p, nil)

		entry, ok := r.Unstructured.Get("add_to_cart")
		if !ok {
			t.Fatalf("Unstructured = %v", r.Unstructured.ToMap())
		}
		obj := entry.(*jsonobj.Object)
		if obj.GetString("sku") != "ABC" {
			t.Fatal("event data lost")
		}
	})

	t.Run("structured alias unpacks", func(t *testing.T) {
		p := minimalPayload()
		p.E = "ue"
		p.UePr = `{"schema":"iglu:com.snowplowanalytics.snowplow/unstruct_event/jsonschema/1-0-0","data":{
			"schema":"iglu:dev.snowplow.simple/u2s_data/jsonschema/1-0-0","data":{
				"se_ac":"click","se_ca":"nav","se_la":"header","se_va":"1.5"
			}
		}}`
		r := engine.Normalize(p, nil)

		if r.EventType != "se" {
			t.Fatalf("EventType = %q, want se", r.EventType)
		}
		if r.SeAction != "click" || r.SeCategory != "nav" || r.SeLabel != "header" {
			t.Fatalf("se fields = %q %q %q", r.SeAction, r.SeCategory, r.SeLabel)
		}
		if r.SeValueRaw != "1.5" {
			t.Fatalf("SeValueRaw = %q", r.SeValueRaw)
		}
	})

	t.Run("malformed blob skipped", func(t *testing.T) {
		p := minimalPayload()
		p.UePr = `{not json`
		r := engine.Normalize(p, nil)
		if r.Unstructured.Len() != 0 {
			t.Fatal("malformed blob produced data")
		}
	})
}
