// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package schema

// GroupSnowplow is the table group for tracker clickstream events.
const GroupSnowplow = "snowplow"

// PlatformValues is the protocol platform enum ("p" field).
var PlatformValues = []EnumValue{
	{Name: "web", Value: 1},
	{Name: "mob", Value: 2},
	{Name: "pc", Value: 3},
	{Name: "srv", Value: 4},
	{Name: "app", Value: 5},
	{Name: "tv", Value: 6},
	{Name: "cnsl", Value: 7},
	{Name: "iot", Value: 8},
}

// EventTypeValues is the protocol event type enum ("e" field).
var EventTypeValues = []EnumValue{
	{Name: "pv", Value: 1},
	{Name: "pp", Value: 2},
	{Name: "ue", Value: 3},
	{Name: "se", Value: 4},
	{Name: "tr", Value: 5},
	{Name: "ti", Value: 6},
	{Name: "s", Value: 7},
}

// SnowplowColumns is the clickstream table schema. Order is the physical
// column order; source field names match tracker.EventRecord field keys.
var SnowplowColumns = []Column{
	{Name: "app_id", Field: "aid", Type: LCStr()},
	{Name: "platform", Field: "p", Type: Scalar{Enum: PlatformValues}},
	{
		Name:   "app_info",
		Fields: []string{"app_version", "app_build"},
		Type: Tuple{Elems: []TupleElem{
			{Name: "version", Type: LCStr()},
			{Name: "build", Type: LCStr()},
		}},
	},
	{Name: "page", Field: "url", Type: Str(), Default: DefaultEmpty()},
	{Name: "referer", Field: "refr", Type: Str(), Default: DefaultEmpty()},
	{Name: "event_type", Field: "e", Type: Scalar{Enum: EventTypeValues}},
	{Name: "event_id", Field: "eid", Type: UUID()},
	{Name: "view_id", Field: "view_id", Type: UUID()},
	{Name: "session_id", Field: "sid", Type: UUID()},
	{Name: "visit_count", Field: "vid", Type: Scalar{Base: "UInt64"}},
	{
		Name: "session",
		Fields: []string{
			"event_index", "previous_session_id", "first_event_id",
			"first_event_time", "storage_mechanism", "session_unstructured",
		},
		Type: Tuple{Elems: []TupleElem{
			{Name: "event_index", Type: Scalar{Base: "UInt64"}},
			{Name: "previous_session_id", Type: Scalar{Base: "UUID", Nullable: true}},
			{Name: "first_event_id", Type: Scalar{Base: "UUID", Nullable: true}},
			{Name: "first_event_time", Type: Scalar{Base: "DateTime64(3, 'UTC')", Nullable: true}},
			{Name: "storage_mechanism", Type: LCStr()},
			{Name: "unstructured", Type: JSON()},
		}},
	},
	{Name: "amp", Field: "amp", Type: JSON()},
	{Name: "device_id", Field: "duid", Type: UUID()},
	{Name: "user_id", Field: "uid", Type: Str(), Default: DefaultEmpty()},
	{Name: "time", Field: "dtm", Type: DateTime64()},
	{
		Name:   "time_extra",
		Fields: []string{"rtm", "stm"},
		Type: Tuple{Elems: []TupleElem{
			{Name: "received", Type: DateTime64()},
			{Name: "sent", Type: DateTime64()},
		}},
	},
	{Name: "timezone", Field: "tz", Type: LCStr(), Default: DefaultEmpty()},
	{Name: "title", Field: "page", Type: Str(), Default: DefaultEmpty()},
	{Name: "screen", Field: "screen", Type: JSON()},
	{Name: "page_data", Field: "page_data", Type: JSON()},
	{Name: "user_data", Field: "user_data", Type: JSON()},
	{Name: "user_ip", Field: "user_ip", Type: IPv4()},
	{Name: "geolocation", Field: "geolocation", Type: JSON()},
	{Name: "user_agent", Field: "user_agent", Type: Str(), Default: DefaultEmpty()},
	{
		Name:   "browser",
		Fields: []string{"browser_family", "browser_version_string", "browser_extra"},
		Type: Tuple{Elems: []TupleElem{
			{Name: "family", Type: LCStr()},
			{Name: "version", Type: Str()},
			{Name: "extra", Type: JSON()},
		}},
	},
	{
		Name:   "os",
		Fields: []string{"os_family", "os_version_string", "lang"},
		Type: Tuple{Elems: []TupleElem{
			{Name: "family", Type: LCStr()},
			{Name: "version", Type: LCStr()},
			{Name: "language", Type: LCStr()},
		}},
	},
	{
		Name:   "device",
		Fields: []string{"device_brand", "device_model", "device_extra"},
		Type: Tuple{Elems: []TupleElem{
			{Name: "brand", Type: LCStr()},
			{Name: "model", Type: LCStr()},
			{Name: "extra", Type: JSON()},
		}},
	},
	{
		Name: "device_is",
		Fields: []string{
			"device_is_mobile", "device_is_tablet", "device_is_touch_capable",
			"device_is_pc", "device_is_bot",
		},
		Type: Tuple{Elems: []TupleElem{
			{Name: "mobile", Type: Bool()},
			{Name: "tablet", Type: Bool()},
			{Name: "touch", Type: Bool()},
			{Name: "pc", Type: Bool()},
			{Name: "bot", Type: Bool()},
		}},
	},
	{
		Name:   "resolution",
		Fields: []string{"res", "vp", "ds"},
		Type: Tuple{Elems: []TupleElem{
			{Name: "browser", Type: Str()},
			{Name: "viewport", Type: Str()},
			{Name: "page", Type: Str()},
		}},
	},
	{
		Name:   "event",
		Fields: []string{"se_ac", "se_ca", "se_la", "se_pr", "se_va", "ue"},
		Type: Tuple{Elems: []TupleElem{
			{Name: "action", Type: LCStr()},
			{Name: "category", Type: LCStr()},
			{Name: "label", Type: Str()},
			{Name: "property", Type: JSON()},
			{Name: "value", Type: Scalar{Base: "Float32"}},
			{Name: "unstructured", Type: JSON()},
		}},
	},
	{Name: "extra", Field: "extra", Type: JSON()},
	{
		Name:   "tracker",
		Fields: []string{"tv", "tna"},
		Type: Tuple{Elems: []TupleElem{
			{Name: "version", Type: LCStr()},
			{Name: "namespace", Type: LCStr()},
		}},
	},
	{
		Name: "app",
		Type: LCStr(),
		Default: &DefaultClause{
			Kind: Materialized,
			Expr: "if(platform = 'mob', tracker.2, app_id)",
		},
	},
}

//nolint:gochecknoinits // single registration site for the table group
func init() {
	Register(GroupSnowplow, SnowplowColumns)
}
