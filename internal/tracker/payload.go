// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package tracker

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Payload is one validated element of the Snowplow tracker protocol, either
// the query of a GET pixel request or one entry of a POST batch. All values
// arrive as strings per the protocol; numeric and timestamp fields are
// parsed while seeding the EventRecord.
//
// Field names follow the protocol short names so that the mapping to the
// wire format stays 1:1.
type Payload struct {
	E   string `json:"e" validate:"required,oneof=pv pp ue se tr ti s"`
	Aid string `json:"aid" validate:"required"`
	P   string `json:"p" validate:"required,oneof=web mob pc srv app tv cnsl iot"`
	Tv  string `json:"tv" validate:"required"`
	Tna string `json:"tna"`

	Eid  string `json:"eid" validate:"omitempty,uuid"`
	Duid string `json:"duid"`
	Uid  string `json:"uid"`
	Sid  string `json:"sid" validate:"omitempty,uuid"`
	Vid  string `json:"vid"`

	Dtm string `json:"dtm"`
	Stm string `json:"stm"`
	Rtm string `json:"rtm"`

	URL  string `json:"url"`
	Refr string `json:"refr"`
	Page string `json:"page"`

	Tz   string `json:"tz"`
	Lang string `json:"lang"`
	Cs   string `json:"cs"`
	Res  string `json:"res"`
	Vp   string `json:"vp"`
	Ds   string `json:"ds"`
	Cd   string `json:"cd"`

	// Structured event fields
	SeAc string `json:"se_ac"`
	SeCa string `json:"se_ca"`
	SeLa string `json:"se_la"`
	SePr string `json:"se_pr"`
	SeVa string `json:"se_va"`

	// Page ping offsets
	PpMix string `json:"pp_mix"`
	PpMax string `json:"pp_max"`
	PpMiy string `json:"pp_miy"`
	PpMay string `json:"pp_may"`

	// Context blob: plain JSON (co) or base64 (cx)
	Co string `json:"co"`
	Cx string `json:"cx"`

	// Unstructured event blob: plain JSON (ue_pr) or base64 (ue_px)
	UePr string `json:"ue_pr"`
	UePx string `json:"ue_px"`
}

// PayloadFromValues builds a Payload from GET pixel query parameters.
func PayloadFromValues(values url.Values) *Payload {
	get := values.Get
	return &Payload{
		E: get("e"), Aid: get("aid"), P: get("p"), Tv: get("tv"), Tna: get("tna"),
		Eid: get("eid"), Duid: get("duid"), Uid: get("uid"), Sid: get("sid"), Vid: get("vid"),
		Dtm: get("dtm"), Stm: get("stm"), Rtm: get("rtm"),
		URL: get("url"), Refr: get("refr"), Page: get("page"),
		Tz: get("tz"), Lang: get("lang"), Cs: get("cs"),
		Res: get("res"), Vp: get("vp"), Ds: get("ds"), Cd: get("cd"),
		SeAc: get("se_ac"), SeCa: get("se_ca"), SeLa: get("se_la"),
		SePr: get("se_pr"), SeVa: get("se_va"),
		PpMix: get("pp_mix"), PpMax: get("pp_max"),
		PpMiy: get("pp_miy"), PpMay: get("pp_may"),
		Co: get("co"), Cx: get("cx"),
		UePr: get("ue_pr"), UePx: get("ue_px"),
	}
}

// ClientInfo carries the already-parsed user-agent and network primitives
// the transport collaborator hands to the engine. Parsing user agents and
// addresses is outside the engine's scope.
type ClientInfo struct {
	UserAgent      string
	IP             net.IP
	BrowserFamily  string
	BrowserVersion string
	OSFamily       string
	OSVersion      string
	DeviceBrand    string
	DeviceModel    string
	IsMobile       bool
	IsTablet       bool
	IsTouchCapable bool
	IsPC           bool
	IsBot          bool
}

// parseEpochMillis converts a millisecond epoch protocol timestamp.
// Unparseable or empty values fall back to the supplied default.
func parseEpochMillis(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return time.UnixMilli(ms).UTC()
}

// parseInt converts a protocol integer field, defaulting to 0.
func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseUint converts a protocol unsigned field, defaulting to 0.
func parseUint(s string) uint64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
