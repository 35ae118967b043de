// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

// Package tracker implements the event normalization engine for the
// Snowplow tracker protocol: payload parsing, context schema dispatch and
// the post-dispatch reconciliation pass. The package is pure and stateless
// across calls; one EventRecord is built per payload element and handed to
// the storage layer exactly once.
package tracker

import (
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/snowpack-analytics/snowpack/internal/jsonobj"
)

// Sentinels for absent values. Every field referenced by a column
// definition is present on a fresh record, so the storage layer never
// needs existence checks or defaulting of its own.
var (
	// ZeroUUID marks an unset identifier.
	ZeroUUID = uuid.UUID{}

	// ZeroTime marks an unset timestamp (Unix epoch).
	ZeroTime = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

	// ZeroIP marks an unset client address.
	ZeroIP = net.IPv4(0, 0, 0, 0)
)

// EventRecord is the canonical in-memory representation of one normalized
// tracking event. Field comments name the protocol source where it is not
// obvious from the name.
type EventRecord struct {
	// Identity and protocol basics
	AppID     string    // aid
	Platform  string    // p
	EventType string    // e
	EventID   uuid.UUID // eid
	DeviceID  uuid.UUID // duid
	UserID    string    // uid
	SessionID uuid.UUID // sid
	ViewID    uuid.UUID
	VisitCount uint64 // vid

	// Page
	PageURL string // url
	Referer string // refr
	Title   string // page

	// Timestamps
	DeviceTime   time.Time // dtm
	SentTime     time.Time // stm
	ReceivedTime time.Time // rtm
	Timezone     string    // tz

	// Tracker
	TrackerVersion   string // tv
	TrackerNamespace string // tna

	// Application
	AppVersion string
	AppBuild   string

	// Session composite
	EventIndex        uint64
	PreviousSessionID uuid.UUID
	FirstEventID      uuid.UUID
	FirstEventTime    time.Time
	StorageMechanism  string
	SessionExtra      *jsonobj.Object

	// Client environment (handed pre-parsed by the transport collaborator)
	UserIP              net.IP
	UserAgent           string
	BrowserFamily       string
	BrowserVersion      string
	BrowserExtra        *jsonobj.Object
	OSFamily            string
	OSVersion           string
	Language            string // lang
	DeviceBrand         string
	DeviceModel         string
	DeviceExtra         *jsonobj.Object
	DeviceIsMobile      bool
	DeviceIsTablet      bool
	DeviceIsTouchCapable bool
	DeviceIsPC          bool
	DeviceIsBot         bool

	// Dimensions
	Resolution   string // res
	Viewport     string // vp
	DocumentSize string // ds

	// Structured event
	SeAction   string // se_ac
	SeCategory string // se_ca
	SeLabel    string // se_la
	SeProperty *jsonobj.Object
	SeValue    float32

	// Free-form regions
	Unstructured *jsonobj.Object // ue
	Extra        *jsonobj.Object
	AMP          *jsonobj.Object
	Screen       *jsonobj.Object
	PageData     *jsonobj.Object
	UserData     *jsonobj.Object
	Geolocation  *jsonobj.Object

	// Raw carriers consumed by the reconciliation pass
	SePropertyRaw string // se_pr before coercion
	SeValueRaw    string // se_va before coercion
	PpMinX        int64  // pp_mix
	PpMaxX        int64  // pp_max
	PpMinY        int64  // pp_miy
	PpMaxY        int64  // pp_may

	// ueContext collects contexts that describe unstructured events; it is
	// folded into Unstructured at the end of normalization.
	ueContext *jsonobj.Object
}

// NewEventRecord returns a record with every field set to its empty
// sentinel and every free-form region allocated.
func NewEventRecord() *EventRecord {
	return &EventRecord{
		EventID:           ZeroUUID,
		DeviceID:          ZeroUUID,
		SessionID:         ZeroUUID,
		ViewID:            ZeroUUID,
		PreviousSessionID: ZeroUUID,
		FirstEventID:      ZeroUUID,
		DeviceTime:        ZeroTime,
		SentTime:          ZeroTime,
		ReceivedTime:      ZeroTime,
		FirstEventTime:    ZeroTime,
		UserIP:            ZeroIP,
		SessionExtra:      jsonobj.New(),
		BrowserExtra:      jsonobj.New(),
		DeviceExtra:       jsonobj.New(),
		SeProperty:        jsonobj.New(),
		Unstructured:      jsonobj.New(),
		Extra:             jsonobj.New(),
		AMP:               jsonobj.New(),
		Screen:            jsonobj.New(),
		PageData:          jsonobj.New(),
		UserData:          jsonobj.New(),
		Geolocation:       jsonobj.New(),
		ueContext:         jsonobj.New(),
	}
}

// Field returns the value for a column source field name. The second result
// is false for names no column definition should reference. UUIDs are
// returned as strings and JSON regions as *jsonobj.Object; the storage
// layer serializes both.
//
//nolint:gocyclo // flat name switch, one case per schema source field
func (r *EventRecord) Field(name string) (any, bool) {
	switch name {
	case "aid":
		return r.AppID, true
	case "p":
		return r.Platform, true
	case "e":
		return r.EventType, true
	case "eid":
		return r.EventID.String(), true
	case "duid":
		return r.DeviceID.String(), true
	case "uid":
		return r.UserID, true
	case "sid":
		return r.SessionID.String(), true
	case "view_id":
		return r.ViewID.String(), true
	case "vid":
		return r.VisitCount, true
	case "url":
		return r.PageURL, true
	case "refr":
		return r.Referer, true
	case "page":
		return r.Title, true
	case "dtm":
		return r.DeviceTime, true
	case "stm":
		return r.SentTime, true
	case "rtm":
		return r.ReceivedTime, true
	case "tz":
		return r.Timezone, true
	case "tv":
		return r.TrackerVersion, true
	case "tna":
		return r.TrackerNamespace, true
	case "app_version":
		return r.AppVersion, true
	case "app_build":
		return r.AppBuild, true
	case "event_index":
		return r.EventIndex, true
	case "previous_session_id":
		// Nullable column: absent ids surface as NULL, not the zero UUID.
		if r.PreviousSessionID == ZeroUUID {
			return nil, true
		}
		return r.PreviousSessionID.String(), true
	case "first_event_id":
		if r.FirstEventID == ZeroUUID {
			return nil, true
		}
		return r.FirstEventID.String(), true
	case "first_event_time":
		if r.FirstEventTime.Equal(ZeroTime) {
			return nil, true
		}
		return r.FirstEventTime, true
	case "storage_mechanism":
		return r.StorageMechanism, true
	case "session_unstructured":
		return r.SessionExtra, true
	case "user_ip":
		return r.UserIP, true
	case "user_agent":
		return r.UserAgent, true
	case "browser_family":
		return r.BrowserFamily, true
	case "browser_version_string":
		return r.BrowserVersion, true
	case "browser_extra":
		return r.BrowserExtra, true
	case "os_family":
		return r.OSFamily, true
	case "os_version_string":
		return r.OSVersion, true
	case "lang":
		return r.Language, true
	case "device_brand":
		return r.DeviceBrand, true
	case "device_model":
		return r.DeviceModel, true
	case "device_extra":
		return r.DeviceExtra, true
	case "device_is_mobile":
		return r.DeviceIsMobile, true
	case "device_is_tablet":
		return r.DeviceIsTablet, true
	case "device_is_touch_capable":
		return r.DeviceIsTouchCapable, true
	case "device_is_pc":
		return r.DeviceIsPC, true
	case "device_is_bot":
		return r.DeviceIsBot, true
	case "res":
		return r.Resolution, true
	case "vp":
		return r.Viewport, true
	case "ds":
		return r.DocumentSize, true
	case "se_ac":
		return r.SeAction, true
	case "se_ca":
		return r.SeCategory, true
	case "se_la":
		return r.SeLabel, true
	case "se_pr":
		return r.SeProperty, true
	case "se_va":
		return r.SeValue, true
	case "ue":
		return r.Unstructured, true
	case "extra":
		return r.Extra, true
	case "amp":
		return r.AMP, true
	case "screen":
		return r.Screen, true
	case "page_data":
		return r.PageData, true
	case "user_data":
		return r.UserData, true
	case "geolocation":
		return r.Geolocation, true
	}
	return nil, false
}
