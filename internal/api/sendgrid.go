// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package api

import (
	"net"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// sendgridEvent is one entry of the Sendgrid event webhook body. Sendgrid
// is loose with its field types (attempt is a numeric string, category is
// a string or an array), so the flexible fields decode into raw messages
// and are coerced on read.
type sendgridEvent struct {
	Email       string          `json:"email"`
	Timestamp   int64           `json:"timestamp"`
	SMTPID      string          `json:"smtp-id"`
	Event       string          `json:"event"`
	Category    json.RawMessage `json:"category"`
	SgEventID   string          `json:"sg_event_id"`
	SgMessageID string          `json:"sg_message_id"`
	Response    string          `json:"response"`
	Attempt     string          `json:"attempt"`
	UserAgent   string          `json:"useragent"`
	IP          string          `json:"ip"`
	URL         string          `json:"url"`
	Reason      string          `json:"reason"`
	Status      string          `json:"status"`
	ASMGroupID  uint32          `json:"asm_group_id"`
}

// Field implements clickhouse.Row over the webhook payload keys.
func (e *sendgridEvent) Field(name string) (any, bool) {
	switch name {
	case "email":
		return e.Email, true
	case "timestamp":
		return time.Unix(e.Timestamp, 0).UTC(), true
	case "smtp_id":
		return e.SMTPID, true
	case "event":
		return e.Event, true
	case "category":
		return e.categories(), true
	case "sg_event_id":
		return e.SgEventID, true
	case "sg_message_id":
		return e.SgMessageID, true
	case "response":
		return e.Response, true
	case "attempt":
		n, _ := strconv.ParseUint(e.Attempt, 10, 16)
		return uint16(n), true
	case "useragent":
		return e.UserAgent, true
	case "ip":
		if ip := net.ParseIP(e.IP); ip != nil {
			if v4 := ip.To4(); v4 != nil {
				return v4, true
			}
		}
		return net.IPv4(0, 0, 0, 0), true
	case "url":
		return e.URL, true
	case "reason":
		return e.Reason, true
	case "status":
		return e.Status, true
	case "asm_group_id":
		return e.ASMGroupID, true
	}
	return nil, false
}

// categories normalizes the category field to a string slice.
func (e *sendgridEvent) categories() []string {
	if len(e.Category) == 0 {
		return []string{}
	}
	var many []string
	if err := json.Unmarshal(e.Category, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(e.Category, &one); err == nil {
		return []string{one}
	}
	return []string{}
}
