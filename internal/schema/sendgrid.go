// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package schema

// GroupSendgrid is the table group for Sendgrid webhook events.
const GroupSendgrid = "sendgrid"

// SendgridColumns maps Sendgrid event webhook payload keys to columns.
var SendgridColumns = []Column{
	{Name: "email", Field: "email", Type: Str()},
	{Name: "time", Field: "timestamp", Type: Scalar{Base: "DateTime('UTC')"}},
	{Name: "smtp_id", Field: "smtp_id", Type: Str()},
	{Name: "event", Field: "event", Type: LCStr()},
	{Name: "category", Field: "category", Type: Scalar{Base: "Array(String)"}},
	{Name: "sg_event_id", Field: "sg_event_id", Type: Str()},
	{Name: "sg_message_id", Field: "sg_message_id", Type: Str()},
	{Name: "response", Field: "response", Type: LCStr(), Default: DefaultEmpty()},
	{Name: "attempt", Field: "attempt", Type: Scalar{Base: "UInt16"}, Default: DefaultZero()},
	{Name: "user_agent", Field: "useragent", Type: Str(), Default: DefaultEmpty()},
	{Name: "ip", Field: "ip", Type: IPv4()},
	{Name: "url", Field: "url", Type: Str(), Default: DefaultEmpty()},
	{Name: "reason", Field: "reason", Type: LCStr(), Default: DefaultEmpty()},
	{Name: "status", Field: "status", Type: LCStr(), Default: DefaultEmpty()},
	{Name: "asm_group_id", Field: "asm_group_id", Type: Scalar{Base: "UInt32"}, Default: DefaultZero()},
}

//nolint:gochecknoinits // single registration site for the table group
func init() {
	Register(GroupSendgrid, SendgridColumns)
}
