// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package api

import (
	"net"
	"net/http"
	"strings"

	ua "github.com/mileusna/useragent"

	"github.com/snowpack-analytics/snowpack/internal/tracker"
)

// clientInfo derives the user-agent and network facts the normalization
// engine consumes from the incoming request.
func clientInfo(r *http.Request) *tracker.ClientInfo {
	agentString := r.UserAgent()
	agent := ua.Parse(agentString)

	return &tracker.ClientInfo{
		UserAgent:      agentString,
		IP:             clientIP(r),
		BrowserFamily:  agent.Name,
		BrowserVersion: agent.Version,
		OSFamily:       agent.OS,
		OSVersion:      agent.OSVersion,
		DeviceModel:    agent.Device,
		IsMobile:       agent.Mobile,
		IsTablet:       agent.Tablet,
		IsTouchCapable: agent.Mobile || agent.Tablet,
		IsPC:           agent.Desktop,
		IsBot:          agent.Bot,
	}
}

// clientIP extracts the peer address. RealIP middleware has already folded
// X-Forwarded-For into RemoteAddr; only IPv4 survives into the store's
// IPv4 column, anything else degrades to the zero address.
func clientIP(r *http.Request) net.IP {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(strings.TrimSpace(host))
	if ip == nil {
		return tracker.ZeroIP
	}
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return tracker.ZeroIP
}
