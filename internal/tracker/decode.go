// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package tracker

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// decodeBase64 decodes tracker base64 blobs. Trackers are sloppy about
// padding and alphabet (web trackers use the URL-safe variant, the protocol
// documents the standard one), so padding is restored and both alphabets
// are tried.
func decodeBase64(data string) (string, error) {
	data = strings.TrimSpace(data)
	if missing := len(data) % 4; missing != 0 {
		data += strings.Repeat("=", 4-missing)
	}
	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
		return string(decoded), nil
	}
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	return string(decoded), nil
}

// SPCookie is the parsed first-party "_sp_id.*" cookie.
type SPCookie struct {
	DeviceID      string
	CreatedTime   string
	VisitCount    string
	NowTime       string
	LastVisitTime string
	SessionID     string
}

// ParseCookies extracts the Snowplow id cookie from a raw Cookie header.
// The cookie value is six dot-separated segments; anything else is treated
// as absent — never a partial fill. Returns nil when no usable cookie is
// present.
func ParseCookies(cookieHeader string) *SPCookie {
	if cookieHeader == "" {
		return nil
	}
	cookies, err := http.ParseCookie(cookieHeader)
	if err != nil {
		// Headers assembled by odd clients still often contain a usable
		// _sp_id pair; fall back to manual splitting.
		cookies = looseParseCookies(cookieHeader)
	}
	for _, c := range cookies {
		if !strings.HasPrefix(c.Name, "_sp_id") {
			continue
		}
		parts := strings.Split(c.Value, ".")
		if len(parts) != 6 {
			return nil
		}
		return &SPCookie{
			DeviceID:      parts[0],
			CreatedTime:   parts[1],
			VisitCount:    parts[2],
			NowTime:       parts[3],
			LastVisitTime: parts[4],
			SessionID:     parts[5],
		}
	}
	return nil
}

// looseParseCookies splits a cookie header on semicolons without the
// validation http.ParseCookie applies.
func looseParseCookies(header string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies
}
