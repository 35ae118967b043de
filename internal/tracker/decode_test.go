// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package tracker

import (
	"encoding/base64"
	"testing"
)

func TestDecodeBase64(t *testing.T) {
	t.Run("standard alphabet", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte(`{"a":1}`))
		got, err := decodeBase64(encoded)
		if err != nil {
			t.Fatal(err)
		}
		if got != `{"a":1}` {
			t.Fatalf("decoded = %q", got)
		}
	})

	t.Run("url-safe alphabet", func(t *testing.T) {
		// Input containing bytes that encode to - and _ in the URL alphabet.
		raw := "\xfb\xff\xbf"
		encoded := base64.URLEncoding.EncodeToString([]byte(raw))
		got, err := decodeBase64(encoded)
		if err != nil {
			t.Fatal(err)
		}
		if got != raw {
			t.Fatalf("decoded = %q, want %q", got, raw)
		}
	})

	t.Run("missing padding restored", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("ab"))
		trimmed := encoded[:len(encoded)-1]
		got, err := decodeBase64(trimmed)
		if err != nil {
			t.Fatal(err)
		}
		if got != "ab" {
			t.Fatalf("decoded = %q", got)
		}
	})

	t.Run("garbage errors", func(t *testing.T) {
		if _, err := decodeBase64("!!not base64!!"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestParseCookies(t *testing.T) {
	t.Run("full six-segment cookie", func(t *testing.T) {
		header := "_sp_id.1fff=de7c9d52-9cfd-4fe6-99a4-285c8a4c7a8e.1589657411.29.1595361809.1594578926.cb345fe7-0275-45e6-9a5a-46632b3e2bc5"
		cookie := ParseCookies(header)
		if cookie == nil {
			t.Fatal("cookie not found")
		}
		if cookie.DeviceID != "de7c9d52-9cfd-4fe6-99a4-285c8a4c7a8e" {
			t.Fatalf("DeviceID = %q", cookie.DeviceID)
		}
		if cookie.VisitCount != "29" {
			t.Fatalf("VisitCount = %q", cookie.VisitCount)
		}
		if cookie.SessionID != "cb345fe7-0275-45e6-9a5a-46632b3e2bc5" {
			t.Fatalf("SessionID = %q", cookie.SessionID)
		}
	})

	t.Run("two-segment cookie yields nothing", func(t *testing.T) {
		header := "_sp_id.1fff=de7c9d52-9cfd-4fe6-99a4-285c8a4c7a8e.1589657411"
		if cookie := ParseCookies(header); cookie != nil {
			t.Fatalf("partial cookie parsed: %+v", cookie)
		}
	})

	t.Run("other cookies ignored", func(t *testing.T) {
		if cookie := ParseCookies("session=abc; theme=dark"); cookie != nil {
			t.Fatalf("unexpected cookie: %+v", cookie)
		}
	})

	t.Run("empty header", func(t *testing.T) {
		if cookie := ParseCookies(""); cookie != nil {
			t.Fatal("expected nil for empty header")
		}
	})

	t.Run("found among other cookies", func(t *testing.T) {
		header := "theme=dark; _sp_id.1fff=a.b.c.d.e.f; other=1"
		cookie := ParseCookies(header)
		if cookie == nil {
			t.Fatal("cookie not found")
		}
		if cookie.DeviceID != "a" || cookie.SessionID != "f" {
			t.Fatalf("cookie = %+v", cookie)
		}
	})
}
