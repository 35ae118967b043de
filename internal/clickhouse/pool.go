// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package clickhouse

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/snowpack-analytics/snowpack/internal/logging"
)

// pool hands out pre-opened connections without ever blocking a caller.
// When every pooled connection is checked out, acquisition falls back to
// the shared default connection, so bursts degrade to contention on one
// handle instead of queueing.
type pool struct {
	conns chan driver.Conn

	// fallback is the default connection, shared by all overflow callers
	// and never checked in or out.
	fallback driver.Conn
}

func newPool(fallback driver.Conn, size int) *pool {
	return &pool{
		conns:    make(chan driver.Conn, size),
		fallback: fallback,
	}
}

// add checks a connection into the pool. Called only during startup, at
// most the channel's capacity times.
func (p *pool) add(conn driver.Conn) {
	p.conns <- conn
}

// acquire returns a connection and a release function. The release function
// is a no-op for the fallback connection.
func (p *pool) acquire() (driver.Conn, func()) {
	select {
	case conn := <-p.conns:
		return conn, func() { p.conns <- conn }
	default:
		return p.fallback, func() {}
	}
}

// close drains and closes every pooled connection plus the fallback.
func (p *pool) close() {
	for {
		select {
		case conn := <-p.conns:
			if err := conn.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close pooled connection")
			}
		default:
			if err := p.fallback.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close default connection")
			}
			return
		}
	}
}
