// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package clickhouse

import "fmt"

// ErrorKind tags a failed store operation by category so callers can map
// failures to transport responses without string matching.
type ErrorKind string

const (
	// KindConnect tags failures establishing or checking a connection.
	KindConnect ErrorKind = "connect"
	// KindCommand tags failures of DDL and other resultless statements.
	KindCommand ErrorKind = "command"
	// KindQuery tags failures of result-bearing queries.
	KindQuery ErrorKind = "query"
	// KindInsert tags failures of batch inserts.
	KindInsert ErrorKind = "insert"
)

// OpError is the error type returned by every Connector operation. Attempts
// counts executions including the final failing one.
type OpError struct {
	Kind     ErrorKind
	Op       string
	Attempts int
	Err      error
}

func (e *OpError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("clickhouse %s: %s after %d attempts: %v", e.Kind, e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("clickhouse %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
