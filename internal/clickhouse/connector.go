// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

// Package clickhouse implements the storage connector: pooled native-protocol
// connections, schema-driven batch inserts and DDL generation for local and
// distributed tables.
package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/snowpack-analytics/snowpack/internal/config"
	"github.com/snowpack-analytics/snowpack/internal/jsonobj"
	"github.com/snowpack-analytics/snowpack/internal/logging"
	"github.com/snowpack-analytics/snowpack/internal/schema"
)

// Row supplies values for schema source fields. The tracker's EventRecord
// implements it; simple map-backed rows serve the side-channel tables.
type Row interface {
	Field(name string) (any, bool)
}

// Connector owns the connection pool and executes every statement against
// the store. All operations retry with linear backoff and hold one
// connection across all attempts of a statement.
type Connector struct {
	cfg  config.ClickHouseConfig
	pool *pool
}

// New opens the default connection plus the configured pool and verifies
// connectivity with a ping.
func New(ctx context.Context, cfg config.ClickHouseConfig) (*Connector, error) {
	fallback, err := open(cfg)
	if err != nil {
		return nil, &OpError{Kind: KindConnect, Op: "open", Attempts: 1, Err: err}
	}
	if err := fallback.Ping(ctx); err != nil {
		_ = fallback.Close()
		return nil, &OpError{Kind: KindConnect, Op: "ping", Attempts: 1, Err: err}
	}

	p := newPool(fallback, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		conn, err := open(cfg)
		if err != nil {
			p.close()
			return nil, &OpError{Kind: KindConnect, Op: "open pool", Attempts: 1, Err: err}
		}
		p.add(conn)
	}

	logging.Info().
		Str("host", cfg.Host).
		Int("pool_size", cfg.PoolSize).
		Str("database", cfg.Database).
		Msg("Connected to ClickHouse")

	return &Connector{cfg: cfg, pool: p}, nil
}

func open(cfg config.ClickHouseConfig) (driver.Conn, error) {
	return ch.Open(&ch.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.ConnectTimeout,
		Settings: ch.Settings{
			"async_insert":          1,
			"wait_for_async_insert": 0,
		},
	})
}

// Ping verifies connectivity on the default connection.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.pool.fallback.Ping(ctx); err != nil {
		return &OpError{Kind: KindConnect, Op: "ping", Attempts: 1, Err: err}
	}
	return nil
}

// Close releases every connection.
func (c *Connector) Close() {
	c.pool.close()
}

// Command executes a resultless statement, retrying per the configured
// discipline.
func (c *Connector) Command(ctx context.Context, query string) error {
	return c.withRetry(ctx, KindCommand, firstLine(query), func(conn driver.Conn) error {
		return conn.Exec(ctx, query)
	})
}

// Query executes a result-bearing statement. The rows stream from the
// acquired connection; no retry applies once rows are handed out.
func (c *Connector) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	conn, release := c.pool.acquire()
	defer release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, &OpError{Kind: KindQuery, Op: firstLine(query), Attempts: 1, Err: err}
	}
	return rows, nil
}

// QueryRow executes a single-row query and scans into dest.
func (c *Connector) QueryRow(ctx context.Context, query string, dest ...any) error {
	return c.withRetry(ctx, KindQuery, firstLine(query), func(conn driver.Conn) error {
		return conn.QueryRow(ctx, query).Scan(dest...)
	})
}

// InsertRows appends every row to a batch for the group's active table and
// sends it. An empty slice is a successful no-op. Computed columns are
// never bound; composite columns bind their source fields in declaration
// order.
func (c *Connector) InsertRows(ctx context.Context, group string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	columns, err := schema.Columns(group)
	if err != nil {
		return &OpError{Kind: KindInsert, Op: "resolve schema", Attempts: 1, Err: err}
	}

	table := c.ActiveTable(group)
	stmt := insertStatement(table, columns)

	return c.withRetry(ctx, KindInsert, "insert into "+table, func(conn driver.Conn) error {
		batch, err := conn.PrepareBatch(ctx, stmt)
		if err != nil {
			return err
		}
		for _, row := range rows {
			values, err := bindRow(columns, row)
			if err != nil {
				_ = batch.Abort()
				return err
			}
			if err := batch.Append(values...); err != nil {
				_ = batch.Abort()
				return err
			}
		}
		return batch.Send()
	})
}

// withRetry acquires one connection, runs fn up to MaxRetries times and
// sleeps RetryDelay * attempt between attempts. The connection is held for
// the whole statement, failed attempts included.
func (c *Connector) withRetry(ctx context.Context, kind ErrorKind, op string, fn func(driver.Conn) error) error {
	conn, release := c.pool.acquire()
	defer release()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		lastErr = fn(conn)
		if lastErr == nil {
			return nil
		}
		if attempt == c.cfg.MaxRetries {
			break
		}
		logging.Warn().
			Err(lastErr).
			Str("op", op).
			Int("attempt", attempt).
			Msg("ClickHouse operation failed, retrying")

		select {
		case <-ctx.Done():
			return &OpError{Kind: kind, Op: op, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
		}
	}
	return &OpError{Kind: kind, Op: op, Attempts: c.cfg.MaxRetries, Err: lastErr}
}

// ActiveTable returns the fully-qualified table writes and reads should
// target: the distributed table when a cluster is configured, the local
// table otherwise.
func (c *Connector) ActiveTable(group string) string {
	tables, ok := c.cfg.Tables[group]
	if !ok {
		return ""
	}
	if c.cfg.Cluster != "" && tables.Distributed.Name != "" {
		return c.qualify(tables.Distributed.Name)
	}
	return c.qualify(tables.Local.Name)
}

// qualify prefixes a bare table name with the configured database. Names
// already containing a dot pass through unchanged.
func (c *Connector) qualify(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return c.cfg.Database + "." + name
}

// insertStatement renders the INSERT prefix with every bindable column.
func insertStatement(table string, columns []schema.Column) string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.Computed() {
			continue
		}
		names = append(names, "`"+col.Name+"`")
	}
	return "INSERT INTO " + table + " (" + strings.Join(names, ", ") + ")"
}

// bindRow resolves the append arguments for one row in column order.
func bindRow(columns []schema.Column, row Row) ([]any, error) {
	values := make([]any, 0, len(columns))
	for _, col := range columns {
		if col.Computed() {
			continue
		}
		if col.Composite() {
			tuple := make([]any, len(col.Fields))
			for i, field := range col.Fields {
				v, ok := row.Field(field)
				if !ok {
					return nil, fmt.Errorf("column %q: row has no field %q", col.Name, field)
				}
				tuple[i] = bindValue(v)
			}
			values = append(values, tuple)
			continue
		}
		v, ok := row.Field(col.Field)
		if !ok {
			return nil, fmt.Errorf("column %q: row has no field %q", col.Name, col.Field)
		}
		values = append(values, bindValue(v))
	}
	return values, nil
}

// bindValue converts record-level values into driver-bindable ones. JSON
// regions are serialized; everything else passes through.
func bindValue(v any) any {
	if obj, ok := v.(*jsonobj.Object); ok {
		return obj.String()
	}
	return v
}

// firstLine truncates a statement for error and log contexts.
func firstLine(query string) string {
	if i := strings.IndexByte(query, '\n'); i >= 0 {
		return query[:i]
	}
	return query
}
