// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/snowpack-analytics/snowpack/internal/config"
	"github.com/snowpack-analytics/snowpack/internal/logging"
	"github.com/snowpack-analytics/snowpack/internal/schema"
)

// TableManager creates databases and tables for every enabled table group
// at startup. All statements are idempotent (IF NOT EXISTS) and run on
// every node when a cluster is configured.
type TableManager struct {
	conn *Connector
}

// NewTableManager returns a manager bound to the connector.
func NewTableManager(conn *Connector) *TableManager {
	return &TableManager{conn: conn}
}

// CreateAll provisions databases and tables for every enabled group:
// the database, the local table and, when a cluster is configured, the
// distributed table in front of it.
func (m *TableManager) CreateAll(ctx context.Context) error {
	for group, tables := range m.conn.cfg.Tables {
		if !tables.Enabled {
			continue
		}

		columns, err := schema.Columns(group)
		if err != nil {
			return fmt.Errorf("table group %q: %w", group, err)
		}

		if err := m.createDatabases(ctx, tables.Local.Name, tables.Distributed.Name); err != nil {
			return err
		}
		if err := m.createLocalTable(ctx, tables.Local, columns); err != nil {
			return err
		}
		if m.conn.cfg.Cluster != "" && tables.Distributed.Name != "" {
			if err := m.createDistributedTable(ctx, tables); err != nil {
				return err
			}
		}

		logging.Info().
			Str("group", group).
			Str("table", m.conn.ActiveTable(group)).
			Msg("Table group ready")
	}
	return nil
}

// createDatabases issues CREATE DATABASE for every database referenced by
// a qualified table name.
func (m *TableManager) createDatabases(ctx context.Context, names ...string) error {
	seen := make(map[string]struct{})
	for _, name := range names {
		db, _, found := strings.Cut(m.conn.qualify(name), ".")
		if !found {
			continue
		}
		if _, dup := seen[db]; dup {
			continue
		}
		seen[db] = struct{}{}

		if err := m.conn.Command(ctx, databaseDDL(db, m.conn.cfg.Cluster)); err != nil {
			return err
		}
	}
	return nil
}

func (m *TableManager) createLocalTable(ctx context.Context, table config.TableConfig, columns []schema.Column) error {
	stmt := localTableDDL(m.conn.qualify(table.Name), m.conn.cfg.Cluster, table, columns)
	return m.conn.Command(ctx, stmt)
}

func (m *TableManager) createDistributedTable(ctx context.Context, tables config.TableGroupConfig) error {
	stmt := distributedTableDDL(
		m.conn.qualify(tables.Distributed.Name),
		m.conn.cfg.Cluster,
		m.conn.qualify(tables.Local.Name),
		tables.Distributed.ShardingKey,
	)
	return m.conn.Command(ctx, stmt)
}

func databaseDDL(db, cluster string) string {
	return "CREATE DATABASE IF NOT EXISTS " + db + onCluster(cluster)
}

// localTableDDL renders the full column DDL from the schema definitions and
// appends the externally-supplied storage clauses verbatim.
func localTableDDL(qualified, cluster string, table config.TableConfig, columns []schema.Column) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = "    " + col.DDL()
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(qualified)
	b.WriteString(onCluster(cluster))
	b.WriteString("\n(\n")
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n)")
	if table.Engine != "" {
		b.WriteString("\nENGINE = " + table.Engine)
	}
	if table.PartitionBy != "" {
		b.WriteString("\nPARTITION BY " + table.PartitionBy)
	}
	if table.OrderBy != "" {
		b.WriteString("\nORDER BY (" + table.OrderBy + ")")
	}
	if table.SampleBy != "" {
		b.WriteString("\nSAMPLE BY " + table.SampleBy)
	}
	if table.Settings != "" {
		b.WriteString("\nSETTINGS " + table.Settings)
	}
	return b.String()
}

// distributedTableDDL fronts the local table with a Distributed engine table
// sharing its structure.
func distributedTableDDL(qualified, cluster, local, shardingKey string) string {
	db, table, _ := strings.Cut(local, ".")
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s%s AS %s\nENGINE = Distributed('%s', '%s', '%s', %s)",
		qualified, onCluster(cluster), local, cluster, db, table, shardingKey,
	)
}

func onCluster(cluster string) string {
	if cluster == "" {
		return ""
	}
	return " ON CLUSTER " + cluster
}
