// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package clickhouse

import (
	"strings"
	"testing"

	"github.com/snowpack-analytics/snowpack/internal/config"
)

func TestLocalTableDDL(t *testing.T) {
	table := config.TableConfig{
		Name:        "snowplow.local",
		Engine:      "MergeTree()",
		PartitionBy: "(toYYYYMM(time), event_type)",
		OrderBy:     "time, app_id",
		SampleBy:    "cityHash64(device_id)",
		Settings:    "index_granularity = 8192",
	}

	got := localTableDDL("snowplow.local", "", table, testColumns)

	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS snowplow.local\n(",
		"`app_id` LowCardinality(String)",
		"`tracker` Tuple(version LowCardinality(String), namespace LowCardinality(String))",
		"`app` LowCardinality(String) MATERIALIZED app_id",
		"ENGINE = MergeTree()",
		"PARTITION BY (toYYYYMM(time), event_type)",
		"ORDER BY (time, app_id)",
		"SAMPLE BY cityHash64(device_id)",
		"SETTINGS index_granularity = 8192",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("DDL missing %q:\n%s", want, got)
		}
	}

	t.Run("on cluster", func(t *testing.T) {
		got := localTableDDL("snowplow.local", "main", table, testColumns)
		if !strings.Contains(got, "CREATE TABLE IF NOT EXISTS snowplow.local ON CLUSTER main") {
			t.Fatalf("DDL missing cluster clause:\n%s", got)
		}
	})

	t.Run("empty clauses omitted", func(t *testing.T) {
		got := localTableDDL("snowplow.local", "", config.TableConfig{Name: "snowplow.local"}, testColumns)
		for _, absent := range []string{"ENGINE", "PARTITION BY", "ORDER BY", "SAMPLE BY", "SETTINGS"} {
			if strings.Contains(got, absent) {
				t.Errorf("DDL contains %q for empty clause:\n%s", absent, got)
			}
		}
	})
}

func TestDatabaseDDL(t *testing.T) {
	if got := databaseDDL("snowplow", ""); got != "CREATE DATABASE IF NOT EXISTS snowplow" {
		t.Fatalf("DDL = %q", got)
	}
	if got := databaseDDL("snowplow", "main"); got != "CREATE DATABASE IF NOT EXISTS snowplow ON CLUSTER main" {
		t.Fatalf("DDL = %q", got)
	}
}

func TestDistributedTableDDL(t *testing.T) {
	got := distributedTableDDL("snowplow.clickstream", "main", "snowplow.local", "cityHash64(device_id)")

	want := "CREATE TABLE IF NOT EXISTS snowplow.clickstream ON CLUSTER main AS snowplow.local\n" +
		"ENGINE = Distributed('main', 'snowplow', 'local', cityHash64(device_id))"
	if got != want {
		t.Fatalf("DDL = %q, want %q", got, want)
	}
}
