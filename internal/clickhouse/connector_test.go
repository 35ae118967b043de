// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package clickhouse

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/snowpack-analytics/snowpack/internal/config"
	"github.com/snowpack-analytics/snowpack/internal/jsonobj"
	"github.com/snowpack-analytics/snowpack/internal/schema"
)

// mapRow backs a Row with a plain map for tests.
type mapRow map[string]any

func (m mapRow) Field(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

var testColumns = []schema.Column{
	{Name: "app_id", Field: "aid", Type: schema.LCStr()},
	{
		Name:   "tracker",
		Fields: []string{"tv", "tna"},
		Type: schema.Tuple{Elems: []schema.TupleElem{
			{Name: "version", Type: schema.LCStr()},
			{Name: "namespace", Type: schema.LCStr()},
		}},
	},
	{Name: "extra", Field: "extra", Type: schema.JSON()},
	{
		Name:    "app",
		Type:    schema.LCStr(),
		Default: &schema.DefaultClause{Kind: schema.Materialized, Expr: "app_id"},
	},
}

func TestInsertStatement(t *testing.T) {
	got := insertStatement("snowplow.local", testColumns)
	want := "INSERT INTO snowplow.local (`app_id`, `tracker`, `extra`)"
	if got != want {
		t.Fatalf("insertStatement = %q, want %q", got, want)
	}
}

func TestBindRow(t *testing.T) {
	extra := jsonobj.New()
	extra.Set("k", 1)
	row := mapRow{"aid": "site", "tv": "js-3.5.0", "tna": "sp", "extra": extra}

	values, err := bindRow(testColumns, row)
	if err != nil {
		t.Fatal(err)
	}

	want := []any{"site", []any{"js-3.5.0", "sp"}, `{"k":1}`}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("bindRow = %#v, want %#v", values, want)
	}

	t.Run("missing field errors", func(t *testing.T) {
		_, err := bindRow(testColumns, mapRow{"aid": "site"})
		if err == nil || !strings.Contains(err.Error(), "no field") {
			t.Fatalf("err = %v", err)
		}
	})
}

// An empty batch must return before any connection is touched; the nil pool
// panics if acquisition happens.
func TestInsertRowsEmpty(t *testing.T) {
	c := &Connector{cfg: config.ClickHouseConfig{Database: "snowplow"}}

	if err := c.InsertRows(context.Background(), schema.GroupSnowplow, nil); err != nil {
		t.Fatalf("InsertRows(nil) = %v", err)
	}
	if err := c.InsertRows(context.Background(), schema.GroupSnowplow, []Row{}); err != nil {
		t.Fatalf("InsertRows(empty) = %v", err)
	}
}

func TestQualify(t *testing.T) {
	c := &Connector{cfg: config.ClickHouseConfig{Database: "snowplow"}}

	if got := c.qualify("events"); got != "snowplow.events" {
		t.Fatalf("qualify = %q", got)
	}
	if got := c.qualify("other.events"); got != "other.events" {
		t.Fatalf("qualified name changed: %q", got)
	}
}

func TestActiveTable(t *testing.T) {
	tables := map[string]config.TableGroupConfig{
		"snowplow": {
			Enabled:     true,
			Local:       config.TableConfig{Name: "snowplow.local"},
			Distributed: config.TableConfig{Name: "snowplow.clickstream"},
		},
	}

	t.Run("single node serves the local table", func(t *testing.T) {
		c := &Connector{cfg: config.ClickHouseConfig{Database: "snowplow", Tables: tables}}
		if got := c.ActiveTable("snowplow"); got != "snowplow.local" {
			t.Fatalf("ActiveTable = %q", got)
		}
	})

	t.Run("cluster serves the distributed table", func(t *testing.T) {
		c := &Connector{cfg: config.ClickHouseConfig{
			Database: "snowplow", Cluster: "main", Tables: tables,
		}}
		if got := c.ActiveTable("snowplow"); got != "snowplow.clickstream" {
			t.Fatalf("ActiveTable = %q", got)
		}
	})

	t.Run("unknown group yields empty", func(t *testing.T) {
		c := &Connector{cfg: config.ClickHouseConfig{Database: "snowplow"}}
		if got := c.ActiveTable("nope"); got != "" {
			t.Fatalf("ActiveTable = %q", got)
		}
	})
}

func TestOpError(t *testing.T) {
	inner := errors.New("boom")
	err := &OpError{Kind: KindInsert, Op: "insert into snowplow.local", Attempts: 3, Err: inner}

	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Fatal("Unwrap lost the cause")
	}

	t.Run("single attempt omits the count", func(t *testing.T) {
		err := &OpError{Kind: KindCommand, Op: "create", Attempts: 1, Err: inner}
		if strings.Contains(err.Error(), "attempts") {
			t.Fatalf("Error() = %q", err.Error())
		}
	})
}
