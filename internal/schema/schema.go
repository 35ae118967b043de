// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

// Package schema holds the declarative column model for every destination
// table. Each table group ("snowplow", "sendgrid") maps an ordered list of
// column definitions to record field names; the ClickHouse layer renders DDL
// from the same definitions it uses to bind insert values, so the two can
// never drift apart.
package schema

import (
	"fmt"
	"strings"
)

// DefaultKind selects the clause rendered after a column type.
type DefaultKind string

const (
	// Default renders a DEFAULT clause.
	Default DefaultKind = "DEFAULT"
	// Materialized renders a MATERIALIZED clause; such columns are computed
	// by the store and never bound on insert.
	Materialized DefaultKind = "MATERIALIZED"
)

// DefaultClause is an optional DEFAULT or MATERIALIZED expression.
type DefaultClause struct {
	Kind DefaultKind
	Expr string
}

// EnumValue maps an enum member name to its stored discriminant.
type EnumValue struct {
	Name  string
	Value int8
}

// Scalar describes one ClickHouse scalar type.
type Scalar struct {
	// Base is the bare type expression, e.g. "String", "UInt64",
	// "DateTime64(3, 'UTC')", "IPv4", "JSON", "Array(String)".
	// Empty when Enum is set.
	Base string

	// Enum renders Enum8('a' = 1, ...) instead of Base.
	Enum []EnumValue

	// Nullable wraps the type in Nullable(...).
	Nullable bool

	// LowCardinality wraps the (possibly Nullable) type in
	// LowCardinality(...), a dictionary-encoding hint for repetitive values.
	LowCardinality bool
}

// DDL renders the scalar type expression.
func (s Scalar) DDL() string {
	expr := s.Base
	if len(s.Enum) > 0 {
		members := make([]string, len(s.Enum))
		for i, e := range s.Enum {
			members[i] = fmt.Sprintf("'%s' = %d", e.Name, e.Value)
		}
		expr = "Enum8(" + strings.Join(members, ", ") + ")"
	}
	if s.Nullable {
		expr = "Nullable(" + expr + ")"
	}
	if s.LowCardinality {
		expr = "LowCardinality(" + expr + ")"
	}
	return expr
}

// TupleElem is one named element of a composite column.
type TupleElem struct {
	Name string
	Type Scalar
}

// Tuple describes a composite (named tuple) column type. Elements are
// ordered and map 1:1 onto the column's ordered source fields.
type Tuple struct {
	Elems []TupleElem
}

// DDL renders Tuple(name Type, ...).
func (t Tuple) DDL() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.Name + " " + e.Type.DDL()
	}
	return "Tuple(" + strings.Join(parts, ", ") + ")"
}

// Type is a column storage type descriptor: Scalar or Tuple.
type Type interface {
	DDL() string
}

// Column ties one destination column to its record source field(s).
//
// Exactly one of the following shapes is valid:
//   - scalar: Field set, Type is a Scalar (or a whole-object JSON column)
//   - composite: Fields set, Type is a Tuple with len(Elems) == len(Fields)
//   - computed: neither set, Default must carry a MATERIALIZED or DEFAULT
//     expression; the column is never bound on insert
type Column struct {
	Name    string
	Field   string
	Fields  []string
	Type    Type
	Default *DefaultClause
}

// Computed reports whether the column has no source field.
func (c Column) Computed() bool {
	return c.Field == "" && len(c.Fields) == 0
}

// Composite reports whether the column reads an ordered tuple of fields.
func (c Column) Composite() bool {
	return len(c.Fields) > 0
}

// DDL renders "`name` type [DEFAULT|MATERIALIZED expr]".
func (c Column) DDL() string {
	var b strings.Builder
	b.WriteByte('`')
	b.WriteString(c.Name)
	b.WriteString("` ")
	b.WriteString(c.Type.DDL())
	if c.Default != nil {
		b.WriteByte(' ')
		b.WriteString(string(c.Default.Kind))
		b.WriteByte(' ')
		b.WriteString(c.Default.Expr)
	}
	return b.String()
}

// Validate checks the scalar/composite/computed invariant.
func (c Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column without a name")
	}
	if c.Type == nil {
		return fmt.Errorf("column %q: missing type", c.Name)
	}
	if c.Field != "" && len(c.Fields) > 0 {
		return fmt.Errorf("column %q: both scalar and composite sources set", c.Name)
	}
	if c.Composite() {
		tuple, ok := c.Type.(Tuple)
		if !ok {
			return fmt.Errorf("column %q: composite sources require a Tuple type", c.Name)
		}
		if len(tuple.Elems) != len(c.Fields) {
			return fmt.Errorf("column %q: %d source fields for %d tuple elements",
				c.Name, len(c.Fields), len(tuple.Elems))
		}
		return nil
	}
	if c.Computed() && c.Default == nil {
		return fmt.Errorf("column %q: no source field and no default expression", c.Name)
	}
	return nil
}

// Validate checks every column of a table schema plus column-name uniqueness.
func Validate(columns []Column) error {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Shorthand constructors keep the table definitions readable.

// Str returns a plain String scalar.
func Str() Scalar { return Scalar{Base: "String"} }

// LCStr returns a LowCardinality(String) scalar.
func LCStr() Scalar { return Scalar{Base: "String", LowCardinality: true} }

// UUID returns a UUID scalar.
func UUID() Scalar { return Scalar{Base: "UUID"} }

// JSON returns a JSON scalar.
func JSON() Scalar { return Scalar{Base: "JSON"} }

// IPv4 returns an IPv4 scalar.
func IPv4() Scalar { return Scalar{Base: "IPv4"} }

// Bool returns a Bool scalar.
func Bool() Scalar { return Scalar{Base: "Bool"} }

// DateTime64 returns a millisecond-precision UTC DateTime64 scalar.
func DateTime64() Scalar { return Scalar{Base: "DateTime64(3, 'UTC')"} }

// DefaultEmpty returns a DEFAULT '' clause.
func DefaultEmpty() *DefaultClause {
	return &DefaultClause{Kind: Default, Expr: "''"}
}

// DefaultZero returns a DEFAULT 0 clause.
func DefaultZero() *DefaultClause {
	return &DefaultClause{Kind: Default, Expr: "0"}
}
