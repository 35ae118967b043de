// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package schema

import (
	"fmt"
	"sort"
	"sync"
)

// registry maps table group names to their column definitions. Adding a new
// destination table is a single Register call at package init.
var (
	registryMu sync.RWMutex
	registry   = make(map[string][]Column)
)

// Register adds the column definitions for a table group. It panics on a
// duplicate group or an invalid schema; both are programmer errors surfaced
// at startup, not runtime conditions.
func Register(group string, columns []Column) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[group]; dup {
		panic(fmt.Sprintf("schema: table group %q registered twice", group))
	}
	if err := Validate(columns); err != nil {
		panic(fmt.Sprintf("schema: table group %q: %v", group, err))
	}
	registry[group] = columns
}

// Columns returns the column definitions for a table group.
func Columns(group string) ([]Column, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	columns, ok := registry[group]
	if !ok {
		return nil, fmt.Errorf("schema: unknown table group %q", group)
	}
	return columns, nil
}

// Groups returns the registered table group names, sorted.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	groups := make([]string, 0, len(registry))
	for g := range registry {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
