// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

// Package jsonobj provides an insertion-ordered JSON object.
//
// Tracker contexts arrive as loosely-typed JSON that is merged into the
// strongly-typed event record. The extensible regions of the record (extra
// data, unstructured events, per-context leftovers) need a container that
// preserves key order across merges so that serialization to the store's
// JSON columns is deterministic, and that supports consuming ("popping")
// keys during a merge so a later context cannot resurrect them.
package jsonobj

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Object is an insertion-ordered string-keyed JSON object.
// The zero value is not usable; call New.
type Object struct {
	keys   []string
	values map[string]any
}

// New returns an empty Object.
func New() *Object {
	return &Object{values: make(map[string]any)}
}

// FromMap builds an Object from a decoded JSON map. Keys are sorted
// lexically: map iteration order is runtime-random, which would break
// deterministic serialization.
func FromMap(m map[string]any) *Object {
	o := New()
	for _, k := range sortedKeys(m) {
		o.Set(k, m[k])
	}
	return o
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (o *Object) Keys() []string {
	return o.keys
}

// Get returns the value for key and whether it is present.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Set stores value under key. Re-setting an existing key keeps its original
// position (last-write-wins on the value only).
func (o *Object) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Pop removes key and returns its value. The second result is false when the
// key was absent.
func (o *Object) Pop(key string) (any, bool) {
	v, ok := o.values[key]
	if !ok {
		return nil, false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return v, ok
}

// PopString removes key and returns its value as a string. Non-string and
// absent values yield "".
func (o *Object) PopString(key string) string {
	v, ok := o.Pop(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetString returns the value for key as a string, or "" when absent or not
// a string.
func (o *Object) GetString(key string) string {
	v, ok := o.values[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Merge copies every key of src into o, later writes winning on conflicts.
// Nested Objects are stored as-is.
func (o *Object) Merge(src *Object) {
	if src == nil {
		return
	}
	for _, k := range src.keys {
		o.Set(k, src.values[k])
	}
}

// Clone returns a shallow copy.
func (o *Object) Clone() *Object {
	c := New()
	c.Merge(o)
	return c
}

// ToMap returns a plain map copy, recursively flattening nested Objects.
// Intended for test assertions.
func (o *Object) ToMap() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		if nested, ok := o.values[k].(*Object); ok {
			m[k] = nested.ToMap()
			continue
		}
		m[k] = o.values[k]
	}
	return m
}

// MarshalJSON renders the object with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping lexically sorted key order
// (see FromMap).
func (o *Object) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*o = *FromMap(m)
	return nil
}

// String renders the object as compact JSON. Marshal errors degrade to "{}"
// so the store always receives a valid JSON literal.
func (o *Object) String() string {
	b, err := json.Marshal(o)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion sort; context objects are small
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
