// Snowpack - Snowplow Event Collector for ClickHouse
// Copyright 2026 Snowpack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/snowpack-analytics/snowpack

package jsonobj

import (
	"reflect"
	"testing"
)

func TestSetKeepsInsertionOrder(t *testing.T) {
	o := New()
	o.Set("z", 1)
	o.Set("a", 2)
	o.Set("m", 3)

	want := []string{"z", "a", "m"}
	if !reflect.DeepEqual(o.Keys(), want) {
		t.Fatalf("keys = %v, want %v", o.Keys(), want)
	}

	t.Run("re-set keeps position", func(t *testing.T) {
		o.Set("a", 99)
		if !reflect.DeepEqual(o.Keys(), want) {
			t.Fatalf("keys after re-set = %v, want %v", o.Keys(), want)
		}
		v, _ := o.Get("a")
		if v != 99 {
			t.Fatalf("value after re-set = %v, want 99", v)
		}
	})
}

func TestPop(t *testing.T) {
	o := New()
	o.Set("keep", "yes")
	o.Set("take", "taken")

	v, ok := o.Pop("take")
	if !ok || v != "taken" {
		t.Fatalf("Pop = (%v, %v), want (taken, true)", v, ok)
	}
	if o.Has("take") {
		t.Fatal("popped key still present")
	}
	if _, ok := o.Pop("take"); ok {
		t.Fatal("second Pop of same key reported present")
	}
	if o.Len() != 1 {
		t.Fatalf("Len = %d, want 1", o.Len())
	}
}

func TestPopString(t *testing.T) {
	o := New()
	o.Set("s", "text")
	o.Set("n", 42)

	if got := o.PopString("s"); got != "text" {
		t.Fatalf("PopString(s) = %q", got)
	}
	if got := o.PopString("n"); got != "" {
		t.Fatalf("PopString on non-string = %q, want empty", got)
	}
	if got := o.PopString("absent"); got != "" {
		t.Fatalf("PopString on absent = %q, want empty", got)
	}
}

func TestMergeLastWriteWins(t *testing.T) {
	dst := New()
	dst.Set("a", 1)
	dst.Set("b", 2)

	src := New()
	src.Set("b", 20)
	src.Set("c", 30)

	dst.Merge(src)

	want := map[string]any{"a": 1, "b": 20, "c": 30}
	if !reflect.DeepEqual(dst.ToMap(), want) {
		t.Fatalf("merged = %v, want %v", dst.ToMap(), want)
	}
	wantKeys := []string{"a", "b", "c"}
	if !reflect.DeepEqual(dst.Keys(), wantKeys) {
		t.Fatalf("merged keys = %v, want %v", dst.Keys(), wantKeys)
	}

	t.Run("nil source is a no-op", func(t *testing.T) {
		dst.Merge(nil)
		if dst.Len() != 3 {
			t.Fatalf("Len after nil merge = %d", dst.Len())
		}
	})
}

func TestFromMapSortsKeys(t *testing.T) {
	o := FromMap(map[string]any{"c": 3, "a": 1, "b": 2})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(o.Keys(), want) {
		t.Fatalf("keys = %v, want %v", o.Keys(), want)
	}
}

func TestMarshalJSONPreservesOrder(t *testing.T) {
	o := New()
	o.Set("z", 1)
	o.Set("a", "two")

	nested := New()
	nested.Set("k", true)
	o.Set("nested", nested)

	got := o.String()
	want := `{"z":1,"a":"two","nested":{"k":true}}`
	if got != want {
		t.Fatalf("String() = %s, want %s", got, want)
	}
}

func TestUnmarshalJSON(t *testing.T) {
	o := New()
	if err := o.UnmarshalJSON([]byte(`{"b":2,"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(o.Keys(), []string{"a", "b"}) {
		t.Fatalf("keys = %v", o.Keys())
	}
}

func TestEmptyObjectMarshalsToBraces(t *testing.T) {
	if got := New().String(); got != "{}" {
		t.Fatalf("empty object = %s, want {}", got)
	}
}
