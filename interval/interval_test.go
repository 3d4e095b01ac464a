// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

package interval

import "testing"

func TestNoOverlapInsertAndGet(t *testing.T) {
	m := NewRW[U32, int]()
	mustInsert(t, m, 0, 2, 0)
	mustInsert(t, m, 2, 2, 1)
	mustInsert(t, m, 4, 2, 2)

	cases := []struct {
		key  U32
		want int
		ok   bool
	}{
		{0, 0, true},
		{1, 0, true},
		{2, 1, true},
		{3, 1, true},
		{4, 2, true},
		{5, 2, true},
		{6, 0, false},
	}
	for _, c := range cases {
		got, ok := m.Get(c.key)
		if ok != c.ok {
			t.Errorf("Get(%d) ok = %v, want %v", c.key, ok, c.ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("Get(%d) = %d, want %d", c.key, got, c.want)
		}
	}

	if _, ok := m.Get(U32(^uint32(0))); ok {
		t.Errorf("Get(max) should miss on an empty-tailed map")
	}
}

func mustInsert[V any](t *testing.T, m *RW[U32, V], key, size U32, value V) {
	t.Helper()
	if _, ok := m.Insert(key, size, value); !ok {
		t.Fatalf("Insert(%d, %d, %v) unexpectedly failed", key, size, value)
	}
}

func TestOverlapRejected(t *testing.T) {
	m := NewRW[U32, int]()
	mustInsert(t, m, 0, 2, 0)
	mustInsert(t, m, 4, 2, 1)

	cases := []struct {
		key, size U32
		overlaps  bool
	}{
		{0, 1, true},
		{1, 1, true},
		{2, 2, false},
		{2, 3, true},
		{3, 10, true},
		{5, 1, true},
		{6, 1, false},
	}
	for _, c := range cases {
		got := m.Overlaps(c.key, c.size)
		if got != c.overlaps {
			t.Errorf("Overlaps(%d, %d) = %v, want %v", c.key, c.size, got, c.overlaps)
		}
	}

	if ov, ok := m.Insert(1, 5, 99); ok {
		t.Fatalf("Insert over an existing range should fail, got ok with %+v", ov)
	} else if ov.Key != 0 || ov.Size != 2 {
		t.Errorf("Insert conflict reported %+v, want leftmost interval (0,2)", ov)
	}
	if m.Len() != 2 {
		t.Errorf("failed insert must not mutate the container, Len() = %d", m.Len())
	}
}

func TestRWROEquivalence(t *testing.T) {
	m := NewRW[U32, string]()
	mustInsert(t, m, 10, 5, "a")
	mustInsert(t, m, 0, 5, "b")
	mustInsert(t, m, 100, 50, "c")

	ro := m.ToRO()
	for _, key := range []U32{0, 4, 5, 9, 10, 14, 15, 99, 100, 149, 150} {
		want, wantOk := m.Get(key)
		got, gotOk := ro.Get(key)
		if wantOk != gotOk || want != got {
			t.Errorf("key %d: RW.Get = (%q,%v), RO.Get = (%q,%v)", key, want, wantOk, got, gotOk)
		}
	}

	back := ro.ToRW()
	for _, key := range []U32{0, 10, 100, 200} {
		want, wantOk := m.Get(key)
		got, gotOk := back.Get(key)
		if wantOk != gotOk || want != got {
			t.Errorf("round trip key %d mismatch: want (%q,%v) got (%q,%v)", key, want, wantOk, got, gotOk)
		}
	}
}

func TestU128Arithmetic(t *testing.T) {
	a := U128{Hi: 0, Lo: ^uint64(0)}
	b := U128{Hi: 0, Lo: 1}
	got := a.Add(b)
	want := U128{Hi: 1, Lo: 0}
	if got != want {
		t.Errorf("U128 carry propagation: %+v + %+v = %+v, want %+v", a, b, got, want)
	}
	if !(U128{Hi: 0, Lo: 5}).Less(U128{Hi: 0, Lo: 6}) {
		t.Errorf("U128.Less should compare Lo when Hi is equal")
	}
	if !(U128{Hi: 0, Lo: 9}).Less(U128{Hi: 1, Lo: 0}) {
		t.Errorf("U128.Less should compare Hi first")
	}
}

func TestU128IntervalMap(t *testing.T) {
	m := NewRW[U128, string]()
	base := U128{Hi: 0x2001043f, Lo: 0x00000700}
	if _, ok := m.Insert(base, U128{Hi: 0, Lo: 16}, "europe"); !ok {
		t.Fatalf("Insert failed")
	}
	if got, ok := m.Get(U128{Hi: 0x2001043f, Lo: 0x00000705}); !ok || got != "europe" {
		t.Errorf("Get inside v6 interval = (%q, %v), want (europe, true)", got, ok)
	}
	if _, ok := m.Get(U128{Hi: 0x2001043f, Lo: 0x00001000}); ok {
		t.Errorf("Get outside v6 interval should miss")
	}
}

func TestEmptyMapAlwaysMisses(t *testing.T) {
	m := NewRW[U32, int]()
	if _, ok := m.Get(0); ok {
		t.Errorf("empty map should never hit")
	}
	if !m.IsEmpty() || m.Len() != 0 {
		t.Errorf("new map should report empty")
	}
	mustInsert(t, m, 0, 1, 1)
	m.Clear()
	if !m.IsEmpty() {
		t.Errorf("Clear should empty the map")
	}
}
