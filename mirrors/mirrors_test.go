// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

package mirrors

import (
	"net/url"
	"testing"

	"github.com/hombit/geo302/continent"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", s, err)
	}
	return u
}

func TestBuildRequiresDefault(t *testing.T) {
	defs := map[string]*Mirror{"a": {Name: "a", Upstream: mustURL(t, "https://a.example/")}}
	_, err := Build(defs, map[string][]string{"europe": {"a"}})
	if err != ErrNoDefaultContinent {
		t.Errorf("err = %v, want ErrNoDefaultContinent", err)
	}
}

func TestBuildRequiresMirrors(t *testing.T) {
	_, err := Build(nil, map[string][]string{"default": {}})
	if err != ErrNoMirrors {
		t.Errorf("err = %v, want ErrNoMirrors", err)
	}
}

func TestBuildUnknownMirror(t *testing.T) {
	defs := map[string]*Mirror{"a": {Name: "a", Upstream: mustURL(t, "https://a.example/")}}
	_, err := Build(defs, map[string][]string{"default": {"a"}, "europe": {"b"}})
	if _, ok := err.(*MirrorUnknownError); !ok {
		t.Errorf("err = %v, want *MirrorUnknownError", err)
	}
}

func TestBuildUnknownContinent(t *testing.T) {
	defs := map[string]*Mirror{"a": {Name: "a", Upstream: mustURL(t, "https://a.example/")}}
	_, err := Build(defs, map[string][]string{"default": {"a"}, "atlantis": {"a"}})
	if _, ok := err.(*ContinentUnknownError); !ok {
		t.Errorf("err = %v, want *ContinentUnknownError", err)
	}
}

func TestGetFallsBackToDefault(t *testing.T) {
	a := &Mirror{Name: "a", Upstream: mustURL(t, "https://a.example/")}
	defs := map[string]*Mirror{"a": a}
	cm, err := Build(defs, map[string][]string{"default": {"a"}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	list := cm.Get(continent.Europe)
	if len(list) != 1 || list[0] != a {
		t.Errorf("Get(Europe) fallback = %v, want [a]", list)
	}
}

func TestGetPrefersConfiguredContinent(t *testing.T) {
	a := &Mirror{Name: "a", Upstream: mustURL(t, "https://a.example/")}
	b := &Mirror{Name: "b", Upstream: mustURL(t, "https://b.example/")}
	defs := map[string]*Mirror{"a": a, "b": b}
	cm, err := Build(defs, map[string][]string{
		"default": {"a"},
		"europe":  {"b"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	list := cm.Get(continent.Europe)
	if len(list) != 1 || list[0] != b {
		t.Errorf("Get(Europe) = %v, want [b]", list)
	}
}

func TestAllMirrorsDeduplicated(t *testing.T) {
	a := &Mirror{Name: "a", Upstream: mustURL(t, "https://a.example/")}
	b := &Mirror{Name: "b", Upstream: mustURL(t, "https://b.example/")}
	defs := map[string]*Mirror{"a": a, "b": b}
	cm, err := Build(defs, map[string][]string{
		"default": {"a", "b"},
		"europe":  {"a"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	all := cm.AllMirrors()
	if len(all) != 2 {
		t.Errorf("AllMirrors() = %v, want 2 distinct mirrors", all)
	}
}

func TestMirrorAvailableDefaultsFalse(t *testing.T) {
	var m Mirror
	if m.Available.Load() {
		t.Errorf("a fresh Mirror should start unavailable until its first health check")
	}
}
