// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

// Package mirrors holds the configured mirror pool and the continent ->
// mirror-list routing table the request handler consults on every request.
package mirrors

import (
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/hombit/geo302/continent"
)

// Mirror is one upstream redirect target. Available is flipped only by the
// corresponding health-check prober and read by every request-serving
// goroutine; it is the sole piece of mutable state a Mirror carries.
type Mirror struct {
	Name        string
	Upstream    *url.URL
	Healthcheck *url.URL

	Available atomic.Bool
}

// MirrorUnknownError is returned when a continent table references a
// mirror name absent from the mirror table.
type MirrorUnknownError struct {
	Continent string
	Mirror    string
}

func (e *MirrorUnknownError) Error() string {
	return fmt.Sprintf("mirrors: continent %q references unknown mirror %q", e.Continent, e.Mirror)
}

// ContinentUnknownError is returned when a continent table key does not
// parse as a Continent.
type ContinentUnknownError struct {
	Name string
}

func (e *ContinentUnknownError) Error() string {
	return fmt.Sprintf("mirrors: unknown continent name %q", e.Name)
}

// ErrNoDefaultContinent is returned when the continent table has no
// "default" entry.
var ErrNoDefaultContinent = fmt.Errorf("mirrors: continent table has no \"default\" entry")

// ErrNoMirrors is returned when the mirror table is empty.
var ErrNoMirrors = fmt.Errorf("mirrors: no mirrors configured")

// ContinentMap is the built, validated routing table: continent -> ordered
// mirror list, plus the flat deduplicated set every health-checker prober
// is spawned from.
type ContinentMap struct {
	byContinent map[continent.Continent][]*Mirror
	all         []*Mirror
}

// Build validates and assembles a ContinentMap from raw configuration
// tables. mirrors maps a configured mirror name to its definition;
// continents maps a continent name (any spelling continent.Parse accepts)
// to an ordered list of mirror names.
func Build(mirrorDefs map[string]*Mirror, continents map[string][]string) (*ContinentMap, error) {
	if len(mirrorDefs) == 0 {
		return nil, ErrNoMirrors
	}
	if _, ok := continents["default"]; !ok {
		return nil, ErrNoDefaultContinent
	}

	cm := &ContinentMap{byContinent: make(map[continent.Continent][]*Mirror, len(continents))}
	seen := make(map[*Mirror]bool, len(mirrorDefs))

	for name, names := range continents {
		c, err := continentKey(name)
		if err != nil {
			return nil, err
		}
		list := make([]*Mirror, 0, len(names))
		for _, mname := range names {
			m, ok := mirrorDefs[mname]
			if !ok {
				return nil, &MirrorUnknownError{Continent: name, Mirror: mname}
			}
			list = append(list, m)
			if !seen[m] {
				seen[m] = true
				cm.all = append(cm.all, m)
			}
		}
		cm.byContinent[c] = list
	}
	for _, m := range mirrorDefs {
		if !seen[m] {
			seen[m] = true
			cm.all = append(cm.all, m)
		}
	}

	return cm, nil
}

// continentKey accepts "default" literally (continent.Parse also accepts
// it, but it is not a member of continent.All) alongside every real
// continent spelling.
func continentKey(name string) (continent.Continent, error) {
	c, err := continent.Parse(name)
	if err != nil {
		return 0, &ContinentUnknownError{Name: name}
	}
	return c, nil
}

// Get returns the mirror list configured for c, falling back to the
// default list when c has no entry of its own.
func (cm *ContinentMap) Get(c continent.Continent) []*Mirror {
	if list, ok := cm.byContinent[c]; ok {
		return list
	}
	return cm.byContinent[continent.Default]
}

// GetDefault returns the default mirror list.
func (cm *ContinentMap) GetDefault() []*Mirror {
	return cm.byContinent[continent.Default]
}

// AllMirrors returns every configured mirror exactly once (deduplicated by
// pointer identity): mirrors referenced by a continent list come first, in
// the order first referenced, followed by any unreferenced ones. The
// health checker spawns its probers from this list.
func (cm *ContinentMap) AllMirrors() []*Mirror {
	return cm.all
}
