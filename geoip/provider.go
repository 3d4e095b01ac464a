// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

package geoip

import (
	"context"
	"net/netip"

	"github.com/hombit/geo302/continent"
)

// Provider is the closed tagged-union dispatch over the two geo backends.
// It is implemented by *MaxMind and *RipeGeo; no other implementer ever
// exists, so dispatch is a plain interface call, not a plugin registry.
type Provider interface {
	// TryLookupContinent resolves addr to a continent. Any failure
	// (unknown address, corrupt database, continent id unmapped)
	// returns ErrContinentUnknown or a wrapped backend error; callers
	// fall back to continent.Default on any error.
	TryLookupContinent(addr netip.Addr) (continent.Continent, error)
	// StartAutoupdate spawns the provider's background refresh task, if
	// it has one. Returns true iff a goroutine was started.
	StartAutoupdate(ctx context.Context) bool
}

// StartAutoupdate for MaxMind is always a no-op: the binary database file
// has no periodic refresh in this module.
func (m *MaxMind) StartAutoupdate(ctx context.Context) bool {
	return false
}

var (
	_ Provider = (*MaxMind)(nil)
	_ Provider = (*RipeGeo)(nil)
)
