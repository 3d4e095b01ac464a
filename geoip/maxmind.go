// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

// MaxMind provider: wraps a GeoLite2-style binary database via
// oschwald/maxminddb-golang, struct-tag driven the way Caddy's geoip2
// middleware and AdGuardDNS's internal/geoip package do it.
package geoip

import (
	"net"
	"net/netip"

	"github.com/oschwald/maxminddb-golang"

	"github.com/hombit/geo302/continent"
)

// geonameToContinent is the fixed table translating a GeoLite2 continent
// geoname ID to the internal Continent enum.
var geonameToContinent = map[uint]continent.Continent{
	6255146: continent.Africa,
	6255147: continent.Asia,
	6255148: continent.Europe,
	6255149: continent.NorthAmerica,
	6255150: continent.SouthAmerica,
	6255151: continent.Oceania,
	6255152: continent.Antarctica,
}

type countryRecord struct {
	Continent struct {
		GeoNameID uint `maxminddb:"geoname_id"`
	} `maxminddb:"continent"`
}

// MaxMind wraps an open GeoLite2-style country database.
type MaxMind struct {
	reader *maxminddb.Reader
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMind{reader: reader}, nil
}

// Close releases the underlying memory-mapped database.
func (m *MaxMind) Close() error {
	return m.reader.Close()
}

// TryLookupContinent implements the Provider interface.
func (m *MaxMind) TryLookupContinent(addr netip.Addr) (continent.Continent, error) {
	var rec countryRecord
	if err := m.reader.Lookup(net.IP(addr.AsSlice()), &rec); err != nil {
		return continent.Default, err
	}
	c, ok := geonameToContinent[rec.Continent.GeoNameID]
	if !ok {
		return continent.Default, ErrContinentUnknown
	}
	return c, nil
}
