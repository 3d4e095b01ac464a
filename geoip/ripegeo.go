// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

// Ripe-geo text-file provider. Grounded on the teacher's GeoIP wrapper
// shape (network/geoip.go) and the reader-writer hot-swap pattern used by
// AdGuardDNS's internal/geoip/file.go, combined with the record format and
// build algorithm of the original hombit/geo302 ripe-geo module.
package geoip

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/netip"
	"sort"
	"strings"
	"sync"

	"github.com/op/go-logging"

	"github.com/hombit/geo302/continent"
	"github.com/hombit/geo302/interval"
)

var log = logging.MustGetLogger("geo302")

// FileSource is one ripe-geo text file, named "<continent>.<family>.list".
type FileSource struct {
	Path   string
	Reader io.Reader
}

// RipeGeo resolves continents from the ripe-geo text corpus. The interval
// maps are held behind a RWMutex so an autoupdate task can hot-swap them
// without blocking concurrent lookups for longer than a pointer move.
type RipeGeo struct {
	mu      sync.RWMutex
	ipv4    *interval.RO[interval.U32, continent.Continent]
	ipv6    *interval.RO[interval.U128, continent.Continent]
	updater *Updater
}

// NewRipeGeo builds a provider from an already-parsed pair of maps. Call
// AttachUpdater afterwards to enable autoupdate.
func NewRipeGeo(ipv4 *interval.RO[interval.U32, continent.Continent], ipv6 *interval.RO[interval.U128, continent.Continent]) *RipeGeo {
	return &RipeGeo{ipv4: ipv4, ipv6: ipv6}
}

// AttachUpdater wires u as this provider's autoupdate task. It must be
// called before StartAutoupdate.
func (g *RipeGeo) AttachUpdater(u *Updater) {
	u.target = g
	g.updater = u
}

// TryLookupContinent implements the Provider interface.
func (g *RipeGeo) TryLookupContinent(addr netip.Addr) (continent.Continent, error) {
	addr = addr.Unmap()
	g.mu.RLock()
	defer g.mu.RUnlock()
	if addr.Is4() {
		if c, ok := g.ipv4.Get(AddrToU32(addr)); ok {
			return c, nil
		}
		return continent.Default, ErrContinentUnknown
	}
	if c, ok := g.ipv6.Get(AddrToU128(addr)); ok {
		return c, nil
	}
	return continent.Default, ErrContinentUnknown
}

// StartAutoupdate spawns the configured updater goroutine, if any. It
// returns true iff a goroutine was started.
func (g *RipeGeo) StartAutoupdate(ctx context.Context) bool {
	if g.updater == nil {
		return false
	}
	go g.updater.Run(ctx)
	return true
}

// Refresh re-downloads and hot-swaps the maps immediately, outside the
// updater's own schedule. It is what SIGHUP drives. Refresh fails if no
// updater is attached (nothing to refresh from).
func (g *RipeGeo) Refresh(ctx context.Context) error {
	if g.updater == nil {
		return fmt.Errorf("ripe-geo: no autoupdate source configured, nothing to refresh")
	}
	return g.updater.refreshOnce(ctx)
}

// swap replaces the live maps under the write lock. The replacement pair
// must be fully built before calling swap: the lock is held only for the
// pointer assignment.
func (g *RipeGeo) swap(ipv4 *interval.RO[interval.U32, continent.Continent], ipv6 *interval.RO[interval.U128, continent.Continent]) {
	g.mu.Lock()
	g.ipv4 = ipv4
	g.ipv6 = ipv6
	g.mu.Unlock()
}

func parseRipeGeoFilename(path string) (c continent.Continent, family string, ok bool) {
	name := path
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if !strings.HasSuffix(name, ".list") {
		return 0, "", false
	}
	name = strings.TrimSuffix(name, ".list")
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return 0, "", false
	}
	family = name[i+1:]
	if family != "ipv4" && family != "ipv6" {
		return 0, "", false
	}
	c, err := continent.Parse(name[:i])
	if err != nil {
		return 0, "", false
	}
	return c, family, true
}

// BuildMaps ingests a sequence of ripe-geo text files into a fresh pair of
// interval maps, without touching any provider's live state. Call
// (*RipeGeo).swap (or NewRipeGeo) with the result once built.
func BuildMaps(sources []FileSource, strategy OverlapStrategy) (
	ipv4 *interval.RO[interval.U32, continent.Continent],
	ipv6 *interval.RO[interval.U128, continent.Continent],
	err error,
) {
	rw4 := interval.NewRW[interval.U32, continent.Continent]()
	rw6 := interval.NewRW[interval.U128, continent.Continent]()

	required := make(map[string]bool, 12)
	for _, c := range continent.All {
		required[c.Kebab()+".ipv4"] = true
		required[c.Kebab()+".ipv6"] = true
	}

	for _, src := range sources {
		c, family, ok := parseRipeGeoFilename(src.Path)
		if !ok {
			log.Debugf("ripe-geo: skipping unrecognized file %s", src.Path)
			continue
		}
		delete(required, c.Kebab()+"."+family)

		inserted, ferr := insertFile(rw4, rw6, src, c, family, strategy)
		if ferr != nil {
			return nil, nil, errorf("%s: %w", src.Path, ferr)
		}
		if inserted == 0 {
			return nil, nil, errorf("%s: %w", src.Path, ErrEmptyFile)
		}
	}

	if len(required) > 0 {
		missing := make([]string, 0, len(required))
		for k := range required {
			missing = append(missing, k)
		}
		sort.Strings(missing)
		return nil, nil, &MissingFilesError{Missing: missing}
	}

	return rw4.ToRO(), rw6.ToRO(), nil
}

func insertFile(rw4 *interval.RW[interval.U32, continent.Continent], rw6 *interval.RW[interval.U128, continent.Continent], src FileSource, c continent.Continent, family string, strategy OverlapStrategy) (int, error) {
	scanner := bufio.NewScanner(src.Reader)
	inserted := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch family {
		case "ipv4":
			rec, perr := ParseRecordV4(line)
			if perr != nil {
				return inserted, fmt.Errorf("parsing %q: %w", line, perr)
			}
			if ov, ok := rw4.Insert(rec.Base, rec.Size, c); !ok {
				if strategy == OverlapFail {
					return inserted, &OverlappedRecordError{New: rec.String(), Existing: fmt.Sprintf("%v/%v", ov.Key, ov.Size)}
				}
				log.Warningf("ripe-geo: skipping overlapping record %s in %s", rec.String(), src.Path)
				continue
			}
		case "ipv6":
			rec, perr := ParseRecordV6(line)
			if perr != nil {
				return inserted, fmt.Errorf("parsing %q: %w", line, perr)
			}
			if ov, ok := rw6.Insert(rec.Base, rec.Size, c); !ok {
				if strategy == OverlapFail {
					return inserted, &OverlappedRecordError{New: rec.String(), Existing: fmt.Sprintf("%+v/%+v", ov.Key, ov.Size)}
				}
				log.Warningf("ripe-geo: skipping overlapping record %s in %s", rec.String(), src.Path)
				continue
			}
		}
		inserted++
	}
	if err := scanner.Err(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

func errorf(format string, a ...interface{}) error {
	return fmt.Errorf(format, a...)
}
