// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

package geoip

import (
	"context"
	"net/http"
	"time"
)

// DefaultRipeGeoURL is the upstream project's continents-only branch,
// bundled as a gzip'd tar archive.
const DefaultRipeGeoURL = "https://github.com/hombit/ripe-geo-history/archive/refs/heads/continents.tar.gz"

// DefaultAutoupdateInterval matches the upstream project's update cadence.
const DefaultAutoupdateInterval = 24 * time.Hour

// Updater periodically re-downloads and hot-swaps a RipeGeo provider's
// maps. It owns no reference into the provider besides the provider
// itself and its own copies of URI/interval/strategy.
type Updater struct {
	target   *RipeGeo
	uri      string
	interval time.Duration
	strategy OverlapStrategy
	client   *http.Client
}

// NewUpdater constructs an updater. interval and uri fall back to the
// package defaults when zero/empty. Call (*RipeGeo).AttachUpdater to wire
// it to the provider it refreshes.
func NewUpdater(uri string, interval time.Duration, strategy OverlapStrategy) *Updater {
	if uri == "" {
		uri = DefaultRipeGeoURL
	}
	if interval <= 0 {
		interval = DefaultAutoupdateInterval
	}
	return &Updater{
		uri:      uri,
		interval: interval,
		strategy: strategy,
		client:   NewDownloadClient(2 * time.Minute),
	}
}

// Run loops until ctx is cancelled. It never returns an error: download and
// parse failures are logged and the loop continues.
func (u *Updater) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(u.interval):
		}

		if err := u.refreshOnce(ctx); err != nil {
			log.Warningf("ripe-geo: autoupdate failed: %v", err)
			continue
		}
		log.Infof("ripe-geo: autoupdate refreshed maps from %s", u.uri)
	}
}

func (u *Updater) refreshOnce(ctx context.Context) error {
	sources, err := DownloadSources(ctx, u.client, u.uri)
	if err != nil {
		return err
	}
	ipv4, ipv6, err := BuildMaps(sources, u.strategy)
	if err != nil {
		return err
	}
	u.target.swap(ipv4, ipv6)
	return nil
}
