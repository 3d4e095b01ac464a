// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

package geoip

import (
	"context"
	"io/fs"
	"time"
)

// RipeGeoConfig is the subset of the TOML "geoip" table relevant to the
// ripe-geo backend, translated from raw config values by the caller.
type RipeGeoConfig struct {
	// Path, when set, builds from a filesystem directory.
	Path string
	// Embedded, when Path is empty, builds from a compiled-in bundle.
	Embedded    fs.FS
	EmbeddedDir string

	Overlaps OverlapStrategy

	AutoupdateEnabled  bool
	AutoupdateInterval time.Duration
	AutoupdateURI      string
}

// NewRipeGeoFromConfig mirrors the original project's source-selection
// order: an explicit directory path wins, then compiled-in embedded data,
// then a one-shot bootstrap download when autoupdate is configured with no
// other source. A provider built this way still enables its own
// background refresh afterwards when autoupdate is on.
func NewRipeGeoFromConfig(cfg RipeGeoConfig) (*RipeGeo, error) {
	sources, cleanup, err := cfg.loadInitialSources()
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	ipv4, ipv6, err := BuildMaps(sources, cfg.Overlaps)
	if err != nil {
		return nil, err
	}

	geo := NewRipeGeo(ipv4, ipv6)
	if cfg.AutoupdateEnabled {
		geo.AttachUpdater(NewUpdater(cfg.AutoupdateURI, cfg.AutoupdateInterval, cfg.Overlaps))
	}
	return geo, nil
}

func (cfg RipeGeoConfig) loadInitialSources() ([]FileSource, func(), error) {
	switch {
	case cfg.Path != "":
		return DirectorySources(cfg.Path)
	case cfg.Embedded != nil:
		srcs, err := EmbeddedSources(cfg.Embedded, cfg.EmbeddedDir)
		return srcs, nil, err
	case cfg.AutoupdateEnabled:
		uri := cfg.AutoupdateURI
		if uri == "" {
			uri = DefaultRipeGeoURL
		}
		client := NewDownloadClient(2 * time.Minute)
		srcs, err := DownloadSources(context.Background(), client, uri)
		return srcs, nil, err
	default:
		return nil, nil, ErrRipeGeoConfigNoPath
	}
}
