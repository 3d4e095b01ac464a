// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/hombit/geo302/config"
	"github.com/hombit/geo302/geoip"
	"github.com/hombit/geo302/healthcheck"
	"github.com/hombit/geo302/logs"
	"github.com/hombit/geo302/mirrors"
	"github.com/hombit/geo302/redirector"
)

var log = logging.MustGetLogger("geo302")

const defaultConfigPath = "geo302.toml"

func main() {
	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "geo302: %s\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	logs.Configure(cfg.LogLevel)
	runtime.GOMAXPROCS(cfg.Threads)

	mirrorDefs, err := buildMirrors(cfg.Mirrors)
	if err != nil {
		log.Fatalf("invalid mirror configuration: %s", err)
	}
	continentMap, err := mirrors.Build(mirrorDefs, cfg.Continents)
	if err != nil {
		log.Fatalf("invalid continent configuration: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := healthcheck.NewChecker(cfg.HealthcheckInterval, cfg.HealthcheckTimeout)
	checker.Run(ctx, continentMap.AllMirrors())

	geo, err := buildGeo(cfg)
	if err != nil {
		log.Fatalf("could not build geo provider: %s", err)
	}
	geo.StartAutoupdate(ctx)

	handler := &redirector.Handler{
		Geo:                geo,
		Continents:         continentMap,
		IPHeaders:          cfg.IPHeaders,
		IPHeadersRecursive: cfg.IPHeadersRecursive,
		ResponseHeaders:    cfg.ResponseHeaders,
	}

	server, err := redirector.NewServer(cfg.Host, handler)
	if err != nil {
		log.Fatalf("could not bind %s: %s", cfg.Host, err)
	}

	go handleSignals(ctx, server, geo)

	log.Infof("listening on %s", cfg.Host)
	if err := server.Serve(); err != nil {
		log.Errorf("server exited: %s", err)
		os.Exit(1)
	}

	<-server.Done()
	log.Info("server stopped gracefully")
	os.Exit(1)
}

func handleSignals(ctx context.Context, server *redirector.Server, geo geoip.Provider) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

	for s := range sig {
		switch s {
		case syscall.SIGINT, syscall.SIGTERM:
			log.Notice("received shutdown signal, draining connections...")
			server.Stop(10 * time.Second)
			return
		case syscall.SIGHUP:
			if refresher, ok := geo.(interface{ Refresh(context.Context) error }); ok {
				if err := refresher.Refresh(ctx); err != nil {
					log.Warningf("ripe-geo refresh failed: %s", err)
				} else {
					log.Notice("ripe-geo maps refreshed")
				}
			} else {
				log.Notice("SIGHUP received, but the configured geo provider has no refresh source")
			}
		case syscall.SIGUSR1:
			log.Notice("reopening logs")
			logs.Reload()
		}
	}
}

func buildMirrors(defs map[string]config.MirrorConfig) (map[string]*mirrors.Mirror, error) {
	out := make(map[string]*mirrors.Mirror, len(defs))
	for name, def := range defs {
		upstream, err := url.Parse(def.Upstream)
		if err != nil {
			return nil, errors.Wrapf(err, "mirror %q: invalid upstream", name)
		}
		healthcheckURL, err := url.Parse(def.Healthcheck)
		if err != nil {
			return nil, errors.Wrapf(err, "mirror %q: invalid healthcheck", name)
		}
		out[name] = &mirrors.Mirror{
			Name:        name,
			Upstream:    upstream,
			Healthcheck: healthcheckURL,
		}
	}
	return out, nil
}

func buildGeo(cfg *config.Config) (geoip.Provider, error) {
	switch cfg.GeoIPType {
	case "maxminddb":
		return geoip.OpenMaxMind(cfg.GeoIPPath)
	case "ripe-geo":
		return geoip.NewRipeGeoFromConfig(geoip.RipeGeoConfig{
			Path:               cfg.GeoIPPath,
			Overlaps:           cfg.GeoIPOverlaps,
			AutoupdateEnabled:  cfg.GeoIPAutoupdate.Enabled,
			AutoupdateInterval: cfg.GeoIPAutoupdate.Interval,
			AutoupdateURI:      cfg.GeoIPAutoupdate.URI,
		})
	default:
		return nil, fmt.Errorf("unknown geoip.type %q", cfg.GeoIPType)
	}
}
