// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

// Package config loads and validates the redirector's TOML configuration
// file. Grounded on the teacher's config package shape (package-level
// *Config pointer behind a sync.RWMutex, Load/Get functions) with YAML
// swapped for TOML per the target format.
package config

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hombit/geo302/geoip"
)

// DefaultHost is used when "host" is absent from the config file.
const DefaultHost = "127.0.0.1:8080"

// DefaultLogLevel is used when "log_level" is absent.
const DefaultLogLevel = "INFO"

// MirrorConfig is one entry of the "mirrors" table.
type MirrorConfig struct {
	Upstream    string `toml:"upstream"`
	Healthcheck string `toml:"healthcheck"`
}

// AutoupdateConfig is the resolved form of "geoip.autoupdate", which may
// be written in the TOML file as either a bare bool or a table with
// interval/uri keys.
type AutoupdateConfig struct {
	Enabled  bool
	Interval time.Duration
	URI      string
}

// Config is the fully resolved, validated configuration.
type Config struct {
	Host               string
	IPHeaders          []string
	IPHeadersRecursive bool
	LogLevel           string
	ResponseHeaders    map[string]string
	Threads            int

	HealthcheckInterval time.Duration
	HealthcheckTimeout  time.Duration

	GeoIPType      string
	GeoIPPath      string
	GeoIPOverlaps  geoip.OverlapStrategy
	GeoIPAutoupdate AutoupdateConfig

	Mirrors    map[string]MirrorConfig
	Continents map[string][]string
}

// rawConfig is the direct TOML deserialization target. Threads and
// geoip.autoupdate accept more than one TOML type, so they decode into
// interface{} and are resolved afterward.
type rawConfig struct {
	Host               string            `toml:"host"`
	IPHeaders          []string          `toml:"ip_headers"`
	IPHeadersRecursive bool              `toml:"ip_headers_recursive"`
	LogLevel           string            `toml:"log_level"`
	ResponseHeaders    map[string]string `toml:"response_headers"`
	Threads            interface{}       `toml:"threads"`

	Healthcheck struct {
		Interval string `toml:"interval"`
		Timeout  string `toml:"timeout"`
	} `toml:"healthcheck"`

	GeoIP struct {
		Type       string      `toml:"type"`
		Path       string      `toml:"path"`
		Overlaps   string      `toml:"overlaps"`
		Autoupdate interface{} `toml:"autoupdate"`
	} `toml:"geoip"`

	Mirrors    map[string]MirrorConfig `toml:"mirrors"`
	Continents map[string][]string     `toml:"continents"`
}

// Load parses and validates the TOML file at path, rejecting unknown
// top-level keys the way the teacher's YAML loader rejects unknown
// fields.
func Load(path string) (*Config, error) {
	var raw rawConfig
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return decoded(md, raw)
}

// Parse decodes TOML source held in memory, applying the same unknown-key
// and validation rules as Load.
func Parse(data string) (*Config, error) {
	var raw rawConfig
	md, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return decoded(md, raw)
}

func decoded(md toml.MetaData, raw rawConfig) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key(s): %v", undecoded)
	}
	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}
	if !md.IsDefined("ip_headers") {
		cfg.IPHeaders = []string{"X-FORWARDED-FOR"}
	}
	if !md.IsDefined("ip_headers_recursive") {
		cfg.IPHeadersRecursive = true
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	cfg := &Config{
		Host:               raw.Host,
		IPHeaders:          raw.IPHeaders,
		IPHeadersRecursive: raw.IPHeadersRecursive,
		LogLevel:           raw.LogLevel,
		ResponseHeaders:    raw.ResponseHeaders,
		Mirrors:            raw.Mirrors,
		Continents:         raw.Continents,
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	threads, err := resolveThreads(raw.Threads)
	if err != nil {
		return nil, err
	}
	cfg.Threads = threads

	if raw.Healthcheck.Interval != "" {
		d, err := time.ParseDuration(raw.Healthcheck.Interval)
		if err != nil {
			return nil, fmt.Errorf("config: healthcheck.interval: %w", err)
		}
		cfg.HealthcheckInterval = d
	}
	if raw.Healthcheck.Timeout != "" {
		d, err := time.ParseDuration(raw.Healthcheck.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: healthcheck.timeout: %w", err)
		}
		cfg.HealthcheckTimeout = d
	}

	cfg.GeoIPType = raw.GeoIP.Type
	cfg.GeoIPPath = raw.GeoIP.Path

	overlaps, err := geoip.ParseOverlapStrategy(raw.GeoIP.Overlaps)
	if err != nil {
		return nil, fmt.Errorf("config: geoip.overlaps: %w", err)
	}
	cfg.GeoIPOverlaps = overlaps

	autoupdate, err := resolveAutoupdate(raw.GeoIP.Autoupdate)
	if err != nil {
		return nil, fmt.Errorf("config: geoip.autoupdate: %w", err)
	}
	cfg.GeoIPAutoupdate = autoupdate

	return cfg, nil
}

// defaultThreads is used when "threads" is absent from the config file.
const defaultThreads = 2

// resolveThreads accepts an integer, the literal string "cores", or
// absence (meaning defaultThreads).
func resolveThreads(v interface{}) (int, error) {
	switch t := v.(type) {
	case nil:
		return defaultThreads, nil
	case int64:
		if t <= 0 {
			return 0, fmt.Errorf("config: threads must be positive, got %d", t)
		}
		return int(t), nil
	case string:
		if t == "cores" {
			return runtime.NumCPU(), nil
		}
		return 0, fmt.Errorf("config: threads must be an integer or \"cores\", got %q", t)
	default:
		return 0, fmt.Errorf("config: threads has unsupported type %T", v)
	}
}

// resolveAutoupdate accepts a bare bool, a {interval, uri} table, or
// absence (meaning disabled).
func resolveAutoupdate(v interface{}) (AutoupdateConfig, error) {
	switch t := v.(type) {
	case nil:
		return AutoupdateConfig{}, nil
	case bool:
		return AutoupdateConfig{Enabled: t}, nil
	case map[string]interface{}:
		cfg := AutoupdateConfig{Enabled: true}
		if iv, ok := t["interval"]; ok {
			s, ok := iv.(string)
			if !ok {
				return cfg, fmt.Errorf("interval must be a string duration, got %T", iv)
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return cfg, fmt.Errorf("interval: %w", err)
			}
			cfg.Interval = d
		}
		if uv, ok := t["uri"]; ok {
			s, ok := uv.(string)
			if !ok {
				return cfg, fmt.Errorf("uri must be a string, got %T", uv)
			}
			cfg.URI = s
		}
		return cfg, nil
	default:
		return AutoupdateConfig{}, fmt.Errorf("unsupported type %T", v)
	}
}

var (
	mu      sync.RWMutex
	current *Config
)

// Set installs cfg as the process-wide configuration.
func Set(cfg *Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
}

// Get returns the process-wide configuration. It panics if Set has not
// been called, matching the teacher's "must load before use" contract.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		panic("config: not loaded")
	}
	return current
}
