// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

// Package healthcheck probes each configured mirror on its own schedule
// and publishes the result to the mirror's atomic availability flag.
// Grounded on the teacher's daemon prober loop (one goroutine per unit of
// work, sleep-based scheduling, a shared *http.Client with a bounded
// per-request deadline).
package healthcheck

import (
	"context"
	"net/http"
	"time"

	"github.com/op/go-logging"

	"github.com/hombit/geo302/mirrors"
)

var log = logging.MustGetLogger("geo302")

// DefaultInterval is how long a prober sleeps between checks.
const DefaultInterval = 5 * time.Second

// DefaultTimeout bounds a single health-check request.
const DefaultTimeout = 3 * time.Second

// Checker runs one prober goroutine per distinct mirror.
type Checker struct {
	Interval time.Duration
	Timeout  time.Duration
	client   *http.Client
}

// NewChecker builds a Checker. Zero interval/timeout fall back to the
// package defaults.
func NewChecker(interval, timeout time.Duration) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{
		Interval: interval,
		Timeout:  timeout,
		client:   &http.Client{},
	}
}

// Run spawns one prober per mirror and returns immediately; probers run
// until ctx is cancelled.
func (c *Checker) Run(ctx context.Context, all []*mirrors.Mirror) {
	for _, m := range all {
		go c.probe(ctx, m)
	}
}

func (c *Checker) probe(ctx context.Context, m *mirrors.Mirror) {
	wasUp := m.Available.Load()
	for {
		up := c.check(ctx, m)
		if up != wasUp {
			if up {
				log.Infof("healthcheck: mirror %s is up", m.Name)
			} else {
				log.Warningf("healthcheck: mirror %s is down", m.Name)
			}
			wasUp = up
		}
		m.Available.Store(up)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.Interval):
		}
	}
}

func (c *Checker) check(ctx context.Context, m *mirrors.Mirror) bool {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.Healthcheck.String(), nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}
