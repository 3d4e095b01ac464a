// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

// Package redirector implements the GeoIP-aware request handler: resolve
// the client's continent, pick the first available mirror configured for
// it, and answer with a 302 pointing at the same path on that mirror.
// Grounded on the teacher's http.mirrorHandler dispatch shape, stripped
// of everything the base spec's Non-goals exclude (weighted scoring,
// stats, templated pages).
package redirector

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/hombit/geo302/continent"
	"github.com/hombit/geo302/geoip"
	"github.com/hombit/geo302/logs"
	"github.com/hombit/geo302/mirrors"
	"github.com/hombit/geo302/network"
)

// ErrMirrorsUnavailable is returned when every mirror configured for the
// resolved continent (after falling back to default) is marked down.
var ErrMirrorsUnavailable = fmt.Errorf("redirector: no mirror available")

// ErrInvalidURI is returned when the incoming request carries no usable
// path.
var ErrInvalidURI = fmt.Errorf("redirector: request has no path")

// Handler answers every request with a redirect to an available mirror.
type Handler struct {
	Geo                geoip.Provider
	Continents         *mirrors.ContinentMap
	IPHeaders          []string
	IPHeadersRecursive bool
	ResponseHeaders    map[string]string
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remoteIP, hasIP := network.RemoteAddr(r, h.IPHeaders, h.IPHeadersRecursive)
	socketIP, _, splitErr := net.SplitHostPort(r.RemoteAddr)
	if splitErr != nil {
		socketIP = r.RemoteAddr
	}

	location, err := h.locationFor(r, remoteIP, hasIP)

	status := http.StatusFound
	switch err {
	case nil:
	case ErrMirrorsUnavailable:
		status = http.StatusServiceUnavailable
	case ErrInvalidURI:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	for name, value := range h.ResponseHeaders {
		w.Header().Set(name, value)
	}

	if err != nil {
		http.Error(w, err.Error(), status)
		logs.Access(socketIP, r.Method, r.URL.RequestURI(), status, "")
		return
	}

	w.Header().Set("Location", location)
	w.WriteHeader(status)

	logs.Access(socketIP, r.Method, r.URL.RequestURI(), status, location)
}

func (h *Handler) locationFor(r *http.Request, remoteIP netip.Addr, hasIP bool) (string, error) {
	pathAndQuery := r.URL.RequestURI()
	if pathAndQuery == "" {
		return "", ErrInvalidURI
	}

	c := continent.Default
	if hasIP {
		c = h.resolveContinent(remoteIP)
	}

	for _, m := range h.Continents.Get(c) {
		if m.Available.Load() {
			return composeLocation(m.Upstream, pathAndQuery), nil
		}
	}
	return "", ErrMirrorsUnavailable
}

func (h *Handler) resolveContinent(addr netip.Addr) continent.Continent {
	c, err := h.Geo.TryLookupContinent(addr)
	if err != nil {
		return continent.Default
	}
	return c
}

// composeLocation copies the mirror upstream's scheme and authority and
// concatenates its path (minus one trailing slash, so "http://b/" and
// "/x" give "http://b/x") with the request's own path+query as plain
// strings, so the request's already-encoded query string is carried
// through verbatim rather than re-escaped by net/url.
func composeLocation(upstream *url.URL, pathAndQuery string) string {
	return upstream.Scheme + "://" + upstream.Host + strings.TrimSuffix(upstream.Path, "/") + pathAndQuery
}
