// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

// Package network extracts and canonicalizes the client IP address from
// an incoming request: the ordered set of trusted proxy headers, falling
// back to the raw socket peer address.
package network

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP walks names in order and returns the address carried by the
// first header name with any value. From that header's value lines, it
// picks the first line if recursive, else the last; from that line's
// comma-separated chain it picks the first entry if recursive, else the
// last. A header name present but unparsable as an IP stops the search
// entirely rather than falling through to the next header name, matching
// a strict "trust the first applicable header or nothing" policy.
func ClientIP(headers http.Header, names []string, recursive bool) (netip.Addr, bool) {
	for _, name := range names {
		values := headers.Values(name)
		if len(values) == 0 {
			continue
		}

		line := values[len(values)-1]
		if recursive {
			line = values[0]
		}

		parts := strings.Split(line, ",")
		part := parts[len(parts)-1]
		if recursive {
			part = parts[0]
		}

		addr, err := netip.ParseAddr(strings.TrimSpace(part))
		if err != nil {
			return netip.Addr{}, false
		}
		return addr, true
	}
	return netip.Addr{}, false
}

// RemoteAddr extracts the client IP from an HTTP request: the configured
// trusted headers first, falling back to the TCP peer address of
// r.RemoteAddr. The result is canonicalized via Unmap so an IPv4-mapped
// IPv6 address (::ffff:a.b.c.d) resolves identically to its IPv4 form.
func RemoteAddr(r *http.Request, headerNames []string, recursive bool) (netip.Addr, bool) {
	if addr, ok := ClientIP(r.Header, headerNames, recursive); ok {
		return addr.Unmap(), true
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
