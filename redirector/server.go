// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

package redirector

import (
	"net"
	"net/http"
	"strings"
	"time"

	"gopkg.in/tylerb/graceful.v1"
)

// Server wraps a graceful.Server bound to a Handler, grounded on the
// teacher's HTTP struct (net.Listen done by hand, NoSignalHandling left
// to the caller's own signal.Notify switch).
type Server struct {
	Listener net.Listener

	graceful *graceful.Server
	stopChan <-chan struct{}
}

// NewServer binds addr (host:port, or "unix:/path/to.sock") and wraps h
// behind a graceful.Server, matching the teacher's 10s read/write
// timeouts and 1MiB header cap.
func NewServer(addr string, h http.Handler) (*Server, error) {
	proto := "tcp"
	if strings.HasPrefix(addr, "unix:") {
		proto = "unix"
		addr = strings.TrimPrefix(addr, "unix:")
	}
	listener, err := net.Listen(proto, addr)
	if err != nil {
		return nil, err
	}

	gs := &graceful.Server{
		Server: &http.Server{
			Handler:        h,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		Timeout:          10 * time.Second,
		NoSignalHandling: true,
	}

	s := &Server{Listener: listener, graceful: gs}
	s.stopChan = gs.StopChan()
	return s, nil
}

// Serve blocks, serving connections until Stop is called.
func (s *Server) Serve() error {
	return s.graceful.Serve(s.Listener)
}

// Stop begins a graceful shutdown, allowing in-flight requests up to
// timeout to complete.
func (s *Server) Stop(timeout time.Duration) {
	s.graceful.Stop(timeout)
}

// Done returns a channel closed once Serve has fully returned after Stop.
func (s *Server) Done() <-chan struct{} {
	return s.stopChan
}
