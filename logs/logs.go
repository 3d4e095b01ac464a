// Copyright (c) 2024 The geo302 Authors
// Licensed under the MIT license

// Package logs configures the process-wide op/go-logging backend and
// emits the structured access-log line for each handled request.
// Grounded on the teacher's logs.ReloadRuntimeLogs (colorized backend,
// MustStringFormatter, SIGUSR1-driven reopen) and logs.LogDownload
// (one-line-per-request sink).
package logs

import (
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("geo302")

var currentLevel = logging.INFO

// Configure installs the process-wide logging backend at the given
// level (an op/go-logging level name: CRITICAL, ERROR, WARNING, NOTICE,
// INFO, DEBUG). An empty or unrecognized level falls back to INFO.
func Configure(level string) {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		lvl = logging.INFO
	}
	currentLevel = lvl
	reload()
}

// Reload reopens the backend against the current output, reapplying the
// configured level. Bound to SIGUSR1 so log rotation doesn't require a
// restart.
func Reload() {
	reload()
}

func reload() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	backend.Color = isTerminal(os.Stderr)

	logging.SetBackend(backend)
	logging.SetFormatter(logging.MustStringFormatter(
		"%{time:2006/01/02 15:04:05.000} %{level:.4s} %{message}",
	))
	logging.SetLevel(currentLevel, "geo302")
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// Access emits the one-line structured access log for a handled request:
// "<socket-ip> <method> <uri> <status> <location-or-dash>".
func Access(remoteIP, method, uri string, status int, location string) {
	if location == "" {
		location = "-"
	}
	log.Infof("%s %s %s %d %s", remoteIP, method, uri, status, location)
}
