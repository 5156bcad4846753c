// Package obslog is the library-wide debug logging gate, modeled on the
// teacher's utils.Debug: a package-level verbosity switch that call sites
// check cheaply and that, when enabled, writes printf-style lines to
// stderr via the standard logger.
package obslog

import (
	"log"
	"os"
	"sync/atomic"
)

var enabled atomic.Bool

var logger = log.New(os.Stderr, "parallex: ", log.Lmicroseconds)

// Enable turns debug logging on or off. cmd/parallex calls this from its
// root command's PersistentPreRun, after flags are parsed, with the value
// of --verbose.
func Enable(v bool) {
	enabled.Store(v)
}

// Enabled reports whether debug logging is currently on.
func Enabled() bool {
	return enabled.Load()
}

// Debugf logs a formatted line when debug logging is enabled. It is a
// no-op otherwise, so call sites can leave it in hot paths.
func Debugf(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	logger.Printf(format, args...)
}
