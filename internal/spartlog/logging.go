// Package spartlog provides the package-level logger used throughout spart.
// Debug-level tracing is enabled only when the DEBUG_SPART environment
// variable is set to a truthy value, mirroring the debug toggle the original
// implementation reads at startup.
package spartlog

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Log is the shared logger. It is a no-op sink unless DEBUG_SPART is truthy.
var Log zerolog.Logger

func init() {
	if enabled(os.Getenv("DEBUG_SPART")) {
		Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	} else {
		Log = zerolog.Nop()
	}
}

func enabled(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false":
		return false
	default:
		return true
	}
}
