// Package logger provides the configured zerolog logger.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns the application logger. With pretty=true output goes through
// the human-readable console writer, otherwise plain JSON lines.
func New(service string, pretty bool) zerolog.Logger {
	var out = zerolog.New(os.Stdout)
	if pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return out.With().
		Str("service", service).
		Timestamp().
		Logger()
}
