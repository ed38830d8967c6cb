// Package logging wires up the process-wide zerolog logger. Components
// receive a zerolog.Logger value (or a sub-logger derived via .With()) at
// construction time rather than reaching for a package-level global.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls the logger's verbosity and output shape.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // "json" or "console"
}

// New builds a zerolog.Logger with a "service" field identifying the
// broker, timestamps, and the level/format requested by Options.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w interface {
		Write(p []byte) (int, error)
	} = os.Stdout

	if strings.EqualFold(opts.Format, "console") {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", "logbroker").
		Logger()

	return logger
}
