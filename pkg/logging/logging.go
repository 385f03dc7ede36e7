package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options configures a logger
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", ...). Empty means warn.
	Level string
	// Writer receives log output. Nil means stderr.
	Writer io.Writer
	// Console switches to human-readable output
	Console bool
}

// New builds a zerolog logger with timestamps
func New(opts Options) zerolog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(opts.Level))
}

// ParseLevel maps a level name to a zerolog level, defaulting to warn
func ParseLevel(name string) zerolog.Level {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.WarnLevel
	}
	return lvl
}

// Nop returns a logger that discards everything
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
