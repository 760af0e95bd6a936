// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. Console output is used for development,
// JSON lines otherwise. Unknown levels fall back to info.
func Setup(level string, console bool) zerolog.Logger {
	return SetupWriter(os.Stderr, level, console)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level string, console bool) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := w
	if console {
		out = zerolog.ConsoleWriter{Out: w}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}
