// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr at level. Unknown levels fall back
// to info. pretty switches to the human-readable console writer.
func New(level string, pretty bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, pretty)
}

func NewWithWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
