package obs

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SetupLogger builds the process logger. format is "json" (default) or
// "text" for a human readable console writer. Unknown levels fall back to info.
func SetupLogger(level, format string) zerolog.Logger {
	return NewLogger(os.Stderr, level, format)
}

// NewLogger is SetupLogger writing to w.
func NewLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	if strings.EqualFold(format, "text") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339Nano, NoColor: true}
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
