// Package logging builds the zerolog loggers used by the engine, the driver
// and the command line.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects how log lines are written.
type Format string

const (
	Console Format = "console"
	JSON    Format = "json"
)

// ParseLevel maps a level name to a zerolog level. Unknown names fall back
// to info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(name) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "OFF", "DISABLED":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New returns a timestamped logger writing to w at the named level.
func New(w io.Writer, level string, format Format) zerolog.Logger {
	out := w
	if format != JSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Tee writes every line to each of ws, console formatted.
func Tee(level string, ws ...io.Writer) zerolog.Logger {
	writers := make([]io.Writer, 0, len(ws))
	for _, w := range ws {
		writers = append(writers, zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true})
	}
	mlw := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(mlw).Level(ParseLevel(level)).With().Timestamp().Logger()
}

func Nop() zerolog.Logger { return zerolog.Nop() }
