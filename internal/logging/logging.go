// Package logging builds the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Supported log formats.
const (
	FormatConsole = "console"
	FormatText    = "text"
	FormatJSON    = "json"
)

// New creates a logger writing to stderr.
func New(level, format string) (zerolog.Logger, error) {
	return NewWith(os.Stderr, level, format)
}

// NewWith creates a logger writing to w. An empty level means info.
func NewWith(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out, err := newWriter(w, format)
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// ParseLevel parses a zerolog level name.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unsupported log level: %s", level)
	}
	return lvl, nil
}

func newWriter(w io.Writer, format string) (io.Writer, error) {
	switch strings.ToLower(format) {
	case "", FormatConsole, FormatText:
		return zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					return strings.ToUpper(ll)
				}
				return "????"
			},
		}, nil
	case FormatJSON:
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}
