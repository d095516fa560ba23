package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FormatConsole renders human-readable lines.
	FormatConsole = "console"

	// FormatJSON renders one JSON object per event.
	FormatJSON = "json"

	// DefaultLevel is used when no level is configured.
	DefaultLevel = "info"
)

// Config selects the logger level and output format.
type Config struct {
	// Level is a zerolog level name: trace, debug, info, warn, error,
	// fatal, panic or disabled.
	Level string `yaml:"level" json:"level"`

	// Format is FormatConsole or FormatJSON.
	Format string `yaml:"format" json:"format"`
}

// Validate checks that Level and Format are recognised. Empty values are
// accepted and fall back to the defaults.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid log format: %q (valid: console, json)", c.Format)
	}
}

func parseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level: %q", level)
	}
	return lvl, nil
}

// NewLogger creates a logger writing to w. An unparsable level falls
// back to info; Validate reports it beforehand.
func NewLogger(w io.Writer, cfg Config) zerolog.Logger {
	lvl, _ := parseLevel(cfg.Level)

	out := w
	if !strings.EqualFold(cfg.Format, FormatJSON) {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// ComponentLogger returns a child logger tagged with component.
func ComponentLogger(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
