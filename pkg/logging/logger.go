// Package logging builds the zerolog loggers used by the codec.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the logging system.
type Config struct {
	Level   string `toml:"level" yaml:"level"`
	Console bool   `toml:"console" yaml:"console"`   // Human-readable output instead of JSON
	NoColor bool   `toml:"no_color" yaml:"no_color"` // Console output only

	// Output receives log lines, os.Stderr when nil
	Output io.Writer `toml:"-" yaml:"-"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Console: true,
	}
}

// New builds a logger from cfg without touching the global logger. An
// unknown level falls back to info.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		}
	}

	return zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("app", "dpmaster").
		Logger()
}

// Init sets the global level and replaces the global logger.
func Init(cfg Config) {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = New(cfg)

	log.Debug().
		Str("level", level.String()).
		Msg("logger initialized")
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

// NewComponent creates a logger built from cfg with a component name field.
func NewComponent(cfg Config, name string) zerolog.Logger {
	return New(cfg).With().Str("component", name).Logger()
}
