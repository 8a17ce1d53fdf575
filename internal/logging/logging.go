// Package logging builds the zerolog root logger shared by the server and the CLI.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/terraconstructs/campusapi/internal/config"
)

// FieldComponent tags log lines with the subsystem that produced them.
const FieldComponent = "component"

// New creates the root logger from configuration and installs it as the zerolog/log default.
// Output goes to stderr unless w is provided.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case "json":
		zl = zerolog.New(w)
	default:
		zl = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
	}
	zl = zl.Level(level).With().Timestamp().Logger()

	log.Logger = zl
	return zl
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str(FieldComponent, name).Logger()
}
