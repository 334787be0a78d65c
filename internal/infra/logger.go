package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger: human-readable console output in
// development, JSON lines everywhere else. An unparseable level falls back
// to info (debug in development).
func NewLogger(appEnv, level string) zerolog.Logger {
	return newLogger(os.Stdout, appEnv, level)
}

// NewCLILogger writes to stderr so command output on stdout stays clean.
func NewCLILogger(verbose bool) zerolog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return newLogger(os.Stderr, "development", level)
}

func newLogger(out io.Writer, appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
		if appEnv == "development" {
			lvl = zerolog.DebugLevel
		}
	}
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "stockprompt").Logger()
}

// Logger aliases zerolog.Logger for packages that only pass loggers along.
type Logger = zerolog.Logger
