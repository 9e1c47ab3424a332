// Package logger builds the structured logger shared by the Lambda handlers.
package logger

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Config controls logger output.
type Config struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// ParseLevel maps a config level name to a charm log level. Unknown names mean info.
func ParseLevel(level string) charmlog.Level {
	switch level {
	case "debug":
		return charmlog.DebugLevel
	case "info":
		return charmlog.InfoLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// New returns a logger. JSON output is what CloudWatch Logs Insights parses.
func New(cfg Config) *charmlog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		Level:           ParseLevel(cfg.Level),
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	}
	return l
}

// Discard returns a logger that writes nowhere. Tests use it.
func Discard() *charmlog.Logger {
	return charmlog.New(io.Discard)
}
