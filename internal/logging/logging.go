// Package logging builds the gateway's structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

const prefix = "gsg"

// New returns a slog.Logger backed by a charmbracelet/log handler. format is
// one of text, json or logfmt; level is one of debug, info, warn or error.
func New(w io.Writer, level string, format string) (*slog.Logger, error) {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	formatter, err := parseFormatter(format)
	if err != nil {
		return nil, err
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           parsedLevel,
		Formatter:       formatter,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	return slog.New(handler), nil
}

func parseLevel(level string) (charmlog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return charmlog.InfoLevel, nil
	}
	if level == "warning" {
		level = "warn"
	}

	parsed, err := charmlog.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", level, err)
	}

	return parsed, nil
}

func parseFormatter(format string) (charmlog.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return charmlog.TextFormatter, nil
	case "json":
		return charmlog.JSONFormatter, nil
	case "logfmt":
		return charmlog.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("unknown log format %q", format)
	}
}
