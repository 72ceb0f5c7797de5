package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the process logger. Pretty output is for local development;
// production emits plain JSON to stdout. Every line carries the service and
// instance fields so multi-node deployments stay attributable.
func New(level string, pretty bool, service, instance string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = l
	}

	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Str("instance", instance).
		Logger()
}

// InstanceID identifies this relay process, hostname first with a static
// fallback for containers without one.
func InstanceID() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "log-relay"
}
