package logrelay

import (
	"github.com/jadavkeshav/log-management/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// ServerConfig configures the websocket gateway listener.
	ServerConfig = config.ServerConfig
	// UpstreamConfig holds the scoring service URL and timing knobs.
	UpstreamConfig = config.UpstreamConfig
	// PostgresConfig configures the log and API key tables.
	PostgresConfig = config.PostgresConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LogConfig configures the structured logger.
	LogConfig = config.LogConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
