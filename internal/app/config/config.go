package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Postgres PostgresConfig `yaml:"postgres"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	WSPath      string `yaml:"ws_path"`
	InitialLogs int    `yaml:"initial_logs"`
	SendBuffer  int    `yaml:"send_buffer"`
}

type UpstreamConfig struct {
	URL              string        `yaml:"url"`
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`
	ScoreDeadline    time.Duration `yaml:"score_deadline"`
}

// PostgresConfig is optional: with an empty conn_string the relay runs on
// in-memory adapters (useful for tests and local demos).
type PostgresConfig struct {
	ConnString string `yaml:"conn_string"`
	LogTable   string `yaml:"log_table"`
	KeyTable   string `yaml:"key_table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = "/ws"
	}
	if c.Server.InitialLogs == 0 {
		c.Server.InitialLogs = 100
	}
	if c.Server.SendBuffer == 0 {
		c.Server.SendBuffer = 64
	}
	if c.Upstream.ReconnectBackoff == 0 {
		c.Upstream.ReconnectBackoff = 5 * time.Second
	}
	if c.Upstream.ScoreDeadline == 0 {
		c.Upstream.ScoreDeadline = 5 * time.Second
	}
	if c.Postgres.LogTable == "" {
		c.Postgres.LogTable = "logs"
	}
	if c.Postgres.KeyTable == "" {
		c.Postgres.KeyTable = "api_keys"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Upstream.URL == "" {
		return fmt.Errorf("upstream.url is required")
	}
	if c.Server.InitialLogs < 0 {
		return fmt.Errorf("server.initial_logs must be >= 0")
	}
	if c.Upstream.ScoreDeadline <= 0 {
		return fmt.Errorf("upstream.score_deadline must be > 0")
	}
	if c.Upstream.ReconnectBackoff <= 0 {
		return fmt.Errorf("upstream.reconnect_backoff must be > 0")
	}
	return nil
}
