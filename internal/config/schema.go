package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	Paths    PathsConfig    `yaml:"paths"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Server   ServerConfig   `yaml:"server"`
	Watch    WatchConfig    `yaml:"watch"`
}

// InputConfig locates the fabric dumps
type InputConfig struct {
	Dir string `yaml:"dir"`
}

// OutputConfig selects the exported topology files
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"` // json, yaml, ansible-inventory
}

// DatabaseConfig holds the snapshot database settings.
// An empty path disables snapshots.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	Keep int    `yaml:"keep,omitempty"` // snapshots kept per subnet, 0 = all
}

// Neo4jConfig holds the graph database settings
type Neo4jConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password,omitempty"`
}

// PathsConfig tunes path reconstruction
type PathsConfig struct {
	Workers int `yaml:"workers"` // 0 or 1 = sequential
}

// LogConfig selects log level and format
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, tint, text, json
}

// MetricsConfig controls metric export
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"` // write metrics here after each run
}

// ServerConfig controls the HTTP server run in watch mode. It serves
// /metrics, /healthz, the /events stream and the snapshot API.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"` // empty disables the server
}

// WatchConfig controls the re-run on input changes
type WatchConfig struct {
	Enabled  bool      `yaml:"enabled"`
	Debounce *Duration `yaml:"debounce,omitempty"`
}

// DebounceDuration returns the configured debounce or the default
func (w WatchConfig) DebounceDuration() time.Duration {
	if w.Debounce == nil {
		return DefaultDebounce
	}
	return w.Debounce.Duration()
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
