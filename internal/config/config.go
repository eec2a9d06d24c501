// Package config loads the ibtopo configuration file.
//
// Config file locations (priority order):
//  1. $IBTOPO_CONFIG
//  2. ./ibtopo.yaml
//  3. ~/.config/ibtopo/config.yaml
//  4. /etc/ibtopo/config.yaml
//
// Command line flags override the file; NEO4J_* environment variables
// override the neo4j section.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Export formats understood by the codec package
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatAnsible = "ansible-inventory"
)

// Defaults
const (
	DefaultOutputDir = "."
	DefaultDebounce  = 2 * time.Second
	DefaultNeo4jURI  = "bolt://localhost:7687"
	DefaultNeo4jDB   = "neo4j"
	DefaultNeo4jUser = "neo4j"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the configuration used when no file is found
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{FormatJSON}
	}
	if c.Neo4j.URI == "" {
		c.Neo4j.URI = DefaultNeo4jURI
	}
	if c.Neo4j.Database == "" {
		c.Neo4j.Database = DefaultNeo4jDB
	}
	if c.Neo4j.Username == "" {
		c.Neo4j.Username = DefaultNeo4jUser
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
}

// ApplyEnv overrides the neo4j section from NEO4J_URI, NEO4J_DATABASE,
// NEO4J_USERNAME and NEO4J_PASSWORD. A set NEO4J_URI also enables the sync.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
		c.Neo4j.Enabled = true
	}
	if v := getenv("NEO4J_DATABASE"); v != "" {
		c.Neo4j.Database = v
	}
	if v := getenv("NEO4J_USERNAME"); v != "" {
		c.Neo4j.Username = v
	}
	if v := getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
}

// Validate reports the first problem that would stop a run
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input.Dir) == "" {
		return fmt.Errorf("%w: input directory is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Output.Formats))
	for _, f := range c.Output.Formats {
		switch f {
		case FormatJSON, FormatYAML, FormatAnsible:
		default:
			return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, f)
		}
		if seen[f] {
			return fmt.Errorf("%w: output format %q listed twice", ErrInvalidConfig, f)
		}
		seen[f] = true
	}
	if c.Paths.Workers < 0 {
		return fmt.Errorf("%w: path workers must not be negative, got %d", ErrInvalidConfig, c.Paths.Workers)
	}
	if c.Database.Keep < 0 {
		return fmt.Errorf("%w: database keep must not be negative, got %d", ErrInvalidConfig, c.Database.Keep)
	}
	if c.Watch.Debounce != nil && c.Watch.Debounce.Duration() <= 0 {
		return fmt.Errorf("%w: watch debounce must be positive", ErrInvalidConfig)
	}
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("%w: neo4j uri is required when neo4j is enabled", ErrInvalidConfig)
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Input: %s, Output: %s (%s)\n",
		c.Input.Dir, c.Output.Dir, strings.Join(c.Output.Formats, ","))
	db := c.Database.Path
	if db == "" {
		db = "disabled"
	}
	neo := "disabled"
	if c.Neo4j.Enabled {
		neo = c.Neo4j.URI
	}
	summary += fmt.Sprintf("Snapshots: %s, Neo4j: %s, Workers: %d", db, neo, c.Paths.Workers)
	if c.Watch.Enabled {
		summary += fmt.Sprintf(", Watch: %s", c.Watch.DebounceDuration())
	}
	return summary
}
