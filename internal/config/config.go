// Package config loads the preflight.yaml project file and the process
// environment. The project file names the engine, the cache directory,
// and the queryset; the environment carries the database URL, which only
// the commands that talk to a database ever read.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jakerosado/preflight/internal/query"
)

// DefaultPath is where the project file lives unless --config or
// PREFLIGHT_CONFIG says otherwise.
const DefaultPath = "preflight.yaml"

// Version is the project file version this build reads.
const Version = 1

// Defaults applied to absent fields.
const (
	DefaultCacheDir       = ".preflight"
	DefaultQueryset       = "queryset.json"
	DefaultMaxConnections = 4
	DefaultRetryAttempts  = 2
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// Config is the parsed project file.
type Config struct {
	Version  int    `yaml:"version"`
	Engine   string `yaml:"engine"`
	CacheDir string `yaml:"cache_dir"`
	Queryset string `yaml:"queryset"`

	// MaxConnections bounds concurrent introspection. It should match
	// what the database allows this tool; the verifier sizes its worker
	// pool to it.
	MaxConnections int `yaml:"max_connections"`

	Retry Retry `yaml:"retry"`
}

// Retry shapes the reconnect policy for connections lost mid-describe.
type Retry struct {
	Attempts  int      `yaml:"attempts"`
	BaseDelay Duration `yaml:"base_delay"`
}

// Duration is a time.Duration that reads from YAML strings like "500ms".
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"500ms\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string back out.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Load reads, defaults, and validates the project file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a project file. Unknown fields are rejected so a typo
// surfaces as an error instead of silently falling back to a default.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = Version
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Queryset == "" {
		c.Queryset = DefaultQueryset
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = DefaultRetryAttempts
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = Duration(DefaultRetryBaseDelay)
	}
}

func (c *Config) validate() error {
	if c.Version != Version {
		return fmt.Errorf("config version %d, this build reads version %d", c.Version, Version)
	}
	if !query.KnownEngine(c.Engine) {
		return fmt.Errorf("engine must be %q or %q, got %q",
			query.EnginePostgres, query.EngineSQLite, c.Engine)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1, got %d", c.MaxConnections)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative, got %s", c.Retry.BaseDelay)
	}
	return nil
}

// Env is the process environment preflight consults.
type Env struct {
	// DatabaseURL is the connection target for prepare. The check path
	// never reads it; an offline check must work with no database
	// reachable and no URL set.
	DatabaseURL string `env:"DATABASE_URL"`

	// ConfigPath relocates the project file.
	ConfigPath string `env:"PREFLIGHT_CONFIG"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// ResolvePath picks the project file path: an explicit flag wins, then
// PREFLIGHT_CONFIG, then the default.
func ResolvePath(flag string, e Env) string {
	if flag != "" {
		return flag
	}
	if e.ConfigPath != "" {
		return e.ConfigPath
	}
	return DefaultPath
}
