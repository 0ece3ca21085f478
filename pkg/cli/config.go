package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/nearest/pkg/population"
	"github.com/haivivi/nearest/pkg/source"
)

const (
	// DefaultListen is the default server listen address
	DefaultListen = ":8080"

	// BackendMemory keeps the population in process memory
	BackendMemory = "memory"
	// BackendBadger keeps the population in BadgerDB
	BackendBadger = "badger"
)

// Config represents the configuration file of the nearest server
type Config struct {
	// Dims is the number of coordinates per point (default 2)
	Dims int `yaml:"dims" json:"dims"`

	// Capacity is the leaf bucket size of each group's tree (optional)
	Capacity int `yaml:"capacity,omitempty" json:"capacity,omitempty"`

	// Groups is the ordered pattern list
	Groups []string `yaml:"groups" json:"groups"`

	// Registry selects where the live population is kept
	Registry RegistryConfig `yaml:"registry,omitempty" json:"registry,omitempty"`

	// Listen is the server listen address (default ":8080")
	Listen string `yaml:"listen,omitempty" json:"listen,omitempty"`

	// LogLevel is one of debug, info, warn, error (default info)
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// RegistryConfig configures the population registry
type RegistryConfig struct {
	// Backend is "memory" (default) or "badger"
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// Dir is the badger data directory; empty runs badger in memory
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

func (c *Config) setDefaults() {
	if c.Dims == 0 {
		c.Dims = 2
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Registry.Backend == "" {
		c.Registry.Backend = BackendMemory
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration after defaults are applied
func (c *Config) Validate() error {
	if c.Dims < 0 {
		return fmt.Errorf("dims must be positive, got %d", c.Dims)
	}
	switch c.Registry.Backend {
	case BackendMemory, BackendBadger:
	default:
		return fmt.Errorf("unknown registry backend %q", c.Registry.Backend)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseConfig parses YAML configuration data and applies defaults
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads configuration from a local path or an s3:// location.
// An empty location returns the defaults.
func LoadConfig(ctx context.Context, location string) (*Config, error) {
	if location == "" {
		cfg := &Config{}
		cfg.setDefaults()
		return cfg, nil
	}
	data, err := source.ReadFile(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// Open creates the registry described by the configuration
func (r RegistryConfig) Open(logger *slog.Logger) (population.Registry, error) {
	switch r.Backend {
	case BackendMemory, "":
		return population.NewMemory(), nil
	case BackendBadger:
		return population.NewBadger(population.BadgerOptions{
			Dir:      r.Dir,
			InMemory: r.Dir == "",
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown registry backend %q", r.Backend)
	}
}

// ParseLevel parses a log level name
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewLogger creates a text logger writing to w at the configured level
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
