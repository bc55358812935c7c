// Package config loads the tool configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jobforge/jobforge/pkg/telemetry"
)

// Config is the tool configuration.
type Config struct {
	// SearchPath lists extra directories consulted when resolving
	// include directives.
	SearchPath []string `yaml:"search_path"`

	// OutputDir receives the generated XML files.
	OutputDir string `yaml:"output_dir" validate:"required"`

	// AllowEmptyVariables substitutes empty strings for missing
	// placeholders instead of failing the run.
	AllowEmptyVariables bool `yaml:"allow_empty_variables"`

	// Recursive walks definition directories recursively; Excludes
	// names directory basenames skipped during the walk.
	Recursive bool     `yaml:"recursive"`
	Excludes  []string `yaml:"exclude"`

	// Workers bounds concurrent output writes.
	Workers int `yaml:"workers" validate:"min=0"`

	// PluginsDir holds component alias manifests.
	PluginsDir string `yaml:"plugins_dir"`

	Cache     CacheConfig      `yaml:"cache"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// CacheConfig configures the job cache used by update.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: "out",
		Workers:   4,
		Cache: CacheConfig{
			Enabled: true,
			Path:    defaultCachePath(),
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads a configuration file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %q: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return nil
}

func defaultCachePath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "jobforge", "cache.db")
}
