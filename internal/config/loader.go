package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the per-project configuration directory.
const DirName = ".rendercheck"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (RENDERCHECK_*)
// 2. Config file (.rendercheck/config.yml or .rendercheck/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	// RENDERCHECK_ANALYSIS_FORWARDING_POLICY -> analysis.forwarding_policy
	v.SetEnvPrefix("RENDERCHECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Analysis configuration
	v.BindEnv("analysis.forwarding_depth_bound")
	v.BindEnv("analysis.forwarding_policy")
	v.BindEnv("analysis.renderable_types")
	v.BindEnv("analysis.concurrency")
	v.BindEnv("analysis.cache_size")

	// Tag names
	v.BindEnv("tags.component")
	v.BindEnv("tags.renders")

	// Output configuration
	v.BindEnv("output.format")
	v.BindEnv("output.fail_on_warnings")

	// Persistent cache
	v.BindEnv("cache.enabled")
	v.BindEnv("cache.path")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("analysis.forwarding_depth_bound", defaults.Analysis.ForwardingDepthBound)
	v.SetDefault("analysis.forwarding_policy", defaults.Analysis.ForwardingPolicy)
	v.SetDefault("analysis.renderable_types", defaults.Analysis.RenderableTypes)
	v.SetDefault("analysis.concurrency", defaults.Analysis.Concurrency)
	v.SetDefault("analysis.cache_size", defaults.Analysis.CacheSize)

	v.SetDefault("tags.component", defaults.Tags.Component)
	v.SetDefault("tags.renders", defaults.Tags.Renders)

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.fail_on_warnings", defaults.Output.FailOnWarnings)

	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.path", defaults.Cache.Path)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
