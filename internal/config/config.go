// Package config provides configuration loading for rendercheck.
//
// Configuration is read from .rendercheck/config.yml (or config.yaml) in the
// project root, with RENDERCHECK_* environment variable overrides:
//
//	analysis:
//	  forwarding_depth_bound: 8
//	  forwarding_policy: transitive   # or single-hop
//	  renderable_types: ["React.ReactNode", "JSX.Element"]
//	  concurrency: 0                  # 0 means GOMAXPROCS
//	  cache_size: 1000
//	tags:
//	  component: component
//	  renders: renders
//	paths:
//	  include: ["**/*.tsx"]
//	  ignore: ["node_modules/**"]
//	output:
//	  format: text                    # or json
//	  fail_on_warnings: true
//	cache:
//	  enabled: false                  # persist results across runs
//	  path: .rendercheck/cache.db
//
// Nested fields map to environment variables with underscores, for example
// RENDERCHECK_ANALYSIS_FORWARDING_POLICY.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"path/filepath"

	"github.com/mvp-joe/rendercheck/internal/analysis"
	"github.com/mvp-joe/rendercheck/internal/checker"
	"github.com/mvp-joe/rendercheck/internal/tsx"
)

// Config represents the complete rendercheck configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Tags     TagsConfig     `yaml:"tags" mapstructure:"tags"`
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
}

// AnalysisConfig tunes the engine and the multi-file driver.
type AnalysisConfig struct {
	ForwardingDepthBound int      `yaml:"forwarding_depth_bound" mapstructure:"forwarding_depth_bound"` // max property forwarding hops
	ForwardingPolicy     string   `yaml:"forwarding_policy" mapstructure:"forwarding_policy"`           // "transitive" or "single-hop"
	RenderableTypes      []string `yaml:"renderable_types" mapstructure:"renderable_types"`             // glob patterns for renderable prop types
	Concurrency          int      `yaml:"concurrency" mapstructure:"concurrency"`                       // parallel files, 0 = GOMAXPROCS
	CacheSize            int      `yaml:"cache_size" mapstructure:"cache_size"`                         // cached file results, 0 disables
}

// TagsConfig names the documentation tags.
type TagsConfig struct {
	Component string `yaml:"component" mapstructure:"component"`
	Renders   string `yaml:"renders" mapstructure:"renders"`
}

// PathsConfig defines which files to check and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format         string `yaml:"format" mapstructure:"format"` // "text" or "json"
	FailOnWarnings bool   `yaml:"fail_on_warnings" mapstructure:"fail_on_warnings"`
}

// CacheConfig controls the persistent result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // relative to the project root
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			ForwardingDepthBound: analysis.DefaultDepthBound,
			ForwardingPolicy:     string(analysis.PolicyTransitive),
			RenderableTypes:      append([]string(nil), tsx.DefaultRenderableTypes...),
			Concurrency:          0,
			CacheSize:            1000,
		},
		Tags: TagsConfig{
			Component: analysis.DefaultComponentTag,
			Renders:   analysis.DefaultRendersTag,
		},
		Paths: PathsConfig{
			Include: []string{
				"**/*.tsx",
				"**/*.jsx",
				"**/*.ts",
				"**/*.js",
			},
			Ignore: []string{
				"node_modules/**",
				"**/node_modules/**",
				".git/**",
				"dist/**",
				"build/**",
				"coverage/**",
				"**/*.d.ts",
			},
		},
		Output: OutputConfig{
			Format:         "text",
			FailOnWarnings: true,
		},
		Cache: CacheConfig{
			Enabled: false,
			Path:    filepath.Join(DirName, CacheFileName),
		},
	}
}

// CacheFileName is the default name of the persistent result cache.
const CacheFileName = "cache.db"

// CachePath returns the absolute cache database path for a project root.
func (c *Config) CachePath(rootDir string) string {
	path := c.Cache.Path
	if path == "" {
		path = filepath.Join(DirName, CacheFileName)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

// Fingerprint identifies the settings that affect analysis results. Cached
// results are only valid for the fingerprint they were produced under.
func (c *Config) Fingerprint(version string) string {
	data, _ := json.Marshal(struct {
		Version         string
		DepthBound      int
		Policy          string
		RenderableTypes []string
		Tags            TagsConfig
	}{
		Version:         version,
		DepthBound:      c.Analysis.ForwardingDepthBound,
		Policy:          c.Analysis.ForwardingPolicy,
		RenderableTypes: c.Analysis.RenderableTypes,
		Tags:            c.Tags,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ToEngineOptions converts the analysis and tag settings into engine options.
// The configuration must have passed Validate.
func (c *Config) ToEngineOptions(logger *slog.Logger) []analysis.Option {
	opts := []analysis.Option{
		analysis.WithDepthBound(c.Analysis.ForwardingDepthBound),
		analysis.WithComponentTag(c.Tags.Component),
		analysis.WithRendersTag(c.Tags.Renders),
	}
	if policy, err := analysis.ParsePolicy(c.Analysis.ForwardingPolicy); err == nil {
		opts = append(opts, analysis.WithPolicy(policy))
	}
	if logger != nil {
		opts = append(opts, analysis.WithLogger(logger))
	}
	return opts
}

// ToParserOptions converts the renderable type patterns into parser options.
func (c *Config) ToParserOptions() []tsx.Option {
	if len(c.Analysis.RenderableTypes) == 0 {
		return nil
	}
	return []tsx.Option{tsx.WithRenderableTypes(c.Analysis.RenderableTypes)}
}

// ToCheckerOptions converts the configuration into options for a checker,
// including the engine and parser options.
func (c *Config) ToCheckerOptions(logger *slog.Logger) []checker.Option {
	opts := []checker.Option{
		checker.WithConcurrency(c.Analysis.Concurrency),
		checker.WithCacheSize(c.Analysis.CacheSize),
		checker.WithEngineOptions(c.ToEngineOptions(logger)...),
		checker.WithParserOptions(c.ToParserOptions()...),
	}
	if logger != nil {
		opts = append(opts, checker.WithLogger(logger))
	}
	return opts
}
