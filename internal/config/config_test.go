package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/rendercheck/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .rendercheck/config.yml and config.yaml
// - Load() merges a partial config file with defaults
// - Environment variables override config file values and defaults
// - Load() returns error for malformed YAML and invalid values
// - Validate() rejects bad depth bounds, policies, tags, globs, formats, negative sizes
// - Validate() reports every invalid field and keeps sentinel errors matchable
// - ToEngineOptions() produces an engine with the configured settings
// - CachePath() resolves relative cache paths against the project root
// - Fingerprint() changes with analysis settings and version, not with output settings

func writeConfig(t *testing.T, root, name, content string) {
	t.Helper()

	dir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 8, cfg.Analysis.ForwardingDepthBound)
	assert.Equal(t, "transitive", cfg.Analysis.ForwardingPolicy)
	assert.NotEmpty(t, cfg.Analysis.RenderableTypes)
	assert.Equal(t, 0, cfg.Analysis.Concurrency)
	assert.Equal(t, 1000, cfg.Analysis.CacheSize)

	assert.Equal(t, "component", cfg.Tags.Component)
	assert.Equal(t, "renders", cfg.Tags.Renders)

	assert.Contains(t, cfg.Paths.Include, "**/*.tsx")
	assert.Contains(t, cfg.Paths.Ignore, "node_modules/**")

	assert.Equal(t, "text", cfg.Output.Format)
	assert.True(t, cfg.Output.FailOnWarnings)

	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(".rendercheck", "cache.db"), cfg.Cache.Path)

	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
analysis:
  forwarding_depth_bound: 4
  forwarding_policy: single-hop
  renderable_types: ["Slot*", "React.ReactNode"]
  concurrency: 2
  cache_size: 0

tags:
  component: widget
  renders: draws

paths:
  include:
    - "src/**/*.tsx"
  ignore:
    - "src/legacy/**"

output:
  format: json
  fail_on_warnings: false

cache:
  enabled: true
  path: tmp/results.db
`)

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Analysis.ForwardingDepthBound)
	assert.Equal(t, "single-hop", cfg.Analysis.ForwardingPolicy)
	assert.Equal(t, []string{"Slot*", "React.ReactNode"}, cfg.Analysis.RenderableTypes)
	assert.Equal(t, 2, cfg.Analysis.Concurrency)
	assert.Equal(t, 0, cfg.Analysis.CacheSize)
	assert.Equal(t, "widget", cfg.Tags.Component)
	assert.Equal(t, "draws", cfg.Tags.Renders)
	assert.Equal(t, []string{"src/**/*.tsx"}, cfg.Paths.Include)
	assert.Equal(t, []string{"src/legacy/**"}, cfg.Paths.Ignore)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.Output.FailOnWarnings)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "tmp/results.db", cfg.Cache.Path)
}

func TestLoadConfig_LoadsFromConfigYaml(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yaml", `
analysis:
  forwarding_depth_bound: 12
`)

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Analysis.ForwardingDepthBound)
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
tags:
  renders: draws
`)

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)

	assert.Equal(t, "draws", cfg.Tags.Renders)
	assert.Equal(t, "component", cfg.Tags.Component)
	assert.Equal(t, 8, cfg.Analysis.ForwardingDepthBound)
	assert.Equal(t, Default().Paths.Include, cfg.Paths.Include)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
analysis:
  forwarding_depth_bound: 4
  forwarding_policy: transitive
output:
  format: text
`)

	t.Setenv("RENDERCHECK_ANALYSIS_FORWARDING_POLICY", "single-hop")
	t.Setenv("RENDERCHECK_OUTPUT_FORMAT", "json")

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)

	assert.Equal(t, "single-hop", cfg.Analysis.ForwardingPolicy)
	assert.Equal(t, "json", cfg.Output.Format)

	// Not overridden, comes from the file.
	assert.Equal(t, 4, cfg.Analysis.ForwardingDepthBound)
}

func TestLoadConfig_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	t.Setenv("RENDERCHECK_ANALYSIS_FORWARDING_DEPTH_BOUND", "3")
	t.Setenv("RENDERCHECK_TAGS_COMPONENT", "widget")
	t.Setenv("RENDERCHECK_OUTPUT_FAIL_ON_WARNINGS", "false")

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Analysis.ForwardingDepthBound)
	assert.Equal(t, "widget", cfg.Tags.Component)
	assert.False(t, cfg.Output.FailOnWarnings)
	assert.Equal(t, "renders", cfg.Tags.Renders)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
analysis:
  forwarding_policy: "unclosed quote
  forwarding_depth_bound: not-a-number
`)

	cfg, err := NewLoader(root).Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
analysis:
  forwarding_depth_bound: 0
  forwarding_policy: eventually
`)

	cfg, err := NewLoader(root).Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrInvalidDepthBound)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_RejectsInvalidFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero depth bound", func(c *Config) { c.Analysis.ForwardingDepthBound = 0 }, ErrInvalidDepthBound},
		{"unknown policy", func(c *Config) { c.Analysis.ForwardingPolicy = "eventually" }, ErrInvalidPolicy},
		{"bad renderable pattern", func(c *Config) { c.Analysis.RenderableTypes = []string{"React.[Node"} }, ErrInvalidPattern},
		{"negative concurrency", func(c *Config) { c.Analysis.Concurrency = -1 }, ErrInvalidConcurrency},
		{"negative cache size", func(c *Config) { c.Analysis.CacheSize = -5 }, ErrInvalidCacheSize},
		{"empty component tag", func(c *Config) { c.Tags.Component = "" }, ErrInvalidTagName},
		{"tag with at sign", func(c *Config) { c.Tags.Renders = "@renders" }, ErrInvalidTagName},
		{"tag with space", func(c *Config) { c.Tags.Renders = "render s" }, ErrInvalidTagName},
		{"same tag names", func(c *Config) { c.Tags.Renders = c.Tags.Component }, ErrInvalidTagName},
		{"bad include pattern", func(c *Config) { c.Paths.Include = []string{"src/[a"} }, ErrInvalidPattern},
		{"bad ignore pattern", func(c *Config) { c.Paths.Ignore = []string{"dist/[a-"} }, ErrInvalidPattern},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }, ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_AcceptsUppercaseFormat(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Output.Format = "JSON"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_ReturnsMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Analysis.ForwardingDepthBound = -1
	cfg.Analysis.Concurrency = -1
	cfg.Output.Format = "xml"

	err := Validate(cfg)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "forwarding_depth_bound")
	assert.Contains(t, err.Error(), "concurrency")
	assert.Contains(t, err.Error(), "'xml'")
	assert.ErrorIs(t, err, ErrInvalidDepthBound)
	assert.ErrorIs(t, err, ErrInvalidConcurrency)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestToEngineOptions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Analysis.ForwardingDepthBound = 3
	cfg.Analysis.ForwardingPolicy = "single-hop"

	engine := analysis.New(cfg.ToEngineOptions(nil)...)
	assert.Equal(t, 3, engine.DepthBound())
	assert.Equal(t, analysis.PolicySingleHop, engine.Policy())

	assert.Len(t, cfg.ToParserOptions(), 1)
	cfg.Analysis.RenderableTypes = nil
	assert.Empty(t, cfg.ToParserOptions())
}

func TestCachePath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, filepath.Join("/project", ".rendercheck", "cache.db"), cfg.CachePath("/project"))

	cfg.Cache.Path = "tmp/rc.db"
	assert.Equal(t, filepath.Join("/project", "tmp", "rc.db"), cfg.CachePath("/project"))

	cfg.Cache.Path = "/var/cache/rc.db"
	assert.Equal(t, "/var/cache/rc.db", cfg.CachePath("/project"))

	cfg.Cache.Path = ""
	assert.Equal(t, filepath.Join("/project", ".rendercheck", "cache.db"), cfg.CachePath("/project"))
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	base := Default().Fingerprint("1.0.0")
	assert.Equal(t, base, Default().Fingerprint("1.0.0"))
	assert.NotEqual(t, base, Default().Fingerprint("1.0.1"))

	cfg := Default()
	cfg.Analysis.ForwardingPolicy = "single-hop"
	assert.NotEqual(t, base, cfg.Fingerprint("1.0.0"))

	cfg = Default()
	cfg.Tags.Renders = "slot"
	assert.NotEqual(t, base, cfg.Fingerprint("1.0.0"))

	cfg = Default()
	cfg.Output.Format = "json"
	cfg.Analysis.Concurrency = 4
	assert.Equal(t, base, cfg.Fingerprint("1.0.0"))
}
