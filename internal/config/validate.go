package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/rendercheck/internal/analysis"
)

var (
	// ErrInvalidDepthBound indicates a forwarding depth bound below one
	ErrInvalidDepthBound = errors.New("invalid forwarding depth bound")

	// ErrInvalidPolicy indicates an unknown forwarding policy
	ErrInvalidPolicy = errors.New("invalid forwarding policy")

	// ErrInvalidConcurrency indicates a negative concurrency
	ErrInvalidConcurrency = errors.New("invalid concurrency")

	// ErrInvalidCacheSize indicates a negative cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidTagName indicates an empty or malformed tag name
	ErrInvalidTagName = errors.New("invalid tag name")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAnalysis(&cfg.Analysis); err != nil {
		errs = append(errs, err)
	}

	if err := validateTags(&cfg.Tags); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validateOutput(&cfg.Output); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateAnalysis(cfg *AnalysisConfig) error {
	var errs []error

	if cfg.ForwardingDepthBound < 1 {
		errs = append(errs, fmt.Errorf("%w: forwarding_depth_bound must be at least 1, got %d", ErrInvalidDepthBound, cfg.ForwardingDepthBound))
	}

	if _, err := analysis.ParsePolicy(cfg.ForwardingPolicy); err != nil {
		errs = append(errs, fmt.Errorf("%w: must be '%s' or '%s', got '%s'", ErrInvalidPolicy,
			analysis.PolicyTransitive, analysis.PolicySingleHop, cfg.ForwardingPolicy))
	}

	for _, pattern := range cfg.RenderableTypes {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			errs = append(errs, fmt.Errorf("%w: renderable_types entry '%s': %v", ErrInvalidPattern, pattern, err))
		}
	}

	if cfg.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("%w: concurrency cannot be negative, got %d", ErrInvalidConcurrency, cfg.Concurrency))
	}

	// Zero disables the cache.
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	return joinErrors(errs)
}

func validateTags(cfg *TagsConfig) error {
	var errs []error

	for _, tag := range []struct{ field, value string }{
		{"component", cfg.Component},
		{"renders", cfg.Renders},
	} {
		if !validTagName(tag.value) {
			errs = append(errs, fmt.Errorf("%w: tags.%s must be a single word without '@', got '%s'", ErrInvalidTagName, tag.field, tag.value))
		}
	}

	if cfg.Component != "" && cfg.Component == cfg.Renders {
		errs = append(errs, fmt.Errorf("%w: component and renders tags must differ", ErrInvalidTagName))
	}

	return joinErrors(errs)
}

func validTagName(name string) bool {
	if name == "" || strings.HasPrefix(name, "@") {
		return false
	}
	return !strings.ContainsAny(name, " \t\r\n{}*")
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	// Empty include patterns are allowed; explicit file arguments still work.
	for _, group := range []struct {
		field    string
		patterns []string
	}{
		{"include", cfg.Include},
		{"ignore", cfg.Ignore},
	} {
		for _, pattern := range group.patterns {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				errs = append(errs, fmt.Errorf("%w: paths.%s entry '%s': %v", ErrInvalidPattern, group.field, pattern, err))
			}
		}
	}

	return joinErrors(errs)
}

func validateOutput(cfg *OutputConfig) error {
	format := strings.ToLower(cfg.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: must be 'text' or 'json', got '%s'", ErrInvalidFormat, cfg.Format)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear
// formatting. Every joined error stays matchable with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	args := make([]any, len(errs))
	for i, err := range errs {
		args[i] = err
	}

	return fmt.Errorf("validation failed:"+strings.Repeat("\n  - %w", len(errs)), args...)
}
