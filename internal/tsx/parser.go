package tsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Parser parses TypeScript and JavaScript sources (with or without JSX) into
// lowered units.
type Parser struct {
	tsx        *sitter.Language
	typescript *sitter.Language
	renderable *typeClassifier
}

// Option configures a Parser.
type Option func(*parserConfig)

type parserConfig struct {
	renderableTypes []string
}

// WithRenderableTypes replaces the glob patterns used to classify a property
// type as accepting renderable content.
func WithRenderableTypes(patterns []string) Option {
	return func(c *parserConfig) {
		c.renderableTypes = patterns
	}
}

// NewParser creates a new parser.
func NewParser(opts ...Option) (*Parser, error) {
	cfg := &parserConfig{renderableTypes: DefaultRenderableTypes}
	for _, opt := range opts {
		opt(cfg)
	}

	classifier, err := newTypeClassifier(cfg.renderableTypes)
	if err != nil {
		return nil, err
	}

	return &Parser{
		tsx:        sitter.NewLanguage(typescript.LanguageTSX()),
		typescript: sitter.NewLanguage(typescript.LanguageTypescript()),
		renderable: classifier,
	}, nil
}

// SupportedExtensions lists the file extensions the parser accepts.
var SupportedExtensions = []string{".tsx", ".jsx", ".ts", ".js"}

// Supports reports whether the path has a supported extension.
func Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ParseFile reads and parses a source file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Unit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, path, source)
}

// Parse parses source as the unit at path. The language is chosen from the
// extension: plain .ts uses the TypeScript grammar, everything else TSX.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lang, langName := p.tsx, "tsx"
	if strings.EqualFold(filepath.Ext(path), ".ts") {
		lang, langName = p.typescript, "typescript"
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set %s language: %w", langName, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s file: %s", langName, path)
	}
	defer tree.Close()

	l := newLowerer(path, source, p.renderable)
	l.lowerProgram(tree.RootNode())
	l.resolve()

	unit := l.unit()
	unit.Language = langName
	unit.HasErrors = tree.RootNode().HasError()
	return unit, nil
}
