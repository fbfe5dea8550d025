// Package analysis cross-validates declared render annotations against the
// component composition actually found in a source unit.
//
// For one unit the engine extracts components, props and render tags,
// builds the declared render graph from the tags, builds the actual render
// graph by tracing every component's markup (following renderable content
// through property forwarding up to a depth bound), diffs the two graphs and
// turns each discrepancy into a warning diagnostic.
//
// The engine is pure: it never mutates the host tree and keeps no state
// between calls, so one Engine can analyze many units concurrently.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mvp-joe/rendercheck/internal/syntax"
)

// Default option values.
const (
	DefaultDepthBound   = 8
	DefaultComponentTag = "component"
	DefaultRendersTag   = "renders"
)

// Policy decides how a supplied component is checked against a render tag
// that names a different component.
type Policy string

const (
	// PolicyTransitive accepts supplied content that transitively renders the
	// declared target within the depth bound.
	PolicyTransitive Policy = "transitive"

	// PolicySingleHop only validates exact matches. Anything reached through
	// indirection is reported as unresolved.
	PolicySingleHop Policy = "single-hop"
)

// ParsePolicy parses a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyTransitive, PolicySingleHop:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown forwarding policy %q (want %q or %q)", s, PolicyTransitive, PolicySingleHop)
}

type options struct {
	depthBound   int
	componentTag string
	rendersTag   string
	policy       Policy
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

// WithDepthBound sets the maximum number of forwarding hops. Values below 1
// are ignored.
func WithDepthBound(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.depthBound = n
		}
	}
}

// WithComponentTag sets the tag name that marks a component.
func WithComponentTag(name string) Option {
	return func(o *options) {
		if name != "" {
			o.componentTag = name
		}
	}
}

// WithRendersTag sets the tag name that declares render targets.
func WithRendersTag(name string) Option {
	return func(o *options) {
		if name != "" {
			o.rendersTag = name
		}
	}
}

// WithPolicy sets the forwarding confidence policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		if p != "" {
			o.policy = p
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Engine analyzes source units.
type Engine struct {
	opts     options
	reporter *Reporter
}

// New creates an engine.
func New(opts ...Option) *Engine {
	o := options{
		depthBound:   DefaultDepthBound,
		componentTag: DefaultComponentTag,
		rendersTag:   DefaultRendersTag,
		policy:       PolicyTransitive,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		opts:     o,
		reporter: NewReporter(o.rendersTag),
	}
}

// DepthBound returns the configured forwarding depth bound.
func (e *Engine) DepthBound() int { return e.opts.depthBound }

// Policy returns the configured forwarding policy.
func (e *Engine) Policy() Policy { return e.opts.policy }

// Result is the outcome of analyzing one unit.
type Result struct {
	Path          string
	Components    []Component
	Properties    []Property
	Tags          []RenderTag
	Declared      *DeclaredGraph
	Actual        *ActualGraph
	Discrepancies []Discrepancy
	Diagnostics   []Diagnostic
}

// Component returns the component with the given name.
func (r *Result) Component(name string) (Component, bool) {
	for _, c := range r.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// Analyze runs the full analysis over one unit. The only error it returns is
// the context's error when ctx is cancelled; no partial result is returned
// in that case.
func (e *Engine) Analyze(ctx context.Context, host syntax.Host) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := newPass(host, &e.opts)
	if !p.hasRenderTags() {
		p.log.Debug("no render annotations, skipping unit")
		return p.result(nil, nil), nil
	}

	p.extract()
	p.buildDeclared()
	if err := p.buildUsage(ctx); err != nil {
		return nil, err
	}
	p.resolveUsage()
	p.diff()

	discrepancies := p.sortedDiscrepancies()
	return p.result(discrepancies, e.reporter.Report(discrepancies)), nil
}

// pass holds the state of one analysis over one unit.
type pass struct {
	host syntax.Host
	tree *syntax.Tree
	opts *options
	log  *slog.Logger

	components []*Component
	properties []*Property
	tags       []*RenderTag

	byNode    map[syntax.NodeID]ComponentID
	byName    map[string]ComponentID
	byMember  map[syntax.NodeID][]PropertyID
	propIndex map[ComponentID]map[string]PropertyID

	declared *DeclaredGraph
	actual   *ActualGraph

	usage *usageState

	discrepancies []Discrepancy
}

func newPass(host syntax.Host, opts *options) *pass {
	tree := host.Tree()
	return &pass{
		host:      host,
		tree:      tree,
		opts:      opts,
		log:       opts.logger.With("path", tree.Path),
		byNode:    make(map[syntax.NodeID]ComponentID),
		byName:    make(map[string]ComponentID),
		byMember:  make(map[syntax.NodeID][]PropertyID),
		propIndex: make(map[ComponentID]map[string]PropertyID),
		declared:  newGraph[DeclaredEdge](),
		actual:    newGraph[ActualEdge](),
	}
}

// hasRenderTags reports whether any node carries a component or renders tag.
func (p *pass) hasRenderTags() bool {
	for i := range p.tree.Nodes {
		for _, t := range p.host.Tags(p.tree.Nodes[i].ID) {
			if t.Name == p.opts.componentTag || t.Name == p.opts.rendersTag {
				return true
			}
		}
	}
	return false
}

func (p *pass) report(d Discrepancy) {
	p.discrepancies = append(p.discrepancies, d)
}

func (p *pass) result(discrepancies []Discrepancy, diagnostics []Diagnostic) *Result {
	r := &Result{
		Path:          p.tree.Path,
		Declared:      p.declared,
		Actual:        p.actual,
		Discrepancies: discrepancies,
		Diagnostics:   diagnostics,
	}
	for _, c := range p.components {
		r.Components = append(r.Components, *c)
	}
	for _, prop := range p.properties {
		r.Properties = append(r.Properties, *prop)
	}
	for _, t := range p.tags {
		r.Tags = append(r.Tags, *t)
	}
	if r.Diagnostics == nil {
		r.Diagnostics = []Diagnostic{}
	}
	return r
}

// subject names a component or a property for messages.
func (p *pass) subject(c ComponentID, prop PropertyID) string {
	if prop >= 0 {
		pr := p.properties[prop]
		return p.components[pr.Owner].Name + "." + pr.Name
	}
	if c >= 0 {
		return p.components[c].Name
	}
	return ""
}
