package analysis

import (
	"context"
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/rendercheck/internal/syntax"
)

// slotKind tells what happens to a value at a position in the markup.
type slotKind int

const (
	slotRender slotKind = iota // Rendered by the component itself
	slotSupply                 // Supplied to a renderable property of a known component
	slotIgnore                 // Explicit attribute of a host element
	slotEscape                 // Handed to code the analysis cannot follow
)

type slot struct {
	kind  slotKind
	prop  PropertyID // Receiving property for slotSupply
	owner *supply    // Innermost supply whose markup is being scanned
}

// supply is markup instantiated at a call site and passed to a renderable
// property of another component.
type supply struct {
	caller ComponentID
	prop   PropertyID
	target Target
	span   syntax.Span
	nested []*supply // Supplies inside this supply's attributes
	direct []Target  // Instantiated directly inside the supplied markup
	result walkResult
}

// usageState is what the scan collects before forwarding is resolved.
type usageState struct {
	rendered   []bool // Property value rendered by its own component
	escapes    []bool // Property value handed to unknown code
	forwarding graph.Graph[PropertyID, PropertyID]
	supplies   []*supply
	sinks      []walkResult
}

// buildUsage scans every component's implementation. ctx is checked before
// each component so a host can abandon a long analysis between components.
func (p *pass) buildUsage(ctx context.Context) error {
	u := &usageState{
		rendered:   make([]bool, len(p.properties)),
		escapes:    make([]bool, len(p.properties)),
		forwarding: graph.New(func(id PropertyID) PropertyID { return id }, graph.Directed()),
	}
	for _, prop := range p.properties {
		_ = u.forwarding.AddVertex(prop.ID)
	}
	p.usage = u

	for _, c := range p.components {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, child := range p.tree.Node(c.Node).Children {
			p.scan(c, child, slot{kind: slotRender})
		}
	}
	return nil
}

func (p *pass) scan(c *Component, id syntax.NodeID, s slot) {
	n := p.tree.Node(id)
	switch n.Kind {
	case syntax.KindMember, syntax.KindTypeDecl:
		return
	case syntax.KindDefinition:
		if _, nested := p.byNode[id]; nested {
			return
		}
	case syntax.KindElement:
		p.scanElement(c, n, s)
		return
	case syntax.KindReference:
		p.scanReference(c, n, s)
		return
	}
	for _, child := range n.Children {
		p.scan(c, child, s)
	}
}

func (p *pass) scanElement(c *Component, n *syntax.Node, s slot) {
	// Fragments are transparent.
	if n.Name == "" {
		for _, a := range n.Children {
			for _, v := range p.tree.Node(a).Children {
				p.scan(c, v, s)
			}
		}
		return
	}

	target := p.elementTarget(n)
	owner := s.owner
	if s.kind == slotSupply {
		sup := &supply{caller: c.ID, prop: s.prop, target: target, span: n.Span}
		p.usage.supplies = append(p.usage.supplies, sup)
		if owner != nil {
			owner.nested = append(owner.nested, sup)
		}
		owner = sup
	} else {
		p.addActual(c.ID, target, Path{Kind: PathDirect}, n.Span)
		if owner != nil {
			owner.direct = append(owner.direct, target)
		}
	}

	for _, aid := range n.Children {
		a := p.tree.Node(aid)
		if a.Kind != syntax.KindAttribute {
			continue
		}
		as := p.attributeSlot(target, a, owner)
		for _, v := range a.Children {
			p.scan(c, v, as)
		}
	}
}

func (p *pass) attributeSlot(target Target, a *syntax.Node, owner *supply) slot {
	switch target.Kind {
	case TargetComponent:
		if pid, ok := p.propIndex[target.Component][a.Name]; ok && p.properties[pid].AcceptsRenderable {
			return slot{kind: slotSupply, prop: pid, owner: owner}
		}
		return slot{kind: slotEscape, owner: owner}
	case TargetIntrinsic:
		if a.Implicit {
			return slot{kind: slotRender, owner: owner}
		}
		return slot{kind: slotIgnore, owner: owner}
	default:
		return slot{kind: slotEscape, owner: owner}
	}
}

// scanReference records what the component does with one of its own props.
func (p *pass) scanReference(c *Component, n *syntax.Node, s slot) {
	member, ok := p.host.Resolve(n.ID)
	if !ok {
		return
	}
	prop := PropertyID(-1)
	for _, pid := range p.byMember[member] {
		if p.properties[pid].Owner == c.ID {
			prop = pid
			break
		}
	}
	if prop < 0 {
		return
	}

	switch s.kind {
	case slotRender:
		p.usage.rendered[prop] = true
	case slotSupply:
		_ = p.usage.forwarding.AddEdge(prop, s.prop)
	case slotEscape:
		p.usage.escapes[prop] = true
	}
}

func (p *pass) elementTarget(n *syntax.Node) Target {
	if decl, ok := p.host.Resolve(n.ID); ok {
		if cid, ok := p.byNode[decl]; ok {
			return componentTarget(p.components[cid])
		}
	}
	if isIntrinsicName(n.Name) {
		return intrinsicTarget(n.Name)
	}
	t := Unresolved
	t.Name = n.Name
	return t
}

// addActual records an actual edge, keeping the shortest path seen.
func (p *pass) addActual(source ComponentID, target Target, path Path, span syntax.Span) {
	edge, added := p.actual.add(componentTarget(p.components[source]), target, ActualEdge{
		Source: source,
		Target: target,
		Path:   path,
		Span:   span,
	})
	if !added && path.Depth < edge.Path.Depth {
		edge.Path = path
	}
}

// resolveUsage runs the forwarding walk for every property and every supply
// and completes the actual graph.
func (p *pass) resolveUsage() {
	f, err := newForwarder(p.usage, p.opts.depthBound)
	if err != nil {
		p.log.Warn("failed to read forwarding graph", "error", err)
		return
	}

	p.usage.sinks = make([]walkResult, len(p.properties))
	for _, prop := range p.properties {
		res := f.walk(prop.ID)
		p.usage.sinks[prop.ID] = res
		if !res.rendered || !prop.AcceptsRenderable {
			continue
		}
		path := Path{Kind: PathDirect}
		if res.depth > 1 {
			path = Path{Kind: PathViaProperty, Depth: res.depth - 1}
		}
		p.addActual(prop.Owner, propertyTarget(prop), path, prop.Span)
	}

	for _, s := range p.usage.supplies {
		s.result = f.walk(s.prop)

		if s.result.inconclusive() {
			p.report(Discrepancy{
				Kind:    CycleDepthExceeded,
				Span:    s.span,
				Subject: p.subject(s.caller, -1),
				Target:  s.target.Name,
				Detail:  p.exceededDetail(s),
			})
		}

		path := Path{Kind: PathDirect}
		if s.result.rendered {
			path = Path{Kind: PathViaProperty, Depth: s.result.depth}
		}
		p.addActual(s.caller, s.target, path, s.span)
	}
}

func (p *pass) exceededDetail(s *supply) string {
	via := p.subject(noComponent, s.prop)
	if s.result.cycle && !s.result.exceeded {
		return "forwarding through " + via + " is cyclic"
	}
	return fmt.Sprintf("forwarding through %s exceeds the depth bound of %d", via, p.opts.depthBound)
}
