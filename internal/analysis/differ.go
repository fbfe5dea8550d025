package analysis

import (
	"fmt"
	"sort"
)

// diff compares the declared and actual graphs and records discrepancies.
func (p *pass) diff() {
	p.diffUndeclared()
	p.diffMissing()
	p.diffSupplies()
}

// diffUndeclared reports components rendered by a component whose own render
// tags do not list them. Only components with at least one resolved
// component-level tag and no wildcard are checked.
func (p *pass) diffUndeclared() {
	for _, c := range p.components {
		checked, wildcard := false, false
		for _, tid := range c.Tags {
			switch p.tags[tid].Resolved.Kind {
			case TargetWildcard:
				wildcard = true
			case TargetUnresolved:
			default:
				checked = true
			}
		}
		if !checked || wildcard {
			continue
		}

		for _, e := range p.actual.From(c.ID) {
			if e.Target.Kind != TargetComponent || p.declared.Has(c.ID, e.Target) {
				continue
			}
			p.report(Discrepancy{
				Kind:    UndeclaredUsage,
				Span:    e.Span,
				Subject: c.Name,
				Target:  e.Target.Name,
			})
		}
	}
}

// diffMissing reports declarations that nothing in the unit realises.
func (p *pass) diffMissing() {
	for _, e := range p.declared.Edges() {
		if !e.Self {
			continue
		}
		c := p.components[e.Source]
		switch e.Target.Kind {
		case TargetComponent, TargetIntrinsic:
			if p.renders(c, e.Target) {
				continue
			}
			p.report(Discrepancy{
				Kind:    MissingDeclaration,
				Span:    e.Span,
				Subject: c.Name,
				Target:  e.Target.Name,
			})
		case TargetProperty:
			if !neverRendered(p.usage.sinks[e.Target.Property]) {
				continue
			}
			p.report(Discrepancy{
				Kind:    MissingDeclaration,
				Span:    e.Span,
				Subject: c.Name,
				Target:  e.Target.Name,
				Detail:  fmt.Sprintf("property %s is never rendered", e.Target.Name),
			})
		}
	}

	for _, prop := range p.properties {
		if !prop.AcceptsRenderable || !neverRendered(p.usage.sinks[prop.ID]) {
			continue
		}
		for _, tid := range prop.Tags {
			t := p.tags[tid]
			if t.Resolved.Kind == TargetUnresolved {
				continue
			}
			p.report(Discrepancy{
				Kind:    MissingDeclaration,
				Span:    t.Span,
				Subject: p.subject(prop.Owner, prop.ID),
				Target:  t.Resolved.String(),
				Detail:  "the property is never rendered",
			})
			break
		}
	}
}

// renders reports whether a component renders target, directly or, under
// the transitive policy, through the components it renders.
func (p *pass) renders(c *Component, target Target) bool {
	if p.actual.Has(c.ID, target) {
		return true
	}
	if p.opts.policy != PolicyTransitive {
		return false
	}
	reach, _ := p.actual.reachable(componentTarget(c), p.opts.depthBound)
	return reach[target.Key()]
}

func neverRendered(r walkResult) bool {
	return !r.rendered && !r.escapes && !r.exceeded && !r.cycle
}

// diffSupplies checks every supplied component against the render tags of
// the properties its content passes through.
func (p *pass) diffSupplies() {
	for _, s := range p.usage.supplies {
		r := s.result
		if r.inconclusive() || s.target.Kind == TargetUnresolved {
			continue
		}
		for _, link := range r.chain {
			prop := p.properties[link.prop]
			if !prop.AcceptsRenderable {
				continue
			}
			for _, tid := range prop.Tags {
				t := p.tags[tid]
				if t.Resolved.Kind != TargetComponent && t.Resolved.Kind != TargetIntrinsic {
					continue
				}
				p.checkSupply(s, prop, link.depth, t)
			}
		}
	}
}

func (p *pass) checkSupply(s *supply, prop *Property, depth int, t *RenderTag) {
	declared := t.Resolved
	if s.target.Key() == declared.Key() {
		return
	}

	contains, complete := p.instanceTargets(s)
	uncertain := !complete || s.result.escapes

	d := Discrepancy{
		Span:     s.span,
		Subject:  p.subject(prop.Owner, prop.ID),
		Target:   declared.Name,
		Supplied: s.target.Name,
	}

	switch p.opts.policy {
	case PolicySingleHop:
		switch {
		case depth > 1:
			d.Kind = UnresolvedTarget
			hops := "hops"
			if depth == 2 {
				hops = "hop"
			}
			d.Detail = fmt.Sprintf("the declaration is %d forwarding %s away", depth-1, hops)
		case contains[declared.Key()]:
			d.Kind = UnresolvedTarget
			d.Detail = fmt.Sprintf("%s reaches %s only through indirection", s.target.Name, declared.Name)
		case uncertain:
			d.Kind = UnresolvedTarget
			d.Detail = "the supplied content could not be fully resolved"
		default:
			d.Kind = MismatchedTarget
		}
	default:
		switch {
		case contains[declared.Key()]:
			return
		case uncertain:
			d.Kind = UnresolvedTarget
			d.Detail = "the supplied content could not be fully resolved"
		default:
			d.Kind = MismatchedTarget
		}
	}
	p.report(d)
}

// instanceTargets returns everything one supplied instance renders: the
// supplied component, what it renders within the depth bound, and the
// markup nested inside the instance.
func (p *pass) instanceTargets(s *supply) (map[string]bool, bool) {
	set := make(map[string]bool)
	complete := true

	add := func(t Target) {
		set[t.Key()] = true
		switch t.Kind {
		case TargetUnresolved:
			complete = false
		case TargetComponent:
			reach, ok := p.actual.reachable(t, p.opts.depthBound)
			for k := range reach {
				set[k] = true
			}
			complete = complete && ok
		}
	}

	add(s.target)
	for _, t := range s.direct {
		add(t)
	}
	for _, n := range s.nested {
		if !n.result.rendered {
			continue
		}
		sub, ok := p.instanceTargets(n)
		for k := range sub {
			set[k] = true
		}
		complete = complete && ok
	}
	return set, complete
}

// sortedDiscrepancies orders findings by location, then kind, and drops
// exact duplicates.
func (p *pass) sortedDiscrepancies() []Discrepancy {
	ds := append([]Discrepancy(nil), p.discrepancies...)
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if c := a.Span.Compare(b.Span); c != 0 {
			return c < 0
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Supplied != b.Supplied {
			return a.Supplied < b.Supplied
		}
		return a.Detail < b.Detail
	})

	out := ds[:0]
	for _, d := range ds {
		if len(out) > 0 && d == out[len(out)-1] {
			continue
		}
		out = append(out, d)
	}
	return out
}
