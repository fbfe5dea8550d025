package analysis

import "slices"

// buildDeclared resolves every render tag and builds the declared graph.
// Component-level tags give self-declared edges; tags on renderable
// properties give edges from the owning component via that property.
func (p *pass) buildDeclared() {
	for _, t := range p.tags {
		t.Resolved = p.resolveTarget(t.Component, t.Raw)
		if t.Resolved.Kind == TargetUnresolved {
			p.report(Discrepancy{
				Kind:    UnresolvedTarget,
				Span:    t.Span,
				Subject: p.subject(t.Component, t.Property),
				Target:  t.Raw,
			})
			continue
		}

		if t.Owner == OwnerProperty && !p.properties[t.Property].AcceptsRenderable {
			p.log.Debug("render tag on a property that does not accept renderable content",
				"property", p.subject(t.Component, t.Property), "target", t.Raw)
			continue
		}

		source := componentTarget(p.components[t.Component])
		edge, added := p.declared.add(source, t.Resolved, DeclaredEdge{
			Source: t.Component,
			Target: t.Resolved,
			Span:   t.Span,
		})
		if !added {
			p.log.Debug("duplicate render declaration", "component", source.Name, "target", t.Resolved.String())
		}

		if t.Owner == OwnerComponent {
			edge.Self = true
		} else if !slices.Contains(edge.Vias, t.Property) {
			edge.Vias = append(edge.Vias, t.Property)
		}
	}
}

// resolveTarget resolves a tag target in the scope of a component: its
// property names first, then components of the unit, then host elements.
func (p *pass) resolveTarget(scope ComponentID, raw string) Target {
	if raw == "" {
		return Wildcard
	}
	if scope != noComponent {
		if pid, ok := p.propIndex[scope][raw]; ok {
			return propertyTarget(p.properties[pid])
		}
	}
	if cid, ok := p.byName[raw]; ok {
		return componentTarget(p.components[cid])
	}
	if isIntrinsicName(raw) {
		return intrinsicTarget(raw)
	}
	t := Unresolved
	t.Name = raw
	return t
}
