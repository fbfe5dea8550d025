package analysis

import (
	"sort"

	"github.com/mvp-joe/rendercheck/internal/syntax"
)

// extract registers components, their properties and render tags.
func (p *pass) extract() {
	p.registerComponents()
	p.registerProperties()
	p.registerTags()
}

func (p *pass) registerComponents() {
	var defs []*syntax.Node
	p.tree.Walk(p.tree.Root(), func(n *syntax.Node) bool {
		if n.Kind == syntax.KindDefinition {
			defs = append(defs, n)
		}
		return true
	})
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Span.Before(defs[j].Span) })

	for _, n := range defs {
		annotated := p.hasTag(n.ID, p.opts.componentTag)
		declares := p.hasTag(n.ID, p.opts.rendersTag)
		if !annotated && !declares && !(n.HasMarkup && isComponentName(n.Name)) {
			continue
		}

		kind := ComponentFunction
		if n.Flavor == syntax.FlavorClass {
			kind = ComponentClass
		}
		name := n.Name
		if name == "" {
			name = "(anonymous)"
		}

		c := &Component{
			ID:        ComponentID(len(p.components)),
			Name:      name,
			Node:      n.ID,
			Span:      n.Span,
			Kind:      kind,
			Annotated: annotated,
		}
		p.components = append(p.components, c)
		p.byNode[n.ID] = c.ID

		if prev, dup := p.byName[name]; dup {
			p.log.Debug("duplicate component name, keeping first", "name", name,
				"first", p.components[prev].Span.String(), "duplicate", c.Span.String())
			continue
		}
		p.byName[name] = c.ID
	}
}

func (p *pass) registerProperties() {
	for _, c := range p.components {
		index := make(map[string]PropertyID)
		for _, m := range p.host.Members(c.Node) {
			mn := p.tree.Node(m)
			if mn == nil {
				continue
			}
			prop := &Property{
				ID:                PropertyID(len(p.properties)),
				Owner:             c.ID,
				Name:              mn.Name,
				Member:            m,
				Span:              mn.Span,
				AcceptsRenderable: p.host.Renderable(m),
			}
			p.properties = append(p.properties, prop)
			c.Props = append(c.Props, prop.ID)
			p.byMember[m] = append(p.byMember[m], prop.ID)
			if _, exists := index[prop.Name]; !exists {
				index[prop.Name] = prop.ID
			}
		}
		p.propIndex[c.ID] = index
	}
}

// registerTags visits every node and attaches its render tags. Problems are
// reported per tag and never stop the walk.
func (p *pass) registerTags() {
	p.tree.Walk(p.tree.Root(), func(n *syntax.Node) bool {
		var componentTags, rendersTags []syntax.Tag
		for _, t := range p.host.Tags(n.ID) {
			switch t.Name {
			case p.opts.componentTag:
				componentTags = append(componentTags, t)
			case p.opts.rendersTag:
				rendersTags = append(rendersTags, t)
			}
		}

		switch {
		case len(componentTags) > 0:
			p.componentNodeTags(n, componentTags, rendersTags)
		case len(rendersTags) == 0:
		case n.Kind == syntax.KindDefinition:
			// A definition documented only with render tags declares what
			// it renders itself.
			for _, t := range rendersTags {
				p.addTag(OwnerComponent, p.byNode[n.ID], -1, t)
			}
		default:
			p.propertyNodeTags(n, rendersTags)
		}
		return true
	})
}

func (p *pass) componentNodeTags(n *syntax.Node, componentTags, rendersTags []syntax.Tag) {
	cid, ok := p.byNode[n.ID]
	if !ok {
		for _, t := range componentTags {
			p.report(Discrepancy{
				Kind:    MalformedTag,
				Span:    t.Span,
				Subject: n.Name,
				Target:  p.opts.componentTag,
				Detail:  "it must document a function or class component definition",
			})
		}
		for _, t := range rendersTags {
			p.report(Discrepancy{
				Kind:    MalformedTag,
				Span:    t.Span,
				Subject: n.Name,
				Target:  p.opts.rendersTag,
				Detail:  "it is attached to a declaration that is not a component",
			})
		}
		return
	}

	for _, t := range componentTags {
		if body := t.Body; body != "" {
			p.log.Debug("ignoring text after component tag", "component", n.Name, "text", body)
		}
	}
	for _, t := range rendersTags {
		p.addTag(OwnerComponent, cid, -1, t)
	}
}

func (p *pass) propertyNodeTags(n *syntax.Node, rendersTags []syntax.Tag) {
	member := p.tree.Enclosing(n.ID, syntax.KindMember)
	if member == syntax.NoNode {
		for _, t := range rendersTags {
			p.report(Discrepancy{
				Kind:    MalformedTag,
				Span:    t.Span,
				Subject: n.Name,
				Target:  p.opts.rendersTag,
				Detail:  "it must document a component or a property",
			})
		}
		return
	}

	props := p.byMember[member]
	if len(props) == 0 {
		p.log.Debug("render tag on a property no component uses", "property", p.tree.Node(member).Name)
		return
	}
	for _, pid := range props {
		for _, t := range rendersTags {
			p.addTag(OwnerProperty, p.properties[pid].Owner, pid, t)
		}
	}
}

func (p *pass) addTag(owner TagOwner, cid ComponentID, pid PropertyID, t syntax.Tag) {
	body, err := parseTagBody(t.Body)
	if err != nil {
		p.report(Discrepancy{
			Kind:    MalformedTag,
			Span:    t.Span,
			Subject: p.subject(cid, pid),
			Target:  p.opts.rendersTag,
			Detail:  err.Error(),
		})
		return
	}

	rt := &RenderTag{
		ID:          TagID(len(p.tags)),
		Owner:       owner,
		Component:   cid,
		Property:    pid,
		Raw:         body.Target,
		Description: body.Description,
		Span:        t.Span,
		Resolved:    Unresolved,
	}
	p.tags = append(p.tags, rt)

	if owner == OwnerComponent {
		c := p.components[cid]
		c.Tags = append(c.Tags, rt.ID)
		return
	}
	prop := p.properties[pid]
	prop.Tags = append(prop.Tags, rt.ID)
}

func (p *pass) hasTag(id syntax.NodeID, name string) bool {
	for _, t := range p.host.Tags(id) {
		if t.Name == name {
			return true
		}
	}
	return false
}

// isComponentName reports whether a definition name follows the component
// naming convention.
func isComponentName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}
