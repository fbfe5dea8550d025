package tsx

import (
	"sort"
	"strings"

	"github.com/mvp-joe/rendercheck/internal/syntax"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// resolve runs the second lowering pass: props types become members, derived
// destructurings become bindings, and element names and references are bound
// to their declarations.
func (l *lowerer) resolve() {
	for _, p := range l.props {
		seen := make(map[string]bool)
		l.members[p.def] = append(l.members[p.def], l.typeMembers(p.typeNode, p.def, seen)...)
	}
	for def, ms := range l.members {
		l.members[def] = l.dedupMembers(ms)
	}

	defs := make([]syntax.NodeID, 0, len(l.bindings))
	for def := range l.bindings {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i] < defs[j] })

	for _, def := range defs {
		b := l.bindings[def]
		for _, d := range b.derived {
			if b.whole[d.source] {
				b.locals[d.local] = d.prop
			}
		}
		// Destructured props without a declared type still name members.
		for _, local := range sortedKeys(b.locals) {
			l.member(def, b.locals[local])
		}
	}

	for _, el := range l.elements {
		name := l.tree.Node(el).Name
		if !isComponentName(name) || l.imports[name] {
			continue
		}
		if def, ok := l.defs[name]; ok {
			l.resolved[el] = def
		}
	}

	for _, ref := range l.refs {
		if member, ok := l.resolveReference(ref); ok {
			l.resolved[ref] = member
		}
	}
}

// resolveReference binds a reference to a props member of the nearest
// enclosing definition that names it.
func (l *lowerer) resolveReference(ref syntax.NodeID) (syntax.NodeID, bool) {
	name := l.tree.Node(ref).Name
	for def := l.tree.Enclosing(ref, syntax.KindDefinition); def != syntax.NoNode; {
		if b, ok := l.bindings[def]; ok {
			if prop, ok := b.lookup(name); ok {
				return l.member(def, prop), true
			}
		}
		def = l.tree.Enclosing(l.tree.Node(def).Parent, syntax.KindDefinition)
	}
	return syntax.NoNode, false
}

func (b *binding) lookup(name string) (string, bool) {
	if !strings.Contains(name, ".") {
		prop, ok := b.locals[name]
		return prop, ok
	}
	parts := strings.Split(name, ".")
	for k := 1; k < len(parts); k++ {
		if b.whole[strings.Join(parts[:k], ".")] {
			return parts[k], true
		}
	}
	return "", false
}

// typeMembers returns the members of a props type expression.
func (l *lowerer) typeMembers(t *sitter.Node, def syntax.NodeID, seen map[string]bool) []syntax.NodeID {
	if t == nil {
		return nil
	}
	switch t.Kind() {
	case "object_type":
		decl := l.tree.Add(def, syntax.Node{Kind: syntax.KindTypeDecl, Span: l.span(t)})
		return l.lowerMembers(t, decl)
	case "type_identifier", "nested_type_identifier":
		return l.namedTypeMembers(l.text(t), def, seen)
	case "generic_type":
		name := l.text(t.ChildByFieldName("name"))
		var args []*sitter.Node
		forNamedChildren(t.ChildByFieldName("type_arguments"), func(a *sitter.Node) {
			args = append(args, a)
		})
		base := name[strings.LastIndex(name, ".")+1:]
		if base == "PropsWithChildren" {
			var ms []syntax.NodeID
			if len(args) > 0 {
				ms = l.typeMembers(args[0], def, seen)
			}
			return append(ms, l.childrenMember(def))
		}
		if _, ok := l.typeDecls[name]; ok {
			return l.namedTypeMembers(name, def, seen)
		}
		// Readonly<P>, Partial<P> and similar wrappers.
		if len(args) > 0 {
			return l.typeMembers(args[0], def, seen)
		}
	case "intersection_type":
		var ms []syntax.NodeID
		forNamedChildren(t, func(c *sitter.Node) {
			ms = append(ms, l.typeMembers(c, def, seen)...)
		})
		return ms
	case "parenthesized_type":
		return l.typeMembers(firstNamedChild(t), def, seen)
	}
	return nil
}

func (l *lowerer) namedTypeMembers(name string, def syntax.NodeID, seen map[string]bool) []syntax.NodeID {
	if seen[name] {
		return nil
	}
	seen[name] = true

	decl, ok := l.typeDecls[name]
	if !ok {
		return nil
	}
	ms := append([]syntax.NodeID(nil), decl.members...)
	for _, ext := range decl.extends {
		ms = append(ms, l.typeMembers(ext, def, seen)...)
	}
	if decl.alias != nil {
		ms = append(ms, l.typeMembers(decl.alias, def, seen)...)
	}
	return ms
}

// childrenMember returns the synthesized children member that
// PropsWithChildren adds to a definition.
func (l *lowerer) childrenMember(def syntax.NodeID) syntax.NodeID {
	if id, ok := l.children[def]; ok {
		return id
	}
	id := l.tree.Add(def, syntax.Node{
		Kind:     syntax.KindMember,
		Name:     "children",
		Span:     l.tree.Node(def).Span,
		TypeText: "React.ReactNode",
	})
	l.children[def] = id
	return id
}

// member returns the member of def called name, synthesizing an untyped
// member when the props type does not declare it.
func (l *lowerer) member(def syntax.NodeID, name string) syntax.NodeID {
	for _, id := range l.members[def] {
		if l.tree.Node(id).Name == name {
			return id
		}
	}
	id := l.tree.Add(def, syntax.Node{
		Kind: syntax.KindMember,
		Name: name,
		Span: l.tree.Node(def).Span,
	})
	l.members[def] = append(l.members[def], id)
	return id
}

// dedupMembers keeps the first member of each name.
func (l *lowerer) dedupMembers(ms []syntax.NodeID) []syntax.NodeID {
	seen := make(map[string]bool, len(ms))
	out := ms[:0]
	for _, id := range ms {
		name := l.tree.Node(id).Name
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, id)
	}
	return out
}

// isComponentName reports whether a JSX element name refers to a component
// rather than an intrinsic element.
func isComponentName(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return (c >= 'A' && c <= 'Z') || strings.Contains(name, ".")
}

func (l *lowerer) unit() *Unit {
	renderable := make(map[syntax.NodeID]bool)
	for i := 0; i < l.tree.Len(); i++ {
		n := l.tree.Node(syntax.NodeID(i))
		if n.Kind == syntax.KindMember && l.types.Renderable(n.TypeText) {
			renderable[n.ID] = true
		}
	}
	return &Unit{
		tree:       l.tree,
		tags:       l.tags,
		resolved:   l.resolved,
		members:    l.members,
		renderable: renderable,
	}
}
