package tsx

import "github.com/mvp-joe/rendercheck/internal/syntax"

// Unit is one parsed and lowered source file. It implements syntax.Host.
type Unit struct {
	Language  string // "tsx" or "typescript"
	HasErrors bool   // The source contained syntax errors

	tree       *syntax.Tree
	tags       map[syntax.NodeID][]syntax.Tag
	resolved   map[syntax.NodeID]syntax.NodeID
	members    map[syntax.NodeID][]syntax.NodeID
	renderable map[syntax.NodeID]bool
}

var _ syntax.Host = (*Unit)(nil)

// Path returns the file path of the unit.
func (u *Unit) Path() string {
	return u.tree.Path
}

func (u *Unit) Tree() *syntax.Tree {
	return u.tree
}

func (u *Unit) Tags(id syntax.NodeID) []syntax.Tag {
	return u.tags[id]
}

func (u *Unit) Resolve(id syntax.NodeID) (syntax.NodeID, bool) {
	decl, ok := u.resolved[id]
	return decl, ok
}

func (u *Unit) Members(definition syntax.NodeID) []syntax.NodeID {
	return u.members[definition]
}

func (u *Unit) Renderable(member syntax.NodeID) bool {
	return u.renderable[member]
}
