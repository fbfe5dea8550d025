// Package syntax defines the language-neutral view of a source unit that the
// render analysis consumes.
//
// A host (for example the tree-sitter adapter in internal/tsx) lowers its
// concrete syntax tree into a Tree of definitions, props types, markup
// elements, attributes and references, and answers documentation, symbol and
// type questions about those nodes through the Host interface. The analysis
// never sees the concrete tree and never mutates the lowered one.
package syntax

// Tag is one documentation tag attached to a node, e.g. "@renders Header".
type Tag struct {
	Name string // Tag name without '@'
	Body string // Text following the tag name, whitespace-collapsed
	Span Span   // Location of the '@' token
}

// Host exposes one parsed source unit.
type Host interface {
	// Tree returns the lowered syntax tree.
	Tree() *Tree

	// Tags returns the documentation tags attached to a node, in source order.
	Tags(id NodeID) []Tag

	// Resolve maps an element or reference node to its declaration: a
	// definition for element names, a member for property references.
	// ok is false for anything declared outside the unit or unknown.
	Resolve(id NodeID) (decl NodeID, ok bool)

	// Members returns the props members of a definition in declaration order.
	Members(definition NodeID) []NodeID

	// Renderable reports whether a member's declared type accepts renderable content.
	Renderable(member NodeID) bool
}
