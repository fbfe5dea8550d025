package syntax

import "fmt"

// NodeID identifies a node inside a Tree. IDs are arena indexes and are only
// meaningful for the tree that produced them.
type NodeID int32

// NoNode is the zero reference.
const NoNode NodeID = -1

// Kind classifies a lowered syntax node.
type Kind uint8

const (
	KindUnit       Kind = iota // Root of a source unit
	KindDefinition             // Function, arrow function or class definition
	KindTypeDecl               // Interface, type alias or inline object type
	KindMember                 // Property member of a props type
	KindElement                // Markup element instantiation; empty Name is a fragment
	KindAttribute              // Attribute of an element; children hold its value
	KindReference              // Identifier or member reference in value position
	KindDecl                   // Any other declaration carrying documentation
)

var kindNames = [...]string{
	KindUnit:       "unit",
	KindDefinition: "definition",
	KindTypeDecl:   "type",
	KindMember:     "member",
	KindElement:    "element",
	KindAttribute:  "attribute",
	KindReference:  "reference",
	KindDecl:       "declaration",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Flavor distinguishes definition styles.
type Flavor uint8

const (
	FlavorNone Flavor = iota
	FlavorFunction
	FlavorClass
)

// Node is one entry in the lowered tree.
type Node struct {
	ID       NodeID
	Kind     Kind
	Name     string
	Span     Span
	Parent   NodeID
	Children []NodeID

	// Flavor is set on definitions.
	Flavor Flavor
	// HasMarkup reports whether a definition's body instantiates any element.
	HasMarkup bool
	// TypeText is the declared type of a member, empty when untyped.
	TypeText string
	// Implicit marks attributes synthesized from element children.
	Implicit bool
}

// Tree is an arena of lowered nodes for one source unit. Node 0 is the unit root.
type Tree struct {
	Path  string
	Nodes []Node
}

// NewTree creates a tree containing only the unit root.
func NewTree(path string) *Tree {
	t := &Tree{Path: path}
	t.Nodes = append(t.Nodes, Node{ID: 0, Kind: KindUnit, Parent: NoNode, Span: Span{File: path, Line: 1, Column: 1}})
	return t
}

// Root returns the unit root id.
func (t *Tree) Root() NodeID { return 0 }

// Add appends a node under parent and returns its id.
func (t *Tree) Add(parent NodeID, n Node) NodeID {
	id := NodeID(len(t.Nodes))
	n.ID = id
	n.Parent = parent
	if n.Span.File == "" {
		n.Span.File = t.Path
	}
	t.Nodes = append(t.Nodes, n)
	if parent != NoNode {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
	}
	return id
}

// Node returns the node with the given id, or nil when out of range.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.Nodes) {
		return nil
	}
	return &t.Nodes[id]
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.Nodes) }

// Walk visits id and its descendants depth-first in source order.
// Returning false from visit skips the node's children.
func (t *Tree) Walk(id NodeID, visit func(n *Node) bool) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		t.Walk(c, visit)
	}
}

// Enclosing returns the nearest ancestor of id (including id itself) with the given kind.
func (t *Tree) Enclosing(id NodeID, kind Kind) NodeID {
	for cur := id; cur != NoNode; {
		n := t.Node(cur)
		if n == nil {
			return NoNode
		}
		if n.Kind == kind {
			return cur
		}
		cur = n.Parent
	}
	return NoNode
}
