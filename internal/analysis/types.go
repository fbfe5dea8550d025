package analysis

import (
	"fmt"

	"github.com/mvp-joe/rendercheck/internal/syntax"
)

// ComponentID identifies a component within one analysis pass.
type ComponentID int

// PropertyID identifies a component property within one analysis pass.
type PropertyID int

// TagID identifies a render tag within one analysis pass.
type TagID int

// noComponent marks the absence of an owning component.
const noComponent ComponentID = -1

// ComponentKind is the definition style of a component.
type ComponentKind string

const (
	ComponentFunction ComponentKind = "function"
	ComponentClass    ComponentKind = "class"
)

// Component is a component definition found in the unit. Components bearing
// the component tag are annotated; capitalised definitions that contain
// markup are registered too so that usage tracing can follow them.
type Component struct {
	ID        ComponentID
	Name      string
	Node      syntax.NodeID
	Span      syntax.Span
	Kind      ComponentKind
	Annotated bool
	Props     []PropertyID
	Tags      []TagID // Component-level render tags
}

// Property is one props member of a component.
type Property struct {
	ID                PropertyID
	Owner             ComponentID
	Name              string
	Member            syntax.NodeID
	Span              syntax.Span
	AcceptsRenderable bool
	Tags              []TagID
}

// TargetKind classifies what a render tag or an instantiation points at.
type TargetKind int

const (
	TargetComponent  TargetKind = iota // A component of the unit
	TargetProperty                     // Whatever a property ultimately receives
	TargetIntrinsic                    // A host element such as div or header
	TargetWildcard                     // Arbitrary renderable content
	TargetUnresolved                   // Unknown or external
)

// Target is the resolved end of an edge.
type Target struct {
	Kind      TargetKind
	Component ComponentID
	Property  PropertyID
	Name      string
}

// Unresolved is the sentinel target for anything that cannot be resolved.
var Unresolved = Target{Kind: TargetUnresolved, Component: noComponent, Property: -1}

// Wildcard is the target of a render tag without a target name.
var Wildcard = Target{Kind: TargetWildcard, Component: noComponent, Property: -1}

func componentTarget(c *Component) Target {
	return Target{Kind: TargetComponent, Component: c.ID, Property: -1, Name: c.Name}
}

func propertyTarget(p *Property) Target {
	return Target{Kind: TargetProperty, Component: p.Owner, Property: p.ID, Name: p.Name}
}

func intrinsicTarget(name string) Target {
	return Target{Kind: TargetIntrinsic, Component: noComponent, Property: -1, Name: name}
}

// Key returns the graph vertex key of the target.
func (t Target) Key() string {
	switch t.Kind {
	case TargetComponent:
		return fmt.Sprintf("c:%d", t.Component)
	case TargetProperty:
		return fmt.Sprintf("p:%d", t.Property)
	case TargetIntrinsic:
		return "i:" + t.Name
	case TargetWildcard:
		return "*"
	default:
		return "?"
	}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetComponent, TargetIntrinsic:
		return t.Name
	case TargetProperty:
		return "property " + t.Name
	case TargetWildcard:
		return "any content"
	default:
		return "unresolved"
	}
}

// TagOwner is the kind of declaration a render tag is attached to.
type TagOwner int

const (
	OwnerComponent TagOwner = iota
	OwnerProperty
)

// RenderTag is one render tag attached to a component or a property.
type RenderTag struct {
	ID          TagID
	Owner       TagOwner
	Component   ComponentID
	Property    PropertyID // -1 for component-level tags
	Raw         string     // Target text as written
	Description string
	Span        syntax.Span
	Resolved    Target
}

// PathKind tells how an actual edge was observed.
type PathKind int

const (
	PathDirect PathKind = iota
	PathViaProperty
)

// Path describes how an instantiation reached its target.
type Path struct {
	Kind  PathKind
	Depth int // Forwarding hops, zero for direct instantiation
}

func (p Path) String() string {
	if p.Kind == PathDirect {
		return "direct"
	}
	return fmt.Sprintf("via property (depth %d)", p.Depth)
}

// DeclaredEdge is an intended composition edge derived from render tags.
type DeclaredEdge struct {
	Source ComponentID
	Target Target
	Self   bool         // Declared by a component-level tag
	Vias   []PropertyID // Properties whose tags declared the edge
	Span   syntax.Span  // First tag that declared the edge
}

// ActualEdge is a composition edge observed in an implementation.
type ActualEdge struct {
	Source ComponentID
	Target Target
	Path   Path
	Span   syntax.Span // First instantiation that produced the edge
}

// DiscrepancyKind classifies a disagreement or resolution failure.
type DiscrepancyKind int

// Kinds are listed in report order for findings at the same location.
const (
	UndeclaredUsage DiscrepancyKind = iota
	MissingDeclaration
	MismatchedTarget
	UnresolvedTarget
	CycleDepthExceeded
	MalformedTag
)

var discrepancyNames = [...]string{
	UndeclaredUsage:    "UndeclaredUsage",
	MissingDeclaration: "MissingDeclaration",
	MismatchedTarget:   "MismatchedTarget",
	UnresolvedTarget:   "UnresolvedTarget",
	CycleDepthExceeded: "CycleDepthExceeded",
	MalformedTag:       "MalformedTag",
}

var discrepancyCodes = [...]string{
	UndeclaredUsage:    "undeclared-usage",
	MissingDeclaration: "missing-declaration",
	MismatchedTarget:   "mismatched-target",
	UnresolvedTarget:   "unresolved-target",
	CycleDepthExceeded: "cycle-depth-exceeded",
	MalformedTag:       "malformed-tag",
}

func (k DiscrepancyKind) String() string {
	if k >= 0 && int(k) < len(discrepancyNames) {
		return discrepancyNames[k]
	}
	return fmt.Sprintf("DiscrepancyKind(%d)", int(k))
}

// Code returns the kebab-case identifier used in reports.
func (k DiscrepancyKind) Code() string {
	if k >= 0 && int(k) < len(discrepancyCodes) {
		return discrepancyCodes[k]
	}
	return "unknown"
}

// Discrepancy is a classified finding. Message text is produced by the reporter.
type Discrepancy struct {
	Kind     DiscrepancyKind
	Span     syntax.Span
	Subject  string // Component or "Component.property" the finding is about
	Target   string // Target named by the tag or instantiation
	Supplied string // Content actually supplied, for mismatches
	Detail   string // Kind-specific explanation
}
