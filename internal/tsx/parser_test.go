package tsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mvp-joe/rendercheck/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the TSX host:
// - Function, arrow, wrapped (memo/forwardRef) and class definitions are lowered
// - JSDoc tags attach to definitions, exported definitions and props members
// - Props members come from interfaces, type aliases, inline object types,
//   FC<Props> annotations, PropsWithChildren and intersections
// - Destructured props without a type become untyped members
// - Element names resolve to same-unit definitions; imports stay unresolved
// - References resolve to props members through destructuring, props.x,
//   derived destructuring and this.props
// - .ts files use the TypeScript grammar; syntax errors are flagged
// - Cancelled contexts abort parsing

func parse(t *testing.T, path, source string) *Unit {
	t.Helper()

	p, err := NewParser()
	require.NoError(t, err)
	unit, err := p.Parse(context.Background(), path, []byte(source))
	require.NoError(t, err)
	return unit
}

func findNode(t *testing.T, u *Unit, kind syntax.Kind, name string) *syntax.Node {
	t.Helper()

	for i := range u.Tree().Nodes {
		n := &u.Tree().Nodes[i]
		if n.Kind == kind && n.Name == name {
			return n
		}
	}
	require.Failf(t, "node not found", "%s %q", kind, name)
	return nil
}

func findNodes(u *Unit, kind syntax.Kind, name string) []*syntax.Node {
	var out []*syntax.Node
	for i := range u.Tree().Nodes {
		n := &u.Tree().Nodes[i]
		if n.Kind == kind && n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

func memberNames(u *Unit, def syntax.NodeID) []string {
	var names []string
	for _, m := range u.Members(def) {
		names = append(names, u.Tree().Node(m).Name)
	}
	return names
}

func TestParser_ScenarioFixture(t *testing.T) {
	t.Parallel()

	p, err := NewParser()
	require.NoError(t, err)

	path := filepath.Join("../../testdata/tsx", "App.tsx")
	u, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "tsx", u.Language)
	assert.False(t, u.HasErrors)
	assert.Equal(t, path, u.Path())

	header := findNode(t, u, syntax.KindDefinition, "Header")
	layout := findNode(t, u, syntax.KindDefinition, "Layout")
	app := findNode(t, u, syntax.KindDefinition, "App")

	assert.True(t, header.HasMarkup)
	assert.Equal(t, syntax.FlavorFunction, layout.Flavor)
	assert.Equal(t, 24, layout.Span.Line)

	// Definition tags.
	tags := u.Tags(layout.ID)
	require.Len(t, tags, 2)
	assert.Equal(t, "component", tags[0].Name)
	assert.Equal(t, "description", tags[1].Name)
	assert.Equal(t, 21, tags[0].Span.Line)

	// Props from the LayoutProps interface, with the member tag.
	assert.Equal(t, []string{"header", "children"}, memberNames(u, layout.ID))
	headerMember := u.Members(layout.ID)[0]
	assert.True(t, u.Renderable(headerMember))
	memberTags := u.Tags(headerMember)
	require.Len(t, memberTags, 1)
	assert.Equal(t, "renders", memberTags[0].Name)
	assert.Equal(t, "Header", memberTags[0].Body)

	// Inline object type on Header.
	assert.Equal(t, []string{"children"}, memberNames(u, header.ID))

	// <Header> inside App resolves to the Header definition.
	var headerElement *syntax.Node
	for _, el := range findNodes(u, syntax.KindElement, "Header") {
		if u.Tree().Enclosing(el.ID, syntax.KindDefinition) == app.ID {
			headerElement = el
		}
	}
	require.NotNil(t, headerElement)
	decl, ok := u.Resolve(headerElement.ID)
	require.True(t, ok)
	assert.Equal(t, header.ID, decl)

	// It sits under Layout's header attribute.
	attr := u.Tree().Node(headerElement.Parent)
	assert.Equal(t, syntax.KindAttribute, attr.Kind)
	assert.Equal(t, "header", attr.Name)

	// {header} inside Layout resolves to the header member.
	ref := findNode(t, u, syntax.KindReference, "header")
	decl, ok = u.Resolve(ref.ID)
	require.True(t, ok)
	assert.Equal(t, headerMember, decl)
}

func TestParser_DefinitionStyles(t *testing.T) {
	t.Parallel()

	u := parse(t, "styles.tsx", `
import { memo, forwardRef } from "react";
import { Icon } from "./icon";

interface CardProps { title: React.ReactNode; count: number }

export const Card: React.FC<CardProps> = ({ title }) => <div>{title}</div>;

export const Pure = memo(function Pure({ label }) {
  return <span>{label}</span>;
});

const Fancy = forwardRef((props: PropsWithChildren<{ tone: string }>, ref) => (
  <button ref={ref}>{props.children}<Icon /></button>
));

class Panel extends React.Component<CardProps & { footer: JSX.Element }> {
  render() {
    const { footer } = this.props;
    return <section>{this.props.title}{footer}</section>;
  }
}
`)

	card := findNode(t, u, syntax.KindDefinition, "Card")
	assert.Equal(t, []string{"title", "count"}, memberNames(u, card.ID))
	assert.True(t, u.Renderable(u.Members(card.ID)[0]))
	assert.False(t, u.Renderable(u.Members(card.ID)[1]))

	// memo(function ...) is lowered once, under the variable name.
	pure := findNodes(u, syntax.KindDefinition, "Pure")
	require.Len(t, pure, 1)
	assert.Equal(t, []string{"label"}, memberNames(u, pure[0].ID))
	assert.False(t, u.Renderable(u.Members(pure[0].ID)[0]), "untyped props are not renderable")

	fancy := findNode(t, u, syntax.KindDefinition, "Fancy")
	assert.Equal(t, []string{"tone", "children"}, memberNames(u, fancy.ID))
	children := findNode(t, u, syntax.KindReference, "props.children")
	decl, ok := u.Resolve(children.ID)
	require.True(t, ok)
	assert.Equal(t, u.Members(fancy.ID)[1], decl)

	// Imported components never resolve.
	icon := findNode(t, u, syntax.KindElement, "Icon")
	_, ok = u.Resolve(icon.ID)
	assert.False(t, ok)

	panel := findNode(t, u, syntax.KindDefinition, "Panel")
	assert.Equal(t, syntax.FlavorClass, panel.Flavor)
	assert.Equal(t, []string{"title", "count", "footer"}, memberNames(u, panel.ID))

	title := findNode(t, u, syntax.KindReference, "this.props.title")
	decl, ok = u.Resolve(title.ID)
	require.True(t, ok)
	assert.Equal(t, u.Members(panel.ID)[0], decl)

	footer := findNode(t, u, syntax.KindReference, "footer")
	decl, ok = u.Resolve(footer.ID)
	require.True(t, ok)
	assert.Equal(t, u.Members(panel.ID)[2], decl)
}

func TestParser_ConditionalValues(t *testing.T) {
	t.Parallel()

	u := parse(t, "cond.tsx", `
function Slot({ a, b, c, show }: { a: ReactNode; b: ReactNode; c: ReactNode; show: boolean }) {
  if (!show) {
    return null;
  }
  return show ? a : (b ?? [c]);
}
`)

	slot := findNode(t, u, syntax.KindDefinition, "Slot")
	assert.False(t, slot.HasMarkup)
	for _, name := range []string{"a", "b", "c"} {
		ref := findNode(t, u, syntax.KindReference, name)
		_, ok := u.Resolve(ref.ID)
		assert.True(t, ok, "reference %s", name)
	}
	assert.Empty(t, findNodes(u, syntax.KindReference, "show"), "conditions are not rendered values")
}

func TestParser_TypeScriptGrammar(t *testing.T) {
	t.Parallel()

	u := parse(t, "util.ts", "export const double = (n: number): number => n * 2;\n")
	assert.Equal(t, "typescript", u.Language)
	assert.False(t, u.HasErrors)

	broken := parse(t, "broken.tsx", "function ( {\n")
	assert.True(t, broken.HasErrors)
}

func TestParser_Cancelled(t *testing.T) {
	t.Parallel()

	p, err := NewParser()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Parse(ctx, "x.tsx", []byte("const a = 1;"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupports(t *testing.T) {
	t.Parallel()

	assert.True(t, Supports("a/b/App.tsx"))
	assert.True(t, Supports("index.JS"))
	assert.False(t, Supports("style.css"))
}
