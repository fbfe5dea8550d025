package tsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for renderable type classification:
// - Default names match plain and namespaced React types
// - Unions, arrays, readonly, generics and parentheses are looked through
// - Plain data types are not renderable
// - Custom glob patterns replace the defaults

func TestTypeClassifier_Defaults(t *testing.T) {
	t.Parallel()

	c, err := newTypeClassifier(DefaultRenderableTypes)
	require.NoError(t, err)

	tests := []struct {
		typ  string
		want bool
	}{
		{"React.ReactNode", true},
		{"ReactNode", true},
		{"JSX.Element", true},
		{"ReactElement<ButtonProps>", true},
		{"ReactNode | undefined", true},
		{"string | React.ReactElement", true},
		{"ReactElement[]", true},
		{"readonly JSX.Element[]", true},
		{"Array<ReactNode>", true},
		{"(string | ReactNode)[]", true},
		{"string", false},
		{"number | null", false},
		{"() => void", false},
		{"Record<string, ReactNode>", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Renderable(tt.typ), "type %q", tt.typ)
	}
}

func TestTypeClassifier_CustomPatterns(t *testing.T) {
	t.Parallel()

	c, err := newTypeClassifier([]string{"Slot*", "ui.*"})
	require.NoError(t, err)

	assert.True(t, c.Renderable("SlotContent"))
	assert.True(t, c.Renderable("ui.Node"))
	assert.False(t, c.Renderable("ui.deep.Node"))
	assert.False(t, c.Renderable("ReactNode"))
}

func TestSplitTopLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"A<B | C>", "D"}, splitTopLevel("A<B | C> | D", '|'))
	assert.Equal(t, []string{"X"}, splitTopLevel(" | X", '|'))
}
