package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockArgumentGetter implements argumentGetter for testing
type mockArgumentGetter struct {
	args map[string]any
}

func (m *mockArgumentGetter) GetArguments() map[string]any {
	return m.args
}

func TestBindArguments(t *testing.T) {
	t.Parallel()

	t.Run("proper types", func(t *testing.T) {
		request := &mockArgumentGetter{args: map[string]any{
			"paths":       []any{"src", "App.tsx"},
			"policy":      "single-hop",
			"depth_bound": float64(4),
		}}

		var req CheckRequest
		require.NoError(t, bindArguments(request, &req))
		assert.Equal(t, []string{"src", "App.tsx"}, req.Paths)
		assert.Equal(t, "single-hop", req.Policy)
		assert.Equal(t, 4, req.DepthBound)
	})

	t.Run("JSON string array and string number", func(t *testing.T) {
		request := &mockArgumentGetter{args: map[string]any{
			"paths":       `["src/a.tsx", "src/b.tsx"]`,
			"depth_bound": "12",
		}}

		var req CheckRequest
		require.NoError(t, bindArguments(request, &req))
		assert.Equal(t, []string{"src/a.tsx", "src/b.tsx"}, req.Paths)
		assert.Equal(t, 12, req.DepthBound)
	})

	t.Run("comma separated string", func(t *testing.T) {
		request := &mockArgumentGetter{args: map[string]any{
			"paths": "src,lib",
		}}

		var req CheckRequest
		require.NoError(t, bindArguments(request, &req))
		assert.Equal(t, []string{"src", "lib"}, req.Paths)
	})

	t.Run("inline source", func(t *testing.T) {
		request := &mockArgumentGetter{args: map[string]any{
			"source":   "export {};",
			"filename": "Card.tsx",
		}}

		var req CheckRequest
		require.NoError(t, bindArguments(request, &req))
		assert.Equal(t, "export {};", req.Source)
		assert.Equal(t, "Card.tsx", req.Filename)
		assert.Empty(t, req.Paths)
	})

	t.Run("empty arguments", func(t *testing.T) {
		var req CheckRequest
		require.NoError(t, bindArguments(&mockArgumentGetter{}, &req))
		assert.Equal(t, CheckRequest{}, req)
	})

	t.Run("invalid number", func(t *testing.T) {
		request := &mockArgumentGetter{args: map[string]any{
			"depth_bound": "deep",
		}}

		var req CheckRequest
		assert.Error(t, bindArguments(request, &req))
	})
}
