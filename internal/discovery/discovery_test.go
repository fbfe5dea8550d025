package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for file discovery:
// - Include patterns match files at the root and in subdirectories
// - Ignore patterns skip files and whole directories (including nested ones)
// - The .rendercheck directory is always ignored
// - Results are sorted
// - Resolve() mixes explicit files and directories without duplicates
// - Resolve() fails for missing paths
// - Matches() and IgnoresDir() mirror discovery for single paths (watch mode filtering)
// - Invalid patterns are rejected

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()

	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("export {};\n"), 0644))
	}
}

func relAll(t *testing.T, root string, paths []string) []string {
	t.Helper()

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func setupTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	touch(t, root,
		"App.tsx",
		"src/components/Header.tsx",
		"src/components/Header.css",
		"src/util.ts",
		"src/types.d.ts",
		"node_modules/react/index.js",
		"packages/ui/node_modules/dep/index.tsx",
		"dist/bundle.js",
		".rendercheck/config.tsx",
	)
	return root
}

var (
	include = []string{"**/*.tsx", "**/*.ts", "**/*.js"}
	ignore  = []string{"node_modules/**", "**/node_modules/**", "dist/**", "**/*.d.ts"}
)

func TestDiscoverFiles(t *testing.T) {
	t.Parallel()

	root := setupTree(t)
	fd, err := NewFileDiscovery(root, include, ignore)
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"App.tsx",
		"src/components/Header.tsx",
		"src/util.ts",
	}, relAll(t, root, files))
}

func TestDiscoverFiles_NoPatterns(t *testing.T) {
	t.Parallel()

	root := setupTree(t)
	fd, err := NewFileDiscovery(root, nil, nil)
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	root := setupTree(t)
	fd, err := NewFileDiscovery(root, include, ignore)
	require.NoError(t, err)

	explicit := filepath.Join(root, "src", "components", "Header.css")
	files, err := fd.Resolve([]string{
		filepath.Join(root, "src"),
		explicit,
		filepath.Join(root, "src", "util.ts"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"src/components/Header.tsx",
		"src/util.ts",
		"src/components/Header.css",
	}, relAll(t, root, files))

	_, err = fd.Resolve([]string{filepath.Join(root, "missing")})
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fd, err := NewFileDiscovery(root, include, ignore)
	require.NoError(t, err)

	assert.True(t, fd.Matches(filepath.Join(root, "App.tsx")))
	assert.True(t, fd.Matches(filepath.Join(root, "src", "deep", "Card.tsx")))
	assert.False(t, fd.Matches(filepath.Join(root, "src", "styles.css")))
	assert.False(t, fd.Matches(filepath.Join(root, "node_modules", "x", "y.tsx")))
	assert.False(t, fd.Matches(filepath.Join(root, "dist", "out.js")))
	assert.False(t, fd.Matches(filepath.Join(root, ".rendercheck", "a.tsx")))
	assert.False(t, fd.Matches(filepath.Join(filepath.Dir(root), "elsewhere.tsx")))

	assert.True(t, fd.IgnoresDir(filepath.Join(root, "node_modules")))
	assert.True(t, fd.IgnoresDir(filepath.Join(root, "packages", "a", "node_modules")))
	assert.True(t, fd.IgnoresDir(filepath.Join(root, ".rendercheck")))
	assert.False(t, fd.IgnoresDir(filepath.Join(root, "src")))
	assert.False(t, fd.IgnoresDir(root))
}

func TestNewFileDiscovery_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFileDiscovery(t.TempDir(), []string{"src/[a"}, nil)
	assert.Error(t, err)
}
