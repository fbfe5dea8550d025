package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mvp-joe/rendercheck/internal/checker"
	"github.com/mvp-joe/rendercheck/internal/config"
	"github.com/mvp-joe/rendercheck/internal/report"
	"github.com/mvp-joe/rendercheck/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the check and watch commands:
// - A clean project renders the success line and returns nil
// - Discrepancies are rendered and return ErrIssuesFound
// - fail_on_warnings=false reports issues without failing
// - JSON format writes a parseable report and no progress output
// - Path arguments restrict the check to the given files and directories
// - Unreadable path arguments fail discovery
// - With the cache enabled, a second run reuses stored results and clean removes the database
// - The progress reporter counts files and prints a completion line
// - A watch session re-checks after a file changes and stops with its context
// - The version command prints the build information

const mismatchSource = `
/** @component */
function Header() { return <header />; }

/** @component */
function Footer() { return <footer />; }

interface Props {
  /** @renders Header */
  top: React.ReactNode;
}

/** @component */
function Frame({ top }: Props) {
  return <div>{top}</div>;
}

/** @component */
function Page() {
  return <Frame top={<Footer />} />;
}
`

const cleanSource = `
/** @component */
function Header() { return <header />; }

/**
 * @component
 * @renders Header
 */
function Shell() { return <Header />; }
`

func writeProjectFile(t *testing.T, root, name, content string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCheckProject(t *testing.T, root string, cfg *config.Config, paths ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := checkProject(context.Background(), checkOptions{
		RootDir: root,
		Paths:   paths,
		Config:  cfg,
		Logger:  slog.New(slog.DiscardHandler),
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	return stdout.String(), stderr.String(), err
}

func TestCheckProject_Clean(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "src/Shell.tsx", cleanSource)

	stdout, stderr, err := runCheckProject(t, root, config.Default())
	require.NoError(t, err)
	assert.Equal(t, "No render annotation issues found (1 file checked)\n", stdout)
	assert.Contains(t, stderr, "Checked 1 files")
}

func TestCheckProject_IssuesFound(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "src/Shell.tsx", cleanSource)
	writeProjectFile(t, root, "src/Page.tsx", mismatchSource)

	stdout, _, err := runCheckProject(t, root, config.Default())
	require.ErrorIs(t, err, ErrIssuesFound)
	assert.Contains(t, stdout, filepath.Join(root, "src", "Page.tsx"))
	assert.Contains(t, stdout, "mismatched-target")
	assert.Contains(t, stdout, "1 issue in 1 file (2 files checked)")
}

func TestCheckProject_WarningsDoNotFail(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "Page.tsx", mismatchSource)

	cfg := config.Default()
	cfg.Output.FailOnWarnings = false

	stdout, _, err := runCheckProject(t, root, cfg)
	require.NoError(t, err)
	assert.Contains(t, stdout, "mismatched-target")
}

func TestCheckProject_JSON(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "Page.tsx", mismatchSource)
	writeProjectFile(t, root, "node_modules/lib/Page.tsx", mismatchSource)

	cfg := config.Default()
	cfg.Output.Format = "json"

	stdout, stderr, err := runCheckProject(t, root, cfg)
	require.ErrorIs(t, err, ErrIssuesFound)
	assert.Empty(t, stderr)

	var out report.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 1, out.Summary.FilesChecked)
	assert.Equal(t, 1, out.Summary.Issues)
	assert.NotEmpty(t, out.RunID)
}

func TestCheckProject_Paths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	shell := writeProjectFile(t, root, "src/Shell.tsx", cleanSource)
	writeProjectFile(t, root, "src/ui/Card.tsx", cleanSource)
	writeProjectFile(t, root, "legacy/Page.tsx", mismatchSource)

	stdout, _, err := runCheckProject(t, root, config.Default(), shell, filepath.Join(root, "src", "ui"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 files checked")

	_, _, err = runCheckProject(t, root, config.Default(), filepath.Join(root, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to discover files")
}

func TestCheckProject_PersistentCache(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "src/Page.tsx", mismatchSource)
	writeProjectFile(t, root, "src/Shell.tsx", cleanSource)

	cfg := config.Default()
	cfg.Cache.Enabled = true
	dbPath := cfg.CachePath(root)

	first, _, err := runCheckProject(t, root, cfg)
	require.ErrorIs(t, err, ErrIssuesFound)
	require.FileExists(t, dbPath)

	store, err := storage.Open(dbPath, cfg.Fingerprint(Version))
	require.NoError(t, err)
	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, store.Close())

	second, _, err := runCheckProject(t, root, cfg)
	require.ErrorIs(t, err, ErrIssuesFound)
	assert.Equal(t, first, second)

	// Deleted files are pruned on the next whole-project run.
	require.NoError(t, os.Remove(filepath.Join(root, "src", "Page.tsx")))
	_, _, err = runCheckProject(t, root, cfg)
	require.NoError(t, err)

	store, err = storage.Open(dbPath, cfg.Fingerprint(Version))
	require.NoError(t, err)
	n, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, store.Close())

	var out bytes.Buffer
	require.NoError(t, cleanCache(dbPath, &out))
	assert.Contains(t, out.String(), "Cleaned result cache")
	assert.NoFileExists(t, dbPath)

	out.Reset()
	require.NoError(t, cleanCache(dbPath, &out))
	assert.Contains(t, out.String(), "No result cache found")
}

func TestCLIProgressReporter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewCLIProgressReporter(&buf, false)
	p.OnCheckStart(2)
	p.OnFileChecked("a.tsx", 0)
	p.OnFileChecked("b.tsx", 1)
	p.OnComplete(&checker.Report{Files: make([]checker.FileResult, 2), Duration: 1200 * time.Millisecond})
	assert.Contains(t, buf.String(), "✓ Checked 2 files in 1.2s")

	buf.Reset()
	quiet := NewCLIProgressReporter(&buf, true)
	quiet.OnCheckStart(1)
	quiet.OnFileChecked("a.tsx", 0)
	quiet.OnComplete(&checker.Report{})
	assert.Empty(t, buf.String())
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchSession_RechecksOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeProjectFile(t, root, "src/Shell.tsx", cleanSource)

	out := &syncBuffer{}
	s, err := newWatchSession(root, config.Default(), slog.New(slog.DiscardHandler), out)
	require.NoError(t, err)
	defer s.Close()
	s.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "No render annotation issues found (1 file checked)")

	writeProjectFile(t, root, "src/Page.tsx", mismatchSource)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "1 issue in 1 file (2 files checked)")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "Change detected in 1 file")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch session did not stop")
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, buf.String(), "rendercheck "+Version)
	assert.Contains(t, buf.String(), "Git commit: "+GitCommit)
}
