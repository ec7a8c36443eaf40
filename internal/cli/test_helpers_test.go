package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/browser-defrag/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore opens a migrated history database in a temp directory.
func openTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// writeConfig writes a config file under a fresh temp HOME and returns its
// path. HOME and XDG_CONFIG_HOME are redirected for the test.
func writeConfig(t *testing.T, historyEnabled bool) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	path := filepath.Join(home, "config.yaml")
	content := fmt.Sprintf(`scan:
  max_depth: 2
defrag:
  temp_dir: %q
history:
  enabled: %t
  path: %q
  retention_days: 90
logging:
  level: error
`, t.TempDir(), historyEnabled, filepath.Join(home, "history.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newGlobals(configPath string) *GlobalFlags {
	return &GlobalFlags{Config: configPath, MaxDepth: -1}
}

// writeDB writes a file with a SQLite header padded to size bytes.
func writeDB(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	content := append([]byte("SQLite format 3\x00"), make([]byte, size-16)...)
	require.NoError(t, os.WriteFile(path, content, 0644))
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

type fakeLister struct {
	names []string
	err   error
	calls int
}

func (f *fakeLister) Names(ctx context.Context) ([]string, error) {
	f.calls++
	return f.names, f.err
}

// shrinkingCompactor truncates the scratch copy to 4 KiB.
type shrinkingCompactor struct {
	calls int
}

func (c *shrinkingCompactor) Compact(ctx context.Context, path string) error {
	c.calls++
	return os.Truncate(path, 4096)
}
