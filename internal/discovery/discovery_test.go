package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "SQLite format 3\x00"

// writeFile creates path (and its parents) with the given content.
func writeFile(t *testing.T, path string, content []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func dbBytes(extra int) []byte {
	return append([]byte(header), make([]byte, extra)...)
}

// --- IsDatabaseFile ---

func TestIsDatabaseFile_ValidHeader(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, IsDatabaseFile(writeFile(t, filepath.Join(dir, "places.sqlite"), dbBytes(4080))))
}

func TestIsDatabaseFile_HeaderOnly(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, IsDatabaseFile(writeFile(t, filepath.Join(dir, "exact"), []byte(header))))
}

func TestIsDatabaseFile_Rejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string][]byte{
		"empty":          {},
		"truncated":      []byte("SQLite format 3"),
		"missing nul":    []byte("SQLite format 3 more bytes"),
		"wrong version":  []byte("SQLite format 2\x00........"),
		"garbage":        []byte("\x00\x01\x02\x03garbage garbage garbage"),
		"non utf8":       []byte("\xff\xfe\xfd\xfcSQLite format 3"),
		"lowercase":      []byte("sqlite format 3\x00"),
		"leading space":  []byte(" SQLite format 3\x00"),
		"json manifest":  []byte(`{"name":"ext","version":"1.0"}`),
		"text cache.tmp": []byte(strings.Repeat("x", 64)),
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(dir, strings.ReplaceAll(name, " ", "_")), content)
			assert.False(t, IsDatabaseFile(path))
		})
	}
}

func TestIsDatabaseFile_MissingFile(t *testing.T) {
	assert.False(t, IsDatabaseFile(filepath.Join(t.TempDir(), "nope.sqlite")))
}

func TestIsDatabaseFile_Directory(t *testing.T) {
	assert.False(t, IsDatabaseFile(t.TempDir()))
}

func TestIsDatabaseFile_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	path := writeFile(t, filepath.Join(t.TempDir(), "locked.sqlite"), dbBytes(10))
	require.NoError(t, os.Chmod(path, 0000))
	t.Cleanup(func() { os.Chmod(path, 0644) })

	assert.False(t, IsDatabaseFile(path))
}

// --- FindDatabaseFiles ---

// buildTree lays out:
//
//	root/a.sqlite                 depth 1
//	root/notes.txt                depth 1 (not a database)
//	root/sub/b.sqlite             depth 2
//	root/sub/deeper/c.sqlite      depth 3
//	root/cache2/d.sqlite          depth 2 (excluded dir)
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.sqlite"), dbBytes(100))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("hello"))
	writeFile(t, filepath.Join(root, "sub", "b.sqlite"), dbBytes(100))
	writeFile(t, filepath.Join(root, "sub", "deeper", "c.sqlite"), dbBytes(100))
	writeFile(t, filepath.Join(root, "cache2", "d.sqlite"), dbBytes(100))
	return root
}

func TestFindDatabaseFiles_DefaultDepth(t *testing.T) {
	root := buildTree(t)

	got := FindDatabaseFiles(root, 2)
	assert.Equal(t, []string{
		filepath.Join(root, "a.sqlite"),
		filepath.Join(root, "cache2", "d.sqlite"),
		filepath.Join(root, "sub", "b.sqlite"),
	}, got)
}

func TestFindDatabaseFiles_DepthBound(t *testing.T) {
	root := buildTree(t)

	for depth := 0; depth <= 4; depth++ {
		for _, p := range FindDatabaseFiles(root, depth) {
			rel, err := filepath.Rel(root, p)
			require.NoError(t, err)
			assert.LessOrEqual(t, strings.Count(rel, string(filepath.Separator))+1, depth,
				"%s is deeper than %d", rel, depth)
		}
	}

	assert.Empty(t, FindDatabaseFiles(root, 0))
	assert.Len(t, FindDatabaseFiles(root, 1), 1)
	assert.Len(t, FindDatabaseFiles(root, 3), 4)
}

func TestFindDatabaseFiles_NeverReturnsDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "looks.sqlite"), 0755))
	writeFile(t, filepath.Join(root, "real.sqlite"), dbBytes(10))

	got := FindDatabaseFiles(root, 2)
	assert.Equal(t, []string{filepath.Join(root, "real.sqlite")}, got)
}

func TestFindDatabaseFiles_MissingRoot(t *testing.T) {
	got := FindDatabaseFiles(filepath.Join(t.TempDir(), "does-not-exist"), 2)
	assert.Empty(t, got)
}

func TestFindDatabaseFiles_EmptyDir(t *testing.T) {
	assert.Empty(t, FindDatabaseFiles(t.TempDir(), 2))
}

func TestFindDatabaseFiles_Symlinks(t *testing.T) {
	root := t.TempDir()
	target := writeFile(t, filepath.Join(t.TempDir(), "elsewhere.sqlite"), dbBytes(10))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "linked.sqlite")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "dangling.sqlite")))

	got := FindDatabaseFiles(root, 2)
	assert.Equal(t, []string{filepath.Join(root, "linked.sqlite")}, got)
}

func TestFindDatabaseFiles_SymlinkedRoot(t *testing.T) {
	realDir := t.TempDir()
	writeFile(t, filepath.Join(realDir, "cookies.sqlite"), dbBytes(10))
	link := filepath.Join(t.TempDir(), "profile")
	require.NoError(t, os.Symlink(realDir, link))

	got := FindDatabaseFiles(link, 2)
	assert.Equal(t, []string{filepath.Join(link, "cookies.sqlite")}, got)
}

func TestScanner_ExcludeDirs(t *testing.T) {
	root := buildTree(t)

	s := &Scanner{MaxDepth: 3, ExcludeDirs: []string{"cache2", "deeper"}}
	got := s.Find(root)
	assert.Equal(t, []string{
		filepath.Join(root, "a.sqlite"),
		filepath.Join(root, "sub", "b.sqlite"),
	}, got)
}

func TestScanner_SortedOutput(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"z.sqlite", "m.sqlite", "a.sqlite", "k.sqlite"} {
		writeFile(t, filepath.Join(root, name), dbBytes(1))
	}

	got := FindDatabaseFiles(root, 1)
	assert.IsIncreasing(t, got)
	assert.Len(t, got, 4)
}
