package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/runnerr0/browser-defrag/internal/logging"
)

// Scanner walks a directory tree looking for SQLite database files.
type Scanner struct {
	// MaxDepth bounds the walk: 0 is the root itself, 1 its direct
	// children, and so on.
	MaxDepth int

	// ExcludeDirs lists directory base names that are never descended.
	ExcludeDirs []string
}

// FindDatabaseFiles returns the SQLite files under root, at most maxDepth
// levels deep, sorted by path.
func FindDatabaseFiles(root string, maxDepth int) []string {
	return (&Scanner{MaxDepth: maxDepth}).Find(root)
}

// Find walks root and returns every regular file (or symlink to one) that
// classifies as a SQLite database. Unreadable entries are logged and
// skipped; a missing root yields an empty result.
func (s *Scanner) Find(root string) []string {
	var (
		mu    sync.Mutex
		found []string
	)

	// Walk the resolved root so a symlinked profile directory is entered,
	// but report paths under root as given.
	walkRoot := root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		walkRoot = resolved
	}

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.L().Debug("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return nil
		}

		depth := depthOf(walkRoot, path)
		if d.IsDir() {
			if depth > 0 && s.excluded(d.Name()) {
				return filepath.SkipDir
			}
			if depth >= s.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if depth > s.MaxDepth {
			return nil
		}

		// Stat follows symlinks: a link to a regular file is a candidate,
		// a dangling link or a link to a directory is not.
		info, err := os.Stat(path)
		if err != nil {
			logging.L().Debug("skipping entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if !IsDatabaseFile(path) {
			return nil
		}

		if rel, err := filepath.Rel(walkRoot, path); err == nil {
			path = filepath.Join(root, rel)
		}
		mu.Lock()
		found = append(found, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		logging.L().Debug("walk failed", zap.String("root", root), zap.Error(err))
	}

	slices.Sort(found)
	return found
}

func (s *Scanner) excluded(name string) bool {
	return slices.Contains(s.ExcludeDirs, name)
}

// depthOf returns how many path elements path is below root.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
