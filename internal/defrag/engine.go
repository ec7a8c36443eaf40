// Package defrag compacts the database files of a resolved browser.
package defrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/runnerr0/browser-defrag/internal/browser"
	"github.com/runnerr0/browser-defrag/internal/logging"
)

// SQLite sidecar suffixes: those carried into the scratch copy, and those
// deleted next to the original after a copy-back.
var (
	copiedSidecars  = []string{"-wal", "-journal"}
	removedSidecars = []string{"-wal", "-shm", "-journal"}
)

// Engine runs the copy, vacuum, reindex, replace cycle over every database
// of a browser.
type Engine struct {
	// Processes is consulted before a live run. Defaults to GopsutilLister.
	Processes ProcessLister
	// Compactor rebuilds scratch copies. Defaults to SQLiteCompactor.
	Compactor Compactor
	// TempDir is where scratch directories are created. Empty means the
	// system default.
	TempDir string
}

// New returns an Engine backed by the real process table and SQLite.
func New(tempDir string) *Engine {
	return &Engine{
		Processes: GopsutilLister{},
		Compactor: SQLiteCompactor{},
		TempDir:   tempDir,
	}
}

// Defrag compacts every database of b, updating each record in place.
//
// Unless dryRun is set, Defrag refuses to start while a process whose name
// contains the browser's process name is alive. A failure on one database
// is logged and leaves that record in the state it reached; the remaining
// databases are still processed. Only the liveness check, a browser without
// profiles, or a cancelled context make Defrag return an error.
func (e *Engine) Defrag(ctx context.Context, b *browser.Browser, dryRun bool) error {
	if !dryRun {
		if err := e.checkNotRunning(ctx, b); err != nil {
			return err
		}
	}

	if len(b.Profiles) == 0 {
		return fmt.Errorf("%s: %w", b.Name, ErrNoProfiles)
	}

	log := logging.L().With(zap.String("browser", b.Name), zap.Bool("dry_run", dryRun))
	for _, p := range b.Profiles {
		for _, db := range p.Databases {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.defragDatabase(ctx, db, dryRun); err != nil {
				log.Error("database not defragmented",
					zap.String("profile", p.Name),
					zap.String("path", db.Path),
					zap.Error(err),
				)
				continue
			}
			before, _ := db.SizeBefore()
			after, _ := db.SizeAfter()
			log.Debug("database processed",
				zap.String("path", db.Path),
				zap.Int64("size_before", before),
				zap.Int64("size_after", after),
				zap.Stringer("state", db.State()),
			)
		}
	}
	return nil
}

func (e *Engine) checkNotRunning(ctx context.Context, b *browser.Browser) error {
	lister := e.Processes
	if lister == nil {
		lister = GopsutilLister{}
	}

	names, err := lister.Names(ctx)
	if err != nil {
		return fmt.Errorf("check whether %s is running: %w", b.Name, err)
	}

	needle := strings.ToLower(b.LiveProcessName())
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), needle) {
			return fmt.Errorf("%w: %s (process %q); close it first or use --dry-run", ErrBrowserRunning, b.Name, name)
		}
	}
	return nil
}

// defragDatabase runs one cycle. The scratch directory is removed on every
// return path.
func (e *Engine) defragDatabase(ctx context.Context, db *browser.Database, dryRun bool) error {
	info, err := os.Stat(db.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFile, db.Path)
		}
		return fmt.Errorf("%w: stat %s: %w", ErrIO, db.Path, err)
	}
	sizeBefore := info.Size()
	if err := db.MarkMeasured(sizeBefore); err != nil {
		return err
	}

	if dryRun {
		return db.MarkDryRun()
	}

	scratchDir, err := os.MkdirTemp(e.TempDir, "browser-defrag-*")
	if err != nil {
		return fmt.Errorf("%w: create scratch directory: %w", ErrIO, err)
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			logging.L().Warn("scratch directory not removed", zap.String("path", scratchDir), zap.Error(err))
		}
	}()

	scratch := filepath.Join(scratchDir, filepath.Base(db.Path))
	if err := copyFile(db.Path, scratch); err != nil {
		return err
	}
	for _, suffix := range copiedSidecars {
		if err := copyIfExists(db.Path+suffix, scratch+suffix); err != nil {
			return err
		}
	}

	compactor := e.Compactor
	if compactor == nil {
		compactor = SQLiteCompactor{}
	}
	if err := compactor.Compact(ctx, scratch); err != nil {
		return err
	}

	compacted, err := os.Stat(scratch)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrIO, scratch, err)
	}

	if compacted.Size() < sizeBefore {
		if err := copyFile(scratch, db.Path); err != nil {
			return err
		}
		removeStaleSidecars(db.Path)
	} else {
		logging.L().Debug("compaction did not shrink database, original kept",
			zap.String("path", db.Path),
			zap.Int64("size_before", sizeBefore),
			zap.Int64("scratch_size", compacted.Size()),
		)
	}

	final, err := os.Stat(db.Path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrIO, db.Path, err)
	}
	return db.MarkCompacted(final.Size())
}

// copyFile overwrites dst with the contents of src. An existing dst keeps
// its inode and permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%w: copy %s to %s: %w", ErrIO, src, dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrIO, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, dst, err)
	}
	return nil
}

func copyIfExists(src, dst string) error {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return copyFile(src, dst)
}

// removeStaleSidecars deletes journal files that described the original
// bytes and no longer match the replaced database.
func removeStaleSidecars(path string) {
	for _, suffix := range removedSidecars {
		err := os.Remove(path + suffix)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.L().Warn("stale sidecar not removed", zap.String("path", path+suffix), zap.Error(err))
		}
	}
}
