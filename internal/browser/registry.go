// Package browser models maintenance targets (browsers, their profiles,
// and the database files inside them) and resolves where each browser
// keeps its profiles.
package browser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/runnerr0/browser-defrag/internal/discovery"
)

// Config holds discovery parameters for a run.
type Config struct {
	// MaxDepth bounds the scan below each profile directory.
	MaxDepth int
	DryRun   bool
	// ProfilePath is only used by the explicit (unknown browser) resolver.
	ProfilePath string
	// ExcludeDirs are directory names the scanner never descends.
	ExcludeDirs []string
}

// Browser is a named maintenance target and the profiles resolved for it.
type Browser struct {
	Name string
	// ProcessName is matched, case-insensitively, against running process
	// names before compacting. Empty means Name.
	ProcessName string
	Profiles    []*Profile
}

// Profile is one user profile directory.
type Profile struct {
	Name      string
	Path      string
	Databases []*Database
}

// State is where a Database is in the defrag cycle.
type State int

const (
	StateDiscovered State = iota
	StateMeasured
	StateDryRun
	StateCompacted
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateMeasured:
		return "measured"
	case StateDryRun:
		return "dry-run"
	case StateCompacted:
		return "compacted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Database is one on-disk database file. Sizes are only readable once the
// database has been measured; the after size exists iff the before size
// does, and Defragmented implies both.
type Database struct {
	Path string

	state      State
	sizeBefore int64
	sizeAfter  int64
}

// NewDatabase returns a discovered, unmeasured database record.
func NewDatabase(path string) *Database {
	return &Database{Path: path}
}

// State returns the current state.
func (d *Database) State() State { return d.state }

// SizeBefore returns the size recorded before compaction.
func (d *Database) SizeBefore() (int64, bool) {
	if d.state == StateDiscovered {
		return 0, false
	}
	return d.sizeBefore, true
}

// SizeAfter returns the size recorded after compaction (or, in a dry run,
// the unchanged size). A database that failed mid-cycle has none.
func (d *Database) SizeAfter() (int64, bool) {
	switch d.state {
	case StateDryRun, StateCompacted:
		return d.sizeAfter, true
	default:
		return 0, false
	}
}

// Defragmented reports whether a full copy-vacuum-reindex-replace cycle
// completed.
func (d *Database) Defragmented() bool { return d.state == StateCompacted }

// MarkMeasured records the size before compaction.
func (d *Database) MarkMeasured(size int64) error {
	if d.state != StateDiscovered {
		return fmt.Errorf("mark measured %s: already %s", d.Path, d.state)
	}
	d.sizeBefore = size
	d.state = StateMeasured
	return nil
}

// MarkDryRun closes a dry-run cycle: the after size equals the before size.
func (d *Database) MarkDryRun() error {
	if d.state != StateMeasured {
		return fmt.Errorf("mark dry-run %s: database is %s", d.Path, d.state)
	}
	d.sizeAfter = d.sizeBefore
	d.state = StateDryRun
	return nil
}

// MarkCompacted closes a live cycle with the size of the file afterwards.
func (d *Database) MarkCompacted(size int64) error {
	if d.state != StateMeasured {
		return fmt.Errorf("mark compacted %s: database is %s", d.Path, d.state)
	}
	d.sizeAfter = size
	d.state = StateCompacted
	return nil
}

// RelativePath returns the database path relative to dir, or the full path
// when it is not below dir.
func (d *Database) RelativePath(dir string) string {
	rel, err := filepath.Rel(dir, d.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return d.Path
	}
	return rel
}

// Totals sums the sizes of a profile's databases. Databases without a
// size contribute nothing to the corresponding total.
type Totals struct {
	Before int64
	After  int64
	// Changed sums after-before over databases that have both sizes.
	Changed      int64
	Measured     int
	Defragmented int
}

// Totals aggregates the databases of p.
func (p *Profile) Totals() Totals {
	var t Totals
	for _, db := range p.Databases {
		before, hasBefore := db.SizeBefore()
		after, hasAfter := db.SizeAfter()
		if hasBefore {
			t.Before += before
			t.Measured++
		}
		if hasAfter {
			t.After += after
		}
		if hasBefore && hasAfter {
			t.Changed += after - before
		}
		if db.Defragmented() {
			t.Defragmented++
		}
	}
	return t
}

// New returns the Browser for kind with no profiles resolved yet.
func New(kind Kind) *Browser {
	return &Browser{Name: kind.DisplayName()}
}

// LiveProcessName is the name matched against running processes.
func (b *Browser) LiveProcessName() string {
	if b.ProcessName != "" {
		return b.ProcessName
	}
	return b.Name
}

// ListDatabases resolves profiles with r and scans each one for database
// files. It replaces any previously resolved profiles.
func (b *Browser) ListDatabases(r Resolver, cfg Config) error {
	profiles, err := r.ListProfiles(cfg)
	if err != nil {
		return err
	}
	b.Profiles = profiles
	return nil
}

// DatabaseCount returns the number of databases across all profiles.
func (b *Browser) DatabaseCount() int {
	n := 0
	for _, p := range b.Profiles {
		n += len(p.Databases)
	}
	return n
}

// scanProfile fills p.Databases from a scan of p.Path.
func scanProfile(p *Profile, cfg Config) {
	scanner := &discovery.Scanner{MaxDepth: cfg.MaxDepth, ExcludeDirs: cfg.ExcludeDirs}
	paths := scanner.Find(p.Path)
	p.Databases = make([]*Database, 0, len(paths))
	for _, path := range paths {
		p.Databases = append(p.Databases, NewDatabase(path))
	}
}
