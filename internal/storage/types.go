package storage

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// Outcome values stored for a run.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Run is one recorded invocation of the defragmenter against a browser.
type Run struct {
	ID         string // "RUN-" + 8 hex chars, assigned by RecordRun
	Browser    string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Error      string

	Profiles      int
	DatabaseCount int
	Defragmented  int
	SizeBefore    int64
	SizeAfter     int64

	// Databases is filled by GetRun and RecordRun; ListRuns leaves it nil.
	Databases []RunDatabase
}

// Reclaimed is the number of bytes the run freed. Negative if files grew.
func (r *Run) Reclaimed() int64 { return r.SizeBefore - r.SizeAfter }

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// RunDatabase is the recorded state of one database after a run. Nil sizes
// were never measured.
type RunDatabase struct {
	Profile    string
	Path       string
	State      string
	SizeBefore *int64
	SizeAfter  *int64
}

// RunQuery filters ListRuns.
type RunQuery struct {
	Browser string
	Since   time.Time
	Limit   int
	Offset  int
}

// Stats aggregates the whole ledger.
type Stats struct {
	TotalRuns         int64
	DryRuns           int64
	FailedRuns        int64
	DatabasesVisited  int64
	BytesReclaimed    int64
	OldestRun         time.Time
	NewestRun         time.Time
	DatabaseSizeBytes int64
	Browsers          []BrowserCount
}

// BrowserCount pairs a browser with the number of runs against it.
type BrowserCount struct {
	Browser string
	Runs    int64
}
