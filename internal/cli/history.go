package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runnerr0/browser-defrag/internal/browser"
	"github.com/runnerr0/browser-defrag/internal/logging"
	"github.com/runnerr0/browser-defrag/internal/report"
	"github.com/runnerr0/browser-defrag/internal/storage"
)

// runJSON is the JSON form of a recorded run.
type runJSON struct {
	ID           string            `json:"id"`
	Browser      string            `json:"browser"`
	DryRun       bool              `json:"dry_run"`
	StartedAt    string            `json:"started_at"`
	FinishedAt   string            `json:"finished_at"`
	Outcome      string            `json:"outcome"`
	Error        string            `json:"error,omitempty"`
	Profiles     int               `json:"profiles"`
	Databases    int               `json:"databases"`
	Defragmented int               `json:"defragmented"`
	SizeBefore   int64             `json:"size_before"`
	SizeAfter    int64             `json:"size_after"`
	Reclaimed    int64             `json:"reclaimed"`
	Details      []runDatabaseJSON `json:"details,omitempty"`
}

type runDatabaseJSON struct {
	Profile    string `json:"profile,omitempty"`
	Path       string `json:"path"`
	State      string `json:"state"`
	SizeBefore *int64 `json:"size_before"`
	SizeAfter  *int64 `json:"size_after"`
}

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
	cfg, err := setup(c.globals)
	if err != nil {
		return err
	}
	defer logging.Sync() //nolint:errcheck

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, c.deps, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if c.ID != "" {
		return c.showRun(ctx, store)
	}
	return c.listRuns(ctx, store)
}

func (c *HistoryCommand) listRuns(ctx context.Context, store storage.Store) error {
	q := storage.RunQuery{Limit: c.Limit}
	if c.Browser != "" {
		kind, err := browser.ParseKind(c.Browser)
		if err != nil {
			return fmt.Errorf("--browser: %w", err)
		}
		q.Browser = kind.DisplayName()
	}
	if c.Since != "" {
		d, err := parseDuration(c.Since)
		if err != nil {
			return fmt.Errorf("--since: %w", err)
		}
		q.Since = time.Now().Add(-d)
	}

	runs := []storage.Run{}
	if store != nil {
		var err error
		runs, err = store.ListRuns(ctx, q)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		out := make([]runJSON, 0, len(runs))
		for i := range runs {
			out = append(out, toRunJSON(&runs[i]))
		}
		return writeJSON(out)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for i := range runs {
		fmt.Println(formatRunLine(&runs[i]))
	}
	return nil
}

func (c *HistoryCommand) showRun(ctx context.Context, store storage.Store) error {
	if store == nil {
		return fmt.Errorf("%w: %s", storage.ErrRunNotFound, c.ID)
	}
	run, err := store.GetRun(ctx, c.ID)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(toRunJSON(run))
	}

	fmt.Printf("Run:        %s\n", run.ID)
	fmt.Printf("Browser:    %s\n", run.Browser)
	fmt.Printf("Started:    %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration:   %s\n", run.Duration())
	fmt.Printf("Dry run:    %t\n", run.DryRun)
	fmt.Printf("Outcome:    %s\n", run.Outcome)
	if run.Error != "" {
		fmt.Printf("Error:      %s\n", run.Error)
	}
	fmt.Printf("Reclaimed:  %s\n", formatSigned(run.Reclaimed()))

	if len(run.Databases) == 0 {
		return nil
	}
	fmt.Println()
	fmt.Println("Databases:")
	for _, d := range run.Databases {
		fmt.Printf("  %-10s %10s -> %-10s %s\n", d.State, sizeOrNA(d.SizeBefore), sizeOrNA(d.SizeAfter), d.Path)
	}
	return nil
}

func formatRunLine(r *storage.Run) string {
	line := fmt.Sprintf("%s  %s  %-8s  %d databases  %d defragmented  reclaimed %s",
		r.ID,
		r.StartedAt.Local().Format("2006-01-02 15:04"),
		r.Browser,
		r.DatabaseCount,
		r.Defragmented,
		formatSigned(r.Reclaimed()),
	)
	if r.DryRun {
		line += "  (dry run)"
	}
	if r.Outcome == storage.OutcomeError {
		line += "  FAILED: " + r.Error
	}
	return line
}

func toRunJSON(r *storage.Run) runJSON {
	out := runJSON{
		ID:           r.ID,
		Browser:      r.Browser,
		DryRun:       r.DryRun,
		StartedAt:    r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:   r.FinishedAt.UTC().Format(time.RFC3339),
		Outcome:      r.Outcome,
		Error:        r.Error,
		Profiles:     r.Profiles,
		Databases:    r.DatabaseCount,
		Defragmented: r.Defragmented,
		SizeBefore:   r.SizeBefore,
		SizeAfter:    r.SizeAfter,
		Reclaimed:    r.Reclaimed(),
	}
	for _, d := range r.Databases {
		out.Details = append(out.Details, runDatabaseJSON{
			Profile:    d.Profile,
			Path:       d.Path,
			State:      d.State,
			SizeBefore: d.SizeBefore,
			SizeAfter:  d.SizeAfter,
		})
	}
	return out
}

func formatSigned(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func sizeOrNA(v *int64) string {
	if v == nil {
		return report.NotAvailable
	}
	return formatSigned(*v)
}
