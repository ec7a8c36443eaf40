package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/runnerr0/browser-defrag/internal/config"
	"github.com/runnerr0/browser-defrag/internal/logging"
	"github.com/runnerr0/browser-defrag/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version          string             `json:"version"`
	HistoryEnabled   bool               `json:"history_enabled"`
	HistoryPath      string             `json:"history_path"`
	HistorySizeBytes int64              `json:"history_size_bytes"`
	TotalRuns        int64              `json:"total_runs"`
	DryRuns          int64              `json:"dry_runs"`
	FailedRuns       int64              `json:"failed_runs"`
	DatabasesVisited int64              `json:"databases_visited"`
	BytesReclaimed   int64              `json:"bytes_reclaimed"`
	OldestRun        string             `json:"oldest_run,omitempty"`
	NewestRun        string             `json:"newest_run,omitempty"`
	RetentionDays    int                `json:"retention_days"`
	MaxDepth         int                `json:"max_depth"`
	Browsers         []browserCountJSON `json:"browsers"`
}

type browserCountJSON struct {
	Browser string `json:"browser"`
	Runs    int64  `json:"runs"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
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

	stats := &storage.Stats{}
	if store != nil {
		stats, err = store.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
	}

	path, err := historyPath(cfg)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(c.buildStatusJSON(cfg, path, stats))
	}
	c.printStatusHuman(cfg, path, stats)
	return nil
}

func (c *StatusCommand) printStatusHuman(cfg *config.Config, path string, stats *storage.Stats) {
	fmt.Println("browser-defrag status")
	fmt.Println("=====================")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("History:       %s (%s)\n", path, humanize.IBytes(uint64(stats.DatabaseSizeBytes)))
	if !cfg.History.Enabled {
		fmt.Println("Recording:     disabled")
	}
	fmt.Printf("Runs:          %s", humanize.Comma(stats.TotalRuns))
	if stats.DryRuns > 0 || stats.FailedRuns > 0 {
		fmt.Printf(" (%s dry, %s failed)", humanize.Comma(stats.DryRuns), humanize.Comma(stats.FailedRuns))
	}
	fmt.Println()
	fmt.Printf("Databases:     %s visited\n", humanize.Comma(stats.DatabasesVisited))
	fmt.Printf("Reclaimed:     %s\n", formatSigned(stats.BytesReclaimed))

	if stats.TotalRuns > 0 {
		fmt.Printf("Oldest:        %s\n", stats.OldestRun.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s (%s)\n", stats.NewestRun.Local().Format("2006-01-02"), humanize.Time(stats.NewestRun))
	}

	fmt.Printf("Retention:     %d days\n", cfg.History.RetentionDays)
	fmt.Printf("Scan depth:    %d\n", cfg.Scan.MaxDepth)

	if len(stats.Browsers) > 0 {
		fmt.Println()
		fmt.Println("Runs per browser:")
		for _, b := range stats.Browsers {
			fmt.Printf("  %-20s %s\n", b.Browser, humanize.Comma(b.Runs))
		}
	}
}

func (c *StatusCommand) buildStatusJSON(cfg *config.Config, path string, stats *storage.Stats) statusJSON {
	out := statusJSON{
		Version:          c.version,
		HistoryEnabled:   cfg.History.Enabled,
		HistoryPath:      path,
		HistorySizeBytes: stats.DatabaseSizeBytes,
		TotalRuns:        stats.TotalRuns,
		DryRuns:          stats.DryRuns,
		FailedRuns:       stats.FailedRuns,
		DatabasesVisited: stats.DatabasesVisited,
		BytesReclaimed:   stats.BytesReclaimed,
		RetentionDays:    cfg.History.RetentionDays,
		MaxDepth:         cfg.Scan.MaxDepth,
		Browsers:         make([]browserCountJSON, len(stats.Browsers)),
	}
	if stats.TotalRuns > 0 {
		out.OldestRun = stats.OldestRun.UTC().Format(time.RFC3339)
		out.NewestRun = stats.NewestRun.UTC().Format(time.RFC3339)
	}
	for i, b := range stats.Browsers {
		out.Browsers[i] = browserCountJSON{Browser: b.Browser, Runs: b.Runs}
	}
	return out
}
