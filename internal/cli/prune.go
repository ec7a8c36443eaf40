package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/browser-defrag/internal/logging"
)

type pruneJSON struct {
	DryRun    bool   `json:"dry_run"`
	OlderThan string `json:"older_than"`
	Cutoff    string `json:"cutoff"`
	Runs      int64  `json:"runs"`
}

// Execute implements the go-flags Commander interface for PruneCommand.
// The global --dry-run only counts what would be deleted.
func (c *PruneCommand) Execute(args []string) error {
	cfg, err := setup(c.globals)
	if err != nil {
		return err
	}
	defer logging.Sync() //nolint:errcheck

	retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	if c.OlderThan != "" {
		retention, err = parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("--older-than: %w", err)
		}
	}
	if retention <= 0 {
		return fmt.Errorf("retention period must be positive")
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, c.deps, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	cutoff := time.Now().Add(-retention)
	dryRun := c.globals != nil && c.globals.DryRun

	var n int64
	switch {
	case store == nil:
	case dryRun:
		n, err = store.CountExpired(ctx, cutoff)
	default:
		n, err = store.PruneExpired(ctx, cutoff)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(pruneJSON{
			DryRun:    dryRun,
			OlderThan: formatDurationHuman(retention),
			Cutoff:    cutoff.UTC().Format(time.RFC3339),
			Runs:      n,
		})
	}

	if dryRun {
		fmt.Printf("[DRY RUN] Would prune %d runs older than %s\n", n, formatDurationHuman(retention))
		return nil
	}
	fmt.Printf("Pruned %d runs older than %s\n", n, formatDurationHuman(retention))
	return nil
}
