package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/runnerr0/browser-defrag/internal/browser"
	"github.com/runnerr0/browser-defrag/internal/config"
	"github.com/runnerr0/browser-defrag/internal/defrag"
	"github.com/runnerr0/browser-defrag/internal/logging"
	"github.com/runnerr0/browser-defrag/internal/report"
	"github.com/runnerr0/browser-defrag/internal/storage"
)

// Execute implements the go-flags Commander interface for FirefoxCommand.
func (c *FirefoxCommand) Execute(args []string) error {
	return runDefrag(context.Background(), c.globals, c.deps, target{kind: browser.KindFirefox})
}

// Execute implements the go-flags Commander interface for ChromiumCommand.
func (c *ChromiumCommand) Execute(args []string) error {
	return runDefrag(context.Background(), c.globals, c.deps, target{kind: browser.KindChromium})
}

// Execute implements the go-flags Commander interface for UnknownCommand.
func (c *UnknownCommand) Execute(args []string) error {
	if c.ProfilePath == "" {
		return fmt.Errorf("--profile-path is required")
	}
	return runDefrag(context.Background(), c.globals, c.deps, target{
		kind:        browser.KindUnknown,
		profilePath: c.ProfilePath,
		processName: c.ProcessName,
	})
}

type target struct {
	kind        browser.Kind
	profilePath string
	processName string
}

// runDefrag resolves the profiles of t, compacts their databases, prints
// the report and records the run.
func runDefrag(ctx context.Context, globals *GlobalFlags, d deps, t target) error {
	cfg, err := setup(globals)
	if err != nil {
		return err
	}
	defer logging.Sync() //nolint:errcheck

	dryRun := globals.DryRun || cfg.Defrag.DryRun
	maxDepth := cfg.Scan.MaxDepth
	if globals.MaxDepth >= 0 {
		maxDepth = globals.MaxDepth
	}

	b := browser.New(t.kind)
	b.ProcessName = t.processName

	log := logging.L().With(zap.String("browser", b.Name))
	log.Debug("resolving profiles", zap.Int("max_depth", maxDepth), zap.Bool("dry_run", dryRun))

	started := time.Now()
	runErr := b.ListDatabases(browser.NewResolver(t.kind), browser.Config{
		MaxDepth:    maxDepth,
		DryRun:      dryRun,
		ProfilePath: t.profilePath,
		ExcludeDirs: cfg.Scan.ExcludeDirs,
	})
	if runErr == nil {
		log.Debug("profiles resolved", zap.Int("profiles", len(b.Profiles)), zap.Int("databases", b.DatabaseCount()))

		engine := defrag.New(cfg.Defrag.TempDir)
		if d.processes != nil {
			engine.Processes = d.processes
		}
		if d.compactor != nil {
			engine.Compactor = d.compactor
		}
		runErr = engine.Defrag(ctx, b, dryRun)
	}
	finished := time.Now()

	if cfg.History.Enabled {
		recordRun(ctx, d, cfg, storage.RunFromBrowser(b, dryRun, started, finished, runErr))
	}

	// A browser without profiles still gets its one-line report.
	if runErr != nil && !errors.Is(runErr, defrag.ErrNoProfiles) {
		return runErr
	}

	if globals.JSON {
		if err := report.WriteJSON(os.Stdout, b, dryRun); err != nil {
			return err
		}
	} else if err := report.Render(os.Stdout, b); err != nil {
		return err
	}
	return runErr
}

// recordRun stores run in the history ledger. Failures are logged only.
func recordRun(ctx context.Context, d deps, cfg *config.Config, run *storage.Run) {
	store, closeStore, err := openStore(ctx, d, cfg)
	if err != nil {
		logging.L().Warn("run history unavailable", zap.Error(err))
		return
	}
	defer closeStore()

	if err := store.RecordRun(ctx, run); err != nil {
		logging.L().Warn("run not recorded", zap.Error(err))
		return
	}
	logging.L().Debug("run recorded", zap.String("id", run.ID))
}
