package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/runnerr0/browser-defrag/internal/config"
	"github.com/runnerr0/browser-defrag/internal/logging"
	"github.com/runnerr0/browser-defrag/internal/storage"
)

// setup loads the config named by --config (or the default one, created on
// first use) and starts logging.
func setup(globals *GlobalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if globals != nil && globals.Config != "" {
		path, perr := config.ExpandPath(globals.Config)
		if perr != nil {
			return nil, perr
		}
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	verbose := globals != nil && globals.Verbose
	if err := logging.Init(cfg.Logging, verbose); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, nil
}

// historyPath returns the expanded history database path.
func historyPath(cfg *config.Config) (string, error) {
	return config.ExpandPath(cfg.History.Path)
}

// openStore returns the injected store, or opens the configured history
// database. The returned func releases whatever was opened. With recording
// disabled a history file that does not exist yet is not created, and the
// returned Store is nil.
func openStore(ctx context.Context, d deps, cfg *config.Config) (storage.Store, func(), error) {
	if d.store != nil {
		return d.store, func() {}, nil
	}

	path, err := historyPath(cfg)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.History.Enabled {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, func() {}, nil
		}
	}
	store, err := storage.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

// writeJSON encodes v, indented, to stdout.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
