package cli

import (
	"github.com/runnerr0/browser-defrag/internal/defrag"
	"github.com/runnerr0/browser-defrag/internal/storage"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config   string `long:"config" description:"Path to config file" default:""`
	DryRun   bool   `long:"dry-run" description:"Measure databases (or count prunable runs) without changing anything"`
	MaxDepth int    `long:"max-depth" description:"Maximum scan depth below each profile (overrides config)" default:"-1"`
	JSON     bool   `long:"json" description:"Output in JSON format"`
	Verbose  bool   `long:"verbose" description:"Enable debug logging"`
	Version  bool   `long:"version" description:"Show version and exit"`
}

// deps are the collaborators a command talks to. Nil fields are replaced by
// the real implementations; tests inject fakes.
type deps struct {
	processes defrag.ProcessLister
	compactor defrag.Compactor
	store     storage.Store
}

// FirefoxCommand defragments every profile listed in profiles.ini.
type FirefoxCommand struct {
	globals *GlobalFlags
	version string
	deps    deps
}

// ChromiumCommand defragments the Chromium profile directory.
type ChromiumCommand struct {
	globals *GlobalFlags
	version string
	deps    deps
}

// UnknownCommand defragments an explicitly given profile directory.
type UnknownCommand struct {
	ProfilePath string `long:"profile-path" description:"Profile directory to scan (required)"`
	ProcessName string `long:"process-name" description:"Process name that means the browser is running (default: Unknown)"`

	globals *GlobalFlags
	version string
	deps    deps
}

// HistoryCommand lists recorded runs, or shows one run in detail.
type HistoryCommand struct {
	ID      string `long:"id" description:"Show the databases of one run"`
	Browser string `long:"browser" description:"Only runs against this browser"`
	Since   string `long:"since" description:"Only runs newer than duration (e.g., 7d, 24h, 2w)"`
	Limit   int    `long:"limit" description:"Maximum runs to list" default:"20"`

	globals *GlobalFlags
	version string
	deps    deps
}

// PruneCommand deletes history older than the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`

	globals *GlobalFlags
	version string
	deps    deps
}

// StatusCommand summarizes the run history.
type StatusCommand struct {
	globals *GlobalFlags
	version string
	deps    deps
}
