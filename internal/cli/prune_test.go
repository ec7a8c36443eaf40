package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/browser-defrag/internal/storage"
)

// seedAgedRuns records one run 120 days old and one 10 days old.
func seedAgedRuns(t *testing.T, store storage.Store) {
	t.Helper()
	now := time.Now()
	for _, age := range []time.Duration{120 * 24 * time.Hour, 10 * 24 * time.Hour} {
		require.NoError(t, store.RecordRun(context.Background(), &storage.Run{
			Browser:    "Firefox",
			StartedAt:  now.Add(-age),
			FinishedAt: now.Add(-age),
		}))
	}
}

func TestPrune_UsesConfiguredRetention(t *testing.T) {
	cfgPath := writeConfig(t, true)
	store := openTestStore(t)
	seedAgedRuns(t, store)
	cmd := &PruneCommand{globals: newGlobals(cfgPath), deps: deps{store: store}}

	var err error
	out := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)
	assert.Equal(t, "Pruned 1 runs older than 90 days\n", out)
	assert.Len(t, listRuns(t, store), 1)
}

func TestPrune_OlderThanOverride(t *testing.T) {
	cfgPath := writeConfig(t, true)
	store := openTestStore(t)
	seedAgedRuns(t, store)
	cmd := &PruneCommand{OlderThan: "1w", globals: newGlobals(cfgPath), deps: deps{store: store}}

	var err error
	out := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)
	assert.Equal(t, "Pruned 2 runs older than 7 days\n", out)
	assert.Empty(t, listRuns(t, store))
}

func TestPrune_DryRunOnlyCounts(t *testing.T) {
	cfgPath := writeConfig(t, true)
	store := openTestStore(t)
	seedAgedRuns(t, store)
	globals := newGlobals(cfgPath)
	globals.DryRun = true
	cmd := &PruneCommand{OlderThan: "30d", globals: globals, deps: deps{store: store}}

	var err error
	out := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)
	assert.Equal(t, "[DRY RUN] Would prune 1 runs older than 30 days\n", out)
	assert.Len(t, listRuns(t, store), 2)
}

func TestPrune_NothingExpired(t *testing.T) {
	cfgPath := writeConfig(t, true)
	cmd := &PruneCommand{globals: newGlobals(cfgPath), deps: deps{store: openTestStore(t)}}

	var err error
	out := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)
	assert.Equal(t, "Pruned 0 runs older than 90 days\n", out)
}

func TestPrune_InvalidOlderThan(t *testing.T) {
	cfgPath := writeConfig(t, true)
	cmd := &PruneCommand{OlderThan: "forever", globals: newGlobals(cfgPath), deps: deps{store: openTestStore(t)}}

	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--older-than")
}

func TestPrune_ZeroRetentionRejected(t *testing.T) {
	cfgPath := writeConfig(t, true)
	cmd := &PruneCommand{OlderThan: "0d", globals: newGlobals(cfgPath), deps: deps{store: openTestStore(t)}}

	err := cmd.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestPrune_JSON(t *testing.T) {
	cfgPath := writeConfig(t, true)
	store := openTestStore(t)
	seedAgedRuns(t, store)
	globals := newGlobals(cfgPath)
	globals.JSON = true
	globals.DryRun = true
	cmd := &PruneCommand{OlderThan: "30d", globals: globals, deps: deps{store: store}}

	var err error
	out := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)

	var got pruneJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.DryRun)
	assert.Equal(t, "30 days", got.OlderThan)
	assert.Equal(t, int64(1), got.Runs)
	_, err = time.Parse(time.RFC3339, got.Cutoff)
	assert.NoError(t, err)
}

func TestPrune_DisabledWithoutFile(t *testing.T) {
	cfgPath := writeConfig(t, false)
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cmd := &PruneCommand{globals: newGlobals(cfgPath)}
	out := captureOutput(t, func() { err = cmd.Execute(nil) })
	require.NoError(t, err)
	assert.Equal(t, "Pruned 0 runs older than 90 days\n", out)
	assert.NoFileExists(t, filepath.Join(home, "history.db"))
}
