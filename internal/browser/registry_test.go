package browser

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_DiscoveredHasNoSizes(t *testing.T) {
	db := NewDatabase("/p/places.sqlite")

	_, ok := db.SizeBefore()
	assert.False(t, ok)
	_, ok = db.SizeAfter()
	assert.False(t, ok)
	assert.False(t, db.Defragmented())
	assert.Equal(t, StateDiscovered, db.State())
}

func TestDatabase_MeasuredHasOnlyBefore(t *testing.T) {
	db := NewDatabase("/p/places.sqlite")
	require.NoError(t, db.MarkMeasured(100))

	before, ok := db.SizeBefore()
	assert.True(t, ok)
	assert.Equal(t, int64(100), before)
	_, ok = db.SizeAfter()
	assert.False(t, ok)
	assert.False(t, db.Defragmented())
}

func TestDatabase_DryRunCopiesBefore(t *testing.T) {
	db := NewDatabase("/p/places.sqlite")
	require.NoError(t, db.MarkMeasured(4096))
	require.NoError(t, db.MarkDryRun())

	after, ok := db.SizeAfter()
	assert.True(t, ok)
	assert.Equal(t, int64(4096), after)
	assert.False(t, db.Defragmented())
	assert.Equal(t, "dry-run", db.State().String())
}

func TestDatabase_Compacted(t *testing.T) {
	db := NewDatabase("/p/places.sqlite")
	require.NoError(t, db.MarkMeasured(10_000))
	require.NoError(t, db.MarkCompacted(6_000))

	before, _ := db.SizeBefore()
	after, _ := db.SizeAfter()
	assert.Equal(t, int64(10_000), before)
	assert.Equal(t, int64(6_000), after)
	assert.True(t, db.Defragmented())
}

func TestDatabase_RejectsInvalidTransitions(t *testing.T) {
	db := NewDatabase("/p/places.sqlite")
	assert.Error(t, db.MarkCompacted(1), "after size without before size")
	assert.Error(t, db.MarkDryRun())

	require.NoError(t, db.MarkMeasured(1))
	assert.Error(t, db.MarkMeasured(2))

	require.NoError(t, db.MarkCompacted(1))
	assert.Error(t, db.MarkDryRun())
	assert.Error(t, db.MarkCompacted(1))
}

func TestDatabase_RelativePath(t *testing.T) {
	db := NewDatabase(filepath.Join("/home/u/.mozilla/firefox/x.default", "storage", "a.sqlite"))
	assert.Equal(t, filepath.Join("storage", "a.sqlite"), db.RelativePath("/home/u/.mozilla/firefox/x.default"))
	assert.Equal(t, db.Path, db.RelativePath("/somewhere/else"))
}

func TestProfile_Totals(t *testing.T) {
	compacted := NewDatabase("/p/a")
	require.NoError(t, compacted.MarkMeasured(1000))
	require.NoError(t, compacted.MarkCompacted(600))

	unchanged := NewDatabase("/p/b")
	require.NoError(t, unchanged.MarkMeasured(400))
	require.NoError(t, unchanged.MarkCompacted(400))

	failed := NewDatabase("/p/c")
	require.NoError(t, failed.MarkMeasured(50))

	untouched := NewDatabase("/p/d")

	p := &Profile{Path: "/p", Databases: []*Database{compacted, unchanged, failed, untouched}}
	totals := p.Totals()
	assert.Equal(t, int64(1450), totals.Before)
	assert.Equal(t, int64(1000), totals.After)
	assert.Equal(t, int64(-400), totals.Changed)
	assert.Equal(t, 3, totals.Measured)
	assert.Equal(t, 2, totals.Defragmented)
}

type stubResolver struct {
	profiles []*Profile
	err      error
}

func (s stubResolver) ListProfiles(Config) ([]*Profile, error) { return s.profiles, s.err }

func TestBrowser_ListDatabases(t *testing.T) {
	b := New(KindFirefox)
	want := []*Profile{
		{Name: "a", Path: "/a", Databases: []*Database{NewDatabase("/a/1"), NewDatabase("/a/2")}},
		{Name: "b", Path: "/b", Databases: []*Database{NewDatabase("/b/1")}},
	}
	require.NoError(t, b.ListDatabases(stubResolver{profiles: want}, Config{}))
	assert.Equal(t, want, b.Profiles)
	assert.Equal(t, 3, b.DatabaseCount())
}

func TestBrowser_ListDatabasesPropagatesError(t *testing.T) {
	b := New(KindFirefox)
	boom := errors.New("boom")
	err := b.ListDatabases(stubResolver{err: boom}, Config{})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, b.Profiles)
}

func TestBrowser_LiveProcessName(t *testing.T) {
	b := New(KindUnknown)
	assert.Equal(t, "Unknown", b.LiveProcessName())
	b.ProcessName = "brave"
	assert.Equal(t, "brave", b.LiveProcessName())
}
