package logbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/notata/pkg/types"
)

// fakeClock returns a settable clock for deterministic timestamps.
func fakeClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func newTestLogbook(t *testing.T, runID string, cfg Config) *Logbook {
	t.Helper()
	if cfg.BaseDir == "" {
		cfg.BaseDir = t.TempDir()
	}
	lb, err := New(runID, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { lb.Close() })
	return lb
}

func logText(t *testing.T, lb *Logbook) string {
	t.Helper()
	data, err := os.ReadFile(lb.LogPath())
	require.NoError(t, err)
	return string(data)
}

func TestNewCreatesLayout(t *testing.T) {
	base := t.TempDir()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	_, clock := fakeClock(start)

	lb := newTestLogbook(t, "r1", Config{BaseDir: base, Clock: clock})

	assert.Equal(t, filepath.Join(base, "log_r1"), lb.Path())
	assert.Equal(t, "r1", lb.RunID())
	for _, dir := range types.StandardDirs {
		assert.DirExists(t, filepath.Join(lb.Path(), dir))
	}

	meta, err := lb.Metadata()
	require.NoError(t, err)
	assert.Equal(t, types.Metadata{
		types.MetaStatus:    types.StatusInitialized,
		types.MetaStartTime: "2026-03-01T12:00:00",
		types.MetaRunID:     "r1",
	}, meta)
	assert.Contains(t, logText(t, lb), "INFO Logbook initialized")
	assert.NoFileExists(t, filepath.Join(lb.Path(), types.ParamsYAMLFile))
}

func TestNewAlreadyExists(t *testing.T) {
	base := t.TempDir()
	first := newTestLogbook(t, "dup", Config{BaseDir: base})
	require.NoError(t, first.SaveText("keep", "me"))
	require.NoError(t, first.MarkComplete())

	_, err := New("dup", Config{BaseDir: base})
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	second := newTestLogbook(t, "dup", Config{BaseDir: base, Overwrite: true})
	assert.Equal(t, types.StatusInitialized, second.CurrentStatus())
	assert.True(t, second.Exists(filepath.Join(types.ArtifactsDir, "keep.txt")), "overwrite does not purge files")
}

func TestNewRejectsBadInput(t *testing.T) {
	base := t.TempDir()

	_, err := New("r1", Config{BaseDir: base, ParamFormat: "toml"})
	assert.ErrorIs(t, err, types.ErrInvalid)
	assert.NoDirExists(t, filepath.Join(base, "log_r1"), "invalid format must not leave a directory")

	_, err = New("../escape", Config{BaseDir: base})
	assert.ErrorIs(t, err, types.ErrInvalid)
}

func TestNewGeneratesRunID(t *testing.T) {
	lb := newTestLogbook(t, "", Config{})
	_, err := uuid.Parse(lb.RunID())
	assert.NoError(t, err)
	assert.DirExists(t, lb.Path())
}

func TestNewPersistsParams(t *testing.T) {
	lb := newTestLogbook(t, "p", Config{Params: types.Params{"omega": 1.5, "steps": 10}})
	data, err := os.ReadFile(filepath.Join(lb.Path(), types.ParamsYAMLFile))
	require.NoError(t, err)
	assert.Equal(t, "omega: 1.5\nsteps: 10\n", string(data))

	lb = newTestLogbook(t, "pj", Config{Params: types.Params{"omega": 1.5}, ParamFormat: types.FormatJSON})
	assert.FileExists(t, filepath.Join(lb.Path(), types.ParamsJSONFile))
	assert.Contains(t, logText(t, lb), "Saved params (json)")
}

func TestMetadataMergeKeepsUnion(t *testing.T) {
	lb := newTestLogbook(t, "m", Config{})

	require.NoError(t, lb.UpdateMetadata(types.Metadata{"seed": 7, types.MetaStatus: "initialized"}))
	require.NoError(t, lb.UpdateMetadata(types.Metadata{"seed": 8, "note": "x"}))

	meta, err := lb.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 8, meta["seed"], "later value wins")
	assert.Equal(t, "x", meta["note"])
	assert.Equal(t, "m", meta[types.MetaRunID], "earlier keys survive a merge")
	assert.Contains(t, meta, types.MetaStartTime)
}

func TestMetadataReplaceDiscardsPriorKeys(t *testing.T) {
	lb := newTestLogbook(t, "m", Config{})

	require.NoError(t, lb.ReplaceMetadata(types.Metadata{types.MetaStatus: types.StatusFailed}))

	meta, err := lb.Metadata()
	require.NoError(t, err)
	assert.Equal(t, types.Metadata{types.MetaStatus: types.StatusFailed}, meta)
	assert.NoFileExists(t, filepath.Join(lb.Path(), types.MetadataTempFile))
}

func TestMarkComplete(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	now, clock := fakeClock(start)
	lb := newTestLogbook(t, "c", Config{Clock: clock})

	*now = start.Add(2500 * time.Millisecond)
	require.NoError(t, lb.MarkComplete())

	meta, err := lb.Metadata()
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, meta.Status())
	assert.Equal(t, "2026-03-01T12:00:02", meta[types.MetaEndTime])
	assert.Equal(t, 2.5, meta[types.MetaRuntimeSec])
	assert.Equal(t, "2026-03-01T12:00:00", meta[types.MetaStartTime])
	assert.NotContains(t, meta, types.MetaFailureReason)
	assert.Contains(t, logText(t, lb), "INFO Marked complete")

	// Re-marking overwrites the end time but keeps the state.
	*now = start.Add(5 * time.Second)
	require.NoError(t, lb.MarkComplete())
	meta, err = lb.Metadata()
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, meta.Status())
	assert.Equal(t, "2026-03-01T12:00:05", meta[types.MetaEndTime])
	assert.Equal(t, 5, meta[types.MetaRuntimeSec])
}

func TestMarkFailed(t *testing.T) {
	lb := newTestLogbook(t, "f", Config{})
	require.NoError(t, lb.MarkFailed("diverged"))

	meta, err := lb.Metadata()
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, meta.Status())
	assert.Equal(t, "diverged", meta[types.MetaFailureReason])
	assert.Contains(t, meta, types.MetaEndTime)
	assert.Contains(t, meta, types.MetaRuntimeSec)
	assert.Contains(t, logText(t, lb), "Marked failed: diverged")
}

func TestCurrentStatusUnknownWithoutMetadata(t *testing.T) {
	lb := newTestLogbook(t, "u", Config{})
	require.NoError(t, os.Remove(filepath.Join(lb.Path(), types.MetadataFile)))
	assert.Equal(t, types.StatusUnknown, lb.CurrentStatus())
}

func TestClosedLogbookRejectsWrites(t *testing.T) {
	lb := newTestLogbook(t, "closed", Config{})
	require.NoError(t, lb.Close())
	require.NoError(t, lb.Close())

	assert.ErrorIs(t, lb.MarkComplete(), types.ErrClosed)
	assert.ErrorIs(t, lb.SaveText("a", "b"), types.ErrClosed)
	assert.ErrorIs(t, lb.SaveParams(types.Params{}, types.FormatYAML), types.ErrClosed)
	assert.Equal(t, types.StatusInitialized, lb.CurrentStatus())
}

func TestLogLevels(t *testing.T) {
	lb := newTestLogbook(t, "lv", Config{LogLevel: "debug"})
	lb.Debug("d")
	lb.Info("i")
	lb.Warn("w")
	lb.Error("e")
	require.NoError(t, lb.Close())

	text := logText(t, lb)
	for _, want := range []string{"DEBUG d", "INFO i", "WARN w", "ERROR e"} {
		assert.Contains(t, text, want)
	}
	assert.Equal(t, 5, strings.Count(text, "\n"))
}

func TestLogByLevelName(t *testing.T) {
	lb := newTestLogbook(t, "named", Config{})
	require.NoError(t, lb.Log("warn", "disk nearly full"))
	require.NoError(t, lb.Log("debug", "hidden"))
	assert.ErrorIs(t, lb.Log("loud", "x"), types.ErrInvalid)
	require.NoError(t, lb.Close())

	text := logText(t, lb)
	assert.Contains(t, text, "WARN disk nearly full")
	assert.NotContains(t, text, "hidden")
}
