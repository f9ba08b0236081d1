package logbook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/notata/internal/archive"
	"github.com/mesh-intelligence/notata/internal/blob"
	"github.com/mesh-intelligence/notata/pkg/types"
)

func TestSaveOperationsWriteExpectedFiles(t *testing.T) {
	lb := newTestLogbook(t, "s", Config{})

	require.NoError(t, lb.SaveArray("x", []float64{1, 2, 3}))
	require.NoError(t, lb.SaveArrays("bundle", map[string]any{"a": []int64{1}, "b": []int64{2, 3}}))
	require.NoError(t, lb.SaveText("notes", "hello"))
	require.NoError(t, lb.SaveJSON("metrics", map[string]any{"acc": 0.91}))
	require.NoError(t, lb.SaveBlob("state", map[string]any{"step": 3}))
	require.NoError(t, lb.SaveBytes("raw.bin", []byte{0, 1, 2}))

	root := lb.Path()
	for _, rel := range []string{
		"data/x.npy",
		"data/bundle.npz",
		"artifacts/notes.txt",
		"artifacts/metrics.json",
		"artifacts/state.msgpack",
		"artifacts/raw.bin",
	} {
		assert.FileExists(t, filepath.Join(root, rel))
	}

	var x []float64
	require.NoError(t, archive.LoadSingle(filepath.Join(root, "data", "x.npy"), &x))
	assert.Equal(t, []float64{1, 2, 3}, x)

	b, err := archive.OpenBundle(filepath.Join(root, "data", "bundle.npz"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, b.Keys())
	require.NoError(t, b.Close())

	raw, err := os.ReadFile(filepath.Join(root, "artifacts", "metrics.json"))
	require.NoError(t, err)
	var metrics map[string]any
	require.NoError(t, json.Unmarshal(raw, &metrics))
	assert.Equal(t, 0.91, metrics["acc"])

	var state map[string]any
	require.NoError(t, blob.Decode(filepath.Join(root, "artifacts", "state.msgpack"), &state))
	assert.EqualValues(t, 3, state["step"])

	text := logText(t, lb)
	for _, want := range []string{
		"Saved array x -> data/x.npy",
		"Saved multiple arrays bundle -> data/bundle.npz",
		"Saved text notes -> artifacts/notes.txt",
		"Saved json metrics -> artifacts/metrics.json",
		"Saved blob state -> artifacts/state.msgpack",
		"Saved bytes raw.bin -> artifacts/raw.bin",
	} {
		assert.Contains(t, text, want)
	}
}

func TestSaveInCategory(t *testing.T) {
	lb := newTestLogbook(t, "cat", Config{})

	require.NoError(t, lb.SaveArray("step_00001000", []float64{0.5}, InCategory("checkpoints")))
	require.NoError(t, lb.SaveText("summary", "ok", InCategory("reports")))

	assert.FileExists(t, filepath.Join(lb.Path(), "checkpoints", "step_00001000.npy"))
	assert.FileExists(t, filepath.Join(lb.Path(), "reports", "summary.txt"))
	assert.NoFileExists(t, filepath.Join(lb.Path(), "data", "step_00001000.npy"))
	assert.Contains(t, logText(t, lb), "-> checkpoints/step_00001000.npy")

	err := lb.SaveText("x", "y", InCategory("../outside"))
	assert.ErrorIs(t, err, types.ErrInvalid)
}

func TestSaveRejectsPathNames(t *testing.T) {
	lb := newTestLogbook(t, "names", Config{})
	assert.ErrorIs(t, lb.SaveText("a/b", "x"), types.ErrInvalid)
	assert.ErrorIs(t, lb.SaveArrays("ok", map[string]any{"../k": []float64{1}}), types.ErrInvalid)
	assert.ErrorIs(t, lb.SaveBytes("", nil), types.ErrInvalid)
}

func TestWholeFloatsKeepDecimalPoint(t *testing.T) {
	params := types.Params{"omega": 1.0, "n": 3, "grid": []any{0.0, 2.5}}

	lb := newTestLogbook(t, "wf_yaml", Config{})
	require.NoError(t, lb.SaveParams(params, types.FormatYAML))
	data, err := os.ReadFile(filepath.Join(lb.Path(), types.ParamsYAMLFile))
	require.NoError(t, err)
	assert.Equal(t, "grid:\n    - 0.0\n    - 2.5\nn: 3\nomega: 1.0\n", string(data))

	lb = newTestLogbook(t, "wf_json", Config{})
	require.NoError(t, lb.SaveParams(params, types.FormatJSON))
	data, err = os.ReadFile(filepath.Join(lb.Path(), types.ParamsJSONFile))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"grid\": [\n    0.0,\n    2.5\n  ],\n  \"n\": 3,\n  \"omega\": 1.0\n}\n", string(data))

	require.NoError(t, lb.SaveJSON("scores", map[string]any{"best": 4.0, "big": 1e21}))
	data, err = os.ReadFile(filepath.Join(lb.Path(), types.ArtifactsDir, "scores.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"best": 4.0`)
	assert.Contains(t, string(data), `"big": 1e+21`)
}

func TestSaveParamsErrors(t *testing.T) {
	lb := newTestLogbook(t, "pe", Config{})

	assert.ErrorIs(t, lb.SaveParams(types.Params{"a": 1}, "xml"), types.ErrInvalid)
	assert.ErrorIs(t, lb.SaveParams(types.Params{"ch": make(chan int)}, types.FormatYAML), types.ErrInvalid)
	assert.NoFileExists(t, filepath.Join(lb.Path(), types.ParamsYAMLFile))
}

func TestSavePlot(t *testing.T) {
	lb := newTestLogbook(t, "plot", Config{})

	var calls []string
	fig := FigureFunc(func(path string, dpi int) error {
		calls = append(calls, filepath.Base(path))
		assert.Equal(t, 300, dpi)
		return os.WriteFile(path, []byte("IMG"), 0o644)
	})

	require.NoError(t, lb.SavePlot("trajectory", fig, WithFormats("png", ".pdf"), WithDPI(300)))
	assert.Equal(t, []string{"trajectory.png", "trajectory.pdf"}, calls)
	assert.FileExists(t, filepath.Join(lb.Path(), "plots", "trajectory.png"))
	assert.FileExists(t, filepath.Join(lb.Path(), "plots", "trajectory.pdf"))
	assert.Contains(t, logText(t, lb), "Saved plot trajectory (png/pdf) -> plots")
}

func TestSavePlotDefaults(t *testing.T) {
	lb := newTestLogbook(t, "plotdef", Config{})
	var gotDPI int
	var gotPath string
	fig := FigureFunc(func(path string, dpi int) error {
		gotDPI, gotPath = dpi, path
		return nil
	})
	require.NoError(t, lb.SavePlot("phase", fig))
	assert.Equal(t, DefaultDPI, gotDPI)
	assert.True(t, strings.HasSuffix(gotPath, "phase.png"), gotPath)
}

func TestSavePlotErrors(t *testing.T) {
	lb := newTestLogbook(t, "plotnil", Config{})
	assert.ErrorIs(t, lb.SavePlot("p", nil), types.ErrUnavailable)

	boom := errors.New("renderer failed")
	err := lb.SavePlot("p", FigureFunc(func(string, int) error { return boom }))
	assert.ErrorIs(t, err, boom)
}

func TestArtifactPathAndExists(t *testing.T) {
	lb := newTestLogbook(t, "ap", Config{})

	p, err := lb.ArtifactPath(true, "custom", "deep", "file.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lb.Path(), "custom", "deep", "file.csv"), p)
	assert.DirExists(t, filepath.Dir(p))
	assert.False(t, lb.Exists("custom/deep/file.csv"))

	require.NoError(t, os.WriteFile(p, []byte("a,b\n"), 0o644))
	assert.True(t, lb.Exists("custom/deep/file.csv"))

	_, err = lb.ArtifactPath(false, "..", "x")
	assert.ErrorIs(t, err, types.ErrInvalid)
}
