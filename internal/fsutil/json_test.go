package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONObjectNormalizesNumbers(t *testing.T) {
	got, err := DecodeJSONObject([]byte(`{"n": 3, "f": 0.5, "big": 1e300, "nested": {"k": [1, 2.5]}}`))
	require.NoError(t, err)

	assert.Equal(t, 3, got["n"])
	assert.Equal(t, 0.5, got["f"])
	assert.Equal(t, 1e300, got["big"])
	assert.Equal(t, map[string]any{"k": []any{1, 2.5}}, got["nested"])
}

func TestDecodeJSONObjectRejectsNonObject(t *testing.T) {
	_, err := DecodeJSONObject([]byte(`[1, 2]`))
	assert.Error(t, err)

	_, err = DecodeJSONObject([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestDecodeJSONObjectNull(t *testing.T) {
	got, err := DecodeJSONObject([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadJSONObjectMissing(t *testing.T) {
	_, err := ReadJSONObject(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadJSONObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"acc": 0.91}`), 0o644))

	got, err := ReadJSONObject(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"acc": 0.91}, got)
}
