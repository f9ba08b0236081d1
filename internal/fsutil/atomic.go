// Package fsutil provides the atomic write protocol used for run metadata and
// the JSON helpers shared by the writer and the readers.
package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// rename is swapped out in tests to simulate a crash between the temp write
// and the rename.
var rename = os.Rename

// WriteFileAtomic writes data to tmpName in the directory of path, syncs it,
// and renames it over path. A reader of path sees either the previous
// contents or data, never a partial write. The temp file is removed on
// failure.
func WriteFileAtomic(path, tmpName string, data []byte) error {
	tmpPath := filepath.Join(filepath.Dir(path), tmpName)
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// WriteJSONAtomic serializes v completely, then installs it at path with
// WriteFileAtomic. Map keys come out sorted.
func WriteJSONAtomic(path, tmpName string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, tmpName, data)
}

// MarshalJSON renders v as two-space indented JSON with a trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}
	return append(data, '\n'), nil
}
