// Package archive stores numeric arrays in NumPy-compatible files. A single
// array lives in one .npy file; a bundle is a .npz zip archive with one .npy
// member per named array. Array encoding is delegated to npyio and its npz
// package.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/sbinet/npyio"
	"github.com/sbinet/npyio/npz"

	"github.com/mesh-intelligence/notata/pkg/types"
)

// memberExt is the suffix of every array inside a bundle.
const memberExt = ".npy"

// SaveSingle writes one array to path in .npy format. v is any value npyio
// can encode: a slice or array of a numeric type, or a gonum matrix.
func SaveSingle(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := npyio.Write(f, v); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// LoadSingle decodes the .npy file at path into ptr. A missing file yields
// ErrNotFound.
func LoadSingle(path string, ptr any) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("array file %s: %w", path, types.ErrNotFound)
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if err := npyio.Read(f, ptr); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// SaveBundle writes every entry of arrays into one .npz archive at path, in
// sorted key order. Compressed bundles go through npz; with compressed false
// members are stored uncompressed.
func SaveBundle(path string, arrays map[string]any, compressed bool) error {
	if compressed {
		return saveCompressed(path, arrays)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	zw := zip.NewWriter(f)
	for _, key := range sortedKeys(arrays) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: key + memberExt, Method: zip.Store})
		if err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("adding %s to %s: %w", key, path, err)
		}
		if err := npyio.Write(w, arrays[key]); err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("encoding %s in %s: %w", key, path, err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finishing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func saveCompressed(path string, arrays map[string]any) error {
	w, err := npz.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	for _, key := range sortedKeys(arrays) {
		if err := w.Write(key+memberExt, arrays[key]); err != nil {
			w.Close()
			return fmt.Errorf("encoding %s in %s: %w", key, path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing %s: %w", path, err)
	}
	return nil
}

// Bundle is an open .npz archive.
type Bundle struct {
	r *npz.Reader
	// members maps an array name to its entry name in the archive.
	members map[string]string
	keys    []string
}

// OpenBundle opens the .npz archive at path. A missing file yields
// ErrNotFound; any other error means the archive is unreadable.
func OpenBundle(path string) (*Bundle, error) {
	r, err := npz.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("array bundle %s: %w", path, types.ErrNotFound)
		}
		return nil, fmt.Errorf("opening bundle %s: %w", path, err)
	}

	b := &Bundle{r: r, members: make(map[string]string, len(r.Keys()))}
	for _, name := range r.Keys() {
		if strings.HasSuffix(name, "/") {
			continue
		}
		key := strings.TrimSuffix(name, memberExt)
		if _, dup := b.members[key]; dup {
			continue
		}
		b.members[key] = name
		b.keys = append(b.keys, key)
	}
	sort.Strings(b.keys)
	return b, nil
}

// Keys returns the array names inside the bundle, sorted.
func (b *Bundle) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Read decodes the array stored under key into ptr. A key absent from the
// bundle yields ErrKeyNotFound.
func (b *Bundle) Read(key string, ptr any) error {
	name, ok := b.members[key]
	if !ok {
		return fmt.Errorf("array %q: %w", key, types.ErrKeyNotFound)
	}
	if err := b.r.Read(name, ptr); err != nil {
		return fmt.Errorf("decoding member %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying file.
func (b *Bundle) Close() error {
	return b.r.Close()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
