// Package blob serializes arbitrary Go values to MessagePack artifact files.
package blob

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"

	"github.com/ugorji/go/codec"

	"github.com/mesh-intelligence/notata/pkg/types"
)

func handle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{WriteExt: true}
	h.RawToString = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return h
}

// Encode writes v to path.
func Encode(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := codec.NewEncoder(f, handle()).Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// Decode reads path into ptr. A missing file yields ErrNotFound.
func Decode(path string, ptr any) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("blob %s: %w", path, types.ErrNotFound)
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if err := codec.NewDecoder(f, handle()).Decode(ptr); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
