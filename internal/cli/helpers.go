package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/mesh-intelligence/notata/internal/paths"
	"github.com/mesh-intelligence/notata/pkg/reader"
)

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// openRunArg opens a run given either a directory path or a run identifier
// resolved against the base directory.
func openRunArg(flags *rootFlags, arg string) (*reader.Run, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return reader.OpenRun(arg)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", arg, err)
	}
	baseDir, err := flags.resolveBaseDir()
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}
	return reader.OpenRun(paths.RunPath(baseDir, arg))
}

// formatPairs renders a map as "k=v, ..." in key order.
func formatPairs(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(parts, ", ")
}

// formatCell renders a query cell; NULL prints as an empty cell.
func formatCell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
