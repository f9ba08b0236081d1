package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/notata/pkg/types"
)

// RunDirName returns the directory name for a run identifier.
func RunDirName(runID string) string {
	return types.RunDirPrefix + runID
}

// RunPath returns the run directory for runID under baseDir.
func RunPath(baseDir, runID string) string {
	return filepath.Join(baseDir, RunDirName(runID))
}

// RunIDFromDir strips the run prefix from a directory name. The boolean is
// false when name does not carry the prefix.
func RunIDFromDir(name string) (string, bool) {
	return strings.CutPrefix(name, types.RunDirPrefix)
}

// CategoryDir resolves the directory a save call writes into. An empty
// category selects fallback unchanged. Otherwise the category is taken
// relative to root and created on demand. Categories that are absolute or
// climb out of root are rejected with ErrInvalid.
func CategoryDir(root, category, fallback string) (string, error) {
	if category == "" {
		return fallback, nil
	}
	if !filepath.IsLocal(category) {
		return "", fmt.Errorf("category %q: %w", category, types.ErrInvalid)
	}
	dir := filepath.Join(root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating category %s: %w", category, err)
	}
	return dir, nil
}

// ValidateName rejects names that would escape the target directory.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name %q: %w", name, types.ErrInvalid)
	}
	return nil
}

// StripExt returns the file name without its final extension.
func StripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
