package reader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/notata/internal/archive"
	"github.com/mesh-intelligence/notata/internal/blob"
	"github.com/mesh-intelligence/notata/internal/fsutil"
	"github.com/mesh-intelligence/notata/internal/paths"
	"github.com/mesh-intelligence/notata/pkg/types"
)

// Option configures a reader.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger routes diagnostics, such as skipped unreadable bundles, to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Run is a read-only view of one run directory.
type Run struct {
	id     string
	path   string
	meta   types.Metadata
	params types.Params

	arrays    []string
	artifacts []string
	plots     []string

	logger *zap.Logger
}

// OpenRun opens the run directory at path. A missing path yields
// ErrNotFound; a directory without metadata.json yields ErrInvalid.
func OpenRun(path string, opts ...Option) (*Run, error) {
	o := applyOptions(opts)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run directory %s: %w", path, types.ErrNotFound)
		}
		return nil, fmt.Errorf("opening run %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", path, types.ErrInvalid)
	}

	meta, err := fsutil.ReadJSONObject(filepath.Join(path, types.MetadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s has no %s: %w", path, types.MetadataFile, types.ErrInvalid)
		}
		return nil, fmt.Errorf("reading metadata of %s: %w", path, err)
	}

	base := filepath.Base(path)
	id, ok := paths.RunIDFromDir(base)
	if !ok {
		id = base
	}

	r := &Run{id: id, path: path, meta: types.Metadata(meta), logger: o.logger}
	if r.params, err = r.LoadParams(); err != nil {
		return nil, err
	}
	r.arrays = r.scanArrays()
	r.artifacts = r.scanArtifacts()
	r.plots = r.scanPlots()
	return r, nil
}

// ID returns the run identifier: the directory name without the run prefix.
func (r *Run) ID() string { return r.id }

// Path returns the run directory.
func (r *Run) Path() string { return r.path }

// Meta returns the metadata loaded when the run was opened.
func (r *Run) Meta() types.Metadata { return r.meta }

// Status returns the lifecycle state recorded in the metadata.
func (r *Run) Status() string { return r.meta.Status() }

// Params returns the parameters loaded when the run was opened.
func (r *Run) Params() types.Params { return r.params }

// LoadParams reads the parameter file from disk. params.yaml wins over
// params.json; the two are never merged. With neither present the result is
// an empty set.
func (r *Run) LoadParams() (types.Params, error) {
	data, err := os.ReadFile(filepath.Join(r.path, types.ParamsYAMLFile))
	if err == nil {
		var p map[string]any
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding %s of run %s: %w", types.ParamsYAMLFile, r.id, err)
		}
		if p == nil {
			p = map[string]any{}
		}
		return types.Params(p), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading params of run %s: %w", r.id, err)
	}

	p, err := fsutil.ReadJSONObject(filepath.Join(r.path, types.ParamsJSONFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Params{}, nil
		}
		return nil, fmt.Errorf("params of run %s: %w", r.id, err)
	}
	return types.Params(p), nil
}

// listFiles returns the regular file names in dir, sorted. A missing
// directory yields nil.
func listFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names
}

func (r *Run) dir(name string) string { return filepath.Join(r.path, name) }

func (r *Run) scanArrays() []string {
	dataDir := r.dir(types.DataDir)
	var names []string
	for _, f := range listFiles(dataDir) {
		switch filepath.Ext(f) {
		case types.ExtArraySingle:
			names = append(names, paths.StripExt(f))
		case types.ExtArrayBundle:
			b, err := archive.OpenBundle(filepath.Join(dataDir, f))
			if err != nil {
				r.logger.Debug("skipping unreadable bundle",
					zap.String("run", r.id), zap.String("file", f), zap.Error(err))
				continue
			}
			base := paths.StripExt(f)
			for _, key := range b.Keys() {
				names = append(names, base+types.CompositeSep+key)
			}
			b.Close()
		}
	}
	sort.Strings(names)
	return names
}

func (r *Run) scanArtifacts() []string {
	seen := map[string]bool{}
	var names []string
	for _, f := range listFiles(r.dir(types.ArtifactsDir)) {
		n := paths.StripExt(f)
		if seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Run) scanPlots() []string {
	return listFiles(r.dir(types.PlotsDir))
}

// Arrays lists the arrays in data/: plain names for single arrays and
// "bundle:key" for each member of a bundle. Unreadable bundles are left out.
func (r *Run) Arrays() []string { return r.arrays }

// Artifacts lists artifact names without extensions.
func (r *Run) Artifacts() []string { return r.artifacts }

// Plots lists plot file names with their extensions.
func (r *Run) Plots() []string { return r.plots }

// LoadArray decodes the named array into ptr. A name of the form
// "bundle:key" addresses one member of data/bundle.npz; a missing bundle
// yields ErrNotFound and a missing member ErrKeyNotFound. Any other name
// addresses data/<name>.npy.
func (r *Run) LoadArray(name string, ptr any) error {
	dataDir := r.dir(types.DataDir)
	if base, key, ok := strings.Cut(name, types.CompositeSep); ok {
		if err := paths.ValidateName(base); err != nil {
			return err
		}
		b, err := archive.OpenBundle(filepath.Join(dataDir, base+types.ExtArrayBundle))
		if err != nil {
			return err
		}
		defer b.Close()
		return b.Read(key, ptr)
	}
	if err := paths.ValidateName(name); err != nil {
		return err
	}
	return archive.LoadSingle(filepath.Join(dataDir, name+types.ExtArraySingle), ptr)
}

// LoadJSON reads artifacts/<name>.json. A missing file yields an empty map.
func (r *Run) LoadJSON(name string) (map[string]any, error) {
	if err := paths.ValidateName(name); err != nil {
		return nil, err
	}
	obj, err := fsutil.ReadJSONObject(filepath.Join(r.dir(types.ArtifactsDir), name+types.ExtJSON))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return obj, nil
}

// LoadText reads artifacts/<name>.txt.
func (r *Run) LoadText(name string) (string, error) {
	p, err := r.ArtifactPath(name + types.ExtText)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading text %s: %w", name, err)
	}
	return string(data), nil
}

// LoadBlob decodes artifacts/<name>.msgpack into ptr.
func (r *Run) LoadBlob(name string, ptr any) error {
	if err := paths.ValidateName(name); err != nil {
		return err
	}
	return blob.Decode(filepath.Join(r.dir(types.ArtifactsDir), name+types.ExtBlob), ptr)
}

// ArtifactPath returns the path of the artifact file with the given file
// name, extension included. A missing file yields ErrNotFound.
func (r *Run) ArtifactPath(file string) (string, error) {
	if err := paths.ValidateName(file); err != nil {
		return "", err
	}
	p := filepath.Join(r.dir(types.ArtifactsDir), file)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("artifact %s: %w", file, types.ErrNotFound)
		}
		return "", fmt.Errorf("artifact %s: %w", file, err)
	}
	return p, nil
}

// Log returns the contents of log.txt, or "" if the run has no log.
func (r *Run) Log() (string, error) {
	data, err := os.ReadFile(r.dir(types.LogFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading log of run %s: %w", r.id, err)
	}
	return string(data), nil
}

// String summarizes the run on several lines. Empty sections are omitted.
func (r *Run) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<Run '%s'>", r.id)
	if len(r.meta) > 0 {
		fmt.Fprintf(&b, "\n  meta: %s", joinPairs(r.meta))
	}
	if len(r.params) > 0 {
		fmt.Fprintf(&b, "\n  params: %s", joinPairs(r.params))
	}
	for _, sec := range []struct {
		label string
		names []string
	}{
		{"arrays", r.arrays},
		{"artifacts", r.artifacts},
		{"plots", r.plots},
	} {
		if len(sec.names) > 0 {
			fmt.Fprintf(&b, "\n  %s: %s", sec.label, strings.Join(sec.names, ", "))
		}
	}
	return b.String()
}

func joinPairs(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatValue(m[k])
	}
	return strings.Join(parts, ", ")
}

// formatValue prints floats with a decimal point so 1.0 stays
// distinguishable from 1.
func formatValue(v any) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}
