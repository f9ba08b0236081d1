package logbook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/notata/internal/archive"
	"github.com/mesh-intelligence/notata/internal/blob"
	"github.com/mesh-intelligence/notata/internal/fsutil"
	"github.com/mesh-intelligence/notata/internal/paths"
	"github.com/mesh-intelligence/notata/pkg/types"
)

// Figure is a renderable plot. SaveFigure exports it to path, choosing the
// file format from the extension, at the given raster resolution.
type Figure interface {
	SaveFigure(path string, dpi int) error
}

// FigureFunc adapts a function to Figure.
type FigureFunc func(path string, dpi int) error

// SaveFigure calls f.
func (f FigureFunc) SaveFigure(path string, dpi int) error { return f(path, dpi) }

// target validates name and returns <dir>/<name><ext>, where dir is the
// category directory if one was requested.
func (l *Logbook) target(name, ext, fallback string, o saveOptions) (string, error) {
	if l.closed {
		return "", types.ErrClosed
	}
	if err := paths.ValidateName(name); err != nil {
		return "", err
	}
	dir, err := paths.CategoryDir(l.path, o.category, fallback)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+ext), nil
}

func (l *Logbook) rel(p string) string {
	r, err := filepath.Rel(l.path, p)
	if err != nil {
		return p
	}
	return r
}

// SaveParams writes params to params.yaml or params.json at the run root.
// Any other format yields ErrInvalid.
func (l *Logbook) SaveParams(params types.Params, format types.ParamFormat) error {
	if l.closed {
		return types.ErrClosed
	}
	if err := format.Validate(); err != nil {
		return err
	}
	// yaml.Marshal panics on values such as channels; reject them here.
	if _, err := json.Marshal(params); err != nil {
		return fmt.Errorf("params not serializable: %v: %w", err, types.ErrInvalid)
	}

	var (
		data []byte
		err  error
	)
	if format == types.FormatYAML {
		data, err = yaml.Marshal(yamlValue(map[string]any(params)))
	} else {
		data, err = fsutil.MarshalJSON(jsonValue(map[string]any(params)))
	}
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.path, format.FileName()), data, 0o644); err != nil {
		return fmt.Errorf("writing params: %w", err)
	}
	l.log.Info(fmt.Sprintf("Saved params (%s)", format))
	return nil
}

// SaveArray writes one array to data/<name>.npy.
func (l *Logbook) SaveArray(name string, array any, opts ...SaveOption) error {
	p, err := l.target(name, types.ExtArraySingle, l.dataDir, applyOptions(opts))
	if err != nil {
		return err
	}
	if err := archive.SaveSingle(p, array); err != nil {
		return err
	}
	l.log.Info(fmt.Sprintf("Saved array %s -> %s", name, l.rel(p)))
	return nil
}

// SaveArrays writes several named arrays into one bundle, data/<name>.npz.
// Readers address each as "<name>:<key>".
func (l *Logbook) SaveArrays(name string, arrays map[string]any, opts ...SaveOption) error {
	o := applyOptions(opts)
	p, err := l.target(name, types.ExtArrayBundle, l.dataDir, o)
	if err != nil {
		return err
	}
	for key := range arrays {
		if err := paths.ValidateName(key); err != nil {
			return fmt.Errorf("array key: %w", err)
		}
	}
	if err := archive.SaveBundle(p, arrays, !o.uncompressed); err != nil {
		return err
	}
	l.log.Info(fmt.Sprintf("Saved multiple arrays %s -> %s", name, l.rel(p)))
	return nil
}

// SavePlot exports fig to plots/<name>.<ext> for every requested format.
// A nil fig yields ErrUnavailable.
func (l *Logbook) SavePlot(name string, fig Figure, opts ...SaveOption) error {
	if fig == nil {
		return fmt.Errorf("saving plot %s: no figure renderer: %w", name, types.ErrUnavailable)
	}
	o := applyOptions(opts)
	base, err := l.target(name, "", l.plotDir, o)
	if err != nil {
		return err
	}
	exts := make([]string, len(o.formats))
	for i, ext := range o.formats {
		exts[i] = strings.TrimPrefix(ext, ".")
		if err := fig.SaveFigure(base+"."+exts[i], o.dpi); err != nil {
			return fmt.Errorf("rendering plot %s.%s: %w", name, exts[i], err)
		}
	}
	l.log.Info(fmt.Sprintf("Saved plot %s (%s) -> %s", name, strings.Join(exts, "/"), l.rel(filepath.Dir(base))))
	return nil
}

// SaveText writes text to artifacts/<name>.txt.
func (l *Logbook) SaveText(name, text string, opts ...SaveOption) error {
	p, err := l.target(name, types.ExtText, l.artifactsDir, applyOptions(opts))
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing text: %w", err)
	}
	l.log.Info(fmt.Sprintf("Saved text %s -> %s", name, l.rel(p)))
	return nil
}

// SaveJSON writes v as indented JSON to artifacts/<name>.json.
func (l *Logbook) SaveJSON(name string, v any, opts ...SaveOption) error {
	p, err := l.target(name, types.ExtJSON, l.artifactsDir, applyOptions(opts))
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(jsonValue(v), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json %s: %w", name, err)
	}
	if err := os.WriteFile(p, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing json: %w", err)
	}
	l.log.Info(fmt.Sprintf("Saved json %s -> %s", name, l.rel(p)))
	return nil
}

// SaveBlob serializes an arbitrary value to artifacts/<name>.msgpack.
func (l *Logbook) SaveBlob(name string, v any, opts ...SaveOption) error {
	p, err := l.target(name, types.ExtBlob, l.artifactsDir, applyOptions(opts))
	if err != nil {
		return err
	}
	if err := blob.Encode(p, v); err != nil {
		return err
	}
	l.log.Info(fmt.Sprintf("Saved blob %s -> %s", name, l.rel(p)))
	return nil
}

// SaveBytes writes data verbatim to artifacts/<name>. The name may carry its
// own extension.
func (l *Logbook) SaveBytes(name string, data []byte, opts ...SaveOption) error {
	p, err := l.target(name, "", l.artifactsDir, applyOptions(opts))
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing bytes: %w", err)
	}
	l.log.Info(fmt.Sprintf("Saved bytes %s -> %s", name, l.rel(p)))
	return nil
}

// ArtifactPath returns a path inside the run directory for files the caller
// writes itself. With create set, the parent directories are made.
func (l *Logbook) ArtifactPath(create bool, parts ...string) (string, error) {
	rel := filepath.Join(parts...)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("artifact path %q: %w", rel, types.ErrInvalid)
	}
	p := filepath.Join(l.path, rel)
	if create {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", filepath.Dir(rel), err)
		}
	}
	return p, nil
}

// Exists reports whether rel exists inside the run directory.
func (l *Logbook) Exists(rel string) bool {
	_, err := os.Stat(filepath.Join(l.path, rel))
	return err == nil
}

// Log writes msg to the run log at the named level: debug, info, warn or
// error. An unknown level yields ErrInvalid.
func (l *Logbook) Log(level, msg string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, types.ErrInvalid)
	}
	l.log.Log(lvl, msg)
	return nil
}

// Info writes a line to the run log. Debug, Warn and Error do the same at
// their levels.
func (l *Logbook) Info(msg string)  { l.log.Info(msg) }
func (l *Logbook) Debug(msg string) { l.log.Debug(msg) }
func (l *Logbook) Warn(msg string)  { l.log.Warn(msg) }
func (l *Logbook) Error(msg string) { l.log.Error(msg) }
