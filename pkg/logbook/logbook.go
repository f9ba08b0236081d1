// Package logbook writes one run directory: parameters, arrays, plots,
// artifacts, a chronological log, and lifecycle metadata.
//
// Layout of a run directory:
//
//	<base>/log_<run_id>/
//	    log.txt          append-only text log
//	    metadata.json    lifecycle metadata, replaced atomically
//	    params.yaml      or params.json
//	    data/            arrays (.npy single, .npz bundle)
//	    plots/           rendered figures
//	    artifacts/       text, json, blobs, raw bytes
//
// A Logbook is not safe for concurrent use. It is assumed to be the only
// writer of its run directory.
package logbook

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/notata/internal/fsutil"
	"github.com/mesh-intelligence/notata/internal/paths"
	"github.com/mesh-intelligence/notata/internal/runlog"
	"github.com/mesh-intelligence/notata/pkg/types"
)

// DefaultBaseDir is used when Config.BaseDir is empty.
const DefaultBaseDir = "outputs"

// Config holds the options for New.
type Config struct {
	// BaseDir is the parent of the run directory. Default "outputs".
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// Overwrite allows reusing an existing run directory. Existing files are
	// kept; metadata is reset to initialized.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// Params, when non-nil, is persisted immediately after construction.
	Params types.Params `json:"params,omitempty" yaml:"params,omitempty"`

	// ParamFormat selects the serialization of Params. Default yaml.
	ParamFormat types.ParamFormat `json:"param_format,omitempty" yaml:"param_format,omitempty"`

	// LogLevel is the minimum level written to log.txt. Default info.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Clock overrides time.Now, for tests.
	Clock func() time.Time `json:"-" yaml:"-"`
}

// Logbook owns one run directory.
type Logbook struct {
	runID        string
	path         string
	dataDir      string
	plotDir      string
	artifactsDir string

	log    *runlog.Logger
	clock  func() time.Time
	start  time.Time
	closed bool
}

// NewRunID returns a fresh UUID v7 run identifier.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// New creates the run directory <BaseDir>/log_<runID> with its data, plots
// and artifacts subdirectories, opens the run log and writes the initial
// metadata {status: initialized, start_time, run_id}. An empty runID is
// replaced by NewRunID.
//
// New returns ErrAlreadyExists if the directory exists and cfg.Overwrite is
// false, and ErrInvalid for an unsupported cfg.ParamFormat.
func New(runID string, cfg Config) (*Logbook, error) {
	if runID == "" {
		runID = NewRunID()
	}
	if err := paths.ValidateName(runID); err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	format := cfg.ParamFormat
	if format == "" {
		format = types.FormatYAML
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	path := paths.RunPath(baseDir, runID)
	if _, err := os.Stat(path); err == nil {
		if !cfg.Overwrite {
			return nil, fmt.Errorf("run directory %s: %w", path, types.ErrAlreadyExists)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking run directory: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	for _, dir := range types.StandardDirs {
		if err := os.MkdirAll(filepath.Join(path, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	log, err := runlog.Open(filepath.Join(path, types.LogFile), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	l := &Logbook{
		runID:        runID,
		path:         path,
		dataDir:      filepath.Join(path, types.DataDir),
		plotDir:      filepath.Join(path, types.PlotsDir),
		artifactsDir: filepath.Join(path, types.ArtifactsDir),
		log:          log,
		clock:        clock,
		start:        clock(),
	}

	if err := l.ReplaceMetadata(types.Metadata{
		types.MetaStatus:    types.StatusInitialized,
		types.MetaStartTime: l.now(),
		types.MetaRunID:     runID,
	}); err != nil {
		log.Close()
		return nil, err
	}
	if cfg.Params != nil {
		if err := l.SaveParams(cfg.Params, format); err != nil {
			log.Close()
			return nil, err
		}
	}

	l.log.Info("Logbook initialized")
	return l, nil
}

// RunID returns the run identifier.
func (l *Logbook) RunID() string { return l.runID }

// Path returns the run directory.
func (l *Logbook) Path() string { return l.path }

// LogPath returns the path of log.txt.
func (l *Logbook) LogPath() string { return filepath.Join(l.path, types.LogFile) }

func (l *Logbook) metadataPath() string { return filepath.Join(l.path, types.MetadataFile) }

func (l *Logbook) now() string { return l.clock().Format(types.TimeLayout) }

// Elapsed returns the wall time since construction.
func (l *Logbook) Elapsed() time.Duration { return l.clock().Sub(l.start) }

// Metadata reads the current metadata from disk. A missing file yields an
// empty Metadata.
func (l *Logbook) Metadata() (types.Metadata, error) {
	obj, err := fsutil.ReadJSONObject(l.metadataPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Metadata{}, nil
		}
		return nil, err
	}
	return types.Metadata(obj), nil
}

// CurrentStatus returns the lifecycle status on disk, or "unknown".
func (l *Logbook) CurrentStatus() string {
	meta, err := l.Metadata()
	if err != nil {
		return types.StatusUnknown
	}
	return meta.Status()
}

// UpdateMetadata merges fields into the metadata on disk, new values winning,
// and installs the result atomically.
func (l *Logbook) UpdateMetadata(fields types.Metadata) error {
	return l.writeMetadata(fields, false)
}

// ReplaceMetadata installs fields as the complete metadata, discarding every
// prior key.
func (l *Logbook) ReplaceMetadata(fields types.Metadata) error {
	return l.writeMetadata(fields, true)
}

func (l *Logbook) writeMetadata(fields types.Metadata, replace bool) error {
	if l.closed {
		return types.ErrClosed
	}
	next := fields
	if !replace {
		current, err := l.Metadata()
		if err != nil {
			return fmt.Errorf("reading metadata: %w", err)
		}
		next = current.Merge(fields)
	}
	if err := fsutil.WriteJSONAtomic(l.metadataPath(), types.MetadataTempFile, next); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// MarkComplete records status complete with end_time and runtime_sec.
func (l *Logbook) MarkComplete() error {
	if err := l.UpdateMetadata(types.Metadata{
		types.MetaStatus:     types.StatusComplete,
		types.MetaEndTime:    l.now(),
		types.MetaRuntimeSec: l.runtimeSec(),
	}); err != nil {
		return err
	}
	l.log.Info("Marked complete")
	return nil
}

// MarkFailed records status failed with end_time, runtime_sec and reason.
func (l *Logbook) MarkFailed(reason string) error {
	if err := l.UpdateMetadata(types.Metadata{
		types.MetaStatus:        types.StatusFailed,
		types.MetaEndTime:       l.now(),
		types.MetaRuntimeSec:    l.runtimeSec(),
		types.MetaFailureReason: reason,
	}); err != nil {
		return err
	}
	l.log.Info("Marked failed: " + reason)
	return nil
}

// runtimeSec is the elapsed wall time in seconds rounded to microseconds.
func (l *Logbook) runtimeSec() float64 {
	return math.Round(l.Elapsed().Seconds()*1e6) / 1e6
}

// Close releases the log handle. It does not change the lifecycle status;
// use a Scope for automatic finalization. Close is idempotent.
func (l *Logbook) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.log.Close()
}
