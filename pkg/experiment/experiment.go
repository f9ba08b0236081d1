// Package experiment writes a group of runs under one root:
//
//	<root>/
//	    index.csv      one row per run: run_id plus selected parameters
//	    runs/
//	        log_<run_id>/
//
// The directory is readable with reader.OpenExperiment.
package experiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/mesh-intelligence/notata/pkg/logbook"
	"github.com/mesh-intelligence/notata/pkg/reader"
	"github.com/mesh-intelligence/notata/pkg/types"
)

// RunIDField is the first column of index.csv.
const RunIDField = "run_id"

// Config holds the options for Create.
type Config struct {
	// Fields lists the parameter names recorded in index.csv after run_id.
	// When empty, the sorted parameter names of the first run are used.
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`

	// Logbook is the template for every run. BaseDir and Params are set
	// per run.
	Logbook logbook.Config `json:"logbook" yaml:"logbook"`
}

// Experiment creates runs under root/runs and records each in index.csv.
// It is safe for concurrent use.
type Experiment struct {
	root    string
	runsDir string
	cfg     Config

	mu     sync.Mutex
	header []string
}

// Create prepares root/runs. An existing experiment is reopened for
// appending; its index header is kept.
func Create(root string, cfg Config) (*Experiment, error) {
	runsDir := filepath.Join(root, types.RunsDir)
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating runs directory: %w", err)
	}
	e := &Experiment{root: root, runsDir: runsDir, cfg: cfg}

	header, err := readHeader(e.IndexPath())
	if err != nil {
		return nil, err
	}
	e.header = header
	return e, nil
}

func readHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index header: %w", err)
	}
	return header, nil
}

// Root returns the experiment directory.
func (e *Experiment) Root() string { return e.root }

// IndexPath returns the location of index.csv.
func (e *Experiment) IndexPath() string { return filepath.Join(e.root, types.IndexFile) }

func (e *Experiment) runConfig(params types.Params) logbook.Config {
	cfg := e.cfg.Logbook
	cfg.BaseDir = e.runsDir
	cfg.Params = params
	return cfg
}

// NewRun creates the run directory runs/log_<runID>, persists params and
// appends the run to index.csv. The caller owns the returned Logbook.
func (e *Experiment) NewRun(runID string, params types.Params) (*logbook.Logbook, error) {
	lb, err := logbook.New(runID, e.runConfig(params))
	if err != nil {
		return nil, err
	}
	if err := e.record(lb.RunID(), params); err != nil {
		lb.Close()
		return nil, err
	}
	return lb, nil
}

// Run creates a run like NewRun and calls fn inside a logbook Scope: the run
// ends complete when fn returns nil and failed otherwise.
func (e *Experiment) Run(runID string, params types.Params, fn func(*logbook.Logbook) error) error {
	if runID == "" {
		runID = logbook.NewRunID()
	}
	return logbook.With(runID, e.runConfig(params), func(lb *logbook.Logbook) error {
		if err := e.record(lb.RunID(), params); err != nil {
			return err
		}
		lb.Debug("Recorded in " + types.IndexFile)
		return fn(lb)
	})
}

// Open returns a reader over the experiment as it is on disk now.
func (e *Experiment) Open(opts ...reader.Option) (*reader.Experiment, error) {
	return reader.OpenExperiment(e.root, opts...)
}

// record appends one row to index.csv, writing the header first if the
// file is new.
func (e *Experiment) record(runID string, params types.Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	header := e.header
	if header == nil {
		header = append([]string{RunIDField}, e.fields(params)...)
	}

	f, err := os.OpenFile(e.IndexPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	w := csv.NewWriter(f)
	if e.header == nil {
		w.Write(header)
	}
	row := make([]string, len(header))
	row[0] = runID
	for i, field := range header[1:] {
		if v, ok := params[field]; ok {
			row[i+1] = formatCell(v)
		}
	}
	w.Write(row)
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}
	// The header is on disk only once the first row lands.
	e.header = header
	return nil
}

func (e *Experiment) fields(params types.Params) []string {
	var keys []string
	if len(e.cfg.Fields) > 0 {
		keys = e.cfg.Fields
	} else {
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != RunIDField {
			out = append(out, k)
		}
	}
	return out
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}
