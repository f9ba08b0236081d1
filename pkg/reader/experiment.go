package reader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/notata/internal/paths"
	"github.com/mesh-intelligence/notata/internal/sqlite"
	"github.com/mesh-intelligence/notata/pkg/types"
)

// QueryResult holds the columns and rows returned by Experiment.Query.
type QueryResult = sqlite.Result

// ErrQuery wraps errors raised by SQLite while running a query.
var ErrQuery = sqlite.ErrQuery

// Experiment is a read-only view of an experiment directory: a root holding
// runs/ with one run directory per run and an optional index.csv.
type Experiment struct {
	root    string
	runsDir string
	runs    []*Run
	byID    map[string]*Run
	logger  *zap.Logger
}

// OpenExperiment discovers the runs under root/runs. A missing root or
// runs directory yields ErrNotFound. Runs are ordered by directory name.
func OpenExperiment(root string, opts ...Option) (*Experiment, error) {
	o := applyOptions(opts)

	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("experiment %s: %w", root, types.ErrNotFound)
		}
		return nil, fmt.Errorf("opening experiment %s: %w", root, err)
	}
	runsDir := filepath.Join(root, types.RunsDir)
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("runs directory %s: %w", runsDir, types.ErrNotFound)
		}
		return nil, fmt.Errorf("listing %s: %w", runsDir, err)
	}

	e := &Experiment{root: root, runsDir: runsDir, byID: map[string]*Run{}, logger: o.logger}
	// ReadDir returns entries sorted by name.
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := paths.RunIDFromDir(entry.Name()); !ok {
			continue
		}
		r, err := OpenRun(filepath.Join(runsDir, entry.Name()), opts...)
		if err != nil {
			return nil, err
		}
		e.runs = append(e.runs, r)
		e.byID[r.ID()] = r
	}
	o.logger.Debug("opened experiment", zap.String("root", root), zap.Int("runs", len(e.runs)))
	return e, nil
}

// Root returns the experiment directory.
func (e *Experiment) Root() string { return e.root }

// Name returns the base name of the experiment directory.
func (e *Experiment) Name() string { return filepath.Base(e.root) }

// Len returns the number of runs.
func (e *Experiment) Len() int { return len(e.runs) }

// At returns the i-th run in directory order.
func (e *Experiment) At(i int) (*Run, error) {
	if i < 0 || i >= len(e.runs) {
		return nil, fmt.Errorf("run %d of %d: %w", i, len(e.runs), types.ErrIndexOutOfRange)
	}
	return e.runs[i], nil
}

// Get returns the run with the given identifier.
func (e *Experiment) Get(id string) (*Run, error) {
	r, ok := e.byID[id]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", id, types.ErrKeyNotFound)
	}
	return r, nil
}

// Lookup addresses a run by position (any integer type) or by identifier
// (string). Other key types yield ErrUnsupportedKeyType.
func (e *Experiment) Lookup(key any) (*Run, error) {
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := v.Int()
		if i < 0 || i >= int64(len(e.runs)) {
			return nil, fmt.Errorf("run %d of %d: %w", i, len(e.runs), types.ErrIndexOutOfRange)
		}
		return e.runs[i], nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u >= uint64(len(e.runs)) {
			return nil, fmt.Errorf("run %d of %d: %w", u, len(e.runs), types.ErrIndexOutOfRange)
		}
		return e.runs[u], nil
	case reflect.String:
		return e.Get(v.String())
	default:
		return nil, fmt.Errorf("key %v (%T): %w", key, key, types.ErrUnsupportedKeyType)
	}
}

// All yields the runs with their positions in directory order.
func (e *Experiment) All() iter.Seq2[int, *Run] {
	return func(yield func(int, *Run) bool) {
		for i, r := range e.runs {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Runs returns the runs in directory order.
func (e *Experiment) Runs() []*Run {
	out := make([]*Run, len(e.runs))
	copy(out, e.runs)
	return out
}

// IDs returns the run identifiers in directory order.
func (e *Experiment) IDs() []string {
	ids := make([]string, len(e.runs))
	for i, r := range e.runs {
		ids[i] = r.ID()
	}
	return ids
}

// Params maps each run identifier to the parameters loaded with the run.
func (e *Experiment) Params() map[string]types.Params {
	out := make(map[string]types.Params, len(e.runs))
	for _, r := range e.runs {
		out[r.ID()] = r.Params()
	}
	return out
}

// IndexPath returns the location of index.csv whether or not it exists.
func (e *Experiment) IndexPath() string {
	return filepath.Join(e.root, types.IndexFile)
}

// HasIndex reports whether the experiment carries an index.csv.
func (e *Experiment) HasIndex() bool {
	info, err := os.Stat(e.IndexPath())
	return err == nil && info.Mode().IsRegular()
}

func newIndexReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

// IndexFields returns the header of index.csv. Without an index the result
// is nil.
func (e *Experiment) IndexFields() ([]string, error) {
	f, err := os.Open(e.IndexPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	header, err := newIndexReader(f).Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index header: %w", err)
	}
	return header, nil
}

// Index yields the rows of index.csv in file order, keyed by the header.
// The file is read lazily as the sequence is consumed. Cells missing from a
// short row are empty strings and cells beyond the header are dropped.
// Values are passed through as text and are not checked against the runs.
// Without an index the sequence is empty.
func (e *Experiment) Index() iter.Seq2[map[string]string, error] {
	return func(yield func(map[string]string, error) bool) {
		f, err := os.Open(e.IndexPath())
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				yield(nil, fmt.Errorf("opening index: %w", err))
			}
			return
		}
		defer f.Close()

		cr := newIndexReader(f)
		header, err := cr.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(nil, fmt.Errorf("reading index header: %w", err))
			return
		}
		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("reading index: %w", err))
				return
			}
			row := make(map[string]string, len(header))
			for i, col := range header {
				if i < len(rec) {
					row[col] = rec[i]
				} else {
					row[col] = ""
				}
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Query loads the runs and the index into an in-memory SQLite database and
// runs a read-only statement against it. The runs table has one row per
// run (run_id, status, start_time, end_time, runtime_sec, failure_reason,
// params, metadata) with params and metadata as JSON text. The index, if
// any, is the experiment_index table with one TEXT column per field.
func (e *Experiment) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	db, err := sqlite.Open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	records := make([]sqlite.RunRecord, len(e.runs))
	for i, r := range e.runs {
		records[i] = sqlite.RunRecord{RunID: r.ID(), Meta: r.Meta(), Params: r.Params()}
	}
	if err := db.LoadRuns(records); err != nil {
		return nil, err
	}

	header, err := e.IndexFields()
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		var rows []map[string]string
		for row, err := range e.Index() {
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		if err := db.LoadIndex(dedupe(header), rows); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("querying experiment", zap.String("root", e.root), zap.String("query", query))
	return db.Query(ctx, query, args...)
}

// dedupe drops repeated header fields, which would collide as columns.
func dedupe(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// String summarizes the experiment on several lines.
func (e *Experiment) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<Experiment '%s'>", e.Name())
	if e.HasIndex() {
		fmt.Fprintf(&b, "\n  Index file: %s", types.IndexFile)
		if fields, err := e.IndexFields(); err == nil && len(fields) > 0 {
			fmt.Fprintf(&b, "\n  Fields: %s", strings.Join(fields, ", "))
		}
	}
	fmt.Fprintf(&b, "\n  Runs directory: %s", types.RunsDir)
	ids := e.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "\n    - %s: %s", id, e.byID[id].Status())
	}
	return b.String()
}
