package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/notata/pkg/types"
)

// ErrSealed is returned when loading into a database that was already queried.
var ErrSealed = errors.New("database is sealed")

// ErrQuery is returned when SQLite rejects or fails to run a statement,
// including writes against the sealed database.
var ErrQuery = errors.New("query failed")

// RunRecord is the part of a run loaded into the runs table.
type RunRecord struct {
	RunID  string
	Meta   map[string]any
	Params map[string]any
}

// LoadRuns inserts one row per record. Loading is transactional: either all
// records are inserted or none.
func (d *DB) LoadRuns(records []RunRecord) error {
	if d.sealed {
		return ErrSealed
	}
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSQL(RunsTable, runColumns))
	if err != nil {
		return fmt.Errorf("preparing insert for runs: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		args, err := runArgs(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting run %s: %w", rec.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

func runArgs(rec RunRecord) ([]any, error) {
	params := rec.Params
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding params of %s: %w", rec.RunID, err)
	}
	metaJSON, err := json.Marshal(rec.Meta)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata of %s: %w", rec.RunID, err)
	}

	meta := types.Metadata(rec.Meta)
	return []any{
		rec.RunID,
		meta.Status(),
		scalar(meta[types.MetaStartTime]),
		scalar(meta[types.MetaEndTime]),
		scalar(meta[types.MetaRuntimeSec]),
		scalar(meta[types.MetaFailureReason]),
		string(paramsJSON),
		string(metaJSON),
	}, nil
}

// scalar passes SQLite-storable values through and re-serializes nested JSON
// values as strings.
func scalar(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int64, float64:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		return string(b)
	}
}

// LoadIndex creates the experiment_index table with one TEXT column per
// header field and inserts rows in order. Cells missing from a row are NULL.
func (d *DB) LoadIndex(header []string, rows []map[string]string) error {
	if d.sealed {
		return ErrSealed
	}
	if len(header) == 0 {
		return nil
	}

	quoted := make([]string, len(header))
	defs := make([]string, len(header))
	for i, col := range header {
		quoted[i] = quoteIdent(col)
		defs[i] = quoted[i] + " TEXT"
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", IndexTable, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("creating index table: %w", err)
	}
	stmt, err := tx.Prepare(insertSQL(IndexTable, quoted))
	if err != nil {
		return fmt.Errorf("preparing insert for index: %w", err)
	}
	defer stmt.Close()

	for n, row := range rows {
		args := make([]any, len(header))
		for i, col := range header {
			if v, ok := row[col]; ok {
				args[i] = v
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting index row %d: %w", n+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index transaction: %w", err)
	}
	return nil
}

func insertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
