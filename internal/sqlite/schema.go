// Package sqlite loads an experiment's runs and index rows into an in-memory
// SQLite database so they can be queried with SQL. The run directories stay
// the source of truth; the database is rebuilt for every query session and
// never written to disk.
package sqlite

// Table names.
const (
	RunsTable  = "runs"
	IndexTable = "experiment_index"
)

// createRuns holds one row per run directory. params and metadata keep the
// full JSON objects so json_extract can reach any key.
const createRuns = `CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    start_time TEXT,
    end_time TEXT,
    runtime_sec REAL,
    failure_reason TEXT,
    params TEXT NOT NULL,
    metadata TEXT NOT NULL
);`

// runColumns lists the runs columns in insert order.
var runColumns = []string{
	"run_id", "status", "start_time", "end_time", "runtime_sec",
	"failure_reason", "params", "metadata",
}
