package types

// Run directory naming. A run with identifier "abc" lives in "log_abc".
const RunDirPrefix = "log_"

// Files at the root of a run directory.
const (
	LogFile          = "log.txt"
	MetadataFile     = "metadata.json"
	MetadataTempFile = "metadata.tmp"
	ParamsYAMLFile   = "params.yaml"
	ParamsJSONFile   = "params.json"
)

// Standard subdirectories of a run directory.
const (
	DataDir      = "data"
	PlotsDir     = "plots"
	ArtifactsDir = "artifacts"
)

// Experiment layout: run directories live under RunsDir, next to an optional
// tabular index.
const (
	RunsDir   = "runs"
	IndexFile = "index.csv"
)

// File extensions used by the persistence operations.
const (
	ExtArraySingle = ".npy"
	ExtArrayBundle = ".npz"
	ExtJSON        = ".json"
	ExtText        = ".txt"
	ExtBlob        = ".msgpack"
)

// CompositeSep separates the bundle base name from the key inside it in an
// array catalog entry, e.g. "bundle:a".
const CompositeSep = ":"

// StandardDirs lists the subdirectories created with every run.
var StandardDirs = []string{DataDir, PlotsDir, ArtifactsDir}
