package types

import "errors"

// Standard errors. Callers match them with errors.Is; the returned errors
// wrap these with the offending path or name.
var (
	// ErrAlreadyExists: run directory present at construction without overwrite.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound: referenced directory, run, or array file is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalid: a directory is not a run (no metadata file), or an
	// argument such as a parameter format, category or name is unsupported.
	ErrInvalid = errors.New("invalid")

	// ErrKeyNotFound: a key or run identifier is absent from an otherwise
	// valid container.
	ErrKeyNotFound = errors.New("key not found")

	// ErrIndexOutOfRange: positional access beyond the collection bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrUnsupportedKeyType: a collection was addressed with a key that is
	// neither an integer nor a string.
	ErrUnsupportedKeyType = errors.New("unsupported key type")

	// ErrUnavailable: an optional capability such as figure rendering is
	// missing at the point of use.
	ErrUnavailable = errors.New("unavailable")

	// ErrClosed: the logbook's log handle was already released.
	ErrClosed = errors.New("logbook is closed")
)
