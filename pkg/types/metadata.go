package types

// Run lifecycle states. A run starts initialized and ends in exactly one of
// the two terminal states.
const (
	StatusInitialized = "initialized"
	StatusComplete    = "complete"
	StatusFailed      = "failed"

	// StatusUnknown is reported when a metadata file carries no status.
	StatusUnknown = "unknown"
)

// Recognized metadata keys.
const (
	MetaStatus        = "status"
	MetaStartTime     = "start_time"
	MetaEndTime       = "end_time"
	MetaRuntimeSec    = "runtime_sec"
	MetaFailureReason = "failure_reason"
	MetaRunID         = "run_id"
)

// TimeLayout is the timestamp format used for start_time and end_time
// (ISO 8601, seconds resolution, local time).
const TimeLayout = "2006-01-02T15:04:05"

// IsTerminal reports whether status is complete or failed.
func IsTerminal(status string) bool {
	return status == StatusComplete || status == StatusFailed
}

// Metadata is the JSON object persisted as metadata.json.
type Metadata map[string]any

// Status returns the lifecycle state, or StatusUnknown if absent.
func (m Metadata) Status() string {
	if s, ok := m[MetaStatus].(string); ok {
		return s
	}
	return StatusUnknown
}

// RunID returns the run_id field, or "" if absent.
func (m Metadata) RunID() string {
	s, _ := m[MetaRunID].(string)
	return s
}

// Merge returns a new Metadata holding the keys of m overlaid with the keys
// of update. Values from update win on conflict. Neither input is modified.
func (m Metadata) Merge(update Metadata) Metadata {
	out := make(Metadata, len(m)+len(update))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}
