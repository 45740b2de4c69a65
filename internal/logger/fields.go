package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard field names shared by all components
const (
	FieldRunID      = "run_id"
	FieldComponent  = "component"
	FieldBatchStart = "batch_start"
	FieldBatchEnd   = "batch_end"
	FieldCheckpoint = "checkpoint"
	FieldField      = "field"
	FieldAttempt    = "attempt"
	FieldCount      = "count"
	FieldDurationMs = "duration_ms"
	FieldPath       = "path"
	FieldRepo       = "repo"
)
