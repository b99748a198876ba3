// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldJobID         = "job_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Domain fields
	FieldKeyword  = "keyword"
	FieldLabel    = "label"
	FieldModel    = "model"
	FieldPage     = "page"
	FieldStart    = "start_index"
	FieldResults  = "results"
	FieldSnapshot = "snapshot_path"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"
)
