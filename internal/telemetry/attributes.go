// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Search attributes
	SearchTermKey    = "search.term"
	SearchPagesKey   = "search.pages"
	SearchResultsKey = "search.results"

	// Job attributes
	JobTypeKey     = "job.type"
	JobStatusKey   = "job.status"
	JobDurationKey = "job.duration_ms"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SearchAttributes creates search-related span attributes.
func SearchAttributes(term string, pages, results int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SearchTermKey, term),
		attribute.Int(SearchPagesKey, pages),
		attribute.Int(SearchResultsKey, results),
	}
}

// JobAttributes creates job-related span attributes.
func JobAttributes(jobType, status string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobTypeKey, jobType),
		attribute.String(JobStatusKey, status),
		attribute.Int64(JobDurationKey, durationMS),
	}
}

// ErrorAttributes creates error-related span attributes. The error type
// is a low-cardinality label, never the raw message.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
