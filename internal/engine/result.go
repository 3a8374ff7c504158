package engine

import (
	"time"

	"github.com/taskdeck/interchange/internal/format"
	"github.com/taskdeck/interchange/internal/task"
)

// ImportResult is produced once per import operation. Classification is
// derived from the counts, never stored alongside them.
type ImportResult struct {
	Format   format.Format `json:"format"`
	Records  []task.Record `json:"records"`
	Errors   []RowError    `json:"errors,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"durationNs"`
}

// ImportedCount is the number of records that parsed successfully.
func (r *ImportResult) ImportedCount() int { return len(r.Records) }

// Successful reports a clean import: zero errors.
func (r *ImportResult) Successful() bool { return len(r.Errors) == 0 }

// PartialSuccess reports that some records imported while others errored.
// This is a first-class return, not an error state.
func (r *ImportResult) PartialSuccess() bool {
	return len(r.Records) > 0 && len(r.Errors) > 0
}

// Failed reports that nothing imported and at least one error occurred.
func (r *ImportResult) Failed() bool {
	return len(r.Records) == 0 && len(r.Errors) > 0
}

// ExportResult is produced once per export operation.
type ExportResult struct {
	Format format.Format `json:"format"`
	// ExportedCount is the number of records the codec rendered after
	// filtering.
	ExportedCount int `json:"exportedCount"`
	// FilteredCount is the number of records the filter pipeline dropped.
	FilteredCount int `json:"filteredCount"`
	// ByteSize is the number of bytes written to the destination.
	ByteSize int64 `json:"byteSize"`
	// Warnings carries the format-inherent data-loss advisories followed
	// by any dynamically computed ones, in order.
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"durationNs"`
}
