// Package engine implements the task interchange engine: import codecs,
// export codecs, the shared filter pipeline, and the result aggregation
// that wraps every operation. Codecs are stateless and independent; they
// never call each other and never log — errors and warnings travel as
// data on the result.
package engine

import (
	"time"

	"github.com/taskdeck/interchange/internal/format"
	"github.com/taskdeck/interchange/internal/task"
)

// PreviewRecords is the record cap applied by Preview.
const PreviewRecords = 10

// ImportOptions configures a single import operation. Constructed by the
// caller, read-only afterwards.
type ImportOptions struct {
	// Format is the chosen or auto-detected input format.
	Format format.Format

	// DefaultProject, DefaultContext, and DefaultStatus back-fill record
	// fields that are absent after parsing.
	DefaultProject string
	DefaultContext string
	DefaultStatus  task.Status

	// PreserveIDs keeps identifiers carried by the source. When false
	// (the default) every imported record receives a fresh identifier,
	// guaranteeing no collision with the caller's store.
	PreserveIDs bool

	// SkipErrors selects the error policy: true skips offending rows and
	// collects them on the result; false aborts on the first row error.
	SkipErrors bool

	// MaxRecords caps the number of records parsed; 0 means no cap.
	MaxRecords int

	// ColumnMapping maps canonical field names to header names for the
	// delimited formats. Empty means auto-map by synonym.
	ColumnMapping map[string]string

	// DateFormat overrides date parsing for delimited input with an
	// explicit Go time layout. Empty means flexible parsing.
	DateFormat string
}

// defaultStatus resolves the status applied when the source carries none.
func (o ImportOptions) defaultStatus() task.Status {
	if o.DefaultStatus != "" {
		return o.DefaultStatus
	}
	return task.StatusInbox
}

// ExportOptions configures a single export operation.
type ExportOptions struct {
	// Format is the output format.
	Format format.Format

	// Filter toggles, applied as an ordered chain of independent
	// predicates before the codec runs. Cheap boolean checks come first;
	// the predicates commute, so order only affects performance.
	ExcludeCompleted bool
	ExcludeArchived  bool
	ExcludeNotes     bool

	// Rules is an arbitrary caller-supplied filter rule list, combined
	// with AND logic.
	Rules []FilterRule

	// CreatedFrom/CreatedTo bound record creation time when non-nil.
	CreatedFrom *time.Time
	CreatedTo   *time.Time

	// Projects and Contexts are allow-lists; empty means allow all.
	Projects []string
	Contexts []string
}
