package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy: structural errors abort the whole operation regardless
// of the skip policy, because the container has no row granularity left
// to skip past. Row errors are governed by ImportOptions.SkipErrors.
// Data-loss warnings never block anything; they ride along on results.

// ErrUnknownFormat is returned when an operation names a format the
// registry does not know or that does not support the direction.
var ErrUnknownFormat = errors.New("unknown or unsupported format")

// ErrAborted wraps the first row error when SkipErrors is false.
var ErrAborted = errors.New("import aborted on first error")

// RowError describes a single failed record. Line is 1-based and 0 when
// the source has no meaningful line numbering.
type RowError struct {
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	switch {
	case e.Line > 0 && e.Field != "":
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	default:
		return e.Message
	}
}

// StructuralError marks an unparseable container: bad JSON, a frontmatter
// block with no closing delimiter, a delimited file with no header row.
type StructuralError struct {
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structural error: %s: %v", e.Reason, e.Err)
	}
	return "structural error: " + e.Reason
}

func (e *StructuralError) Unwrap() error { return e.Err }

// structural builds a StructuralError.
func structural(reason string, err error) error {
	return &StructuralError{Reason: reason, Err: err}
}

// ColumnMappingError is raised before any row is parsed when a delimited
// header contains no recognizable title column. It lists every header
// that was discovered so the caller can offer a manual mapping.
type ColumnMappingError struct {
	Headers []string
}

func (e *ColumnMappingError) Error() string {
	return fmt.Sprintf("column mapping required: no title column among [%s]",
		strings.Join(e.Headers, ", "))
}

// abortOn applies the skip policy to a row error. It returns the error to
// abort with (non-nil when SkipErrors is false); otherwise the row error
// is appended to errs.
func abortOn(opts ImportOptions, errs *[]RowError, re RowError) error {
	if !opts.SkipErrors {
		return fmt.Errorf("%w: %s", ErrAborted, re.Error())
	}
	*errs = append(*errs, re)
	return nil
}
