package engine

import (
	"encoding/json"
	"strings"

	"github.com/taskdeck/interchange/internal/task"
)

// parseJSON decodes a JSON array of task records. JSON is all-or-nothing:
// a structural decode failure aborts the entire import regardless of the
// skip policy, because a broken document has no row granularity to skip
// past. Records that decode but miss a title are still per-record errors.
func parseJSON(source []byte, opts ImportOptions) ([]task.Record, []RowError, error) {
	var decoded []task.Record
	if err := json.Unmarshal(source, &decoded); err != nil {
		return nil, nil, structural("invalid JSON", err)
	}

	var (
		records []task.Record
		errs    []RowError
	)
	for i, rec := range decoded {
		if capReached(opts, len(records)) {
			break
		}
		if strings.TrimSpace(rec.Title) == "" {
			re := RowError{Line: i + 1, Field: "title", Message: "missing required field"}
			if err := abortOn(opts, &errs, re); err != nil {
				return nil, nil, err
			}
			continue
		}
		records = append(records, rec)
	}
	return records, errs, nil
}
