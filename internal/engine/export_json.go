package engine

import (
	"bytes"
	"encoding/json"

	"github.com/taskdeck/interchange/internal/task"
)

// renderJSON writes the full record array, pretty-printed with ISO-8601
// dates. JSON is lossless; the only transformation is the deterministic
// project/status ordering shared with the other exporters.
func renderJSON(records []task.Record) ([]byte, []string, error) {
	ordered := make([]task.Record, 0, len(records))
	for _, g := range groupByProject(records, false) {
		ordered = append(ordered, g.Records...)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ordered); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), nil, nil
}
