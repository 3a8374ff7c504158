package engine

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

// renderDelimited writes the canonical column set with RFC 4180 quoting:
// fields containing the delimiter, a quote, or a newline are quoted and
// internal quotes double.
func renderDelimited(records []task.Record, delim rune) ([]byte, []string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim

	if err := w.Write(delimitedColumns); err != nil {
		return nil, nil, err
	}
	for _, g := range groupByProject(records, false) {
		for _, rec := range g.Records {
			if err := w.Write(delimitedRow(rec)); err != nil {
				return nil, nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), nil, nil
}

// delimitedRow renders one record in delimitedColumns order.
func delimitedRow(rec task.Record) []string {
	date := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return codec.FormatISO(*t)
	}
	effort := ""
	if rec.EffortMinutes > 0 {
		effort = strconv.Itoa(rec.EffortMinutes)
	}
	return []string{
		rec.ID.String(),
		string(rec.Kind),
		rec.Title,
		rec.Notes,
		string(rec.Status),
		rec.Project,
		rec.Context,
		date(rec.Due),
		date(rec.Defer),
		strconv.FormatBool(rec.Flagged),
		string(rec.Priority),
		effort,
		codec.FormatISO(rec.Created),
		codec.FormatISO(rec.Modified),
	}
}
