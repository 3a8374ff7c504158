package engine

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

// Canonical column names for the delimited formats, in export order.
var delimitedColumns = []string{
	"ID", "Type", "Title", "Notes", "Status", "Project", "Context",
	"Due", "Defer", "Flagged", "Priority", "Effort", "Created", "Modified",
}

// columnSynonyms matches canonical field names against the header
// spellings other tools produce. Matching is case-insensitive.
var columnSynonyms = map[string][]string{
	"id":       {"id", "uuid", "identifier"},
	"type":     {"type", "kind"},
	"title":    {"title", "task", "name", "subject", "summary"},
	"notes":    {"notes", "note", "description", "details", "body"},
	"status":   {"status", "state"},
	"project":  {"project", "list", "folder", "area"},
	"context":  {"context", "tag", "label"},
	"due":      {"due", "due date", "deadline"},
	"defer":    {"defer", "defer date", "start", "start date", "scheduled"},
	"flagged":  {"flagged", "flag", "starred"},
	"priority": {"priority", "importance"},
	"effort":   {"effort", "estimate", "time estimate", "duration"},
	"created":  {"created", "created at", "creation date", "entry"},
	"modified": {"modified", "modified at", "updated", "updated at"},
}

// parseDelimited parses CSV or TSV input. The header row is mandatory and
// defines column identity; quoting follows RFC 4180 (doubled quotes
// collapse, delimiters inside quotes do not terminate the field).
func parseDelimited(source []byte, delim rune, opts ImportOptions, progress ProgressFunc) ([]task.Record, []RowError, error) {
	reader := csv.NewReader(bytes.NewReader(source))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, structural("no header row", err)
	}

	mapping, err := resolveColumns(header, opts)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []task.Record
		errs    []RowError
	)
	for line := 2; ; line++ {
		if capReached(opts, len(records)) {
			break
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			re := RowError{Line: line, Message: "malformed row: " + err.Error()}
			if aerr := abortOn(opts, &errs, re); aerr != nil {
				return nil, nil, aerr
			}
			continue
		}
		if rowEmpty(row) {
			continue
		}

		rec, re := buildDelimitedRecord(row, mapping, line, opts)
		if re != nil {
			if aerr := abortOn(opts, &errs, *re); aerr != nil {
				return nil, nil, aerr
			}
			continue
		}
		records = append(records, rec)

		if len(records)%progressInterval == 0 {
			report(progress, 0.1+0.7*float64(len(records))/float64(len(records)+progressInterval), "parsing rows")
		}
	}

	return records, errs, nil
}

// resolveColumns maps canonical fields to row positions, either from the
// explicit ColumnMapping option or by synonym auto-mapping. A header
// without a resolvable title column fails up front with the full header
// list, before any row is parsed.
func resolveColumns(header []string, opts ImportOptions) (map[string]int, error) {
	cleaned := make([]string, len(header))
	for i, h := range header {
		cleaned[i] = codec.CleanCell(h)
	}

	pos := make(map[string]int)
	if len(opts.ColumnMapping) > 0 {
		byName := make(map[string]int, len(cleaned))
		for i, h := range cleaned {
			byName[strings.ToLower(h)] = i
		}
		for field, headerName := range opts.ColumnMapping {
			if i, ok := byName[strings.ToLower(headerName)]; ok {
				pos[strings.ToLower(field)] = i
			}
		}
	} else {
		pos = autoMapColumns(cleaned)
	}

	if _, ok := pos["title"]; !ok {
		return nil, &ColumnMappingError{Headers: cleaned}
	}
	return pos, nil
}

// autoMapColumns matches each canonical field against the synonym table.
// Fields with no matching header are left absent.
func autoMapColumns(header []string) map[string]int {
	pos := make(map[string]int)
	for i, h := range header {
		low := strings.ToLower(strings.TrimSpace(h))
		for field, synonyms := range columnSynonyms {
			if _, taken := pos[field]; taken {
				continue
			}
			for _, syn := range synonyms {
				if low == syn {
					pos[field] = i
					break
				}
			}
		}
	}
	return pos
}

// buildDelimitedRecord converts one data row. Delimited input is strict:
// unlike frontmatter, an unparseable date or enum here is a row error.
func buildDelimitedRecord(row []string, pos map[string]int, line int, opts ImportOptions) (task.Record, *RowError) {
	cell := func(field string) string {
		i, ok := pos[field]
		if !ok || i >= len(row) {
			return ""
		}
		return codec.CleanCell(row[i])
	}

	title := cell("title")
	if title == "" {
		return task.Record{}, &RowError{Line: line, Field: "title", Message: "required field is empty"}
	}

	rec := task.Record{
		Kind:    task.ParseKind(cell("type")),
		Title:   title,
		Notes:   cell("notes"),
		Project: cell("project"),
		Context: cell("context"),
	}

	if v := cell("id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			rec.ID = id
		}
	}
	if v := cell("status"); v != "" {
		st, ok := task.ParseStatus(strings.ToLower(v))
		if !ok {
			return task.Record{}, &RowError{Line: line, Field: "status", Message: "invalid status " + v}
		}
		rec.Status = st
	}
	if v := cell("priority"); v != "" {
		p, ok := task.ParsePriority(strings.ToLower(v))
		if !ok {
			return task.Record{}, &RowError{Line: line, Field: "priority", Message: "invalid priority " + v}
		}
		rec.Priority = p
	}
	if v := cell("flagged"); v != "" {
		b, ok := codec.ParseBool(v)
		if !ok {
			return task.Record{}, &RowError{Line: line, Field: "flagged", Message: "invalid boolean " + v}
		}
		rec.Flagged = b
	}
	if v := cell("effort"); v != "" {
		rec.EffortMinutes = codec.ParseEffort(v)
	}

	var re *RowError
	parseDate := func(field string) *time.Time {
		v := cell(field)
		if v == "" || re != nil {
			return nil
		}
		t := parseDelimitedDate(v, opts)
		if t == nil {
			re = &RowError{Line: line, Field: field, Message: "invalid date " + v}
		}
		return t
	}
	rec.Due = parseDate("due")
	rec.Defer = parseDate("defer")
	if t := parseDate("created"); t != nil {
		rec.Created = *t
	}
	if t := parseDate("modified"); t != nil {
		rec.Modified = *t
	}
	if re != nil {
		return task.Record{}, re
	}
	return rec, nil
}

func parseDelimitedDate(v string, opts ImportOptions) *time.Time {
	if opts.DateFormat != "" {
		t, err := time.Parse(opts.DateFormat, v)
		if err != nil {
			return nil
		}
		return &t
	}
	return codec.ParseDate(v)
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
