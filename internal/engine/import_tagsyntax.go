package engine

import (
	"strings"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

// parseTagSyntax parses the TaskPaper dialect family: metadata rides in
// @word and @word(value) tokens, everything else on the line is title
// text, and a trailing-colon line opens a project scope that following
// lines inherit.
func parseTagSyntax(text string, opts ImportOptions, progress ProgressFunc) ([]task.Record, []RowError, error) {
	var (
		records []task.Record
		errs    []RowError
		project string
	)

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		if capReached(opts, len(records)) {
			break
		}
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// A line ending in ":" with no tag opens a new project scope.
		if strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed, "@") {
			project = strings.TrimSuffix(trimmed, ":")
			continue
		}

		rec, re := parseTagLine(trimmed, i+1, project, opts)
		if re != nil {
			if err := abortOn(opts, &errs, *re); err != nil {
				return nil, nil, err
			}
			continue
		}
		records = append(records, rec)

		if len(records)%progressInterval == 0 {
			report(progress, float64(i)/float64(len(lines))*0.8, "parsing tasks")
		}
	}

	return records, errs, nil
}

// parseTagLine tokenizes a single task line.
func parseTagLine(line string, lineNo int, project string, opts ImportOptions) (task.Record, *RowError) {
	rec := task.Record{
		Kind:    task.KindTask,
		Project: project,
	}

	var titleParts []string
	for _, tok := range splitTagTokens(line) {
		if !strings.HasPrefix(tok, "@") {
			titleParts = append(titleParts, tok)
			continue
		}
		applyTag(&rec, tok, opts)
	}

	rec.Title = strings.Join(titleParts, " ")
	if rec.Title == "" {
		return task.Record{}, &RowError{Line: lineNo, Field: "title", Message: "line carries only tags"}
	}
	return rec, nil
}

// splitTagTokens splits on spaces but keeps a parenthesized @key(value)
// together even when the value itself contains spaces.
func splitTagTokens(line string) []string {
	var (
		tokens []string
		cur    strings.Builder
		depth  int
	)
	for _, r := range line {
		switch {
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')' && depth > 0:
			depth--
			cur.WriteRune(r)
		case r == ' ' && depth == 0:
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// applyTag folds one @token into the record.
func applyTag(rec *task.Record, tok string, opts ImportOptions) {
	name := strings.TrimPrefix(tok, "@")
	value := ""
	if i := strings.Index(name, "("); i >= 0 && strings.HasSuffix(name, ")") {
		value = name[i+1 : len(name)-1]
		name = name[:i]
	}

	switch strings.ToLower(name) {
	case "done":
		rec.Status = task.StatusCompleted
	case "waiting":
		rec.Status = task.StatusWaiting
	case "someday":
		rec.Status = task.StatusSomeday
	case "flagged":
		rec.Flagged = true
	case "project":
		if value != "" {
			rec.Project = value
		}
	case "priority":
		if p, ok := task.ParsePriority(strings.ToLower(value)); ok {
			rec.Priority = p
		}
	case "due":
		rec.Due = codec.ParseDate(value)
	case "defer", "start":
		rec.Defer = codec.ParseDate(value)
	case "effort", "estimate":
		rec.EffortMinutes = codec.ParseEffort(value)
	default:
		// Unrecognized bare tags are contexts; the first one wins.
		if value == "" && rec.Context == "" {
			rec.Context = tok
		}
	}
}
