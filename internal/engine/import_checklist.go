package engine

import (
	"regexp"
	"strings"

	"github.com/taskdeck/interchange/internal/task"
)

// Checklist lines look like "- [ ] buy milk" or "* [x] done thing".
// Inline tokens carry metadata: @word is a context, #word a project,
// !high/!low a priority.
var (
	checklistItemRe = regexp.MustCompile(`^\s*[-*]\s*\[([ xX])\]\s*(.*)$`)
	inlineContextRe = regexp.MustCompile(`(^|\s)(@\S+)`)
	inlineProjectRe = regexp.MustCompile(`(^|\s)#(\S+)`)
	inlinePrioRe    = regexp.MustCompile(`(^|\s)!(high|low)\b`)
)

// parseChecklist parses the human checklist format. Lines that are not
// checkbox items are ignored without error: free-form prose interleaved
// with items is expected in this format.
func parseChecklist(text string, opts ImportOptions, progress ProgressFunc) ([]task.Record, []RowError, error) {
	var (
		records []task.Record
		errs    []RowError
	)

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		if capReached(opts, len(records)) {
			break
		}
		m := checklistItemRe.FindStringSubmatch(strings.TrimRight(raw, "\r"))
		if m == nil {
			continue
		}

		rec := task.Record{Kind: task.KindTask}
		if m[1] == "x" || m[1] == "X" {
			rec.Status = task.StatusCompleted
		}

		title := m[2]
		if cm := inlineContextRe.FindStringSubmatch(title); cm != nil {
			rec.Context = cm[2]
			title = inlineContextRe.ReplaceAllString(title, "$1")
		}
		if pm := inlineProjectRe.FindStringSubmatch(title); pm != nil {
			rec.Project = pm[2]
			title = inlineProjectRe.ReplaceAllString(title, "$1")
		}
		if prm := inlinePrioRe.FindStringSubmatch(title); prm != nil {
			if prm[2] == "high" {
				rec.Priority = task.PriorityHigh
			} else {
				rec.Priority = task.PriorityLow
			}
			title = inlinePrioRe.ReplaceAllString(title, "$1")
		}

		rec.Title = strings.Join(strings.Fields(title), " ")
		if rec.Title == "" {
			re := RowError{Line: i + 1, Field: "title", Message: "checkbox item has no title"}
			if err := abortOn(opts, &errs, re); err != nil {
				return nil, nil, err
			}
			continue
		}
		records = append(records, rec)

		if len(records)%progressInterval == 0 {
			report(progress, float64(i)/float64(len(lines))*0.8, "parsing checklist")
		}
	}

	return records, errs, nil
}
