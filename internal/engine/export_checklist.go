package engine

import (
	"bytes"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

// renderChecklist writes the human checklist: a heading per project, one
// checkbox line per task with inline @context, !priority, and due date.
func renderChecklist(records []task.Record) ([]byte, []string, error) {
	var buf bytes.Buffer
	for gi, g := range groupByProject(records, false) {
		if gi > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString("## " + g.Name + "\n\n")
		for _, rec := range g.Records {
			box := "[ ]"
			if rec.Status == task.StatusCompleted {
				box = "[x]"
			}
			buf.WriteString("- " + box + " " + rec.Title)
			if rec.Context != "" {
				tag := rec.Context
				if tag[0] != '@' {
					tag = "@" + tag
				}
				buf.WriteString(" " + tag)
			}
			switch rec.Priority {
			case task.PriorityHigh:
				buf.WriteString(" !high")
			case task.PriorityLow:
				buf.WriteString(" !low")
			}
			if rec.Due != nil {
				buf.WriteString(" (due " + codec.FormatShortDate(*rec.Due) + ")")
			}
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil, nil
}
