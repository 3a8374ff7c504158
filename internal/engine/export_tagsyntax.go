package engine

import (
	"bytes"
	"strings"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

// tagDialect captures the small differences among the TaskPaper-family
// consumers. The line shape is shared; only tag vocabulary varies.
type tagDialect struct {
	name string
	// effortKey is the tag name for effort estimates.
	effortKey string
	// deferKey is the tag name for defer dates.
	deferKey string
	// barePriority renders priority as @high/@low instead of
	// @priority(level).
	barePriority bool
	// projectTag additionally writes @project(name) on each line, for
	// consumers that flatten the indentation away.
	projectTag bool
}

var (
	taskPaperDialect = tagDialect{name: "taskpaper", effortKey: "effort", deferKey: "defer", projectTag: true}
	omniFocusDialect = tagDialect{name: "omnifocus", effortKey: "estimate", deferKey: "defer"}
	thingsDialect    = tagDialect{name: "things", effortKey: "effort", deferKey: "start", barePriority: true}
)

// renderTagSyntax renders the tag-syntax line shape: projects become
// heading lines ending in ":", tasks indent beneath them ordered by
// creation time, metadata rides in @ tags after the title.
func renderTagSyntax(records []task.Record, d tagDialect) ([]byte, []string, error) {
	var buf bytes.Buffer
	for gi, g := range groupByProject(records, true) {
		if gi > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(g.Name + ":\n")
		for _, rec := range g.Records {
			buf.WriteString("\t" + tagSyntaxLine(rec, d) + "\n")
		}
	}
	return buf.Bytes(), nil, nil
}

func tagSyntaxLine(rec task.Record, d tagDialect) string {
	parts := []string{rec.Title}

	if rec.Status == task.StatusCompleted {
		parts = append(parts, "@done")
	}
	if rec.Context != "" {
		tag := rec.Context
		if !strings.HasPrefix(tag, "@") {
			tag = "@" + tag
		}
		parts = append(parts, tag)
	}
	if d.projectTag && rec.Project != "" {
		parts = append(parts, "@project("+codec.EscapeTagValue(rec.Project)+")")
	}
	if rec.Priority != task.PriorityMedium && rec.Priority != "" {
		if d.barePriority {
			parts = append(parts, "@"+string(rec.Priority))
		} else {
			parts = append(parts, "@priority("+string(rec.Priority)+")")
		}
	}
	if rec.Due != nil {
		parts = append(parts, "@due("+codec.FormatShortDate(*rec.Due)+")")
	}
	if rec.Defer != nil {
		parts = append(parts, "@"+d.deferKey+"("+codec.FormatShortDate(*rec.Defer)+")")
	}
	if rec.Flagged {
		parts = append(parts, "@flagged")
	}
	if rec.Status == task.StatusWaiting {
		parts = append(parts, "@waiting")
	}
	if rec.EffortMinutes > 0 {
		parts = append(parts, "@"+d.effortKey+"("+codec.FormatEffort(rec.EffortMinutes)+")")
	}

	return strings.Join(parts, " ")
}
