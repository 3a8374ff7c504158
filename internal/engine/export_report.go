package engine

import (
	"bytes"
	"fmt"
	"time"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

// renderReport writes a markdown status report over the analytics
// summary. Reports are one-way: they summarize the record set and cannot
// be re-imported.
func renderReport(records []task.Record, now time.Time) ([]byte, []string, error) {
	s := Summarize(records, now)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Task Status Report\n\nGenerated %s\n\n", codec.FormatShortDate(now))

	fmt.Fprintf(&buf, "## Totals\n\n")
	fmt.Fprintf(&buf, "| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&buf, "| Total tasks | %d |\n", s.Total)
	fmt.Fprintf(&buf, "| Completed | %d |\n", s.Completed)
	fmt.Fprintf(&buf, "| Flagged | %d |\n", s.Flagged)
	fmt.Fprintf(&buf, "| Overdue | %d |\n", s.Overdue)
	fmt.Fprintf(&buf, "| Due within 7 days | %d |\n", s.DueSoon)
	fmt.Fprintf(&buf, "| Remaining effort | %s |\n", codec.FormatEffort(s.TotalEffortMinutes))

	fmt.Fprintf(&buf, "\n## By Status\n\n| Status | Count |\n|---|---|\n")
	for _, st := range task.Statuses() {
		if n := s.ByStatus[st]; n > 0 {
			fmt.Fprintf(&buf, "| %s | %d |\n", st, n)
		}
	}

	fmt.Fprintf(&buf, "\n## By Project\n\n| Project | Count |\n|---|---|\n")
	for _, name := range sortedKeys(s.ByProject) {
		fmt.Fprintf(&buf, "| %s | %d |\n", name, s.ByProject[name])
	}

	if s.Overdue > 0 {
		fmt.Fprintf(&buf, "\n## Overdue\n\n")
		for _, g := range groupByProject(records, false) {
			for _, rec := range g.Records {
				if rec.Due != nil && rec.Due.Before(now) && !rec.Completed() {
					fmt.Fprintf(&buf, "- %s (%s, due %s)\n", rec.Title, g.Name, codec.FormatShortDate(*rec.Due))
				}
			}
		}
	}

	return buf.Bytes(), nil, nil
}
