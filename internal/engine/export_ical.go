package engine

import (
	"bytes"
	"fmt"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

const icalProdID = "-//taskdeck//interchange//EN"

// renderICal writes one VTODO per due-dated record. Records without a due
// date produce no calendar entry; when any are skipped the codec appends
// a dynamic warning with the count, on top of the registry's fixed ones.
func renderICal(records []task.Record) ([]byte, []string, error) {
	var buf bytes.Buffer
	line := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\r\n")
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:" + icalProdID)

	skipped := 0
	for _, g := range groupByProject(records, false) {
		for _, rec := range g.Records {
			if rec.Due == nil {
				skipped++
				continue
			}
			line("BEGIN:VTODO")
			line("UID:" + rec.ID.String())
			line("DTSTAMP:" + codec.FormatICalStamp(rec.Modified))
			line("DUE;VALUE=DATE:" + rec.Due.Format("20060102"))
			line("SUMMARY:" + codec.EscapeICalText(rec.Title))
			if rec.Notes != "" {
				line("DESCRIPTION:" + codec.EscapeICalText(rec.Notes))
			}
			if rec.Project != "" {
				line("CATEGORIES:" + codec.EscapeICalText(rec.Project))
			}
			line("STATUS:" + icalStatus(rec.Status))
			line(fmt.Sprintf("PRIORITY:%d", icalPriority(rec.Priority)))
			if rec.Completed() {
				line("PERCENT-COMPLETE:100")
			}
			line("END:VTODO")
		}
	}
	line("END:VCALENDAR")

	var warnings []string
	if skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d task(s) without due dates were skipped", skipped))
	}
	return buf.Bytes(), warnings, nil
}

func icalStatus(s task.Status) string {
	switch s {
	case task.StatusCompleted:
		return "COMPLETED"
	case task.StatusNextAction:
		return "IN-PROCESS"
	default:
		return "NEEDS-ACTION"
	}
}

func icalPriority(p task.Priority) int {
	switch p {
	case task.PriorityHigh:
		return 1
	case task.PriorityLow:
		return 9
	default:
		return 5
	}
}
