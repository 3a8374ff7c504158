package engine

import (
	"time"

	"github.com/taskdeck/interchange/internal/task"
)

// dueSoonWindow bounds the "due soon" bucket in the summary.
const dueSoonWindow = 7 * 24 * time.Hour

// Summary is the precomputed analytics over a record set. The workbook
// and report exporters render it; downstream visual renderers consume it
// as-is.
type Summary struct {
	Total      int                   `json:"total"`
	ByStatus   map[task.Status]int   `json:"byStatus"`
	ByPriority map[task.Priority]int `json:"byPriority"`
	ByProject  map[string]int        `json:"byProject"`
	Completed  int                   `json:"completed"`
	Flagged    int                   `json:"flagged"`
	Overdue    int                   `json:"overdue"`
	DueSoon    int                   `json:"dueSoon"`
	WithoutDue int                   `json:"withoutDue"`
	// TotalEffortMinutes sums the effort estimates of incomplete tasks.
	TotalEffortMinutes int `json:"totalEffortMinutes"`
}

// Summarize computes the analytics summary at the given reference time.
func Summarize(records []task.Record, now time.Time) Summary {
	s := Summary{
		ByStatus:   make(map[task.Status]int),
		ByPriority: make(map[task.Priority]int),
		ByProject:  make(map[string]int),
	}

	for _, rec := range records {
		s.Total++
		s.ByStatus[rec.Status]++
		s.ByPriority[rec.Priority]++

		project := rec.Project
		if project == "" {
			project = inboxGroup
		}
		s.ByProject[project]++

		if rec.Completed() {
			s.Completed++
		} else if rec.EffortMinutes > 0 {
			s.TotalEffortMinutes += rec.EffortMinutes
		}
		if rec.Flagged {
			s.Flagged++
		}

		switch {
		case rec.Due == nil:
			s.WithoutDue++
		case rec.Due.Before(now) && !rec.Completed():
			s.Overdue++
		case rec.Due.Sub(now) <= dueSoonWindow && !rec.Completed():
			s.DueSoon++
		}
	}
	return s
}
