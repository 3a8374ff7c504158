// Package task defines the canonical task record exchanged with every
// import and export codec. Records are value types: import codecs produce
// them, export codecs read them, and no shared mutable ownership crosses
// the codec boundary.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a record.
type Kind string

const (
	KindTask    Kind = "task"
	KindProject Kind = "project"
	KindNote    Kind = "note"
)

// Status is the GTD workflow state of a record.
type Status string

const (
	StatusInbox      Status = "inbox"
	StatusNextAction Status = "next-action"
	StatusWaiting    Status = "waiting"
	StatusSomeday    Status = "someday"
	StatusCompleted  Status = "completed"
)

// Priority is the three-level priority scale.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Position is a 2-D coordinate on a board. Only the native archive format
// carries positions; every other format loses them.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Record is the unit of interchange.
type Record struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	Title    string    `json:"title"`
	Notes    string    `json:"notes,omitempty"`
	Status   Status    `json:"status"`
	Project  string    `json:"project,omitempty"`
	Context  string    `json:"context,omitempty"`
	Due      *time.Time `json:"due,omitempty"`
	Defer    *time.Time `json:"defer,omitempty"`
	Flagged  bool      `json:"flagged,omitempty"`
	Priority Priority  `json:"priority"`
	// EffortMinutes is the estimated effort; 0 means no estimate.
	EffortMinutes int `json:"effortMinutes,omitempty"`
	// Positions maps board id to the record's coordinate on that board.
	Positions map[string]Position `json:"positions,omitempty"`
	Created   time.Time           `json:"created"`
	Modified  time.Time           `json:"modified"`
}

// archiveAge is how long a completed record must be untouched before it
// counts as archived for export filtering.
const archiveAge = 30 * 24 * time.Hour

// Completed reports whether the record is in the completed state.
func (r Record) Completed() bool {
	return r.Status == StatusCompleted
}

// Archived reports whether the record is completed and has not been
// modified for over a month.
func (r Record) Archived() bool {
	return r.Status == StatusCompleted && time.Since(r.Modified) > archiveAge
}

// ParseKind returns the Kind for s, defaulting to KindTask for
// unrecognized input.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindTask, KindProject, KindNote:
		return Kind(s)
	default:
		return KindTask
	}
}

// ParseStatus returns the Status for s and whether s named a valid status.
// Matching accepts the wire spelling only; callers supply their own
// default for the false case.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusInbox, StatusNextAction, StatusWaiting, StatusSomeday, StatusCompleted:
		return Status(s), true
	default:
		return "", false
	}
}

// ParsePriority returns the Priority for s and whether s named a valid
// priority.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	default:
		return "", false
	}
}

// PriorityRank orders priorities for human-consumption exports:
// high sorts before medium, medium before low.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Statuses lists every status in workflow order. Exporters use this for
// deterministic in-group ordering.
func Statuses() []Status {
	return []Status{StatusInbox, StatusNextAction, StatusWaiting, StatusSomeday, StatusCompleted}
}

// StatusRank orders statuses for export grouping: active work first,
// completed last.
func StatusRank(s Status) int {
	for i, st := range Statuses() {
		if st == s {
			return i
		}
	}
	return len(Statuses())
}
