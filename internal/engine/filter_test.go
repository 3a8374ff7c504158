package engine

import (
	"testing"
	"time"

	"github.com/taskdeck/interchange/internal/task"
)

func TestOperatorsFor(t *testing.T) {
	tests := []struct {
		property FilterProperty
		legal    FilterOperator
		illegal  FilterOperator
	}{
		{PropTitle, OpContains, OpIsTrue},
		{PropNotes, OpStartsWith, OpBetween},
		{PropStatus, OpIn, OpContains},
		{PropPriority, OpNotIn, OpGreater},
		{PropFlagged, OpIsTrue, OpEquals},
		{PropEffort, OpGreaterEq, OpContains},
		{PropDue, OpBetween, OpContains},
		{PropCreated, OpLessEq, OpIsTrue},
	}

	for _, tt := range tests {
		t.Run(string(tt.property), func(t *testing.T) {
			ops := OperatorsFor(tt.property)
			if !containsOp(ops, tt.legal) {
				t.Errorf("%q missing from operators for %q: %v", tt.legal, tt.property, ops)
			}
			if containsOp(ops, tt.illegal) {
				t.Errorf("%q should not be legal for %q", tt.illegal, tt.property)
			}
		})
	}

	if ops := OperatorsFor("nonsense"); ops != nil {
		t.Errorf("unknown property should yield no operators, got %v", ops)
	}
}

func containsOp(ops []FilterOperator, op FilterOperator) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func TestFilterRuleValidate(t *testing.T) {
	good := FilterRule{Property: PropTitle, Operator: OpContains, Value: StringValue("x")}
	if err := good.Validate(); err != nil {
		t.Errorf("valid rule rejected: %v", err)
	}

	bad := FilterRule{Property: PropFlagged, Operator: OpContains, Value: StringValue("x")}
	if err := bad.Validate(); err == nil {
		t.Error("contains on a boolean property should not validate")
	}
}

func TestFilterRuleMatch(t *testing.T) {
	due := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	rec := task.Record{
		Title:         "Fix the fence",
		Notes:         "back yard",
		Status:        task.StatusNextAction,
		Project:       "Home",
		Context:       "@errands",
		Flagged:       true,
		Priority:      task.PriorityHigh,
		EffortMinutes: 45,
		Due:           &due,
		Created:       due.AddDate(0, -1, 0),
		Modified:      due.AddDate(0, -1, 0),
	}

	tests := []struct {
		name string
		rule FilterRule
		want bool
	}{
		{"contains case-insensitive", FilterRule{PropTitle, OpContains, StringValue("FENCE")}, true},
		{"contains miss", FilterRule{PropTitle, OpContains, StringValue("gate")}, false},
		{"starts with", FilterRule{PropTitle, OpStartsWith, StringValue("fix")}, true},
		{"ends with", FilterRule{PropTitle, OpEndsWith, StringValue("fence")}, true},
		{"string equals", FilterRule{PropProject, OpEquals, StringValue("home")}, true},
		{"string not equals", FilterRule{PropProject, OpNotEquals, StringValue("Work")}, true},
		{"notes is set", FilterRule{PropNotes, OpIsSet, FilterValue{}}, true},
		{"status in", FilterRule{PropStatus, OpIn, ListValue("inbox", "next-action")}, true},
		{"status not in", FilterRule{PropStatus, OpNotIn, ListValue("completed")}, true},
		{"priority equals", FilterRule{PropPriority, OpEquals, ListValue("high")}, true},
		{"flagged true", FilterRule{PropFlagged, OpIsTrue, FilterValue{}}, true},
		{"flagged false", FilterRule{PropFlagged, OpIsFalse, FilterValue{}}, false},
		{"effort greater", FilterRule{PropEffort, OpGreater, NumberValue(30)}, true},
		{"effort less", FilterRule{PropEffort, OpLess, NumberValue(30)}, false},
		{"due equals same day", FilterRule{PropDue, OpEquals, DateValue(due.Add(5 * time.Hour))}, true},
		{"due between", FilterRule{PropDue, OpBetween, DateRangeValue(due.AddDate(0, 0, -1), due.AddDate(0, 0, 1))}, true},
		{"due outside range", FilterRule{PropDue, OpBetween, DateRangeValue(due.AddDate(0, 1, 0), due.AddDate(0, 2, 0))}, false},
		{"defer not set", FilterRule{PropDefer, OpIsNotSet, FilterValue{}}, true},
		{"defer comparison misses nil", FilterRule{PropDefer, OpGreater, DateValue(due)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Match(rec); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterRecordsDateRange(t *testing.T) {
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	records := []task.Record{
		{Title: "old", Created: base.AddDate(0, -2, 0)},
		{Title: "mid", Created: base},
		{Title: "new", Created: base.AddDate(0, 2, 0)},
	}

	from := base.AddDate(0, -1, 0)
	to := base.AddDate(0, 1, 0)
	got, err := filterRecords(records, ExportOptions{CreatedFrom: &from, CreatedTo: &to})
	if err != nil {
		t.Fatalf("filterRecords returned error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "mid" {
		t.Errorf("filtered = %v, want only mid", got)
	}
}

func TestFilterRecordsExclusions(t *testing.T) {
	now := time.Now()
	records := []task.Record{
		{Title: "active", Status: task.StatusNextAction, Modified: now},
		{Title: "fresh done", Status: task.StatusCompleted, Modified: now},
		{Title: "stale done", Status: task.StatusCompleted, Modified: now.AddDate(0, -3, 0)},
		{Title: "a note", Kind: task.KindNote, Status: task.StatusInbox, Modified: now},
	}

	t.Run("exclude completed drops both", func(t *testing.T) {
		got, err := filterRecords(records, ExportOptions{ExcludeCompleted: true})
		if err != nil {
			t.Fatalf("filterRecords returned error: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("kept %d records, want 2", len(got))
		}
	})

	t.Run("exclude archived drops only stale", func(t *testing.T) {
		got, err := filterRecords(records, ExportOptions{ExcludeArchived: true})
		if err != nil {
			t.Fatalf("filterRecords returned error: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("kept %d records, want 3", len(got))
		}
		for _, rec := range got {
			if rec.Title == "stale done" {
				t.Error("stale completed record survived ExcludeArchived")
			}
		}
	})

	t.Run("exclude notes drops non-tasks", func(t *testing.T) {
		records := append([]task.Record(nil), records...)
		for i := range records {
			if records[i].Kind == "" {
				records[i].Kind = task.KindTask
			}
		}
		got, err := filterRecords(records, ExportOptions{ExcludeNotes: true})
		if err != nil {
			t.Fatalf("filterRecords returned error: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("kept %d records, want 3", len(got))
		}
	})
}
