package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskdeck/interchange/internal/task"
)

// FilterProperty names a filterable record property.
type FilterProperty string

const (
	PropTitle    FilterProperty = "title"
	PropNotes    FilterProperty = "notes"
	PropStatus   FilterProperty = "status"
	PropProject  FilterProperty = "project"
	PropContext  FilterProperty = "context"
	PropFlagged  FilterProperty = "flagged"
	PropPriority FilterProperty = "priority"
	PropEffort   FilterProperty = "effort"
	PropDue      FilterProperty = "due"
	PropDefer    FilterProperty = "defer"
	PropCreated  FilterProperty = "created"
	PropModified FilterProperty = "modified"
)

// FilterOperator is a comparison operator for filter rules.
type FilterOperator string

const (
	OpEquals     FilterOperator = "eq"
	OpNotEquals  FilterOperator = "neq"
	OpContains   FilterOperator = "contains"
	OpStartsWith FilterOperator = "starts"
	OpEndsWith   FilterOperator = "ends"
	OpGreater    FilterOperator = "gt"
	OpLess       FilterOperator = "lt"
	OpGreaterEq  FilterOperator = "gte"
	OpLessEq     FilterOperator = "lte"
	OpIsTrue     FilterOperator = "isTrue"
	OpIsFalse    FilterOperator = "isFalse"
	OpIn         FilterOperator = "in"
	OpNotIn      FilterOperator = "notIn"
	OpBetween    FilterOperator = "between"
	OpIsSet      FilterOperator = "isSet"
	OpIsNotSet   FilterOperator = "isNotSet"
)

// ValueKind discriminates FilterValue's payload.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindDate
	KindDateRange
	KindStringList
)

// FilterValue is the tagged union of filter payloads. Exactly the fields
// implied by Kind are meaningful.
type FilterValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Date time.Time
	From time.Time
	To   time.Time
	List []string
}

func StringValue(s string) FilterValue  { return FilterValue{Kind: KindString, Str: s} }
func NumberValue(n float64) FilterValue { return FilterValue{Kind: KindNumber, Num: n} }
func BoolValue(b bool) FilterValue      { return FilterValue{Kind: KindBool, Bool: b} }
func DateValue(t time.Time) FilterValue { return FilterValue{Kind: KindDate, Date: t} }
func DateRangeValue(from, to time.Time) FilterValue {
	return FilterValue{Kind: KindDateRange, From: from, To: to}
}
func ListValue(items ...string) FilterValue {
	return FilterValue{Kind: KindStringList, List: items}
}

// FilterRule pairs a property with an operator and a value. Rules in a
// list combine with AND logic.
type FilterRule struct {
	Property FilterProperty
	Operator FilterOperator
	Value    FilterValue
}

// propertyKind maps each property to its value type.
func propertyKind(p FilterProperty) (ValueKind, bool) {
	switch p {
	case PropTitle, PropNotes, PropProject, PropContext:
		return KindString, true
	case PropStatus, PropPriority:
		return KindStringList, true
	case PropFlagged:
		return KindBool, true
	case PropEffort:
		return KindNumber, true
	case PropDue, PropDefer, PropCreated, PropModified:
		return KindDate, true
	}
	return 0, false
}

// OperatorsFor returns the legal operators for a property. The set is a
// pure function of the property's value type.
func OperatorsFor(p FilterProperty) []FilterOperator {
	kind, ok := propertyKind(p)
	if !ok {
		return nil
	}
	switch kind {
	case KindString:
		return []FilterOperator{OpEquals, OpNotEquals, OpContains, OpStartsWith, OpEndsWith, OpIsSet, OpIsNotSet}
	case KindStringList:
		return []FilterOperator{OpEquals, OpNotEquals, OpIn, OpNotIn}
	case KindBool:
		return []FilterOperator{OpIsTrue, OpIsFalse}
	case KindNumber:
		return []FilterOperator{OpEquals, OpNotEquals, OpGreater, OpLess, OpGreaterEq, OpLessEq, OpIsSet, OpIsNotSet}
	case KindDate:
		return []FilterOperator{OpEquals, OpGreater, OpLess, OpGreaterEq, OpLessEq, OpBetween, OpIsSet, OpIsNotSet}
	}
	return nil
}

// Validate rejects a rule whose operator is illegal for its property.
func (r FilterRule) Validate() error {
	for _, op := range OperatorsFor(r.Property) {
		if op == r.Operator {
			return nil
		}
	}
	return fmt.Errorf("operator %q is not valid for property %q", r.Operator, r.Property)
}

// Match reports whether rec satisfies the rule. Invalid rules never match.
func (r FilterRule) Match(rec task.Record) bool {
	switch r.Property {
	case PropTitle:
		return matchString(rec.Title, r)
	case PropNotes:
		return matchString(rec.Notes, r)
	case PropProject:
		return matchString(rec.Project, r)
	case PropContext:
		return matchString(rec.Context, r)
	case PropStatus:
		return matchEnum(string(rec.Status), r)
	case PropPriority:
		return matchEnum(string(rec.Priority), r)
	case PropFlagged:
		switch r.Operator {
		case OpIsTrue:
			return rec.Flagged
		case OpIsFalse:
			return !rec.Flagged
		}
		return false
	case PropEffort:
		return matchNumber(rec.EffortMinutes, r)
	case PropDue:
		return matchDate(rec.Due, r)
	case PropDefer:
		return matchDate(rec.Defer, r)
	case PropCreated:
		t := rec.Created
		return matchDate(&t, r)
	case PropModified:
		t := rec.Modified
		return matchDate(&t, r)
	}
	return false
}

func matchString(v string, r FilterRule) bool {
	switch r.Operator {
	case OpIsSet:
		return v != ""
	case OpIsNotSet:
		return v == ""
	}
	want := r.Value.Str
	lv, lw := strings.ToLower(v), strings.ToLower(want)
	switch r.Operator {
	case OpEquals:
		return lv == lw
	case OpNotEquals:
		return lv != lw
	case OpContains:
		return strings.Contains(lv, lw)
	case OpStartsWith:
		return strings.HasPrefix(lv, lw)
	case OpEndsWith:
		return strings.HasSuffix(lv, lw)
	}
	return false
}

func matchEnum(v string, r FilterRule) bool {
	switch r.Operator {
	case OpEquals:
		return len(r.Value.List) == 1 && r.Value.List[0] == v
	case OpNotEquals:
		return len(r.Value.List) != 1 || r.Value.List[0] != v
	case OpIn:
		for _, item := range r.Value.List {
			if item == v {
				return true
			}
		}
		return false
	case OpNotIn:
		for _, item := range r.Value.List {
			if item == v {
				return false
			}
		}
		return true
	}
	return false
}

func matchNumber(v int, r FilterRule) bool {
	switch r.Operator {
	case OpIsSet:
		return v > 0
	case OpIsNotSet:
		return v == 0
	}
	f := float64(v)
	want := r.Value.Num
	switch r.Operator {
	case OpEquals:
		return f == want
	case OpNotEquals:
		return f != want
	case OpGreater:
		return f > want
	case OpLess:
		return f < want
	case OpGreaterEq:
		return f >= want
	case OpLessEq:
		return f <= want
	}
	return false
}

func matchDate(v *time.Time, r FilterRule) bool {
	switch r.Operator {
	case OpIsSet:
		return v != nil
	case OpIsNotSet:
		return v == nil
	}
	if v == nil {
		return false
	}
	switch r.Operator {
	case OpEquals:
		y1, m1, d1 := v.Date()
		y2, m2, d2 := r.Value.Date.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case OpGreater:
		return v.After(r.Value.Date)
	case OpLess:
		return v.Before(r.Value.Date)
	case OpGreaterEq:
		return !v.Before(r.Value.Date)
	case OpLessEq:
		return !v.After(r.Value.Date)
	case OpBetween:
		return !v.Before(r.Value.From) && !v.After(r.Value.To)
	}
	return false
}

// filterRecords runs the export filter pipeline: toggled exclusions first
// (cheap boolean checks), then the rule list, then date range and
// allow-lists. The predicates are independent, so the output is the same
// under any order.
func filterRecords(records []task.Record, opts ExportOptions) ([]task.Record, error) {
	for _, rule := range opts.Rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
	}

	out := make([]task.Record, 0, len(records))
	for _, rec := range records {
		if opts.ExcludeCompleted && rec.Completed() {
			continue
		}
		if opts.ExcludeArchived && rec.Archived() {
			continue
		}
		if opts.ExcludeNotes && rec.Kind != task.KindTask {
			continue
		}
		if opts.CreatedFrom != nil && rec.Created.Before(*opts.CreatedFrom) {
			continue
		}
		if opts.CreatedTo != nil && rec.Created.After(*opts.CreatedTo) {
			continue
		}
		if len(opts.Projects) > 0 && !containsFold(opts.Projects, rec.Project) {
			continue
		}
		if len(opts.Contexts) > 0 && !containsFold(opts.Contexts, rec.Context) {
			continue
		}
		if !matchAll(opts.Rules, rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func matchAll(rules []FilterRule, rec task.Record) bool {
	for _, rule := range rules {
		if !rule.Match(rec) {
			return false
		}
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
