package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

const (
	xlsxTasksSheet   = "Tasks"
	xlsxSummarySheet = "Summary"
)

// renderXLSX writes a two-sheet workbook: the record table and the
// analytics summary.
func renderXLSX(records []task.Record) ([]byte, []string, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), xlsxTasksSheet)
	if _, err := f.NewSheet(xlsxSummarySheet); err != nil {
		return nil, nil, err
	}

	if err := writeTaskSheet(f, records); err != nil {
		return nil, nil, err
	}
	if err := writeSummarySheet(f, Summarize(records, time.Now())); err != nil {
		return nil, nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil, nil
}

func writeTaskSheet(f *excelize.File, records []task.Record) error {
	header := make([]any, len(delimitedColumns))
	for i, col := range delimitedColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(xlsxTasksSheet, "A1", &header); err != nil {
		return err
	}

	row := 2
	for _, g := range groupByProject(records, false) {
		for _, rec := range g.Records {
			cells := make([]any, 0, len(delimitedColumns))
			for _, v := range delimitedRow(rec) {
				cells = append(cells, v)
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(xlsxTasksSheet, cell, &cells); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s Summary) error {
	rows := [][]any{
		{"Generated", codec.FormatISO(time.Now())},
		{"Total tasks", s.Total},
		{"Completed", s.Completed},
		{"Flagged", s.Flagged},
		{"Overdue", s.Overdue},
		{"Due within 7 days", s.DueSoon},
		{"Without due date", s.WithoutDue},
		{"Remaining effort (minutes)", s.TotalEffortMinutes},
		{},
		{"Status", "Count"},
	}
	for _, st := range task.Statuses() {
		if n := s.ByStatus[st]; n > 0 {
			rows = append(rows, []any{string(st), n})
		}
	}
	rows = append(rows, []any{}, []any{"Project", "Count"})
	for _, name := range sortedKeys(s.ByProject) {
		rows = append(rows, []any{name, s.ByProject[name]})
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSummarySheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
