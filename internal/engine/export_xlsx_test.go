package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/taskdeck/interchange/internal/format"
)

func TestExportXLSX(t *testing.T) {
	records := fixtureRecords(t)

	var buf bytes.Buffer
	result, err := Converter{}.Export(records, ExportOptions{Format: format.XLSX}, &buf)
	require.NoError(t, err)
	require.Equal(t, len(records), result.ExportedCount)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	require.ElementsMatch(t, []string{"Tasks", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Tasks")
	require.NoError(t, err)
	require.Len(t, rows, len(records)+1, "header row plus one row per record")

	assert.Equal(t, delimitedColumns, rows[0])

	// Rows follow export grouping: inbox first, then projects
	// alphabetically.
	title := func(row []string) string { return row[2] }
	assert.Equal(t, "Call mom", title(rows[1]))
	assert.Equal(t, "Fix the fence", title(rows[2]))
	assert.Equal(t, "Paint shed", title(rows[3]))
	assert.Equal(t, "Draft proposal", title(rows[4]))

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.NotEmpty(t, summary)
	assert.Equal(t, []string{"Total tasks", "4"}, summary[1])
}
