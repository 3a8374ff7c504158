package engine

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/taskdeck/interchange/internal/format"
	"github.com/taskdeck/interchange/internal/task"
)

// inboxGroup is the sentinel group for records with no project.
const inboxGroup = "Inbox"

// Export filters records, renders them in the requested format, and
// writes the output to dest. Codecs receive the already-filtered set and
// never re-filter. Format-inherent data-loss warnings from the registry
// are always attached, followed by any warnings the codec computed for
// this particular record set.
func (c Converter) Export(records []task.Record, opts ExportOptions, dest io.Writer) (*ExportResult, error) {
	start := time.Now()

	desc, ok := format.Lookup(opts.Format)
	if !ok || !desc.CanExport {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	report(c.Progress, 0, "filtering tasks")
	filtered, err := filterRecords(records, opts)
	if err != nil {
		return nil, err
	}

	report(c.Progress, 0.2, "rendering "+desc.Name)
	var (
		output   []byte
		warnings []string
	)
	switch opts.Format {
	case format.NativeArchive:
		output, warnings, err = c.renderArchive(filtered)
	case format.MarkdownDoc:
		output, warnings, err = renderMarkdownDocs(filtered)
	case format.Checklist:
		output, warnings, err = renderChecklist(filtered)
	case format.TaskPaper:
		output, warnings, err = renderTagSyntax(filtered, taskPaperDialect)
	case format.OmniFocus:
		output, warnings, err = renderTagSyntax(filtered, omniFocusDialect)
	case format.Things:
		output, warnings, err = renderTagSyntax(filtered, thingsDialect)
	case format.CSV:
		output, warnings, err = renderDelimited(filtered, ',')
	case format.TSV:
		output, warnings, err = renderDelimited(filtered, '\t')
	case format.JSON:
		output, warnings, err = renderJSON(filtered)
	case format.ICal:
		output, warnings, err = renderICal(filtered)
	case format.XLSX:
		output, warnings, err = renderXLSX(filtered)
	case format.Report:
		output, warnings, err = renderReport(filtered, time.Now())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if err != nil {
		return nil, err
	}

	report(c.Progress, 0.9, "writing output")
	n, err := dest.Write(output)
	if err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}

	result := &ExportResult{
		Format:        opts.Format,
		ExportedCount: len(filtered),
		FilteredCount: len(records) - len(filtered),
		ByteSize:      int64(n),
		Warnings:      append(append([]string{}, desc.DataLossWarnings...), warnings...),
		Duration:      time.Since(start),
	}
	report(c.Progress, 1, "export complete")
	return result, nil
}

// group is a project bucket in export order.
type group struct {
	Name    string
	Records []task.Record
}

// groupByProject buckets records by project under deterministic ordering:
// the Inbox sentinel first, then projects alphabetically. In-group order
// is status rank then priority rank for human-consumption formats, or
// creation time when byCreation is set (the tag-syntax dialects).
func groupByProject(records []task.Record, byCreation bool) []group {
	buckets := make(map[string][]task.Record)
	for _, rec := range records {
		name := rec.Project
		if name == "" {
			name = inboxGroup
		}
		buckets[name] = append(buckets[name], rec)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		if name != inboxGroup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := buckets[inboxGroup]; ok {
		names = append([]string{inboxGroup}, names...)
	}

	groups := make([]group, 0, len(names))
	for _, name := range names {
		recs := buckets[name]
		sort.SliceStable(recs, func(i, j int) bool {
			if byCreation {
				return recs[i].Created.Before(recs[j].Created)
			}
			if a, b := task.StatusRank(recs[i].Status), task.StatusRank(recs[j].Status); a != b {
				return a < b
			}
			return task.PriorityRank(recs[i].Priority) < task.PriorityRank(recs[j].Priority)
		})
		groups = append(groups, group{Name: name, Records: recs})
	}
	return groups
}
