// Package format holds the static metadata for every interchange dialect
// and the auto-detection engine that guesses a dialect from a filename and
// a content sample. Descriptors are immutable; lookups are pure and never
// fail for a valid format id.
package format

// Format identifies an interchange dialect.
type Format string

const (
	NativeArchive Format = "native-archive"
	MarkdownDoc   Format = "markdown"
	Checklist     Format = "checklist"
	TaskPaper     Format = "taskpaper"
	OmniFocus     Format = "omnifocus"
	Things        Format = "things"
	CSV           Format = "csv"
	TSV           Format = "tsv"
	JSON          Format = "json"
	ICal          Format = "ical"
	XLSX          Format = "xlsx"
	Report        Format = "report"
)

// Descriptor is the registry-owned metadata for a format. Created once at
// process start, never mutated.
type Descriptor struct {
	ID          Format
	Name        string
	Extensions  []string
	MIMEType    string
	Lossless    bool
	SingleFile  bool
	CanImport   bool
	CanExport   bool
	// DataLossWarnings are format-inherent advisories attached to every
	// export result for this format, regardless of the record set.
	DataLossWarnings []string
}

// All enumerates every format in a fixed display order.
func All() []Format {
	return []Format{
		NativeArchive, MarkdownDoc, Checklist,
		TaskPaper, OmniFocus, Things,
		CSV, TSV, JSON, ICal, XLSX, Report,
	}
}

// Lookup returns the descriptor for f. The switch is exhaustive over the
// format constants; an unknown id reports false rather than panicking so
// callers can reject user-supplied format strings.
func Lookup(f Format) (Descriptor, bool) {
	switch f {
	case NativeArchive:
		return Descriptor{
			ID:         NativeArchive,
			Name:       "Native Archive",
			Extensions: []string{".zip"},
			MIMEType:   "application/zip",
			Lossless:   true,
			SingleFile: false,
			CanImport:  true,
			CanExport:  true,
		}, true
	case MarkdownDoc:
		return Descriptor{
			ID:         MarkdownDoc,
			Name:       "Markdown Document",
			Extensions: []string{".md", ".markdown"},
			MIMEType:   "text/markdown",
			Lossless:   true,
			SingleFile: true,
			CanImport:  true,
			CanExport:  true,
		}, true
	case Checklist:
		return Descriptor{
			ID:         Checklist,
			Name:       "Plain Text Checklist",
			Extensions: []string{".md", ".txt"},
			MIMEType:   "text/plain",
			SingleFile: true,
			CanImport:  true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Board positions will be lost",
				"Creation and modification dates will be lost",
				"Notes, effort estimates, and defer dates will be lost",
			},
		}, true
	case TaskPaper:
		return Descriptor{
			ID:         TaskPaper,
			Name:       "TaskPaper",
			Extensions: []string{".taskpaper"},
			MIMEType:   "text/plain",
			SingleFile: true,
			CanImport:  true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Board positions will be lost",
				"Notes formatting may be simplified",
			},
		}, true
	case OmniFocus:
		return Descriptor{
			ID:         OmniFocus,
			Name:       "OmniFocus (TaskPaper)",
			Extensions: []string{".taskpaper"},
			MIMEType:   "text/plain",
			SingleFile: true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Board positions will be lost",
				"Someday/waiting statuses map to OmniFocus defer behavior",
			},
		}, true
	case Things:
		return Descriptor{
			ID:         Things,
			Name:       "Things (TaskPaper)",
			Extensions: []string{".taskpaper"},
			MIMEType:   "text/plain",
			SingleFile: true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Board positions will be lost",
				"Contexts export as tags",
			},
		}, true
	case CSV:
		return Descriptor{
			ID:         CSV,
			Name:       "Comma-Separated Values",
			Extensions: []string{".csv"},
			MIMEType:   "text/csv",
			SingleFile: true,
			CanImport:  true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Board positions will be lost",
			},
		}, true
	case TSV:
		return Descriptor{
			ID:         TSV,
			Name:       "Tab-Separated Values",
			Extensions: []string{".tsv", ".tab"},
			MIMEType:   "text/tab-separated-values",
			SingleFile: true,
			CanImport:  true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Board positions will be lost",
			},
		}, true
	case JSON:
		return Descriptor{
			ID:         JSON,
			Name:       "JSON",
			Extensions: []string{".json"},
			MIMEType:   "application/json",
			Lossless:   true,
			SingleFile: true,
			CanImport:  true,
			CanExport:  true,
		}, true
	case ICal:
		return Descriptor{
			ID:         ICal,
			Name:       "iCalendar",
			Extensions: []string{".ics"},
			MIMEType:   "text/calendar",
			SingleFile: true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Only tasks with due dates are exported",
				"Board positions, contexts, and effort estimates will be lost",
			},
		}, true
	case XLSX:
		return Descriptor{
			ID:         XLSX,
			Name:       "Excel Workbook",
			Extensions: []string{".xlsx"},
			MIMEType:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			SingleFile: true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Board positions will be lost",
			},
		}, true
	case Report:
		return Descriptor{
			ID:         Report,
			Name:       "Status Report",
			Extensions: []string{".md"},
			MIMEType:   "text/markdown",
			SingleFile: true,
			CanExport:  true,
			DataLossWarnings: []string{
				"Reports summarize tasks and cannot be re-imported",
			},
		}, true
	}
	return Descriptor{}, false
}

// MustLookup returns the descriptor for f and panics on an unknown id.
// For use with the enumerated constants, where a miss is a programming
// error.
func MustLookup(f Format) Descriptor {
	d, ok := Lookup(f)
	if !ok {
		panic("unknown format: " + string(f))
	}
	return d
}

// ImportFormats lists the formats that can be parsed.
func ImportFormats() []Format {
	var out []Format
	for _, f := range All() {
		if MustLookup(f).CanImport {
			out = append(out, f)
		}
	}
	return out
}

// ExportFormats lists the formats that can be rendered.
func ExportFormats() []Format {
	var out []Format
	for _, f := range All() {
		if MustLookup(f).CanExport {
			out = append(out, f)
		}
	}
	return out
}
