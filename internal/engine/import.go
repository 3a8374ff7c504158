package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/interchange/internal/archive"
	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/format"
	"github.com/taskdeck/interchange/internal/task"
)

// Converter runs import and export operations. It is a short-lived value
// configuration, instantiated per call site; the zero value works and
// uses the zip archiver with no progress reporting. Converters hold no
// operation state, so one value may serve concurrent operations.
type Converter struct {
	// Archiver handles the native-archive format. Nil selects archive.Zip.
	Archiver archive.Archiver
	// Progress receives coarse checkpoints; nil disables reporting.
	Progress ProgressFunc
}

func (c Converter) archiver() archive.Archiver {
	if c.Archiver != nil {
		return c.Archiver
	}
	return archive.Zip{}
}

// Import parses source into task records according to opts. The returned
// error is structural (unparseable container, unknown format, or the
// first row error under the abort policy); per-row failures under the
// skip policy are collected on the result instead.
func (c Converter) Import(source []byte, opts ImportOptions) (*ImportResult, error) {
	start := time.Now()

	desc, ok := format.Lookup(opts.Format)
	if !ok || !desc.CanImport {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	report(c.Progress, 0, "reading "+desc.Name)
	source = codec.StripBOM(source)

	var (
		records []task.Record
		errs    []RowError
		err     error
	)
	switch opts.Format {
	case format.NativeArchive:
		records, errs, err = c.parseArchive(source, opts)
	case format.MarkdownDoc:
		records, errs, err = parseMarkdownDoc(string(source), opts)
	case format.Checklist:
		records, errs, err = parseChecklist(string(source), opts, c.Progress)
	case format.TaskPaper:
		records, errs, err = parseTagSyntax(string(source), opts, c.Progress)
	case format.CSV:
		records, errs, err = parseDelimited(source, ',', opts, c.Progress)
	case format.TSV:
		records, errs, err = parseDelimited(source, '\t', opts, c.Progress)
	case format.JSON:
		records, errs, err = parseJSON(source, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if err != nil {
		return nil, err
	}

	report(c.Progress, 0.9, "finalizing records")
	records = finalizeRecords(records, opts)

	result := &ImportResult{
		Format:   opts.Format,
		Records:  records,
		Errors:   errs,
		Duration: time.Since(start),
	}
	report(c.Progress, 1, "import complete")
	return result, nil
}

// Preview is the general import capped at a small record count — not a
// separate code path, so preview and full import share identical parsing
// semantics.
func (c Converter) Preview(source []byte, opts ImportOptions) (*ImportResult, error) {
	opts.MaxRecords = PreviewRecords
	return c.Import(source, opts)
}

// finalizeRecords applies option defaults and the ID policy, and enforces
// the record cap. Every codec's output passes through here, so no codec
// duplicates this logic.
func finalizeRecords(records []task.Record, opts ImportOptions) []task.Record {
	if opts.MaxRecords > 0 && len(records) > opts.MaxRecords {
		records = records[:opts.MaxRecords]
	}

	now := time.Now()
	for i := range records {
		rec := &records[i]

		if !opts.PreserveIDs || rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if rec.Kind == "" {
			rec.Kind = task.KindTask
		}
		if rec.Status == "" {
			rec.Status = opts.defaultStatus()
		}
		if rec.Project == "" {
			rec.Project = opts.DefaultProject
		}
		if rec.Context == "" {
			rec.Context = opts.DefaultContext
		}
		if rec.Priority == "" {
			rec.Priority = task.PriorityMedium
		}
		if rec.Created.IsZero() {
			rec.Created = now
		}
		if rec.Modified.IsZero() {
			rec.Modified = rec.Created
		}
	}
	return records
}

// capReached reports whether parsing may stop early: the cap is set and
// met. Line-oriented codecs consult this so preview never pays for a full
// parse.
func capReached(opts ImportOptions, parsed int) bool {
	return opts.MaxRecords > 0 && parsed >= opts.MaxRecords
}
