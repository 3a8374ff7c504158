package engine

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

// renderFrontmatterDoc renders one record as a native markdown document:
// frontmatter between --- delimiters, then the note body. The field set
// mirrors parseFrontmatterDoc exactly so the format round-trips.
func renderFrontmatterDoc(rec task.Record) ([]byte, error) {
	fm := frontmatter{
		Type:      string(rec.Kind),
		Title:     rec.Title,
		Status:    string(rec.Status),
		Project:   rec.Project,
		Context:   rec.Context,
		Flagged:   rec.Flagged,
		Priority:  string(rec.Priority),
		Effort:    rec.EffortMinutes,
		Positions: rec.Positions,
	}
	if rec.Due != nil {
		fm.Due = codec.FormatISO(*rec.Due)
	}
	if rec.Defer != nil {
		fm.Defer = codec.FormatISO(*rec.Defer)
	}
	if !rec.Created.IsZero() {
		fm.Created = codec.FormatISO(rec.Created)
	}
	if !rec.Modified.IsZero() {
		fm.Modified = codec.FormatISO(rec.Modified)
	}

	meta, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("render frontmatter for %q: %w", rec.Title, err)
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	buf.Write(meta)
	buf.WriteString(frontmatterDelim + "\n")
	if rec.Notes != "" {
		buf.WriteString("\n")
		buf.WriteString(rec.Notes)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// renderMarkdownDocs renders records as a concatenated stream of native
// markdown documents. A single record is the common case; multiple
// records separate with a blank line.
func renderMarkdownDocs(records []task.Record) ([]byte, []string, error) {
	var buf bytes.Buffer
	for i, g := range groupByProject(records, false) {
		for _, rec := range g.Records {
			doc, err := renderFrontmatterDoc(rec)
			if err != nil {
				return nil, nil, err
			}
			if i > 0 || buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.Write(doc)
		}
	}
	return buf.Bytes(), nil, nil
}
