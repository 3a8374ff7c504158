package engine

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/task"
)

// frontmatterDelim separates the YAML block from the note body.
const frontmatterDelim = "---"

// frontmatter is the wire shape of a native markdown document header.
// The field order here is also the order written on export, so the two
// directions stay mirror images of each other.
type frontmatter struct {
	Type      string                   `yaml:"type,omitempty"`
	Title     string                   `yaml:"title"`
	Status    string                   `yaml:"status,omitempty"`
	Project   string                   `yaml:"project,omitempty"`
	Context   string                   `yaml:"context,omitempty"`
	Due       string                   `yaml:"due,omitempty"`
	Defer     string                   `yaml:"defer,omitempty"`
	Flagged   bool                     `yaml:"flagged,omitempty"`
	Priority  string                   `yaml:"priority,omitempty"`
	Effort    int                      `yaml:"effort,omitempty"`
	Positions map[string]task.Position `yaml:"positions,omitempty"`
	Created   string                   `yaml:"created,omitempty"`
	Modified  string                   `yaml:"modified,omitempty"`
}

// fmDoc is one raw document in a frontmatter stream.
type fmDoc struct {
	meta string
	body string
	line int // 1-based line of the opening delimiter
}

// parseMarkdownDoc parses a native markdown stream: one or more
// frontmatter documents, each a YAML block between --- delimiters
// followed by a free-form note body.
func parseMarkdownDoc(text string, opts ImportOptions) ([]task.Record, []RowError, error) {
	docs, err := splitFrontmatterDocs(text)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []task.Record
		errs    []RowError
	)
	for _, doc := range docs {
		if capReached(opts, len(records)) {
			break
		}
		rec, re := decodeFrontmatterDoc(doc)
		if re != nil {
			if aerr := abortOn(opts, &errs, *re); aerr != nil {
				return nil, nil, aerr
			}
			continue
		}
		records = append(records, rec)
	}
	return records, errs, nil
}

// parseFrontmatterDoc parses a single-document file, as stored inside the
// native archive. Structural problems come back as error; a missing title
// is a per-record error.
func parseFrontmatterDoc(text string) (task.Record, *RowError, error) {
	doc, err := splitSingleDoc(text)
	if err != nil {
		return task.Record{}, nil, err
	}
	rec, re := decodeFrontmatterDoc(doc)
	if re != nil {
		return task.Record{}, re, nil
	}
	return rec, nil, nil
}

// splitSingleDoc takes the first frontmatter block and everything after
// its closing delimiter as the body. Delimiter lines inside the body are
// body text; a single-document file never splits twice.
func splitSingleDoc(text string) (fmDoc, error) {
	lines := strings.Split(text, "\n")
	i, err := skipToOpeningDelim(lines)
	if err != nil {
		return fmDoc{}, err
	}

	doc := fmDoc{line: i + 1}
	i++ // past the opening delimiter

	start := i
	for i < len(lines) && !isDelimLine(lines[i]) {
		i++
	}
	if i == len(lines) {
		return fmDoc{}, structural("frontmatter block not terminated", nil)
	}
	doc.meta = strings.Join(lines[start:i], "\n")
	i++ // past the closing delimiter

	doc.body = strings.Trim(strings.Join(lines[i:], "\n"), "\n")
	return doc, nil
}

// splitFrontmatterDocs splits a stream into documents. A --- line ends a
// body only when it opens a new document: a later delimiter closes the
// block and the lines between decode as frontmatter. Any other --- line
// is body text, so notes containing dividers survive the round trip.
func splitFrontmatterDocs(text string) ([]fmDoc, error) {
	lines := strings.Split(text, "\n")
	i, err := skipToOpeningDelim(lines)
	if err != nil {
		return nil, err
	}

	var docs []fmDoc
	for i < len(lines) {
		doc := fmDoc{line: i + 1}
		i++ // past the opening delimiter

		start := i
		for i < len(lines) && !isDelimLine(lines[i]) {
			i++
		}
		if i == len(lines) {
			return nil, structural("frontmatter block not terminated", nil)
		}
		doc.meta = strings.Join(lines[start:i], "\n")
		i++ // past the closing delimiter

		start = i
		for i < len(lines) {
			if isDelimLine(lines[i]) && opensDocument(lines, i) {
				break
			}
			i++
		}
		doc.body = strings.Trim(strings.Join(lines[start:i], "\n"), "\n")
		docs = append(docs, doc)
	}
	return docs, nil
}

// skipToOpeningDelim advances past leading blank lines to the first
// delimiter and returns its index.
func skipToOpeningDelim(lines []string) (int, error) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return 0, structural("empty document", nil)
	}
	if !isDelimLine(lines[i]) {
		return 0, structural("content before frontmatter", nil)
	}
	return i, nil
}

// opensDocument reports whether the delimiter at index i starts a new
// document: a later delimiter terminates the block and its contents
// decode as non-empty frontmatter.
func opensDocument(lines []string, i int) bool {
	j := i + 1
	for j < len(lines) && !isDelimLine(lines[j]) {
		j++
	}
	if j == len(lines) {
		return false
	}
	meta := strings.Join(lines[i+1:j], "\n")
	if strings.TrimSpace(meta) == "" {
		return false
	}
	var fm frontmatter
	return yaml.Unmarshal([]byte(meta), &fm) == nil
}

func isDelimLine(line string) bool {
	return strings.TrimSpace(line) == frontmatterDelim
}

// decodeFrontmatterDoc turns one raw document into a record. Malformed
// dates inside an otherwise valid frontmatter block degrade to absent
// rather than erroring; that mirrors the historical reader of the native
// format — see DESIGN.md before changing it.
func decodeFrontmatterDoc(doc fmDoc) (task.Record, *RowError) {
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(doc.meta), &fm); err != nil {
		return task.Record{}, &RowError{Line: doc.line, Message: "invalid frontmatter: " + err.Error()}
	}

	if strings.TrimSpace(fm.Title) == "" {
		return task.Record{}, &RowError{Line: doc.line, Field: "title", Message: "missing required field"}
	}

	rec := task.Record{
		Kind:          task.ParseKind(fm.Type),
		Title:         strings.TrimSpace(fm.Title),
		Notes:         doc.body,
		Project:       fm.Project,
		Context:       fm.Context,
		Flagged:       fm.Flagged,
		EffortMinutes: fm.Effort,
		Positions:     fm.Positions,
		Due:           codec.ParseISO(fm.Due),
		Defer:         codec.ParseISO(fm.Defer),
	}
	if st, ok := task.ParseStatus(fm.Status); ok {
		rec.Status = st
	}
	if p, ok := task.ParsePriority(fm.Priority); ok {
		rec.Priority = p
	}
	if t := codec.ParseISO(fm.Created); t != nil {
		rec.Created = *t
	}
	if t := codec.ParseISO(fm.Modified); t != nil {
		rec.Modified = *t
	}
	return rec, nil
}
