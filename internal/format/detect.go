package format

import (
	"path/filepath"
	"regexp"
	"strings"
)

// SampleLines is how many non-empty lines of content the detector
// inspects. Detection never requires the whole file.
const SampleLines = 20

var (
	tagTokenRe = regexp.MustCompile(`(^|\s)@\w+`)
	checkboxRe = regexp.MustCompile(`^\s*[-*]\s*\[([ xX])\]`)
)

// Detect returns the best-guess format for a file, or false when no rule
// matches and the caller must ask the user.
//
// Rules apply in strict priority order; the first match wins:
//  1. An unambiguous extension decides immediately, without content
//     inspection.
//  2. Otherwise the first SampleLines non-empty lines are sniffed,
//     most-specific signal first: JSON and frontmatter prefixes are
//     unambiguous; tag-density and delimiter heuristics are probabilistic
//     and come after them so that, e.g., a checklist line containing a
//     comma is not mistaken for CSV.
func Detect(filename string, sample []byte) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return NativeArchive, true
	case ".taskpaper":
		return TaskPaper, true
	case ".csv":
		return CSV, true
	case ".tsv", ".tab":
		return TSV, true
	case ".json":
		return JSON, true
	}

	return sniff(sample)
}

// sniff inspects a content sample for format signals.
func sniff(sample []byte) (Format, bool) {
	trimmed := strings.TrimSpace(string(sample))
	if trimmed == "" {
		return "", false
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		return JSON, true
	}
	if strings.HasPrefix(trimmed, "---") {
		return MarkdownDoc, true
	}

	lines := sampleNonEmptyLines(trimmed, SampleLines)

	tagged := 0
	for _, line := range lines {
		if tagTokenRe.MatchString(line) {
			tagged++
		}
	}
	if tagged*3 > len(lines) {
		return TaskPaper, true
	}

	first := lines[0]
	if strings.Contains(first, ",") && len(strings.Split(first, ",")) >= 3 {
		return CSV, true
	}
	if strings.Contains(first, "\t") && len(strings.Split(first, "\t")) >= 3 {
		return TSV, true
	}

	for _, line := range lines {
		if checkboxRe.MatchString(line) {
			return Checklist, true
		}
	}

	return "", false
}

// sampleNonEmptyLines returns up to max non-empty lines of s.
func sampleNonEmptyLines(s string, max int) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
