// Package codec provides the pure scalar field codecs shared by every
// import and export dialect: date parsing and rendering, boolean and
// effort parsing, and per-dialect text escaping. No state, no I/O.
//
// Parsers handle the messy reality of user-authored task files:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Effort estimates written as "90", "90m", or "1h30m"
//   - Common text-file artifacts (BOM, surrounding quotes)
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are
// assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ShortDateLayout is the yyyy-MM-dd form used by the tag-syntax dialects.
const ShortDateLayout = "2006-01-02"

// ICalStampLayout is the UTC date-time form used in iCalendar properties.
const ICalStampLayout = "20060102T150405Z"

// ParseDate parses a date in any supported layout. ISO-8601 forms are
// tried first (unambiguous), then slashed/dotted forms, then 2-digit-year
// forms with pivot adjustment. Returns nil for empty or unparseable input.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return &t
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return &t
		}
	}

	return nil
}

// ParseISO parses a strict ISO-8601 instant (RFC 3339, or the date-only
// yyyy-MM-dd form). Returns nil for anything else.
func ParseISO(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse(ShortDateLayout, s); err == nil {
		return &t
	}
	return nil
}

// FormatISO renders an instant as RFC 3339 in UTC, the form every lossless
// dialect writes.
func FormatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatShortDate renders the yyyy-MM-dd form.
func FormatShortDate(t time.Time) string {
	return t.Format(ShortDateLayout)
}

// FormatICalStamp renders a UTC iCalendar date-time stamp.
func FormatICalStamp(t time.Time) string {
	return t.UTC().Format(ICalStampLayout)
}

// ParseBool parses the boolean spellings found in task files.
// The second return is false when the input is not a recognizable boolean.
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// ParseEffort parses an effort estimate into minutes. Accepts a bare
// minute count ("90"), a minute suffix ("90m"), or hours and minutes
// ("1h30m", "2h"). Returns 0 for empty or unparseable input.
func ParseEffort(s string) int {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0
	}

	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}

	total := 0
	if i := strings.Index(s, "h"); i >= 0 {
		h, err := strconv.Atoi(strings.TrimSpace(s[:i]))
		if err != nil || h < 0 {
			return 0
		}
		total = h * 60
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "m")
	if s != "" {
		m, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || m < 0 {
			return 0
		}
		total += m
	}
	return total
}

// FormatEffort renders minutes in the "<n>m" form the tag-syntax dialects
// use.
func FormatEffort(minutes int) string {
	return fmt.Sprintf("%dm", minutes)
}

// EscapeTagValue sanitizes a value for embedding in an @key(value) token.
// Parentheses would terminate the token early, so they are replaced with
// brackets; newlines collapse to spaces.
func EscapeTagValue(s string) string {
	s = strings.ReplaceAll(s, "(", "[")
	s = strings.ReplaceAll(s, ")", "]")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// EscapeICalText escapes text per RFC 5545: backslash, semicolon, comma,
// and newline.
func EscapeICalText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\r\n", `\n`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// CleanCell removes common artifacts from a delimited-file cell:
// surrounding whitespace, an Excel formula prefix (="..."), and any
// surrounding quotes left behind by sloppy exporters.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// StripBOM removes a UTF-8 byte order mark from the start of the input.
func StripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
