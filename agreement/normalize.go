package agreement

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	newlineRuns = regexp.MustCompile(`\n+`)
	spaceRuns   = regexp.MustCompile(` +`)
)

// CleanText normalizes a free-text cell: "\r\r" becomes a newline, other
// carriage returns are dropped, tabs become spaces, newline and space runs
// collapse to one, and the edges are trimmed. An empty (missing) cell is
// returned unchanged.
func CleanText(text string) string {
	if text == "" {
		return text
	}
	s := strings.ReplaceAll(text, "\r\r", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")
	s = newlineRuns.ReplaceAllString(s, "\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.TrimSpace(s))
}

// CleanAll cleans a slice of cells into a new slice.
func CleanAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = CleanText(t)
	}
	return out
}

// CleanTable cleans the named text columns in place. Columns the table does
// not have are ignored.
func CleanTable(t *Table, textColumns []string) {
	for _, name := range textColumns {
		values, err := t.Column(name)
		if err != nil {
			continue
		}
		_ = t.SetColumn(name, CleanAll(values))
	}
}
