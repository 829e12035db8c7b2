package app

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// splitList reads a comma or newline separated list as typed into a form,
// NFKC normalizing each entry and dropping blanks and repeats.
func splitList(s string) []string {
	s = strings.ReplaceAll(s, "\n", ",")
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		v := strings.Join(strings.Fields(norm.NFKC.String(part)), " ")
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
