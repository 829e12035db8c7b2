package agreement

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NoneSentinel is the cell value meaning "annotated, no category".
const NoneSentinel = "O"

// LabelKind discriminates the Label variants.
type LabelKind int

const (
	// LabelMissing is an empty cell: the item was not annotated.
	LabelMissing LabelKind = iota
	// LabelNone is the "O" sentinel.
	LabelNone
	// LabelCategories is a non-empty set of category codes.
	LabelCategories
)

// Label is the parsed content of a label-set cell: Missing, None, or a set of
// category codes. The zero value is Missing.
type Label struct {
	kind  LabelKind
	codes []string
}

// MissingLabel returns the Missing variant.
func MissingLabel() Label { return Label{} }

// NoneLabel returns the None variant.
func NoneLabel() Label { return Label{kind: LabelNone} }

// CategoriesLabel builds a category set. Blank and repeated codes are dropped;
// an empty result is None.
func CategoriesLabel(codes ...string) Label {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = normalizeCode(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return NoneLabel()
	}
	sort.Strings(out)
	return Label{kind: LabelCategories, codes: out}
}

// Kind reports which variant l holds.
func (l Label) Kind() LabelKind { return l.kind }

// IsMissing reports whether l is the Missing variant.
func (l Label) IsMissing() bool { return l.kind == LabelMissing }

// IsNone reports whether l is the None variant.
func (l Label) IsNone() bool { return l.kind == LabelNone }

// Codes returns a copy of the sorted category codes (nil unless Categories).
func (l Label) Codes() []string {
	if l.kind != LabelCategories {
		return nil
	}
	return append([]string(nil), l.codes...)
}

// Has reports whether code is in the set.
func (l Label) Has(code string) bool {
	if l.kind != LabelCategories {
		return false
	}
	i := sort.SearchStrings(l.codes, code)
	return i < len(l.codes) && l.codes[i] == code
}

// HasAny reports whether any of codes is in the set.
func (l Label) HasAny(codes ...string) bool {
	for _, c := range codes {
		if l.Has(c) {
			return true
		}
	}
	return false
}

// Union merges two labels. Two Missing labels stay Missing; otherwise the
// result is the union of both code sets, or None when that union is empty.
func (l Label) Union(o Label) Label {
	if l.kind == LabelMissing && o.kind == LabelMissing {
		return MissingLabel()
	}
	return CategoriesLabel(append(l.Codes(), o.Codes()...)...)
}

// String renders the cell form accepted by ParseLabel.
func (l Label) String() string {
	switch l.kind {
	case LabelNone:
		return NoneSentinel
	case LabelCategories:
		quoted := make([]string, len(l.codes))
		for i, c := range l.codes {
			quoted[i] = "'" + c + "'"
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return ""
	}
}

// ParseLabel is the single parser for label-set cells. It accepts an empty or
// "nan" cell (Missing), the "O" sentinel (None), a list, set or tuple literal
// of quoted codes, a single quoted code, or a bare code.
func ParseLabel(cell string) (Label, error) {
	s := strings.TrimSpace(cell)
	switch {
	case isMissingCell(s):
		return MissingLabel(), nil
	case s == NoneSentinel:
		return NoneLabel(), nil
	}
	switch s[0] {
	case '[', '{', '(':
		codes, err := parseLiteralList(s)
		if err != nil {
			return Label{}, fmt.Errorf("%w: %q: %v", ErrMalformedLabel, cell, err)
		}
		return CategoriesLabel(codes...), nil
	case '\'', '"':
		code, rest, err := readQuoted(s)
		if err != nil || strings.TrimSpace(rest) != "" {
			return Label{}, fmt.Errorf("%w: %q", ErrMalformedLabel, cell)
		}
		return CategoriesLabel(code), nil
	}
	if strings.ContainsAny(s, "[]{}()'\",") {
		return Label{}, fmt.Errorf("%w: %q", ErrMalformedLabel, cell)
	}
	return CategoriesLabel(s), nil
}

func isMissingCell(s string) bool {
	return s == "" || strings.EqualFold(s, "nan")
}

func normalizeCode(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func parseLiteralList(s string) ([]string, error) {
	open, last := s[0], s[len(s)-1]
	want := map[byte]byte{'[': ']', '{': '}', '(': ')'}[open]
	if last != want {
		return nil, fmt.Errorf("unbalanced %c", open)
	}
	rest := strings.TrimSpace(s[1 : len(s)-1])
	var codes []string
	for rest != "" {
		code, tail, err := readQuoted(rest)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
		tail = strings.TrimSpace(tail)
		if tail == "" {
			break
		}
		if tail[0] != ',' {
			return nil, fmt.Errorf("expected ',' before %q", tail)
		}
		rest = strings.TrimSpace(tail[1:])
	}
	return codes, nil
}

// readQuoted consumes one quoted string literal from the front of s.
func readQuoted(s string) (string, string, error) {
	if s == "" || (s[0] != '\'' && s[0] != '"') {
		return "", s, fmt.Errorf("expected quoted item at %q", s)
	}
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == quote:
			return b.String(), s[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", s, fmt.Errorf("unterminated quote in %q", s)
}

// Binary is a parsed 0/1 indicator cell.
type Binary int8

const (
	// BinaryMissing is an empty indicator cell.
	BinaryMissing Binary = -1
	// BinaryNegative is 0.
	BinaryNegative Binary = 0
	// BinaryPositive is 1.
	BinaryPositive Binary = 1
)

// ParseBinary reads an indicator cell written as 0/1, 0.0/1.0 or a boolean.
func ParseBinary(cell string) (Binary, error) {
	s := strings.TrimSpace(cell)
	if isMissingCell(s) {
		return BinaryMissing, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return BinaryPositive, nil
		}
		return BinaryNegative, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		switch f {
		case 1:
			return BinaryPositive, nil
		case 0:
			return BinaryNegative, nil
		}
	}
	return BinaryMissing, fmt.Errorf("%w: %q", ErrMalformedBinary, cell)
}

// BinaryOf converts a presence flag to an indicator.
func BinaryOf(present bool) Binary {
	if present {
		return BinaryPositive
	}
	return BinaryNegative
}

// String renders "1", "0", or "" for Missing.
func (b Binary) String() string {
	switch b {
	case BinaryPositive:
		return "1"
	case BinaryNegative:
		return "0"
	default:
		return ""
	}
}
