package agreement

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// OperatorColumn holds the annotator of an exported annotation row.
	OperatorColumn = "operator"
	// SourceFileColumn holds the export file an annotation row came from.
	SourceFileColumn = "original_filename"
	// NoteIDColumn identifies a note in raw exports and note files.
	NoteIDColumn = "ROW_ID"
)

// ShortenRawAnnotations drops rows where every annotator column, first and
// second pass, is "O" or empty. Second-pass columns the table lacks are
// ignored.
func ShortenRawAnnotations(t *Table, annotators []string) (*Table, error) {
	if err := t.Require(annotators...); err != nil {
		return nil, err
	}
	columns := append([]string(nil), annotators...)
	for _, ann := range annotators {
		if second := SecondPass(ann).String(); t.Has(second) {
			columns = append(columns, second)
		}
	}
	return t.Filter(func(r Row) bool {
		for _, c := range columns {
			v, _ := r.Get(c)
			v = strings.TrimSpace(v)
			if !isMissingCell(v) && v != NoneSentinel {
				return true
			}
		}
		return false
	}), nil
}

// AnnotatorNotes lists the notes one annotator exported.
type AnnotatorNotes struct {
	Annotator string
	Notes     []string
}

// NotesByAnnotator groups note ids by annotator, both in order of first
// appearance. Numeric ids are normalized so "12" and "12.0" match.
func NotesByAnnotator(t *Table, operatorColumn, idColumn string) ([]AnnotatorNotes, error) {
	if err := t.Require(operatorColumn, idColumn); err != nil {
		return nil, err
	}
	var out []AnnotatorNotes
	pos := make(map[string]int)
	seen := make(map[string]map[string]struct{})
	for i := 0; i < t.Len(); i++ {
		ann := strings.TrimSpace(t.Cell(i, operatorColumn))
		id := normalizeID(t.Cell(i, idColumn))
		if ann == "" || id == "" {
			continue
		}
		j, ok := pos[ann]
		if !ok {
			j = len(out)
			pos[ann] = j
			seen[ann] = make(map[string]struct{})
			out = append(out, AnnotatorNotes{Annotator: ann})
		}
		if _, dup := seen[ann][id]; dup {
			continue
		}
		seen[ann][id] = struct{}{}
		out[j].Notes = append(out[j].Notes, id)
	}
	return out, nil
}

// UnreviewedNotes returns the notes annotated by exactly one annotator, with
// that annotator in the operator column. keep selects the output columns;
// empty keeps all.
func UnreviewedNotes(annotations, notes *Table, keep []string) (*Table, error) {
	byAnnotator, err := NotesByAnnotator(annotations, OperatorColumn, NoteIDColumn)
	if err != nil {
		return nil, fmt.Errorf("annotations: %w", err)
	}
	if err := notes.Require(NoteIDColumn); err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	reviewers := make(map[string][]string)
	for _, an := range byAnnotator {
		for _, id := range an.Notes {
			reviewers[id] = append(reviewers[id], an.Annotator)
		}
	}
	single := notes.Filter(func(r Row) bool {
		id, _ := r.Get(NoteIDColumn)
		return len(reviewers[normalizeID(id)]) == 1
	})
	operators := make([]string, single.Len())
	for i := range operators {
		operators[i] = pyList(reviewers[normalizeID(single.Cell(i, NoteIDColumn))])
	}
	if err := single.SetColumn(OperatorColumn, operators); err != nil {
		return nil, err
	}
	if len(keep) == 0 {
		return single, nil
	}
	return single.Select(keep...)
}

// Export is one annotation tool export: its file name and parsed table.
type Export struct {
	Name  string
	Table *Table
}

// ConcatAnnotations stacks exports in natural file-name order, cleaning the
// text columns and tagging each row with its annotator and file name.
// operators maps file names to annotators. headers selects and orders the
// output columns; empty keeps the first export's columns.
func ConcatAnnotations(exports []Export, operators map[string]string, textColumns, headers []string) (*Table, error) {
	if len(exports) == 0 {
		return nil, ErrNoInputs
	}
	sorted := append([]Export(nil), exports...)
	sort.SliceStable(sorted, func(i, j int) bool { return naturalLess(sorted[i].Name, sorted[j].Name) })
	var total *Table
	for _, ex := range sorted {
		operator, ok := operators[ex.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, ex.Name)
		}
		t, err := tagExport(ex, operator, textColumns)
		if err != nil {
			return nil, err
		}
		if total == nil {
			total = t
			if len(headers) == 0 {
				headers = t.Columns()
			}
			continue
		}
		total.Concat(t)
	}
	return total.Select(headers...)
}

// AppendAnnotations adds one new export by operator to an already compiled
// annotation table. Both sides get their text columns cleaned. headers selects
// and orders the output columns; empty keeps every column.
func AppendAnnotations(compiled *Table, ex Export, operator string, textColumns, headers []string) (*Table, error) {
	if strings.TrimSpace(operator) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, ex.Name)
	}
	total := compiled.Filter(func(Row) bool { return true })
	CleanTable(total, textColumns)
	t, err := tagExport(ex, operator, textColumns)
	if err != nil {
		return nil, err
	}
	total.Concat(t)
	if len(headers) == 0 {
		headers = total.Columns()
	}
	return total.Select(headers...)
}

// tagExport returns a cleaned copy of the export with the operator and source
// file columns set.
func tagExport(ex Export, operator string, textColumns []string) (*Table, error) {
	t := ex.Table.Filter(func(Row) bool { return true })
	CleanTable(t, textColumns)
	if err := t.SetColumn(OperatorColumn, repeat(strings.TrimSpace(operator), t.Len())); err != nil {
		return nil, err
	}
	if err := t.SetColumn(SourceFileColumn, repeat(ex.Name, t.Len())); err != nil {
		return nil, err
	}
	return t, nil
}

// AnnotatedNotes keeps the notes whose ROW_ID appears in annotations and
// renumbers them 0..n-1.
func AnnotatedNotes(notes, annotations *Table) (*Table, error) {
	if err := notes.Require(NoteIDColumn); err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	ids, err := annotations.Unique(NoteIDColumn)
	if err != nil {
		return nil, fmt.Errorf("annotations: %w", err)
	}
	annotated := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = normalizeID(id); id != "" {
			annotated[id] = struct{}{}
		}
	}
	out := notes.Filter(func(r Row) bool {
		id, _ := r.Get(NoteIDColumn)
		_, ok := annotated[normalizeID(id)]
		return ok
	})
	out.ResetIndex()
	return out, nil
}

// MergeToRaw attaches merged note labels to the raw notes: an inner join of
// ROW_ID against the labels' note_name.
func MergeToRaw(notes, labels *Table) (*Table, error) {
	if err := notes.Require(NoteIDColumn); err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	if err := labels.Require("note_name"); err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	return notes.InnerJoin(labels, NoteIDColumn, "note_name")
}

// ReadOperators loads the Filename to Annotator mapping of export files.
func ReadOperators(path string) (map[string]string, error) {
	t, err := ReadTableWithOptions(path, ReadOptions{NoIndex: true})
	if err != nil {
		return nil, err
	}
	if err := t.Require("Filename", "Annotator"); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	out := make(map[string]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		name := strings.TrimSpace(t.Cell(i, "Filename"))
		if _, ok := out[name]; !ok {
			out[name] = strings.TrimSpace(t.Cell(i, "Annotator"))
		}
	}
	return out, nil
}

// VerifyNotesMatch returns the annotation note ids that do not match exactly
// one note. An empty result means every annotation has its note.
func VerifyNotesMatch(notes, annotations *Table) ([]string, error) {
	if err := notes.Require(NoteIDColumn); err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	if err := annotations.Require(NoteIDColumn); err != nil {
		return nil, fmt.Errorf("annotations: %w", err)
	}
	counts := make(map[string]int, notes.Len())
	for i := 0; i < notes.Len(); i++ {
		counts[normalizeID(notes.Cell(i, NoteIDColumn))]++
	}
	var bad []string
	reported := make(map[string]struct{})
	for i := 0; i < annotations.Len(); i++ {
		id := normalizeID(annotations.Cell(i, NoteIDColumn))
		if counts[id] == 1 {
			continue
		}
		if _, ok := reported[id]; !ok {
			reported[id] = struct{}{}
			bad = append(bad, id)
		}
	}
	return bad, nil
}

// normalizeID renders integral numeric ids without a fractional part.
func normalizeID(cell string) string {
	s := strings.TrimSpace(cell)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

func pyList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

var digitRuns = regexp.MustCompile(`[0-9]+`)

// naturalLess orders names case-insensitively with digit runs compared as
// numbers, so "file2" sorts before "file10".
func naturalLess(a, b string) bool {
	ka, kb := naturalKey(a), naturalKey(b)
	for i := 0; i < len(ka) && i < len(kb); i++ {
		x, y := ka[i], kb[i]
		if x.isNum && y.isNum {
			if x.num != y.num {
				return x.num < y.num
			}
			continue
		}
		if x.isNum != y.isNum {
			return x.isNum
		}
		if x.text != y.text {
			return x.text < y.text
		}
	}
	return len(ka) < len(kb)
}

type keyPart struct {
	text  string
	num   uint64
	isNum bool
}

func naturalKey(s string) []keyPart {
	var parts []keyPart
	last := 0
	for _, loc := range digitRuns.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			parts = append(parts, keyPart{text: strings.ToLower(s[last:loc[0]])})
		}
		n, _ := strconv.ParseUint(s[loc[0]:loc[1]], 10, 64)
		parts = append(parts, keyPart{num: n, isNum: true, text: s[loc[0]:loc[1]]})
		last = loc[1]
	}
	if last < len(s) {
		parts = append(parts, keyPart{text: strings.ToLower(s[last:])})
	}
	return parts
}
