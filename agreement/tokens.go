package agreement

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// TokenColumns is the header of a converted tagger output table.
var TokenColumns = []string{"token", "note_name", "start", "end", "manual_ann", "machine_ann"}

// ConvertNeuroNER parses space separated tagger output, one token per line:
// token, document name, start, end, gold tag, predicted tag. The note name is
// the second "_" separated field of the document name and BIO tags lose
// their prefix. Blank lines are skipped.
func ConvertNeuroNER(r io.Reader) (*Table, error) {
	t := mustTable(TokenColumns...)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, " ")
		if len(fields) != len(TokenColumns) {
			return nil, fmt.Errorf("line %d: %w: %d fields", line, ErrRaggedRow, len(fields))
		}
		parts := strings.Split(fields[1], "_")
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: document name %q has no note id", line, fields[1])
		}
		fields[1] = parts[1]
		for _, i := range []int{4, 5} {
			tag, err := stripBIO(fields[i])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			fields[i] = tag
		}
		_ = t.Append(strconv.Itoa(t.Len()), fields...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func stripBIO(tag string) (string, error) {
	if tag == NoneSentinel {
		return tag, nil
	}
	parts := strings.Split(tag, "-")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: tag %q", ErrMalformedLabel, tag)
	}
	return parts[1], nil
}

// ExtractNoteLevelLabels collapses a token table to one row per note, sorted
// by note id: the code is present for a note when any of its tokens carries
// it.
func ExtractNoteLevelLabels(tokens *Table, code string) (*Table, error) {
	if err := tokens.Require("note_name", "manual_ann", "machine_ann"); err != nil {
		return nil, err
	}
	type flags struct{ manual, machine bool }
	notes := make(map[string]*flags)
	for i := 0; i < tokens.Len(); i++ {
		note := tokens.Cell(i, "note_name")
		f, ok := notes[note]
		if !ok {
			f = &flags{}
			notes[note] = f
		}
		f.manual = f.manual || strings.TrimSpace(tokens.Cell(i, "manual_ann")) == code
		f.machine = f.machine || strings.TrimSpace(tokens.Cell(i, "machine_ann")) == code
	}
	ids := make([]string, 0, len(notes))
	for id := range notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := mustTable("note_name", GroundTruth(code).String(), Machine(code).String())
	for i, id := range ids {
		f := notes[id]
		_ = out.Append(strconv.Itoa(i), id, BinaryOf(f.manual).String(), BinaryOf(f.machine).String())
	}
	return out, nil
}

// TokenFrequency is how often one token was tagged.
type TokenFrequency struct {
	Token string
	Count int
}

// TokenCount summarizes the tokens the model tagged with one label.
type TokenCount struct {
	Label       string
	Count       int
	Unique      int
	Frequencies []TokenFrequency
}

// CountTokensPerClass counts the tokens whose predicted tag matches each
// label. inputs hold one converted token table per code; a label named by one
// of composites counts tokens where any base table predicts its base.
func CountTokensPerClass(inputs []LabeledTable, labels []string, composites []Composite) ([]TokenCount, error) {
	byCode := make(map[string]*Table, len(inputs))
	for _, in := range inputs {
		if err := in.Table.Require("token", "machine_ann"); err != nil {
			return nil, fmt.Errorf("%s: %w", in.Code, err)
		}
		byCode[in.Code] = in.Table
	}
	out := make([]TokenCount, 0, len(labels))
	for _, label := range labels {
		members := []string{label}
		for _, comp := range composites {
			if comp.Name == label {
				members = comp.Of
				break
			}
		}
		tagged, err := taggedTokens(byCode, members)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		freq := frequencies(tagged)
		out = append(out, TokenCount{Label: label, Count: len(tagged), Unique: len(freq), Frequencies: freq})
	}
	return out, nil
}

// taggedTokens returns the tokens of the first member's table whose row, in
// any member's table (matched by row index), predicts that member.
func taggedTokens(byCode map[string]*Table, members []string) ([]string, error) {
	tables := make([]*Table, len(members))
	for i, m := range members {
		t, ok := byCode[m]
		if !ok {
			return nil, fmt.Errorf("no token table for %s", m)
		}
		tables[i] = t
	}
	predicted := make([]map[string]bool, len(members))
	for i, t := range tables {
		predicted[i] = make(map[string]bool, t.Len())
		for r := 0; r < t.Len(); r++ {
			if _, seen := predicted[i][t.Index(r)]; !seen {
				predicted[i][t.Index(r)] = strings.TrimSpace(t.Cell(r, "machine_ann")) == members[i]
			}
		}
	}
	base := tables[0]
	var tokens []string
	for r := 0; r < base.Len(); r++ {
		for i := range members {
			if predicted[i][base.Index(r)] {
				tokens = append(tokens, base.Cell(r, "token"))
				break
			}
		}
	}
	return tokens, nil
}

func frequencies(tokens []string) []TokenFrequency {
	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}
	out := make([]TokenFrequency, 0, len(counts))
	for tok, n := range counts {
		out = append(out, TokenFrequency{Token: tok, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// TokenCountTable renders the label, count, unique summary.
func TokenCountTable(counts []TokenCount) *Table {
	t := mustTable("label", "count", "unique")
	for i, c := range counts {
		_ = t.Append(strconv.Itoa(i), c.Label, strconv.Itoa(c.Count), strconv.Itoa(c.Unique))
	}
	return t
}

// FrequencyTable renders token frequencies indexed by token, most frequent
// first.
func FrequencyTable(freq []TokenFrequency) *Table {
	t := mustTable("count")
	t.IndexName = "token"
	for _, f := range freq {
		_ = t.Append(f.Token, strconv.Itoa(f.Count))
	}
	return t
}

// NoteLengths describes how many tokens each note has.
type NoteLengths struct {
	Notes int     `json:"notes"`
	Mean  float64 `json:"mean"`
	Q25   float64 `json:"q25"`
	Q75   float64 `json:"q75"`
}

// NoteLengthStats counts tokens per note and reports the mean with the 25th
// and 75th percentiles (linear interpolation). All values are NaN without
// notes.
func NoteLengthStats(tokens *Table) (NoteLengths, error) {
	notes, err := tokens.Column("note_name")
	if err != nil {
		return NoteLengths{}, err
	}
	perNote := make(map[string]int)
	for _, n := range notes {
		perNote[n]++
	}
	lengths := make([]float64, 0, len(perNote))
	var sum float64
	for _, n := range perNote {
		lengths = append(lengths, float64(n))
		sum += float64(n)
	}
	if len(lengths) == 0 {
		return NoteLengths{Mean: math.NaN(), Q25: math.NaN(), Q75: math.NaN()}, nil
	}
	sort.Float64s(lengths)
	return NoteLengths{
		Notes: len(lengths),
		Mean:  sum / float64(len(lengths)),
		Q25:   percentile(lengths, 25),
		Q75:   percentile(lengths, 75),
	}, nil
}

// percentile expects sorted, non-empty values.
func percentile(sorted []float64, p float64) float64 {
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}
