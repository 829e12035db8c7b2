package agreement

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// KappaColumns is the header of a pairwise kappa result file.
var KappaColumns = []string{"op1", "op2", "num_overlap", "label", "kappa", "op1_count", "op2_count"}

// PairOverlap is the number of items two annotators both labeled.
type PairOverlap struct {
	Op1   string `json:"op1"`
	Op2   string `json:"op2"`
	Items int    `json:"items"`
}

type pairSample struct {
	PairOverlap
	first  []Label
	second []Label
}

// CohenKappa computes Cohen's kappa between two label sequences over the
// union of their labels. It is NaN for empty input and whenever chance
// disagreement is zero (both raters used a single identical label).
func CohenKappa(a, b []string) (float64, error) {
	if len(a) != len(b) {
		return math.NaN(), fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return math.NaN(), nil
	}
	classes := make(map[string]int)
	for _, v := range append(append([]string(nil), a...), b...) {
		classes[v] = 0
	}
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		classes[name] = i
	}
	n := len(names)
	cm := make([][]float64, n)
	for i := range cm {
		cm[i] = make([]float64, n)
	}
	rowSum := make([]float64, n)
	colSum := make([]float64, n)
	for i := range a {
		r, c := classes[a[i]], classes[b[i]]
		cm[r][c]++
		rowSum[r]++
		colSum[c]++
	}
	total := float64(len(a))
	var observed, expected float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			observed += cm[i][j]
			expected += rowSum[i] * colSum[j] / total
		}
	}
	if expected == 0 {
		return math.NaN(), nil
	}
	return 1 - observed/expected, nil
}

// PairwiseKappa computes Cohen's kappa for every annotator pair and category
// over the items both annotators labeled. Pairs without shared items are
// skipped. Categories naming a composite are present when any base is.
func PairwiseKappa(t *Table, cfg Config) ([]KappaResult, error) {
	samples, err := collectPairs(t, cfg, true)
	if err != nil {
		return nil, err
	}
	var results []KappaResult
	for _, p := range samples {
		if p.Items == 0 {
			continue
		}
		for _, code := range cfg.Categories {
			y1, y2 := presence(p.first, cfg.members(code), code), presence(p.second, cfg.members(code), code)
			kappa, err := CohenKappa(y1, y2)
			if err != nil {
				return nil, fmt.Errorf("%s/%s %s: %w", p.Op1, p.Op2, code, err)
			}
			results = append(results, KappaResult{
				Op1:        p.Op1,
				Op2:        p.Op2,
				NumOverlap: p.Items,
				Label:      code,
				Kappa:      kappa,
				Op1Count:   count(y1, code),
				Op2Count:   count(y2, code),
			})
		}
	}
	return results, nil
}

// Overlaps lists every annotator pair in roster order with the number of
// items both labeled, including pairs that share none.
func Overlaps(t *Table, cfg Config) ([]PairOverlap, error) {
	samples, err := collectPairs(t, cfg, false)
	if err != nil {
		return nil, err
	}
	out := make([]PairOverlap, len(samples))
	for i, s := range samples {
		out[i] = s.PairOverlap
	}
	return out, nil
}

// KappaTable renders kappa results as a result table.
func KappaTable(results []KappaResult) *Table {
	t := mustTable(KappaColumns...)
	for i, r := range results {
		_ = t.Append(strconv.Itoa(i),
			r.Op1, r.Op2, strconv.Itoa(r.NumOverlap), r.Label,
			FormatFloat(r.Kappa), strconv.Itoa(r.Op1Count), strconv.Itoa(r.Op2Count))
	}
	return t
}

func collectPairs(t *Table, cfg Config, withLabels bool) ([]pairSample, error) {
	if len(cfg.Annotators) < 2 {
		return nil, ErrNoAnnotators
	}
	itemColumn, err := resolveItemColumn(t, cfg.ItemColumn)
	if err != nil {
		return nil, err
	}
	annotated := make(map[string]map[string]struct{}, len(cfg.Annotators))
	for _, ann := range cfg.Annotators {
		items, err := annotatedItems(t, itemColumn, ann)
		if err != nil {
			return nil, err
		}
		annotated[ann] = items
	}
	var out []pairSample
	for i := 0; i < len(cfg.Annotators); i++ {
		for j := i + 1; j < len(cfg.Annotators); j++ {
			a, b := cfg.Annotators[i], cfg.Annotators[j]
			shared := intersect(annotated[a], annotated[b])
			p := pairSample{PairOverlap: PairOverlap{Op1: a, Op2: b, Items: len(shared)}}
			if withLabels && len(shared) > 0 {
				sub := t.Filter(func(r Row) bool {
					v, _ := r.Get(itemColumn)
					_, ok := shared[v]
					return ok
				})
				if p.first, err = ReconcileColumn(sub, a); err != nil {
					return nil, err
				}
				if p.second, err = ReconcileColumn(sub, b); err != nil {
					return nil, err
				}
				if len(p.first) != len(p.second) {
					return nil, ErrLengthMismatch
				}
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// annotatedItems returns the item ids of rows where the annotator's primary
// cell is present.
func annotatedItems(t *Table, itemColumn, annotator string) (map[string]struct{}, error) {
	if err := t.Require(annotator); err != nil {
		return nil, fmt.Errorf("annotator %q: %w", annotator, err)
	}
	items := make(map[string]struct{})
	for i := 0; i < t.Len(); i++ {
		if isMissingCell(strings.TrimSpace(t.Cell(i, annotator))) {
			continue
		}
		items[t.Cell(i, itemColumn)] = struct{}{}
	}
	return items, nil
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// presence maps each label to code when any member is present, else "O".
func presence(labels []Label, members []string, code string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		if l.HasAny(members...) {
			out[i] = code
		} else {
			out[i] = NoneSentinel
		}
	}
	return out
}

func count(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}
