package agreement

import "fmt"

// Reconcile returns an annotator's label for one record. When the record has
// the annotator's second-pass column the two passes are merged by union, a
// missing cell counting as "O". The result is never Missing.
func Reconcile(r Record, annotator string) (Label, error) {
	primary, err := labelAt(r, annotator)
	if err != nil {
		return Label{}, err
	}
	secondColumn := SecondPass(annotator).String()
	if _, ok := r.Get(secondColumn); !ok {
		return orNone(primary), nil
	}
	second, err := labelAt(r, secondColumn)
	if err != nil {
		return Label{}, err
	}
	return ReconcilePasses(primary, second), nil
}

// ReconcilePasses merges two passes by the same annotator over one item.
func ReconcilePasses(first, second Label) Label {
	return orNone(first).Union(orNone(second))
}

// ReconcileColumn reconciles every row of t for one annotator.
func ReconcileColumn(t *Table, annotator string) ([]Label, error) {
	if err := t.Require(annotator); err != nil {
		return nil, fmt.Errorf("annotator %q: %w", annotator, err)
	}
	out := make([]Label, t.Len())
	for i := range out {
		l, err := Reconcile(t.Row(i), annotator)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", t.Index(i), err)
		}
		out[i] = l
	}
	return out, nil
}

func labelAt(r Record, column string) (Label, error) {
	cell, ok := r.Get(column)
	if !ok {
		return Label{}, fmt.Errorf("%q: %w", column, ErrMissingColumn)
	}
	l, err := ParseLabel(cell)
	if err != nil {
		return Label{}, fmt.Errorf("column %q: %w", column, err)
	}
	return l, nil
}

func orNone(l Label) Label {
	if l.IsMissing() {
		return NoneLabel()
	}
	return l
}
