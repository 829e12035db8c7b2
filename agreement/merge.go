package agreement

import (
	"fmt"
	"strings"
)

// LabeledTable is a per-category result table together with its category code.
type LabeledTable struct {
	Code  string
	Table *Table
}

// LabeledPath is a per-category result file on disk.
type LabeledPath struct {
	Code string
	Path string
}

// ParseLabeledPath reads "CODE=path". Without an explicit code, the first
// three characters of the file name are used.
func ParseLabeledPath(arg string) (LabeledPath, error) {
	if code, path, ok := strings.Cut(arg, "="); ok && code != "" && path != "" {
		return LabeledPath{Code: strings.TrimSpace(code), Path: path}, nil
	}
	code, err := labeledInputName(arg)
	if err != nil {
		return LabeledPath{}, err
	}
	return LabeledPath{Code: code, Path: arg}, nil
}

// ReadLabeledTables loads every labeled path.
func ReadLabeledTables(paths []LabeledPath) ([]LabeledTable, error) {
	out := make([]LabeledTable, 0, len(paths))
	for _, p := range paths {
		t, err := ReadTable(p.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, LabeledTable{Code: p.Code, Table: t})
	}
	return out, nil
}

var tokenColumns = []string{"token", "note_name", "start", "end"}

// MergeNoteLabels combines per-category note label tables into one table with
// note_name, every <code> and <code>:machine pair, and the composite pair.
// Later inputs are left-joined on the first input's row index.
func MergeNoteLabels(inputs []LabeledTable, composite Composite) (*Table, error) {
	return mergeLabeled(inputs, composite, []string{"note_name"}, func(in LabeledTable) (*Table, error) {
		return in.Table, nil
	})
}

// MergeTokenLabels is MergeNoteLabels for token tables whose manual_ann and
// machine_ann columns carry tags. A tag equal to the input's code becomes 1,
// anything else 0. The first input also contributes token, note_name, start
// and end.
func MergeTokenLabels(inputs []LabeledTable, composite Composite) (*Table, error) {
	return mergeLabeled(inputs, composite, tokenColumns, tokenIndicators)
}

func mergeLabeled(inputs []LabeledTable, composite Composite, keep []string, prepare func(LabeledTable) (*Table, error)) (*Table, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	var merged *Table
	for _, in := range inputs {
		t, err := prepare(in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Code, err)
		}
		pair := []string{GroundTruth(in.Code).String(), Machine(in.Code).String()}
		if merged == nil {
			merged, err = t.Select(append(append([]string(nil), keep...), pair...)...)
		} else {
			merged, err = merged.LeftJoin(t, pair...)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Code, err)
		}
	}
	if err := DeriveComposite(merged, composite); err != nil {
		return nil, err
	}
	return merged, nil
}

// DeriveComposite adds <name> and <name>:machine as the OR of the composite's
// base indicator columns. Empty base cells count as 0.
func DeriveComposite(t *Table, composite Composite) error {
	for _, key := range []func(string) ColumnKey{GroundTruth, Machine} {
		bases := make([][]Binary, 0, len(composite.Of))
		for _, base := range composite.Of {
			col, err := binaryColumn(t, key(base).String())
			if err != nil {
				return fmt.Errorf("composite %s: %w", composite.Name, err)
			}
			bases = append(bases, col)
		}
		values := make([]string, t.Len())
		for i := range values {
			present := false
			for _, col := range bases {
				present = present || col[i] == BinaryPositive
			}
			values[i] = BinaryOf(present).String()
		}
		if err := t.SetColumn(key(composite.Name).String(), values); err != nil {
			return err
		}
	}
	return nil
}

// tokenIndicators turns manual_ann/machine_ann tags into the input code's
// indicator pair.
func tokenIndicators(in LabeledTable) (*Table, error) {
	t := in.Table
	if err := t.Require(append(append([]string(nil), tokenColumns...), "manual_ann", "machine_ann")...); err != nil {
		return nil, err
	}
	out := t.Filter(func(Row) bool { return true })
	for from, to := range map[string]string{
		"manual_ann":  GroundTruth(in.Code).String(),
		"machine_ann": Machine(in.Code).String(),
	} {
		tags, _ := out.Column(from)
		values := make([]string, len(tags))
		for i, tag := range tags {
			values[i] = BinaryOf(strings.TrimSpace(tag) == in.Code).String()
		}
		if err := out.SetColumn(from, values); err != nil {
			return nil, err
		}
		if err := out.Rename(from, to); err != nil {
			return nil, err
		}
	}
	return out, nil
}
