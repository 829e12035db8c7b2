package agreement

import (
	"fmt"
	"strconv"
)

// Table is an in-memory CSV table with a leading index column, the shape every
// input and result file of the pipeline shares.
type Table struct {
	// IndexName is the header of the index column, usually empty.
	IndexName string

	columns []string
	pos     map[string]int
	index   []string
	rows    [][]string
}

// Record is anything that can look up a cell by column name.
type Record interface {
	Get(column string) (string, bool)
}

// MapRecord is a Record backed by a map, handy for single rows built by hand.
type MapRecord map[string]string

// Get implements Record.
func (m MapRecord) Get(column string) (string, bool) {
	v, ok := m[column]
	return v, ok
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) (*Table, error) {
	t := &Table{pos: make(map[string]int, len(columns))}
	for _, c := range columns {
		if err := t.addColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// mustTable is NewTable for fixed, known-distinct result headers.
func mustTable(columns ...string) *Table {
	t, err := NewTable(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) addColumn(name string) error {
	if _, ok := t.pos[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	t.pos[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
	return nil
}

// Columns returns a copy of the column names (index column excluded).
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has a column.
func (t *Table) Has(column string) bool {
	_, ok := t.pos[column]
	return ok
}

// Index returns the index label of row i.
func (t *Table) Index(i int) string { return t.index[i] }

// Cell returns the value at row i, or "" when the column does not exist.
func (t *Table) Cell(i int, column string) string {
	if c, ok := t.pos[column]; ok {
		return t.rows[i][c]
	}
	return ""
}

// Row returns a view of row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Column returns a copy of a column's values.
func (t *Table) Column(column string) ([]string, error) {
	c, ok := t.pos[column]
	if !ok {
		return nil, fmt.Errorf("%q: %w", column, ErrMissingColumn)
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[c]
	}
	return out, nil
}

// Require returns an error naming the first absent column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return fmt.Errorf("%q: %w", c, ErrMissingColumn)
		}
	}
	return nil
}

// Append adds a row. Missing trailing cells are left empty.
func (t *Table) Append(index string, cells ...string) error {
	if len(cells) > len(t.columns) {
		return fmt.Errorf("%w: %d cells for %d columns", ErrRaggedRow, len(cells), len(t.columns))
	}
	row := make([]string, len(t.columns))
	copy(row, cells)
	t.index = append(t.index, index)
	t.rows = append(t.rows, row)
	return nil
}

// SetColumn replaces a column's values, adding the column when absent.
func (t *Table) SetColumn(column string, values []string) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q: %w: %d values for %d rows", column, ErrLengthMismatch, len(values), len(t.rows))
	}
	if !t.Has(column) {
		if err := t.addColumn(column); err != nil {
			return err
		}
	}
	c := t.pos[column]
	for i, v := range values {
		t.rows[i][c] = v
	}
	return nil
}

// Rename changes a column's name.
func (t *Table) Rename(from, to string) error {
	c, ok := t.pos[from]
	if !ok {
		return fmt.Errorf("%q: %w", from, ErrMissingColumn)
	}
	if from == to {
		return nil
	}
	if t.Has(to) {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, to)
	}
	delete(t.pos, from)
	t.pos[to] = c
	t.columns[c] = to
	return nil
}

// Select returns a new table with only the named columns, in that order.
func (t *Table) Select(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	out, err := NewTable(columns...)
	if err != nil {
		return nil, err
	}
	out.IndexName = t.IndexName
	for i, row := range t.rows {
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = row[t.pos[c]]
		}
		out.index = append(out.index, t.index[i])
		out.rows = append(out.rows, cells)
	}
	return out, nil
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := t.emptyCopy()
	for i := range t.rows {
		if keep(t.Row(i)) {
			out.index = append(out.index, t.index[i])
			out.rows = append(out.rows, append([]string(nil), t.rows[i]...))
		}
	}
	return out
}

// ResetIndex relabels the rows 0..n-1.
func (t *Table) ResetIndex() {
	for i := range t.index {
		t.index[i] = strconv.Itoa(i)
	}
}

// Unique returns the distinct values of a column in order of first appearance.
func (t *Table) Unique(column string) ([]string, error) {
	vals, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// LeftJoin keeps every row of t and adds the named columns of right, matched
// on the index label. Rows of t without a match get empty cells; the first
// matching row of right wins.
func (t *Table) LeftJoin(right *Table, columns ...string) (*Table, error) {
	if err := right.Require(columns...); err != nil {
		return nil, err
	}
	out := t.emptyCopy()
	for _, c := range columns {
		if err := out.addColumn(c); err != nil {
			return nil, err
		}
	}
	byIndex := make(map[string]int, right.Len())
	for i, idx := range right.index {
		if _, ok := byIndex[idx]; !ok {
			byIndex[idx] = i
		}
	}
	width := len(t.columns)
	for i, row := range t.rows {
		cells := make([]string, len(out.columns))
		copy(cells, row)
		if j, ok := byIndex[t.index[i]]; ok {
			for k, c := range columns {
				cells[width+k] = right.rows[j][right.pos[c]]
			}
		}
		out.index = append(out.index, t.index[i])
		out.rows = append(out.rows, cells)
	}
	return out, nil
}

// InnerJoin pairs each row of t with every row of right whose rightOn cell
// matches its leftOn cell, in t's row order, and numbers the result 0..n-1.
// Keys compare after id normalization, so "12" and "12.0" join; empty keys
// never match. Columns both sides have are suffixed "_x" and "_y", except a
// key column shared by name, which is kept once.
func (t *Table) InnerJoin(right *Table, leftOn, rightOn string) (*Table, error) {
	if err := t.Require(leftOn); err != nil {
		return nil, err
	}
	if err := right.Require(rightOn); err != nil {
		return nil, err
	}
	sharedKey := leftOn == rightOn
	names := make([]string, 0, len(t.columns)+len(right.columns))
	for _, c := range t.columns {
		if right.Has(c) && !(sharedKey && c == leftOn) {
			c += "_x"
		}
		names = append(names, c)
	}
	var picked []int
	for j, c := range right.columns {
		if sharedKey && c == rightOn {
			continue
		}
		if t.Has(c) {
			c += "_y"
		}
		names = append(names, c)
		picked = append(picked, j)
	}
	out, err := NewTable(names...)
	if err != nil {
		return nil, err
	}

	matches := make(map[string][]int, right.Len())
	rc := right.pos[rightOn]
	for j, row := range right.rows {
		if key := normalizeID(row[rc]); key != "" {
			matches[key] = append(matches[key], j)
		}
	}
	lc := t.pos[leftOn]
	for _, row := range t.rows {
		key := normalizeID(row[lc])
		if key == "" {
			continue
		}
		for _, j := range matches[key] {
			cells := make([]string, 0, len(names))
			cells = append(cells, row...)
			for _, c := range picked {
				cells = append(cells, right.rows[j][c])
			}
			out.index = append(out.index, strconv.Itoa(len(out.rows)))
			out.rows = append(out.rows, cells)
		}
	}
	return out, nil
}

// Concat appends the rows of o, aligning by column name. Columns only o has
// are added to t.
func (t *Table) Concat(o *Table) {
	for _, c := range o.columns {
		if !t.Has(c) {
			_ = t.addColumn(c)
		}
	}
	for i, row := range o.rows {
		cells := make([]string, len(t.columns))
		for j, c := range o.columns {
			cells[t.pos[c]] = row[j]
		}
		t.index = append(t.index, o.index[i])
		t.rows = append(t.rows, cells)
	}
}

func (t *Table) emptyCopy() *Table {
	out := mustTable(t.columns...)
	out.IndexName = t.IndexName
	return out
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Index returns the row's index label.
func (r Row) Index() string { return r.t.index[r.i] }

// Get implements Record.
func (r Row) Get(column string) (string, bool) {
	c, ok := r.t.pos[column]
	if !ok {
		return "", false
	}
	return r.t.rows[r.i][c], true
}
