package agreement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadOptions controls how a delimited file maps onto a Table.
type ReadOptions struct {
	// NoIndex treats every column as data and numbers the rows 0..n-1.
	NoIndex bool
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// ReadTable reads a CSV file whose first column is the row index.
func ReadTable(path string) (*Table, error) {
	return ReadTableWithOptions(path, ReadOptions{})
}

// ReadTableWithOptions reads a delimited file with explicit layout options.
func ReadTableWithOptions(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	t, err := DecodeTable(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// DecodeTable parses a delimited stream with a header row.
func DecodeTable(r io.Reader, opts ReadOptions) (*Table, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanHeader(cell)
	}
	indexName := ""
	if !opts.NoIndex {
		if len(header) == 0 {
			return nil, ErrEmptyTable
		}
		indexName, header = header[0], header[1:]
	}
	t, err := NewTable(header...)
	if err != nil {
		return nil, err
	}
	t.IndexName = indexName
	for n, row := range rows[1:] {
		index := strconv.Itoa(n)
		if !opts.NoIndex {
			if len(row) == 0 {
				continue
			}
			index, row = row[0], row[1:]
		}
		if err := t.Append(index, row...); err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
	}
	return t, nil
}

// WriteTable writes t as CSV with its index column, creating the parent
// directory when it does not exist.
func WriteTable(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := EncodeTable(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// EncodeTable writes t as CSV, index column first.
func EncodeTable(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	header := append([]string{t.IndexName}, t.columns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.rows {
		record := append([]string{t.index[i]}, row...)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// FormatFloat renders a metric in shortest round-trip form; NaN is an empty
// cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseFloat reads a metric cell; an empty cell is NaN.
func ParseFloat(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if isMissingCell(s) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func cleanHeader(v string) string {
	v = strings.TrimPrefix(v, "\ufeff")
	return strings.TrimSpace(v)
}

// labeledInputName derives the category code of a per-class result file from
// the first three characters of its file name.
func labeledInputName(path string) (string, error) {
	base := filepath.Base(path)
	if len(base) < 3 {
		return "", errors.New("file name too short to carry a category code: " + base)
	}
	return base[:3], nil
}
