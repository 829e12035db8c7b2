package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"yashubustudio/agreement/agreement"
)

const (
	minColumnWidth = 70
	maxColumnWidth = 320
	charWidth      = 8
	maxCellRunes   = 120
)

// grid is a result table flattened for display: header first, index column
// included.
type grid struct {
	Header []string
	Rows   [][]string
}

func gridFromTable(t *agreement.Table) grid {
	if t == nil {
		return grid{}
	}
	columns := t.Columns()
	g := grid{Header: append([]string{t.IndexName}, columns...)}
	g.Rows = make([][]string, t.Len())
	for i := range g.Rows {
		row := make([]string, 0, len(g.Header))
		row = append(row, t.Index(i))
		for _, c := range columns {
			row = append(row, truncateCell(t.Cell(i, c), maxCellRunes))
		}
		g.Rows[i] = row
	}
	return g
}

func (g grid) cell(row, col int) string {
	if row == 0 {
		if col < len(g.Header) {
			return g.Header[col]
		}
		return ""
	}
	if row-1 >= len(g.Rows) || col >= len(g.Rows[row-1]) {
		return ""
	}
	return g.Rows[row-1][col]
}

// columnWidths sizes each column to its longest cell within fixed bounds.
func (g grid) columnWidths() []float32 {
	widths := make([]float32, len(g.Header))
	for col := range g.Header {
		longest := utf8.RuneCountInString(g.Header[col])
		for _, row := range g.Rows {
			if col < len(row) {
				if n := utf8.RuneCountInString(row[col]); n > longest {
					longest = n
				}
			}
		}
		w := float32(longest*charWidth + 24)
		if w < minColumnWidth {
			w = minColumnWidth
		}
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		widths[col] = w
	}
	return widths
}

func truncateCell(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}

func configSummary(cfg agreement.Config) string {
	composites := make([]string, len(cfg.Composites))
	for i, c := range cfg.Composites {
		composites[i] = fmt.Sprintf("%s=%s", c.Name, strings.Join(c.Of, "|"))
	}
	annotators := "(none)"
	if len(cfg.Annotators) > 0 {
		annotators = strings.Join(cfg.Annotators, ", ")
	}
	archive := "OFF"
	if cfg.Archive.DSN != "" {
		archive = cfg.Archive.DSN
	}
	return fmt.Sprintf("Annotators: %s / Categories: %s / Composites: %s / Item: %s / Archive: %s",
		annotators, strings.Join(cfg.Categories, ", "), strings.Join(composites, ", "), cfg.ItemColumn, archive)
}
