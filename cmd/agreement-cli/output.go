package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"yashubustudio/agreement/agreement"
	"yashubustudio/agreement/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func (env *cliEnv) outputPath(path, name string) (string, error) {
	return resolveOutputPath(strings.TrimSpace(path), env.service.Config().OutputDir, name, time.Now())
}

// report prints where a result went and, with --stdout, the table itself.
func (env *cliEnv) report(path string, t *agreement.Table) error {
	fmt.Fprintf(env.out, "%d rows saved to %s\n", t.Len(), path)
	if env.opts.stdout {
		fmt.Fprintln(env.out, renderTable(t))
	}
	return nil
}

func resolveOutputPath(path, dir, name string, now time.Time) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = agreement.DefaultOutputDir
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.csv", name, now.Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}

func renderTable(t *agreement.Table) string {
	columns := t.Columns()
	headers := append([]string{t.IndexName}, columns...)
	rows := make([][]string, t.Len())
	for i := range rows {
		row := make([]string, 0, len(headers))
		row = append(row, t.Index(i))
		for _, c := range columns {
			row = append(row, t.Cell(i, c))
		}
		rows[i] = row
	}
	return renderRows(headers, rows)
}

func renderRuns(runs []store.Run) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			r.Command,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			strconv.Itoa(r.Rows),
			r.Output,
		}
	}
	return renderRows([]string{"id", "command", "started", "elapsed", "rows", "output"}, rows)
}

func renderRows(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}
