package app

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/agreement/agreement"
	"yashubustudio/agreement/internal/logger"
)

const annotationsCSV = `,note_name,A,B
0,1,['LIM'],O
1,2,"['LIM', 'CAR']",['LIM']
2,3,O,['LIM']
3,4,O,O
`

func newService(t *testing.T) *agreement.Service {
	t.Helper()
	svc, err := agreement.NewService(agreement.Config{Annotators: []string{"A", "B"}, Categories: []string{"LIM"}}, nil)
	require.NoError(t, err)
	return svc
}

// ── analyses ──

// TestAnalyses_TokenKappa verifies the viewer's kappa analysis returns the result table.
func TestAnalyses_TokenKappa(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ann.csv")
	require.NoError(t, os.WriteFile(path, []byte(annotationsCSV), 0o644))

	an, ok := findAnalysis("Token kappa")
	require.True(t, ok)
	tbl, err := an.Run(context.Background(), newService(t), path)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "LIM", tbl.Cell(0, "label"))
	assert.Equal(t, "4", tbl.Cell(0, "num_overlap"))
}

// TestAnalyses_NoteLengths verifies summary statistics render as a one-row table.
func TestAnalyses_NoteLengths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.csv")
	tokens := ",token,note_name\n0,a,1\n1,b,1\n2,c,2\n"
	require.NoError(t, os.WriteFile(path, []byte(tokens), 0o644))

	an, ok := findAnalysis("Note lengths")
	require.True(t, ok)
	tbl, err := an.Run(context.Background(), newService(t), path)
	require.NoError(t, err)
	assert.Equal(t, "2", tbl.Cell(0, "notes"))
	assert.Equal(t, "1.5", tbl.Cell(0, "mean"))
}

// TestRunContext_CarriesLogger verifies analyses log through the viewer's
// logger once it is attached to the run context.
func TestRunContext_CarriesLogger(t *testing.T) {
	u := &uiState{}
	assert.Equal(t, context.Background(), u.runContext())

	sink := newLogSink(logLineKeep, func() {})
	u.ctx = logger.NewConsoleLogger("agreement-ui", sink).WithContext(context.Background())

	path := filepath.Join(t.TempDir(), "ann.csv")
	require.NoError(t, os.WriteFile(path, []byte(annotationsCSV), 0o644))
	an, ok := findAnalysis("Token kappa")
	require.True(t, ok)
	_, err := an.Run(u.runContext(), newService(t), path)
	require.NoError(t, err)

	assert.Contains(t, sink.String(), "run finished")
	assert.Contains(t, sink.String(), "command=kappa")
}

func TestAnalysisLabels(t *testing.T) {
	labels := analysisLabels()
	require.Len(t, labels, len(analyses))
	_, ok := findAnalysis("unknown")
	assert.False(t, ok)
}

// ── grid ──

func TestGridFromTable(t *testing.T) {
	tbl := agreement.KappaTable([]agreement.KappaResult{
		{Op1: "A", Op2: "B", NumOverlap: 4, Label: "LIM", Kappa: math.NaN()},
	})
	g := gridFromTable(tbl)

	require.Len(t, g.Rows, 1)
	assert.Equal(t, len(tbl.Columns())+1, len(g.Header))
	assert.Equal(t, g.Header[1], g.cell(0, 1))
	assert.Equal(t, "0", g.cell(1, 0))
	assert.Equal(t, "", g.cell(5, 0))
	assert.Equal(t, "", g.cell(0, 99))
}

func TestGridFromTable_Nil(t *testing.T) {
	g := gridFromTable(nil)
	assert.Empty(t, g.Header)
	assert.Empty(t, g.columnWidths())
}

func TestColumnWidths(t *testing.T) {
	g := grid{
		Header: []string{"a", "label"},
		Rows:   [][]string{{"x", strings.Repeat("w", 100)}},
	}
	widths := g.columnWidths()
	assert.Equal(t, float32(minColumnWidth), widths[0])
	assert.Equal(t, float32(maxColumnWidth), widths[1])
}

func TestTruncateCell(t *testing.T) {
	assert.Equal(t, "short", truncateCell("short", 10))
	assert.Equal(t, "記録...", truncateCell("記録記録", 2))
}

func TestConfigSummary(t *testing.T) {
	cfg := agreement.DefaultConfig()
	summary := configSummary(cfg)
	assert.Contains(t, summary, "Annotators: (none)")
	assert.Contains(t, summary, "CIM=CAR|LIM")
	assert.Contains(t, summary, "Archive: OFF")
}

// ── text ──

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, splitList(" A, B\nC,,A "))
	assert.Equal(t, []string{"LIM"}, splitList("ＬＩＭ"))
	assert.Nil(t, splitList(" , \n"))
}

// ── log sink ──

func TestLogSink(t *testing.T) {
	var calls atomic.Int32
	sink := newLogSink(2, func() { calls.Add(1) })

	_, err := sink.Write([]byte("one\r\ntwo\n"))
	require.NoError(t, err)
	_, err = sink.Write([]byte("three\n"))
	require.NoError(t, err)

	assert.Equal(t, "two\nthree", sink.String())
	assert.Equal(t, int32(2), calls.Load())
}
