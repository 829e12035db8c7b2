package store

import (
	"database/sql"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/agreement/agreement"
)

func Test_buildInsertRunQuery(t *testing.T) {
	query, args, err := buildInsertRunQuery("id-1", agreement.RunRecord{Command: "stats", Inputs: []string{"x.csv"}, Rows: 3})
	require.NoError(t, err)

	q := strings.ToLower(query)
	require.Contains(t, q, "insert into runs")
	for _, c := range runColumns {
		require.Contains(t, q, c)
	}
	require.Len(t, args, len(runColumns))
	assert.Equal(t, "id-1", args[0])
	assert.Equal(t, `["x.csv"]`, args[2])
	assert.Equal(t, 3, args[4])
}

func Test_buildInsertKappaQuery_OneValueSetPerResult(t *testing.T) {
	results := []agreement.KappaResult{
		{Op1: "A", Op2: "B", Label: "LIM", Kappa: 0.25},
		{Op1: "A", Op2: "C", Label: "LIM", Kappa: math.NaN()},
	}
	query, args, err := buildInsertKappaQuery("run", results)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(query, "(?,?,?,?,?,?,?,?)"))
	require.Len(t, args, 16)
	assert.Equal(t, sql.NullFloat64{Float64: 0.25, Valid: true}, args[5])
	assert.Equal(t, sql.NullFloat64{}, args[13])
}

func Test_buildInsertQuery_Empty(t *testing.T) {
	_, _, err := buildInsertMetricsQuery("run", nil)
	require.ErrorIs(t, err, ErrBuildingSQLQuery)
}

func Test_buildListRunsQuery(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		limit     uint64
		contains  []string
		forbidden []string
		args      int
	}{
		{name: "all", forbidden: []string{"WHERE", "LIMIT"}},
		{name: "limited", limit: 5, contains: []string{"LIMIT 5"}, forbidden: []string{"WHERE"}},
		{name: "by command", command: "kappa", contains: []string{"WHERE command = ?"}, args: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildListRunsQuery(tt.command, tt.limit)
			require.NoError(t, err)
			require.Contains(t, query, "FROM runs")
			require.Contains(t, query, "ORDER BY started_at DESC")
			for _, s := range tt.contains {
				assert.Contains(t, query, s)
			}
			for _, s := range tt.forbidden {
				assert.NotContains(t, query, s)
			}
			assert.Len(t, args, tt.args)
		})
	}
}

func Test_buildSelectResultQueries(t *testing.T) {
	tests := []struct {
		name  string
		build func(string) (string, []any, error)
		table string
	}{
		{name: "kappa", build: buildSelectKappaQuery, table: "kappa_results"},
		{name: "agreement", build: buildSelectAgreementQuery, table: "agreement_results"},
		{name: "metrics", build: buildSelectMetricsQuery, table: "metric_results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := tt.build("run-1")
			require.NoError(t, err)
			assert.Contains(t, query, "FROM "+tt.table)
			assert.Contains(t, query, "WHERE run_id = ?")
			assert.Contains(t, query, "ORDER BY rowid")
			assert.Equal(t, []any{"run-1"}, args)
		})
	}
}

func Test_nullFloat(t *testing.T) {
	assert.False(t, nullFloat(math.NaN()).Valid)
	assert.True(t, nullFloat(0).Valid)
	assert.True(t, math.IsNaN(floatOrNaN(sql.NullFloat64{})))
	assert.Equal(t, 0.5, floatOrNaN(sql.NullFloat64{Float64: 0.5, Valid: true}))
}
