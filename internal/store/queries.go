package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"

	"yashubustudio/agreement/agreement"
)

var runColumns = []string{"id", "command", "inputs", "output", "row_count", "started_at", "finished_at"}

func buildInsertRunQuery(id string, run agreement.RunRecord) (string, []any, error) {
	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return wrapBuild(sq.Insert("runs").
		Columns(runColumns...).
		Values(id, run.Command, string(inputs), run.Output, run.Rows, run.StartedAt.UTC(), run.FinishedAt.UTC()).
		ToSql())
}

func buildInsertKappaQuery(runID string, results []agreement.KappaResult) (string, []any, error) {
	q := sq.Insert("kappa_results").
		Columns("run_id", "op1", "op2", "label", "num_overlap", "kappa", "op1_count", "op2_count")
	for _, r := range results {
		q = q.Values(runID, r.Op1, r.Op2, r.Label, r.NumOverlap, nullFloat(r.Kappa), r.Op1Count, r.Op2Count)
	}
	return wrapBuild(q.ToSql())
}

func buildInsertAgreementQuery(runID string, results []agreement.AgreementResult) (string, []any, error) {
	q := sq.Insert("agreement_results").
		Columns("run_id", "truth", "pred", "label", "num_overlap", "kappa",
			"precision", "recall", "specificity", "f1", "op1_count", "op2_count")
	for _, r := range results {
		q = q.Values(runID, r.Truth, r.Pred, r.Label, r.NumOverlap, nullFloat(r.Kappa),
			nullFloat(r.Precision), nullFloat(r.Recall), nullFloat(r.Specificity), nullFloat(r.F1),
			r.Op1Count, r.Op2Count)
	}
	return wrapBuild(q.ToSql())
}

func buildInsertMetricsQuery(runID string, stats []agreement.ConfusionStats) (string, []any, error) {
	q := sq.Insert("metric_results").
		Columns("run_id", "label", "tp", "tn", "fp", "fn",
			"accuracy", "precision", "recall", "specificity", "f1")
	for _, s := range stats {
		q = q.Values(runID, s.Label, s.TP, s.TN, s.FP, s.FN,
			nullFloat(s.Accuracy), nullFloat(s.Precision), nullFloat(s.Recall),
			nullFloat(s.Specificity), nullFloat(s.F1))
	}
	return wrapBuild(q.ToSql())
}

// buildListRunsQuery selects runs newest first. A zero limit returns all.
func buildListRunsQuery(command string, limit uint64) (string, []any, error) {
	q := sq.Select(runColumns...).From("runs").OrderBy("started_at DESC")
	if command != "" {
		q = q.Where(sq.Eq{"command": command})
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return wrapBuild(q.ToSql())
}

func buildSelectKappaQuery(runID string) (string, []any, error) {
	return wrapBuild(sq.Select("op1", "op2", "label", "num_overlap", "kappa", "op1_count", "op2_count").
		From("kappa_results").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("rowid").
		ToSql())
}

func buildSelectAgreementQuery(runID string) (string, []any, error) {
	return wrapBuild(sq.Select("truth", "pred", "label", "num_overlap", "kappa",
		"precision", "recall", "specificity", "f1", "op1_count", "op2_count").
		From("agreement_results").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("rowid").
		ToSql())
}

func buildSelectMetricsQuery(runID string) (string, []any, error) {
	return wrapBuild(sq.Select("label", "tp", "tn", "fp", "fn",
		"accuracy", "precision", "recall", "specificity", "f1").
		From("metric_results").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("rowid").
		ToSql())
}

func wrapBuild(query string, args []any, err error) (string, []any, error) {
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	return query, args, nil
}

// nullFloat stores NaN as NULL.
func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func floatOrNaN(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
