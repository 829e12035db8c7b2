package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"yashubustudio/agreement/agreement"
	"yashubustudio/agreement/internal/logger"
	"yashubustudio/agreement/migrations"
)

// Run is an archived run without its result rows.
type Run struct {
	ID         string
	Command    string
	Inputs     []string
	Output     string
	Rows       int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Archive keeps a history of runs and their results in sqlite. It implements
// agreement.Recorder.
type Archive struct {
	db     *DB
	logger *logger.Logger
}

var _ agreement.Recorder = (*Archive)(nil)

// Open connects to the sqlite archive at dsn and applies pending migrations.
func Open(ctx context.Context, dsn string, log *logger.Logger) (*Archive, error) {
	if log == nil {
		log = logger.Nop()
	}
	db, err := NewConnectSQLite(ctx, dsn, log)
	if err != nil {
		return nil, err
	}
	if err := migrations.Migrate(db.DB, log); err != nil {
		log.Err(err).Str("func", "store.Open").Msg("error migrating archive")
		db.Close()
		return nil, err
	}
	return &Archive{db: db, logger: log}, nil
}

// NewArchive wraps an already migrated connection.
func NewArchive(conn *sql.DB, log *logger.Logger) *Archive {
	if log == nil {
		log = logger.Nop()
	}
	return &Archive{db: &DB{DB: conn, logger: log}, logger: log}
}

// Close releases the connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// RecordRun stores the run and its result rows in one transaction.
func (a *Archive) RecordRun(ctx context.Context, run agreement.RunRecord) (string, error) {
	id := uuid.NewString()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		a.logger.Err(err).Str("func", "Archive.RecordRun").Msg("error starting transaction")
		return "", err
	}
	defer tx.Rollback()

	query, args, err := buildInsertRunQuery(id, run)
	if err != nil {
		return "", err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		a.logger.Err(err).Str("func", "Archive.RecordRun").Msg("error inserting run")
		return "", err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrRunNotSaved
	}

	var builders []func() (string, []any, error)
	if len(run.Kappa) > 0 {
		builders = append(builders, func() (string, []any, error) { return buildInsertKappaQuery(id, run.Kappa) })
	}
	if len(run.Agreement) > 0 {
		builders = append(builders, func() (string, []any, error) { return buildInsertAgreementQuery(id, run.Agreement) })
	}
	if len(run.Stats) > 0 {
		builders = append(builders, func() (string, []any, error) { return buildInsertMetricsQuery(id, run.Stats) })
	}
	for _, build := range builders {
		query, args, err := build()
		if err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			a.logger.Err(err).Str("func", "Archive.RecordRun").Msg("error inserting results")
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		a.logger.Err(err).Str("func", "Archive.RecordRun").Msg("error committing run")
		return "", err
	}
	return id, nil
}

// ListRuns returns archived runs newest first, optionally filtered by
// command. A zero limit returns every run.
func (a *Archive) ListRuns(ctx context.Context, command string, limit uint64) ([]Run, error) {
	query, args, err := buildListRunsQuery(command, limit)
	if err != nil {
		return nil, err
	}
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		a.logger.Err(err).Str("func", "Archive.ListRuns").Msg("error listing runs")
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r      Run
			inputs string
		)
		if err := rows.Scan(&r.ID, &r.Command, &inputs, &r.Output, &r.Rows, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		if inputs != "" {
			if err := json.Unmarshal([]byte(inputs), &r.Inputs); err != nil {
				return nil, fmt.Errorf("run %s inputs: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunKappa returns the kappa rows of one run. Missing values come back as NaN.
func (a *Archive) RunKappa(ctx context.Context, runID string) ([]agreement.KappaResult, error) {
	query, args, err := buildSelectKappaQuery(runID)
	if err != nil {
		return nil, err
	}
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		a.logger.Err(err).Str("func", "Archive.RunKappa").Msg("error selecting kappa results")
		return nil, err
	}
	defer rows.Close()

	var out []agreement.KappaResult
	for rows.Next() {
		var (
			r     agreement.KappaResult
			kappa sql.NullFloat64
		)
		if err := rows.Scan(&r.Op1, &r.Op2, &r.Label, &r.NumOverlap, &kappa, &r.Op1Count, &r.Op2Count); err != nil {
			return nil, err
		}
		r.Kappa = floatOrNaN(kappa)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunAgreement returns the note agreement rows of one run. Missing values come
// back as NaN.
func (a *Archive) RunAgreement(ctx context.Context, runID string) ([]agreement.AgreementResult, error) {
	query, args, err := buildSelectAgreementQuery(runID)
	if err != nil {
		return nil, err
	}
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		a.logger.Err(err).Str("func", "Archive.RunAgreement").Msg("error selecting agreement results")
		return nil, err
	}
	defer rows.Close()

	var out []agreement.AgreementResult
	for rows.Next() {
		var (
			r                                      agreement.AgreementResult
			kappa, prec, rec, specificity, f1Score sql.NullFloat64
		)
		if err := rows.Scan(&r.Truth, &r.Pred, &r.Label, &r.NumOverlap, &kappa,
			&prec, &rec, &specificity, &f1Score, &r.Op1Count, &r.Op2Count); err != nil {
			return nil, err
		}
		r.Kappa, r.Precision, r.Recall = floatOrNaN(kappa), floatOrNaN(prec), floatOrNaN(rec)
		r.Specificity, r.F1 = floatOrNaN(specificity), floatOrNaN(f1Score)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunStats returns the confusion metrics of one run.
func (a *Archive) RunStats(ctx context.Context, runID string) ([]agreement.ConfusionStats, error) {
	query, args, err := buildSelectMetricsQuery(runID)
	if err != nil {
		return nil, err
	}
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		a.logger.Err(err).Str("func", "Archive.RunStats").Msg("error selecting metrics")
		return nil, err
	}
	defer rows.Close()

	var out []agreement.ConfusionStats
	for rows.Next() {
		var (
			s                                    agreement.ConfusionStats
			acc, prec, rec, specificity, f1Score sql.NullFloat64
		)
		if err := rows.Scan(&s.Label, &s.TP, &s.TN, &s.FP, &s.FN, &acc, &prec, &rec, &specificity, &f1Score); err != nil {
			return nil, err
		}
		s.Accuracy, s.Precision, s.Recall = floatOrNaN(acc), floatOrNaN(prec), floatOrNaN(rec)
		s.Specificity, s.F1 = floatOrNaN(specificity), floatOrNaN(f1Score)
		out = append(out, s)
	}
	return out, rows.Err()
}
