package agreement

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"yashubustudio/agreement/internal/logger"
)

// RunRecord describes one completed service run for the archive.
type RunRecord struct {
	Command    string
	Inputs     []string
	Output     string
	Rows       int
	StartedAt  time.Time
	FinishedAt time.Time

	Kappa     []KappaResult
	Agreement []AgreementResult
	Stats     []ConfusionStats
}

// Recorder persists completed runs and returns the run id.
type Recorder interface {
	RecordRun(ctx context.Context, run RunRecord) (string, error)
}

// Service runs the file-based agreement workflows with a shared configuration.
type Service struct {
	cfgMu sync.RWMutex
	cfg   Config

	log      *logger.Logger
	recorder Recorder
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithRecorder archives every completed run through r.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// NewService validates cfg and returns a service logging to log.
func NewService(cfg Config, log *logger.Logger, opts ...ServiceOption) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig validates and replaces the configuration.
func (s *Service) UpdateConfig(cfg Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	return nil
}

// TokenKappa computes pairwise kappa over a token-level annotation file and
// writes the result table to output.
func (s *Service) TokenKappa(ctx context.Context, input, output string) ([]KappaResult, error) {
	run := s.start(ctx, "kappa", output, input)
	cfg := s.Config()
	t, err := ReadTable(input)
	if err != nil {
		return nil, s.fail(ctx, "Service.TokenKappa", "read annotations", err)
	}
	logSkippedPairs(run.log, t, cfg)
	results, err := PairwiseKappa(t, cfg)
	if err != nil {
		return nil, s.fail(ctx, "Service.TokenKappa", "pairwise kappa", err)
	}
	if err := s.write(output, KappaTable(results)); err != nil {
		return nil, s.fail(ctx, "Service.TokenKappa", "write results", err)
	}
	run.Rows, run.Kappa = len(results), results
	s.finish(ctx, run)
	return results, nil
}

// NoteKappa computes note-level agreement with classification metrics.
func (s *Service) NoteKappa(ctx context.Context, input, output string) ([]AgreementResult, error) {
	run := s.start(ctx, "note-kappa", output, input)
	cfg := s.Config()
	t, err := ReadTable(input)
	if err != nil {
		return nil, s.fail(ctx, "Service.NoteKappa", "read note labels", err)
	}
	logSkippedPairs(run.log, t, cfg)
	results, err := NoteAgreement(t, cfg)
	if err != nil {
		return nil, s.fail(ctx, "Service.NoteKappa", "note agreement", err)
	}
	if err := s.write(output, AgreementTable(results)); err != nil {
		return nil, s.fail(ctx, "Service.NoteKappa", "write results", err)
	}
	run.Rows, run.Agreement = len(results), results
	s.finish(ctx, run)
	return results, nil
}

// Stats computes human versus machine confusion metrics for the configured
// categories.
func (s *Service) Stats(ctx context.Context, input, output string) ([]ConfusionStats, error) {
	run := s.start(ctx, "stats", output, input)
	t, err := ReadTable(input)
	if err != nil {
		return nil, s.fail(ctx, "Service.Stats", "read labels", err)
	}
	stats, err := CalcStats(t, s.Config().Categories)
	if err != nil {
		return nil, s.fail(ctx, "Service.Stats", "confusion metrics", err)
	}
	if err := s.write(output, StatsTable(stats)); err != nil {
		return nil, s.fail(ctx, "Service.Stats", "write results", err)
	}
	run.Rows, run.Stats = len(stats), stats
	s.finish(ctx, run)
	return stats, nil
}

// MergeNotes merges per-category note label files and derives every
// configured composite.
func (s *Service) MergeNotes(ctx context.Context, inputs []LabeledPath, output string) (*Table, error) {
	return s.merge(ctx, "merge-notes", "Service.MergeNotes", inputs, output, MergeNoteLabels)
}

// MergeTokens merges per-category token label files and derives every
// configured composite.
func (s *Service) MergeTokens(ctx context.Context, inputs []LabeledPath, output string) (*Table, error) {
	return s.merge(ctx, "merge-tokens", "Service.MergeTokens", inputs, output, MergeTokenLabels)
}

func (s *Service) merge(ctx context.Context, command, fn string, inputs []LabeledPath, output string,
	mergeFn func([]LabeledTable, Composite) (*Table, error)) (*Table, error) {
	paths := make([]string, len(inputs))
	for i, in := range inputs {
		paths[i] = in.Path
	}
	run := s.start(ctx, command, output, paths...)
	cfg := s.Config()
	tables, err := ReadLabeledTables(inputs)
	if err != nil {
		return nil, s.fail(ctx, fn, "read inputs", err)
	}
	if len(cfg.Composites) == 0 {
		return nil, s.fail(ctx, fn, "merge", errors.New("no composite configured"))
	}
	merged, err := mergeFn(tables, cfg.Composites[0])
	if err != nil {
		return nil, s.fail(ctx, fn, "merge", err)
	}
	for _, comp := range cfg.Composites[1:] {
		if err := DeriveComposite(merged, comp); err != nil {
			return nil, s.fail(ctx, fn, "derive composite", err)
		}
	}
	if err := s.write(output, merged); err != nil {
		return nil, s.fail(ctx, fn, "write merged table", err)
	}
	run.Rows = merged.Len()
	s.finish(ctx, run)
	return merged, nil
}

// Convert turns tagger output into a token table.
func (s *Service) Convert(ctx context.Context, input, output string) (*Table, error) {
	run := s.start(ctx, "convert", output, input)
	f, err := os.Open(input)
	if err != nil {
		return nil, s.fail(ctx, "Service.Convert", "open tagger output", err)
	}
	defer f.Close()
	t, err := ConvertNeuroNER(f)
	if err != nil {
		return nil, s.fail(ctx, "Service.Convert", "parse tagger output", err)
	}
	if err := s.write(output, t); err != nil {
		return nil, s.fail(ctx, "Service.Convert", "write tokens", err)
	}
	run.Rows = t.Len()
	s.finish(ctx, run)
	return t, nil
}

// NoteLabels collapses a token table to note-level indicators for code.
func (s *Service) NoteLabels(ctx context.Context, input, code, output string) (*Table, error) {
	run := s.start(ctx, "note-labels", output, input)
	tokens, err := ReadTable(input)
	if err != nil {
		return nil, s.fail(ctx, "Service.NoteLabels", "read tokens", err)
	}
	notes, err := ExtractNoteLevelLabels(tokens, code)
	if err != nil {
		return nil, s.fail(ctx, "Service.NoteLabels", "extract note labels", err)
	}
	if err := s.write(output, notes); err != nil {
		return nil, s.fail(ctx, "Service.NoteLabels", "write note labels", err)
	}
	run.Rows = notes.Len()
	s.finish(ctx, run)
	return notes, nil
}

// DeploySuffix names the per-category token files CountTokens reads.
const DeploySuffix = "_deploy.csv"

// CountTokens reads <code>_deploy.csv for every configured category from
// dir and writes one frequency file per label plus a token_counts.csv
// summary to outputDir.
func (s *Service) CountTokens(ctx context.Context, dir, outputDir string) ([]TokenCount, error) {
	cfg := s.Config()
	codes := make(map[string]struct{})
	for _, label := range cfg.Categories {
		for _, m := range cfg.members(label) {
			codes[m] = struct{}{}
		}
	}
	inputs := make([]LabeledTable, 0, len(codes))
	var paths []string
	for code := range codes {
		path := filepath.Join(dir, code+DeploySuffix)
		t, err := ReadTable(path)
		if err != nil {
			return nil, s.fail(ctx, "Service.CountTokens", "read token table", err)
		}
		inputs = append(inputs, LabeledTable{Code: code, Table: t})
		paths = append(paths, path)
	}
	sort.Strings(paths)
	summary := filepath.Join(outputDir, "token_counts.csv")
	run := s.start(ctx, "count-tokens", summary, paths...)
	counts, err := CountTokensPerClass(inputs, cfg.Categories, cfg.Composites)
	if err != nil {
		return nil, s.fail(ctx, "Service.CountTokens", "count tokens", err)
	}
	for _, c := range counts {
		if err := s.write(filepath.Join(outputDir, c.Label+"_unique_tokens.csv"), FrequencyTable(c.Frequencies)); err != nil {
			return nil, s.fail(ctx, "Service.CountTokens", "write frequencies", err)
		}
	}
	if err := s.write(summary, TokenCountTable(counts)); err != nil {
		return nil, s.fail(ctx, "Service.CountTokens", "write summary", err)
	}
	run.Rows = len(counts)
	s.finish(ctx, run)
	return counts, nil
}

// NoteLengths reports token-per-note statistics of a token table.
func (s *Service) NoteLengths(ctx context.Context, input string) (NoteLengths, error) {
	run := s.start(ctx, "note-lengths", "", input)
	tokens, err := ReadTable(input)
	if err != nil {
		return NoteLengths{}, s.fail(ctx, "Service.NoteLengths", "read tokens", err)
	}
	stats, err := NoteLengthStats(tokens)
	if err != nil {
		return NoteLengths{}, s.fail(ctx, "Service.NoteLengths", "note lengths", err)
	}
	run.Rows = stats.Notes
	s.finish(ctx, run)
	return stats, nil
}

// Shorten drops annotation rows no annotator labeled.
func (s *Service) Shorten(ctx context.Context, input, output string) (*Table, error) {
	run := s.start(ctx, "shorten", output, input)
	t, err := ReadTable(input)
	if err != nil {
		return nil, s.fail(ctx, "Service.Shorten", "read annotations", err)
	}
	short, err := ShortenRawAnnotations(t, s.Config().Annotators)
	if err != nil {
		return nil, s.fail(ctx, "Service.Shorten", "shorten", err)
	}
	if err := s.write(output, short); err != nil {
		return nil, s.fail(ctx, "Service.Shorten", "write annotations", err)
	}
	run.log.Info().Int("before", t.Len()).Int("after", short.Len()).Msg("annotations shortened")
	run.Rows = short.Len()
	s.finish(ctx, run)
	return short, nil
}

// Unreviewed writes the notes only one annotator has labeled.
func (s *Service) Unreviewed(ctx context.Context, annotationsPath, notesPath, output string, keep []string) (*Table, error) {
	run := s.start(ctx, "unreviewed", output, annotationsPath, notesPath)
	annotations, err := ReadTable(annotationsPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.Unreviewed", "read annotations", err)
	}
	CleanTable(annotations, s.Config().TextColumns)
	notes, err := ReadTable(notesPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.Unreviewed", "read notes", err)
	}
	single, err := UnreviewedNotes(annotations, notes, keep)
	if err != nil {
		return nil, s.fail(ctx, "Service.Unreviewed", "unreviewed notes", err)
	}
	if err := s.write(output, single); err != nil {
		return nil, s.fail(ctx, "Service.Unreviewed", "write notes", err)
	}
	run.Rows = single.Len()
	s.finish(ctx, run)
	return single, nil
}

// Concat stacks every export in dir using the operators file to attribute
// each one.
func (s *Service) Concat(ctx context.Context, dir, operatorsPath, output string, headers []string) (*Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, s.fail(ctx, "Service.Concat", "list exports", err)
	}
	operators, err := ReadOperators(operatorsPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.Concat", "read operators", err)
	}
	var exports []Export
	var paths []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == ".DS_Store" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		t, err := ReadTable(path)
		if err != nil {
			return nil, s.fail(ctx, "Service.Concat", "read export", err)
		}
		exports = append(exports, Export{Name: e.Name(), Table: t})
		paths = append(paths, path)
		s.ctxLog(ctx).Debug().Str("file", e.Name()).Str("operator", operators[e.Name()]).Msg("export loaded")
	}
	run := s.start(ctx, "concat", output, paths...)
	total, err := ConcatAnnotations(exports, operators, s.Config().TextColumns, headers)
	if err != nil {
		return nil, s.fail(ctx, "Service.Concat", "concatenate", err)
	}
	if err := s.write(output, total); err != nil {
		return nil, s.fail(ctx, "Service.Concat", "write annotations", err)
	}
	run.Rows = total.Len()
	s.finish(ctx, run)
	return total, nil
}

// AppendExport adds one new export, labeled by operator, to a compiled
// annotation file.
func (s *Service) AppendExport(ctx context.Context, compiledPath, exportPath, operator, output string, headers []string) (*Table, error) {
	run := s.start(ctx, "append-export", output, compiledPath, exportPath)
	compiled, err := ReadTable(compiledPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.AppendExport", "read compiled annotations", err)
	}
	export, err := ReadTable(exportPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.AppendExport", "read export", err)
	}
	ex := Export{Name: filepath.Base(exportPath), Table: export}
	total, err := AppendAnnotations(compiled, ex, operator, s.Config().TextColumns, headers)
	if err != nil {
		return nil, s.fail(ctx, "Service.AppendExport", "append export", err)
	}
	if err := s.write(output, total); err != nil {
		return nil, s.fail(ctx, "Service.AppendExport", "write annotations", err)
	}
	if ids, err := total.Unique(NoteIDColumn); err == nil {
		run.log.Info().Int("notes", len(ids)).Str("operator", operator).Msg("export appended")
	}
	run.Rows = total.Len()
	s.finish(ctx, run)
	return total, nil
}

// AnnotatedNotes writes the notes referenced by the annotation file.
func (s *Service) AnnotatedNotes(ctx context.Context, notesPath, annotationsPath, output string) (*Table, error) {
	run := s.start(ctx, "annotated-notes", output, notesPath, annotationsPath)
	notes, err := ReadTable(notesPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.AnnotatedNotes", "read notes", err)
	}
	annotations, err := ReadTable(annotationsPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.AnnotatedNotes", "read annotations", err)
	}
	out, err := AnnotatedNotes(notes, annotations)
	if err != nil {
		return nil, s.fail(ctx, "Service.AnnotatedNotes", "select notes", err)
	}
	if err := s.write(output, out); err != nil {
		return nil, s.fail(ctx, "Service.AnnotatedNotes", "write notes", err)
	}
	run.Rows = out.Len()
	s.finish(ctx, run)
	return out, nil
}

// MergeToRaw joins merged note labels back onto the raw notes.
func (s *Service) MergeToRaw(ctx context.Context, notesPath, labelsPath, output string) (*Table, error) {
	run := s.start(ctx, "merge-raw", output, notesPath, labelsPath)
	notes, err := ReadTable(notesPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.MergeToRaw", "read notes", err)
	}
	labels, err := ReadTable(labelsPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.MergeToRaw", "read labels", err)
	}
	out, err := MergeToRaw(notes, labels)
	if err != nil {
		return nil, s.fail(ctx, "Service.MergeToRaw", "join labels", err)
	}
	if err := s.write(output, out); err != nil {
		return nil, s.fail(ctx, "Service.MergeToRaw", "write notes", err)
	}
	run.log.Info().Int("notes", notes.Len()).Int("joined", out.Len()).Msg("labels joined to notes")
	run.Rows = out.Len()
	s.finish(ctx, run)
	return out, nil
}

// Verify returns the annotation note ids that do not match exactly one note.
func (s *Service) Verify(ctx context.Context, notesPath, annotationsPath string) ([]string, error) {
	run := s.start(ctx, "verify", "", notesPath, annotationsPath)
	notes, err := ReadTable(notesPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.Verify", "read notes", err)
	}
	annotations, err := ReadTable(annotationsPath)
	if err != nil {
		return nil, s.fail(ctx, "Service.Verify", "read annotations", err)
	}
	bad, err := VerifyNotesMatch(notes, annotations)
	if err != nil {
		return nil, s.fail(ctx, "Service.Verify", "verify", err)
	}
	if len(bad) > 0 {
		run.log.Warn().Strs("notes", bad).Msg("annotations without exactly one matching note")
	}
	run.Rows = len(bad)
	s.finish(ctx, run)
	return bad, nil
}

func logSkippedPairs(log *logger.Logger, t *Table, cfg Config) {
	overlaps, err := Overlaps(t, cfg)
	if err != nil {
		return
	}
	for _, o := range overlaps {
		if o.Items == 0 {
			log.Debug().Str("op1", o.Op1).Str("op2", o.Op2).Msg("no shared items, pair skipped")
		}
	}
}

// activeRun is a run in progress with its command-tagged logger.
type activeRun struct {
	RunRecord
	log *logger.Logger
}

// ctxLog returns the logger attached to ctx, or the service logger when ctx
// carries none.
func (s *Service) ctxLog(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.log
}

func (s *Service) start(ctx context.Context, command, output string, inputs ...string) *activeRun {
	log := s.ctxLog(ctx).GetChildLogger()
	log.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("command", command)
	})
	log.Info().Strs("inputs", inputs).Msg("run started")
	return &activeRun{
		RunRecord: RunRecord{Command: command, Inputs: inputs, Output: output, StartedAt: time.Now().UTC()},
		log:       log,
	}
}

// finish logs the run and archives it. An archive failure is logged and
// does not fail the run; its output is already written.
func (s *Service) finish(ctx context.Context, run *activeRun) {
	run.FinishedAt = time.Now().UTC()
	run.log.Info().
		Str("output", run.Output).
		Int("rows", run.Rows).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("run finished")
	if s.recorder == nil {
		return
	}
	id, err := s.recorder.RecordRun(ctx, run.RunRecord)
	if err != nil {
		run.log.Err(err).Str("func", "Service.finish").Msg("failed to archive run")
		return
	}
	run.log.Debug().Str("run_id", id).Msg("run archived")
}

func (s *Service) write(path string, t *Table) error {
	if path == "" {
		return nil
	}
	return WriteTable(path, t)
}

func (s *Service) fail(ctx context.Context, fn, msg string, err error) error {
	s.ctxLog(ctx).Err(err).Str("func", fn).Msg(msg)
	return fmt.Errorf("%s: %w", msg, err)
}
