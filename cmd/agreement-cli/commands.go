package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"yashubustudio/agreement/agreement"
	"yashubustudio/agreement/internal/config"
)

func commands() []command {
	return []command{
		{name: "kappa", summary: "Pairwise Cohen's kappa over a token-level annotation file", setup: kappaCommand},
		{name: "note-kappa", summary: "Note-level agreement with precision, recall, specificity and F1", setup: noteKappaCommand},
		{name: "stats", summary: "Human versus machine confusion metrics per category", setup: statsCommand},
		{name: "merge-notes", summary: "Merge per-category note label files (CODE=path ...)", setup: mergeCommand("merge-notes")},
		{name: "merge-tokens", summary: "Merge per-category token label files (CODE=path ...)", setup: mergeCommand("merge-tokens")},
		{name: "convert", summary: "Convert tagger output to a token table", setup: convertCommand},
		{name: "note-labels", summary: "Collapse a token table to note-level indicators", setup: noteLabelsCommand},
		{name: "count-tokens", summary: "Count predicted tokens per category", setup: countTokensCommand},
		{name: "note-lengths", summary: "Tokens per note: mean and quartiles", setup: noteLengthsCommand},
		{name: "shorten", summary: "Drop rows no annotator labeled", setup: shortenCommand},
		{name: "unreviewed", summary: "List notes only one annotator reviewed", setup: unreviewedCommand},
		{name: "concat", summary: "Concatenate annotation exports with their annotators", setup: concatCommand},
		{name: "append-export", summary: "Append one new export to a compiled annotation file", setup: appendExportCommand},
		{name: "annotated-notes", summary: "Keep the notes referenced by an annotation file", setup: annotatedNotesCommand},
		{name: "merge-raw", summary: "Join merged note labels onto the raw notes", setup: mergeRawCommand},
		{name: "verify", summary: "Check every annotation matches exactly one note", setup: verifyCommand},
		{name: "history", summary: "Show archived runs", setup: historyCommand},
		{name: "init-config", summary: "Write the effective configuration to a file", setup: initConfigCommand},
	}
}

func kappaCommand(fs *flag.FlagSet) runner {
	input := fs.String("input", "", "Token-level annotation CSV")
	output := fs.String("output", "", "Result CSV (default uses --output-dir/kappa_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("input", *input); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "kappa")
		if err != nil {
			return err
		}
		results, err := env.service.TokenKappa(ctx, *input, path)
		if err != nil {
			return err
		}
		return env.report(path, agreement.KappaTable(results))
	}
}

func noteKappaCommand(fs *flag.FlagSet) runner {
	input := fs.String("input", "", "Note-level label CSV")
	output := fs.String("output", "", "Result CSV (default uses --output-dir/note_kappa_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("input", *input); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "note_kappa")
		if err != nil {
			return err
		}
		results, err := env.service.NoteKappa(ctx, *input, path)
		if err != nil {
			return err
		}
		return env.report(path, agreement.AgreementTable(results))
	}
}

func statsCommand(fs *flag.FlagSet) runner {
	input := fs.String("input", "", "Merged label CSV with <code> and <code>:machine columns")
	output := fs.String("output", "", "Result CSV (default uses --output-dir/stats_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("input", *input); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "stats")
		if err != nil {
			return err
		}
		stats, err := env.service.Stats(ctx, *input, path)
		if err != nil {
			return err
		}
		return env.report(path, agreement.StatsTable(stats))
	}
}

func mergeCommand(name string) func(fs *flag.FlagSet) runner {
	return func(fs *flag.FlagSet) runner {
		output := fs.String("output", "", "Merged CSV (default uses --output-dir/"+name+"_*.csv)")
		return func(ctx context.Context, env *cliEnv, args []string) error {
			if len(args) == 0 {
				return errors.New("no input files given")
			}
			inputs := make([]agreement.LabeledPath, 0, len(args))
			for _, arg := range args {
				p, err := agreement.ParseLabeledPath(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, p)
			}
			path, err := env.outputPath(*output, name)
			if err != nil {
				return err
			}
			merge := env.service.MergeNotes
			if name == "merge-tokens" {
				merge = env.service.MergeTokens
			}
			merged, err := merge(ctx, inputs, path)
			if err != nil {
				return err
			}
			return env.report(path, merged)
		}
	}
}

func convertCommand(fs *flag.FlagSet) runner {
	input := fs.String("input", "", "Space separated tagger output")
	output := fs.String("output", "", "Token CSV (default uses --output-dir/tokens_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("input", *input); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "tokens")
		if err != nil {
			return err
		}
		t, err := env.service.Convert(ctx, *input, path)
		if err != nil {
			return err
		}
		return env.report(path, t)
	}
}

func noteLabelsCommand(fs *flag.FlagSet) runner {
	input := fs.String("input", "", "Token CSV produced by convert")
	code := fs.String("code", "", "Category code to extract")
	output := fs.String("output", "", "Note label CSV (default uses --output-dir/<code>_notes_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("input", *input); err != nil {
			return err
		}
		if err := required("code", *code); err != nil {
			return err
		}
		path, err := env.outputPath(*output, *code+"_notes")
		if err != nil {
			return err
		}
		t, err := env.service.NoteLabels(ctx, *input, *code, path)
		if err != nil {
			return err
		}
		return env.report(path, t)
	}
}

func countTokensCommand(fs *flag.FlagSet) runner {
	dir := fs.String("dir", "", "Directory holding <CODE>"+agreement.DeploySuffix+" token tables")
	outDir := fs.String("out-dir", "", "Directory for frequency files (default: --output-dir)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("dir", *dir); err != nil {
			return err
		}
		target := *outDir
		if target == "" {
			target = env.service.Config().OutputDir
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		counts, err := env.service.CountTokens(ctx, *dir, target)
		if err != nil {
			return err
		}
		return env.report(target, agreement.TokenCountTable(counts))
	}
}

func noteLengthsCommand(fs *flag.FlagSet) runner {
	input := fs.String("input", "", "Token CSV produced by convert")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("input", *input); err != nil {
			return err
		}
		stats, err := env.service.NoteLengths(ctx, *input)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.out, renderRows(
			[]string{"notes", "mean", "q25", "q75"},
			[][]string{{strconv.Itoa(stats.Notes), agreement.FormatFloat(stats.Mean), agreement.FormatFloat(stats.Q25), agreement.FormatFloat(stats.Q75)}},
		))
		return nil
	}
}

func shortenCommand(fs *flag.FlagSet) runner {
	input := fs.String("input", "", "Raw annotation CSV")
	output := fs.String("output", "", "Shortened CSV (default uses --output-dir/shortened_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("input", *input); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "shortened")
		if err != nil {
			return err
		}
		t, err := env.service.Shorten(ctx, *input, path)
		if err != nil {
			return err
		}
		return env.report(path, t)
	}
}

func unreviewedCommand(fs *flag.FlagSet) runner {
	annotations := fs.String("annotations", "", "Concatenated annotation CSV")
	notes := fs.String("notes", "", "Note CSV with "+agreement.NoteIDColumn)
	keep := fs.String("keep", "", "Comma separated output columns (default: all)")
	output := fs.String("output", "", "Result CSV (default uses --output-dir/unreviewed_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("annotations", *annotations); err != nil {
			return err
		}
		if err := required("notes", *notes); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "unreviewed")
		if err != nil {
			return err
		}
		t, err := env.service.Unreviewed(ctx, *annotations, *notes, path, splitList(*keep))
		if err != nil {
			return err
		}
		return env.report(path, t)
	}
}

func concatCommand(fs *flag.FlagSet) runner {
	dir := fs.String("dir", "", "Directory of annotation exports")
	operators := fs.String("operators", "", "CSV mapping Filename to Annotator")
	headers := fs.String("headers", "", "Comma separated output columns (default: first export's columns)")
	output := fs.String("output", "", "Result CSV (default uses --output-dir/annotations_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("dir", *dir); err != nil {
			return err
		}
		if err := required("operators", *operators); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "annotations")
		if err != nil {
			return err
		}
		t, err := env.service.Concat(ctx, *dir, *operators, path, splitList(*headers))
		if err != nil {
			return err
		}
		return env.report(path, t)
	}
}

func appendExportCommand(fs *flag.FlagSet) runner {
	annotations := fs.String("annotations", "", "Compiled annotation CSV")
	export := fs.String("export", "", "New annotation export CSV")
	operator := fs.String("operator", "", "Annotator of the new export")
	headers := fs.String("headers", "", "Comma separated output columns (default: all)")
	output := fs.String("output", "", "Result CSV (default uses --output-dir/annotations_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		for _, f := range []struct{ name, value string }{{"annotations", *annotations}, {"export", *export}, {"operator", *operator}} {
			if err := required(f.name, f.value); err != nil {
				return err
			}
		}
		path, err := env.outputPath(*output, "annotations")
		if err != nil {
			return err
		}
		t, err := env.service.AppendExport(ctx, *annotations, *export, *operator, path, splitList(*headers))
		if err != nil {
			return err
		}
		return env.report(path, t)
	}
}

func annotatedNotesCommand(fs *flag.FlagSet) runner {
	notes := fs.String("notes", "", "Note CSV with "+agreement.NoteIDColumn)
	annotations := fs.String("annotations", "", "Annotation CSV with "+agreement.NoteIDColumn)
	output := fs.String("output", "", "Result CSV (default uses --output-dir/annotated_notes_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("notes", *notes); err != nil {
			return err
		}
		if err := required("annotations", *annotations); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "annotated_notes")
		if err != nil {
			return err
		}
		t, err := env.service.AnnotatedNotes(ctx, *notes, *annotations, path)
		if err != nil {
			return err
		}
		return env.report(path, t)
	}
}

func mergeRawCommand(fs *flag.FlagSet) runner {
	notes := fs.String("notes", "", "Raw note CSV with "+agreement.NoteIDColumn)
	labels := fs.String("labels", "", "Merged note label CSV with note_name")
	output := fs.String("output", "", "Result CSV (default uses --output-dir/raw_labels_*.csv)")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("notes", *notes); err != nil {
			return err
		}
		if err := required("labels", *labels); err != nil {
			return err
		}
		path, err := env.outputPath(*output, "raw_labels")
		if err != nil {
			return err
		}
		t, err := env.service.MergeToRaw(ctx, *notes, *labels, path)
		if err != nil {
			return err
		}
		return env.report(path, t)
	}
}

func verifyCommand(fs *flag.FlagSet) runner {
	notes := fs.String("notes", "", "Note CSV with "+agreement.NoteIDColumn)
	annotations := fs.String("annotations", "", "Annotation CSV with "+agreement.NoteIDColumn)
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if err := required("notes", *notes); err != nil {
			return err
		}
		if err := required("annotations", *annotations); err != nil {
			return err
		}
		bad, err := env.service.Verify(ctx, *notes, *annotations)
		if err != nil {
			return err
		}
		if len(bad) == 0 {
			fmt.Fprintln(env.out, "every annotation matches exactly one note")
			return nil
		}
		rows := make([][]string, len(bad))
		for i, id := range bad {
			rows[i] = []string{id}
		}
		fmt.Fprintln(env.out, renderRows([]string{agreement.NoteIDColumn}, rows))
		return fmt.Errorf("%d annotated notes do not match exactly one note", len(bad))
	}
}

func historyCommand(fs *flag.FlagSet) runner {
	limit := fs.Uint64("limit", 20, "Maximum runs to list (0 for all)")
	name := fs.String("command", "", "Only list runs of this command")
	runID := fs.String("run", "", "Show the results of one run")
	return func(ctx context.Context, env *cliEnv, _ []string) error {
		if env.archive == nil {
			return errors.New("history needs --archive or archive.dsn in the config")
		}
		if *runID != "" {
			return showRun(ctx, env, *runID)
		}
		runs, err := env.archive.ListRuns(ctx, *name, *limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.out, renderRuns(runs))
		return nil
	}
}

func showRun(ctx context.Context, env *cliEnv, id string) error {
	kappa, err := env.archive.RunKappa(ctx, id)
	if err != nil {
		return err
	}
	notes, err := env.archive.RunAgreement(ctx, id)
	if err != nil {
		return err
	}
	stats, err := env.archive.RunStats(ctx, id)
	if err != nil {
		return err
	}
	if len(kappa) == 0 && len(notes) == 0 && len(stats) == 0 {
		fmt.Fprintf(env.out, "run %s has no archived results\n", id)
		return nil
	}
	if len(kappa) > 0 {
		fmt.Fprintln(env.out, renderTable(agreement.KappaTable(kappa)))
	}
	if len(notes) > 0 {
		fmt.Fprintln(env.out, renderTable(agreement.AgreementTable(notes)))
	}
	if len(stats) > 0 {
		fmt.Fprintln(env.out, renderTable(agreement.StatsTable(stats)))
	}
	return nil
}

func initConfigCommand(fs *flag.FlagSet) runner {
	path := fs.String("path", config.DefaultConfigFile, "File to write (.yaml, .yml or .json)")
	return func(_ context.Context, env *cliEnv, _ []string) error {
		if err := config.Save(*path, env.service.Config()); err != nil {
			return err
		}
		fmt.Fprintf(env.out, "configuration saved to %s\n", *path)
		return nil
	}
}
