package app

import (
	"context"
	"strconv"

	"yashubustudio/agreement/agreement"
)

// analysis is one workflow the viewer can run against a single input file.
type analysis struct {
	Label string
	Hint  string
	Run   func(ctx context.Context, svc *agreement.Service, input string) (*agreement.Table, error)
}

var analyses = []analysis{
	{
		Label: "Token kappa",
		Hint:  "annotation CSV with one column per annotator",
		Run: func(ctx context.Context, svc *agreement.Service, input string) (*agreement.Table, error) {
			results, err := svc.TokenKappa(ctx, input, "")
			if err != nil {
				return nil, err
			}
			return agreement.KappaTable(results), nil
		},
	},
	{
		Label: "Note agreement",
		Hint:  "note label CSV with one column per annotator",
		Run: func(ctx context.Context, svc *agreement.Service, input string) (*agreement.Table, error) {
			results, err := svc.NoteKappa(ctx, input, "")
			if err != nil {
				return nil, err
			}
			return agreement.AgreementTable(results), nil
		},
	},
	{
		Label: "Machine metrics",
		Hint:  "merged CSV with <code> and <code>:machine columns",
		Run: func(ctx context.Context, svc *agreement.Service, input string) (*agreement.Table, error) {
			stats, err := svc.Stats(ctx, input, "")
			if err != nil {
				return nil, err
			}
			return agreement.StatsTable(stats), nil
		},
	},
	{
		Label: "Note lengths",
		Hint:  "token CSV produced by convert",
		Run: func(ctx context.Context, svc *agreement.Service, input string) (*agreement.Table, error) {
			stats, err := svc.NoteLengths(ctx, input)
			if err != nil {
				return nil, err
			}
			t, err := agreement.NewTable("notes", "mean", "q25", "q75")
			if err != nil {
				return nil, err
			}
			err = t.Append("0", strconv.Itoa(stats.Notes),
				agreement.FormatFloat(stats.Mean), agreement.FormatFloat(stats.Q25), agreement.FormatFloat(stats.Q75))
			return t, err
		},
	},
	{
		Label: "Shorten annotations",
		Hint:  "raw annotation CSV",
		Run: func(ctx context.Context, svc *agreement.Service, input string) (*agreement.Table, error) {
			return svc.Shorten(ctx, input, "")
		},
	},
}

func analysisLabels() []string {
	out := make([]string, len(analyses))
	for i, a := range analyses {
		out[i] = a.Label
	}
	return out
}

func findAnalysis(label string) (analysis, bool) {
	for _, a := range analyses {
		if a.Label == label {
			return a, true
		}
	}
	return analysis{}, false
}
