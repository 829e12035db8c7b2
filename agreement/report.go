package agreement

import (
	"fmt"
	"strconv"
)

// AgreementColumns is the header of a note-level agreement result file.
var AgreementColumns = []string{
	"true/y1", "pred/y2", "num_overlap", "label", "kappa",
	"precision", "recall", "specificity", "f1", "op1_count", "op2_count",
}

// Report holds per-class scores of one positive class against everything
// else, the way a classification report lists them.
type Report struct {
	Precision   float64
	Recall      float64
	Specificity float64
	F1          float64
}

// BinaryReport scores pred against truth for the positive class. Specificity
// is the recall of every other label. Zero denominators score 0.
func BinaryReport(truth, pred []string, positive string) (Report, error) {
	if len(truth) != len(pred) {
		return Report{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(truth), len(pred))
	}
	var tp, fp, fn, tn int
	for i := range truth {
		t, p := truth[i] == positive, pred[i] == positive
		switch {
		case t && p:
			tp++
		case !t && p:
			fp++
		case t && !p:
			fn++
		default:
			tn++
		}
	}
	r := Report{
		Precision:   ratio(tp, tp+fp),
		Recall:      ratio(tp, tp+fn),
		Specificity: ratio(tn, tn+fp),
	}
	if sum := r.Precision + r.Recall; sum > 0 {
		r.F1 = 2 * r.Precision * r.Recall / sum
	}
	return r, nil
}

// NoteAgreement pairs annotators like PairwiseKappa and, treating the first
// of each pair as truth, adds precision, recall, specificity and F1 per
// category.
func NoteAgreement(t *Table, cfg Config) ([]AgreementResult, error) {
	samples, err := collectPairs(t, cfg, true)
	if err != nil {
		return nil, err
	}
	var results []AgreementResult
	for _, p := range samples {
		if p.Items == 0 {
			continue
		}
		for _, code := range cfg.Categories {
			members := cfg.members(code)
			y1, y2 := presence(p.first, members, code), presence(p.second, members, code)
			kappa, err := CohenKappa(y1, y2)
			if err != nil {
				return nil, fmt.Errorf("%s/%s %s: %w", p.Op1, p.Op2, code, err)
			}
			report, err := BinaryReport(y1, y2, code)
			if err != nil {
				return nil, fmt.Errorf("%s/%s %s: %w", p.Op1, p.Op2, code, err)
			}
			results = append(results, AgreementResult{
				Truth:       p.Op1,
				Pred:        p.Op2,
				NumOverlap:  p.Items,
				Label:       code,
				Kappa:       kappa,
				Precision:   report.Precision,
				Recall:      report.Recall,
				Specificity: report.Specificity,
				F1:          report.F1,
				Op1Count:    count(y1, code),
				Op2Count:    count(y2, code),
			})
		}
	}
	return results, nil
}

// AgreementTable renders note-level agreement results as a result table.
func AgreementTable(results []AgreementResult) *Table {
	t := mustTable(AgreementColumns...)
	for i, r := range results {
		_ = t.Append(strconv.Itoa(i),
			r.Truth, r.Pred, strconv.Itoa(r.NumOverlap), r.Label, FormatFloat(r.Kappa),
			FormatFloat(r.Precision), FormatFloat(r.Recall), FormatFloat(r.Specificity), FormatFloat(r.F1),
			strconv.Itoa(r.Op1Count), strconv.Itoa(r.Op2Count))
	}
	return t
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
