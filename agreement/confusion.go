package agreement

import (
	"fmt"
	"math"
	"strconv"
)

// StatsColumns is the header of a confusion-matrix metrics file.
var StatsColumns = []string{"label", "p", "n", "tp", "tn", "fp", "fn", "accuracy", "precision", "recall", "specificity", "f1"}

// ComputeConfusion counts agreement between paired indicator sequences and
// derives the metrics. Pairs where either side is missing are not counted.
//
// Precision and recall are NaN on a zero denominator while specificity is 0;
// result files depend on that difference.
func ComputeConfusion(label string, truth, pred []Binary) (ConfusionStats, error) {
	if len(truth) != len(pred) {
		return ConfusionStats{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(truth), len(pred))
	}
	s := ConfusionStats{Label: label}
	for i := range truth {
		t, p := truth[i], pred[i]
		if t == BinaryMissing || p == BinaryMissing {
			continue
		}
		switch {
		case t == BinaryPositive && p == BinaryPositive:
			s.TP++
		case t == BinaryNegative && p == BinaryNegative:
			s.TN++
		case t == BinaryNegative && p == BinaryPositive:
			s.FP++
		default:
			s.FN++
		}
	}
	s.Precision = nanRatio(s.TP, s.TP+s.FP)
	s.Recall = nanRatio(s.TP, s.TP+s.FN)
	s.Specificity = ratio(s.TN, s.TN+s.FP)
	s.Accuracy = nanRatio(s.TP+s.TN, s.Total())
	s.F1 = math.NaN()
	if sum := s.Precision + s.Recall; !math.IsNaN(sum) && sum > 0 {
		s.F1 = 2 * s.Precision * s.Recall / sum
	}
	return s, nil
}

// CalcStats computes confusion metrics for each label from the indicator
// columns <label> (truth) and <label>:machine (prediction).
func CalcStats(t *Table, labels []string) ([]ConfusionStats, error) {
	out := make([]ConfusionStats, 0, len(labels))
	for _, label := range labels {
		truthColumn, predColumn := GroundTruth(label).String(), Machine(label).String()
		if err := t.Require(truthColumn, predColumn); err != nil {
			return nil, err
		}
		truth, err := binaryColumn(t, truthColumn)
		if err != nil {
			return nil, err
		}
		pred, err := binaryColumn(t, predColumn)
		if err != nil {
			return nil, err
		}
		s, err := ComputeConfusion(label, truth, pred)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// StatsTable renders confusion metrics as a result table.
func StatsTable(stats []ConfusionStats) *Table {
	t := mustTable(StatsColumns...)
	for i, s := range stats {
		_ = t.Append(strconv.Itoa(i),
			s.Label, strconv.Itoa(s.Positives()), strconv.Itoa(s.Negatives()),
			strconv.Itoa(s.TP), strconv.Itoa(s.TN), strconv.Itoa(s.FP), strconv.Itoa(s.FN),
			FormatFloat(s.Accuracy), FormatFloat(s.Precision), FormatFloat(s.Recall),
			FormatFloat(s.Specificity), FormatFloat(s.F1))
	}
	return t
}

func binaryColumn(t *Table, column string) ([]Binary, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	out := make([]Binary, len(cells))
	for i, cell := range cells {
		if out[i], err = ParseBinary(cell); err != nil {
			return nil, fmt.Errorf("%s row %s: %w", column, t.Index(i), err)
		}
	}
	return out, nil
}

func nanRatio(num, den int) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}
