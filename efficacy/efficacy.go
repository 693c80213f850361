// Package efficacy scores the two lineages' trained models against the shared
// held-out labels and renders side-by-side metric reports.
//
// Classification metrics are computed over jointly one-hot-expanded labels:
// the class vocabulary is the union of the true and both predicted label
// sets, so prior, post, and truth always index classes identically. Binary
// targets report the positive class only; multiclass targets report every
// class for both lineages.
package efficacy

import (
	"math"
	"sort"
)

// Lineage names in report rows.
const (
	LineagePrior = "prior"
	LineagePost  = "post"
)

// Task discriminates the two report kinds.
type Task int

const (
	TaskRegression Task = iota
	TaskClassification
)

func (t Task) String() string {
	if t == TaskRegression {
		return "regression"
	}
	return "classification"
}

// Report is the outcome of one efficacy comparison. Exactly one of Regression
// and Classification is populated, selected by Task.
type Report struct {
	Task           Task                  `json:"task"`
	Regression     *RegressionReport     `json:"regression,omitempty"`
	Classification *ClassificationReport `json:"classification,omitempty"`
}

// RegressionRow is one lineage's scores against the shared test labels.
type RegressionRow struct {
	Lineage string  `json:"lineage"`
	RMSE    float64 `json:"rmse"`
	MAE     float64 `json:"mae"`
	R2      float64 `json:"r2"`
}

// RegressionReport has exactly two rows, prior then post.
type RegressionReport struct {
	Rows []RegressionRow `json:"rows"`
}

// ClassificationRow is one (class, lineage) cell of the classification
// report. AUCValid is false when the truth slice for the class contains a
// single class only, which makes the ROC curve degenerate; AUC is then
// meaningless and left at zero.
type ClassificationRow struct {
	Class     string  `json:"class"`
	Lineage   string  `json:"lineage"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	AUC       float64 `json:"auc"`
	AUCValid  bool    `json:"auc_valid"`
}

// ClassificationReport holds 2 rows for a binary target (positive class ×
// lineage) or 2k rows for a k-class target.
type ClassificationReport struct {
	Rows []ClassificationRow `json:"rows"`
}

// EvalRegression scores both lineages' continuous predictions against the
// shared true labels.
func EvalRegression(truth, priorPred, postPred []float64) *RegressionReport {
	return &RegressionReport{Rows: []RegressionRow{
		regressionRow(LineagePrior, truth, priorPred),
		regressionRow(LineagePost, truth, postPred),
	}}
}

func regressionRow(lineage string, truth, pred []float64) RegressionRow {
	n := float64(len(truth))
	sq, abs := 0.0, 0.0
	for i := range truth {
		d := truth[i] - pred[i]
		sq += d * d
		abs += math.Abs(d)
	}
	return RegressionRow{
		Lineage: lineage,
		RMSE:    math.Sqrt(sq / n),
		MAE:     abs / n,
		R2:      rSquared(truth, pred),
	}
}

func rSquared(truth, pred []float64) float64 {
	mean := 0.0
	for _, v := range truth {
		mean += v
	}
	mean /= float64(len(truth))
	ssRes, ssTot := 0.0, 0.0
	for i := range truth {
		dr := truth[i] - pred[i]
		dt := truth[i] - mean
		ssRes += dr * dr
		ssTot += dt * dt
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// EvalClassification scores both lineages' predicted labels against the
// shared true labels. positive selects the class reported for a binary
// target; when empty, the second class in sorted order is used. Multiclass
// targets ignore positive and report every class.
func EvalClassification(truth, priorPred, postPred []string, positive string) *ClassificationReport {
	classes := classUnion(truth, priorPred, postPred)

	evaluated := classes
	if len(classes) == 2 {
		if positive == "" {
			positive = classes[1]
		}
		evaluated = []string{positive}
	}

	report := &ClassificationReport{}
	for _, class := range evaluated {
		report.Rows = append(report.Rows,
			classificationRow(class, LineagePrior, truth, priorPred),
			classificationRow(class, LineagePost, truth, postPred),
		)
	}
	return report
}

// classificationRow scores one class slice: labels collapse to binary
// indicators (1 when the label equals the class) and standard binary metrics
// apply. Precision, recall, and F1 default to 0 when their denominator is
// zero rather than failing.
func classificationRow(class, lineage string, truth, pred []string) ClassificationRow {
	yt := indicators(truth, class)
	yp := indicators(pred, class)

	var tp, fp, fn, hits int
	for i := range yt {
		switch {
		case yt[i] == 1 && yp[i] == 1:
			tp++
			hits++
		case yt[i] == 0 && yp[i] == 0:
			hits++
		case yt[i] == 0 && yp[i] == 1:
			fp++
		default:
			fn++
		}
	}

	row := ClassificationRow{
		Class:    class,
		Lineage:  lineage,
		Accuracy: float64(hits) / float64(len(yt)),
	}
	if tp+fp > 0 {
		row.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		row.Recall = float64(tp) / float64(tp+fn)
	}
	if row.Precision+row.Recall > 0 {
		row.F1 = 2 * row.Precision * row.Recall / (row.Precision + row.Recall)
	}
	if auc, ok := rocAUC(yt, yp); ok {
		row.AUC = auc
		row.AUCValid = true
	}
	return row
}

// rocAUC computes the area under the ROC curve via the Mann–Whitney U
// statistic with midrank tie handling. It reports ok=false when the truth
// slice holds a single class, the degenerate case where no ROC exists.
func rocAUC(truth, scores []float64) (float64, bool) {
	nPos, nNeg := 0, 0
	for _, t := range truth {
		if t == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, false
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, len(scores))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		mid := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = mid
		}
		i = j
	}

	rankSum := 0.0
	for i, t := range truth {
		if t == 1 {
			rankSum += ranks[i]
		}
	}
	u := rankSum - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), true
}

func indicators(labels []string, class string) []float64 {
	out := make([]float64, len(labels))
	for i, l := range labels {
		if l == class {
			out[i] = 1
		}
	}
	return out
}

func classUnion(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, v := range set {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}
