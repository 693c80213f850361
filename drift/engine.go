// Package drift quantifies per-column distributional divergence between two
// normalized snapshots of the same schema.
//
// Every column is scored with the Jensen–Shannon distance (square root of the
// base-e Jensen–Shannon divergence). The JS distance is symmetric, always
// finite, and bounded in [0, sqrt(ln 2)], which makes scores comparable
// across columns without absolute-continuity assumptions, unlike KL
// divergence.
package drift

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/driftlab/driftdetect/dataset"
)

// GridPoints is the fixed resolution of the KDE sampling grid for numeric
// columns.
const GridPoints = 100

// MaxDistance is the upper bound of the Jensen–Shannon distance, sqrt(ln 2).
var MaxDistance = math.Sqrt(math.Ln2)

// InsufficientDataError reports that a column lacks the statistical support
// its estimator needs (e.g. density estimation over fewer than two distinct
// values).
type InsufficientDataError struct {
	Column string
	Detail string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data in column %q: %s", e.Column, e.Detail)
}

// Score is one column's drift measurement.
type Score struct {
	Column   string  `json:"column"`
	Distance float64 `json:"distance"`
}

// Report holds the per-column drift scores, one ranked list per role, each
// sorted by descending distance. Ties keep the input column order (the sort
// is stable).
type Report struct {
	Categorical []Score `json:"categorical"`
	Numeric     []Score `json:"numeric"`
}

// Compute scores every column of the two snapshots. The snapshots must share
// the schema and role assignment produced by dataset.Normalize.
func Compute(prior, post *dataset.Dataset, roles dataset.Roles) (*Report, error) {
	report := &Report{}

	for _, name := range roles.Categorical() {
		d, err := categoricalDistance(prior, post, name)
		if err != nil {
			return nil, err
		}
		report.Categorical = append(report.Categorical, Score{Column: name, Distance: d})
	}
	for _, name := range roles.Numeric() {
		d, err := numericDistance(prior, post, name)
		if err != nil {
			return nil, err
		}
		report.Numeric = append(report.Numeric, Score{Column: name, Distance: d})
	}

	sortScores(report.Categorical)
	sortScores(report.Numeric)
	return report, nil
}

func sortScores(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Distance > scores[j].Distance
	})
}

// categoricalDistance aligns the two empirical category-frequency
// distributions over the union of observed categories (absent categories get
// probability zero) and returns their Jensen–Shannon distance.
func categoricalDistance(prior, post *dataset.Dataset, name string) (float64, error) {
	colPrior, _ := prior.Column(name)
	colPost, _ := post.Column(name)

	countsPrior := countCategories(colPrior.Str)
	countsPost := countCategories(colPost.Str)

	union := make([]string, 0, len(countsPrior)+len(countsPost))
	seen := make(map[string]struct{})
	for _, vals := range [][]string{colPrior.Str, colPost.Str} {
		for _, v := range vals {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				union = append(union, v)
			}
		}
	}
	sort.Strings(union)

	p := make([]float64, len(union))
	q := make([]float64, len(union))
	nPrior := float64(len(colPrior.Str))
	nPost := float64(len(colPost.Str))
	for i, cat := range union {
		p[i] = float64(countsPrior[cat]) / nPrior
		q[i] = float64(countsPost[cat]) / nPost
	}

	return jsDistance(p, q), nil
}

// numericDistance fits a Gaussian KDE independently on the two raw value
// sets, samples both densities on a shared grid spanning the combined
// observed range, renormalizes each sampled vector into a discrete
// probability mass function, and returns the Jensen–Shannon distance of the
// two vectors.
func numericDistance(prior, post *dataset.Dataset, name string) (float64, error) {
	colPrior, _ := prior.Column(name)
	colPost, _ := post.Column(name)

	for _, side := range []struct {
		vals []float64
		tag  string
	}{{colPrior.Num, "prior"}, {colPost.Num, "post"}} {
		if distinctCount(side.vals) < 2 {
			return 0, &InsufficientDataError{
				Column: name,
				Detail: fmt.Sprintf("%s snapshot has fewer than 2 distinct values; density estimation is undefined", side.tag),
			}
		}
	}

	lo := math.Min(floats.Min(colPrior.Num), floats.Min(colPost.Num))
	hi := math.Max(floats.Max(colPrior.Num), floats.Max(colPost.Num))
	grid := floats.Span(make([]float64, GridPoints), lo, hi)

	p := normalize(fitKDE(colPrior.Num).sample(grid))
	q := normalize(fitKDE(colPost.Num).sample(grid))

	return jsDistance(p, q), nil
}

// jsDistance is the square root of the base-e Jensen–Shannon divergence.
func jsDistance(p, q []float64) float64 {
	div := stat.JensenShannon(p, q)
	if div < 0 {
		// Guard against tiny negative values from floating-point error.
		div = 0
	}
	return math.Sqrt(div)
}

func countCategories(values []string) map[string]int {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	return counts
}

func distinctCount(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
		if len(seen) >= 2 {
			return len(seen)
		}
	}
	return len(seen)
}

func normalize(v []float64) []float64 {
	sum := floats.Sum(v)
	if sum == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}
