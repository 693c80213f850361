package forest

import (
	"math"
	"math/rand"
	"sort"
)

// node is one decision node. Leaves carry the prediction; internal nodes
// route rows by a single feature threshold (left: value <= threshold).
type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// growConfig bundles the per-tree growth parameters.
type growConfig struct {
	classify    bool
	maxDepth    int
	minSplit    int
	maxFeatures int
	rng         *rand.Rand
}

// growTree builds a CART tree on the given rows. Classification splits
// minimize Gini impurity, regression splits minimize within-node variance.
func growTree(x [][]float64, y []float64, rows []int, cfg growConfig) *node {
	return grow(x, y, rows, 0, cfg)
}

func grow(x [][]float64, y []float64, rows []int, depth int, cfg growConfig) *node {
	if depth >= cfg.maxDepth || len(rows) < cfg.minSplit || pure(y, rows) {
		return &node{leaf: true, value: leafValue(y, rows, cfg.classify)}
	}

	feature, threshold, ok := bestSplit(x, y, rows, cfg)
	if !ok {
		return &node{leaf: true, value: leafValue(y, rows, cfg.classify)}
	}

	var left, right []int
	for _, r := range rows {
		if x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{leaf: true, value: leafValue(y, rows, cfg.classify)}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      grow(x, y, left, depth+1, cfg),
		right:     grow(x, y, right, depth+1, cfg),
	}
}

// bestSplit scans a random feature subset and returns the (feature,
// threshold) pair with the lowest weighted child impurity. Thresholds are
// midpoints between adjacent distinct sorted values.
func bestSplit(x [][]float64, y []float64, rows []int, cfg growConfig) (int, float64, bool) {
	numFeatures := len(x[rows[0]])
	candidates := featureSubset(numFeatures, cfg.maxFeatures, cfg.rng)

	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	vals := make([]float64, len(rows))
	order := make([]int, len(rows))
	for _, f := range candidates {
		for i, r := range rows {
			vals[i] = x[r][f]
			order[i] = r
		}
		sort.Sort(byValue{vals: vals, rows: order})

		for i := 0; i+1 < len(vals); i++ {
			if vals[i] == vals[i+1] {
				continue
			}
			threshold := (vals[i] + vals[i+1]) / 2
			score := splitImpurity(y, order, i+1, cfg.classify)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// splitImpurity is the size-weighted impurity of the two children when the
// sorted rows are cut before index cut.
func splitImpurity(y []float64, sorted []int, cut int, classify bool) float64 {
	left, right := sorted[:cut], sorted[cut:]
	nl, nr := float64(len(left)), float64(len(right))
	if classify {
		return (nl*gini(y, left) + nr*gini(y, right)) / (nl + nr)
	}
	return (nl*variance(y, left) + nr*variance(y, right)) / (nl + nr)
}

func gini(y []float64, rows []int) float64 {
	counts := make(map[float64]int, 4)
	for _, r := range rows {
		counts[y[r]]++
	}
	n := float64(len(rows))
	g := 1.0
	for _, c := range counts {
		p := float64(c) / n
		g -= p * p
	}
	return g
}

func variance(y []float64, rows []int) float64 {
	n := float64(len(rows))
	mean := 0.0
	for _, r := range rows {
		mean += y[r]
	}
	mean /= n
	v := 0.0
	for _, r := range rows {
		d := y[r] - mean
		v += d * d
	}
	return v / n
}

func pure(y []float64, rows []int) bool {
	first := y[rows[0]]
	for _, r := range rows[1:] {
		if y[r] != first {
			return false
		}
	}
	return true
}

// leafValue is the majority class for classification (ties broken by the
// smallest class value, keeping predictions deterministic) or the mean for
// regression.
func leafValue(y []float64, rows []int, classify bool) float64 {
	if !classify {
		sum := 0.0
		for _, r := range rows {
			sum += y[r]
		}
		return sum / float64(len(rows))
	}
	counts := make(map[float64]int, 4)
	for _, r := range rows {
		counts[y[r]]++
	}
	best, bestCount := 0.0, -1
	for cls, c := range counts {
		if c > bestCount || (c == bestCount && cls < best) {
			best, bestCount = cls, c
		}
	}
	return best
}

func featureSubset(total, size int, rng *rand.Rand) []int {
	if size <= 0 || size >= total {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(total)[:size]
}

func (n *node) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type byValue struct {
	vals []float64
	rows []int
}

func (s byValue) Len() int           { return len(s.vals) }
func (s byValue) Less(i, j int) bool { return s.vals[i] < s.vals[j] }
func (s byValue) Swap(i, j int) {
	s.vals[i], s.vals[j] = s.vals[j], s.vals[i]
	s.rows[i], s.rows[j] = s.rows[j], s.rows[i]
}
