// Package forest implements bagged CART ensembles: a random-forest classifier
// (Gini splits, majority vote) and regressor (variance splits, mean
// aggregation). Training is fully deterministic for a fixed seed; each tree
// derives its own RNG from the ensemble seed and its index.
package forest

import (
	"math"
	"math/rand"
)

// Params are the tunable hyperparameters of an ensemble. The trainer's
// randomized search samples these from its grid.
type Params struct {
	NEstimators int     // number of trees
	MaxDepth    int     // maximum tree depth
	MaxSamples  float64 // bootstrap sample size as a fraction of the training rows

	MinSamplesSplit int   // minimum rows a node needs to attempt a split
	Seed            int64 // base seed for bootstrapping and feature subsetting
}

func (p Params) withDefaults() Params {
	if p.NEstimators <= 0 {
		p.NEstimators = 100
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 5
	}
	if p.MaxSamples <= 0 || p.MaxSamples > 1 {
		p.MaxSamples = 1
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	return p
}

// Forest is a trained ensemble.
type Forest struct {
	trees    []*node
	classify bool
	classes  []float64
}

// TrainClassifier fits a random-forest classifier. y holds discrete class
// values (typically indices into a label vocabulary).
func TrainClassifier(x [][]float64, y []float64, p Params) *Forest {
	return train(x, y, p, true)
}

// TrainRegressor fits a random-forest regressor on a continuous target.
func TrainRegressor(x [][]float64, y []float64, p Params) *Forest {
	return train(x, y, p, false)
}

func train(x [][]float64, y []float64, p Params, classify bool) *Forest {
	p = p.withDefaults()
	n := len(x)
	sampleSize := int(p.MaxSamples * float64(n))
	if sampleSize < 1 {
		sampleSize = 1
	}

	maxFeatures := 0
	if classify {
		// sqrt(p) feature subsampling decorrelates classification trees;
		// regression trees consider every feature.
		maxFeatures = int(math.Sqrt(float64(len(x[0]))))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	f := &Forest{
		trees:    make([]*node, p.NEstimators),
		classify: classify,
	}
	if classify {
		f.classes = distinctSorted(y)
	}

	for t := 0; t < p.NEstimators; t++ {
		rng := rand.New(rand.NewSource(p.Seed + int64(t)))
		rows := make([]int, sampleSize)
		for i := range rows {
			rows[i] = rng.Intn(n)
		}
		f.trees[t] = growTree(x, y, rows, growConfig{
			classify:    classify,
			maxDepth:    p.MaxDepth,
			minSplit:    p.MinSamplesSplit,
			maxFeatures: maxFeatures,
			rng:         rng,
		})
	}
	return f
}

// Predict returns one prediction per row: the majority class vote for a
// classifier (ties broken by the smallest class value) or the mean tree
// output for a regressor.
func (f *Forest) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = f.predictRow(row)
	}
	return out
}

func (f *Forest) predictRow(row []float64) float64 {
	if !f.classify {
		sum := 0.0
		for _, t := range f.trees {
			sum += t.predict(row)
		}
		return sum / float64(len(f.trees))
	}
	votes := make(map[float64]int, len(f.classes))
	for _, t := range f.trees {
		votes[t.predict(row)]++
	}
	best, bestVotes := 0.0, -1
	for _, cls := range f.classes {
		if v := votes[cls]; v > bestVotes {
			best, bestVotes = cls, v
		}
	}
	return best
}

func distinctSorted(y []float64) []float64 {
	seen := make(map[float64]struct{}, 4)
	var out []float64
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	// Insertion sort; class counts are small.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
