// Package train fits one ensemble per dataset lineage via randomized
// hyperparameter search with cross-validation. Both lineages run under an
// identical search budget so that a metric gap between them reflects the
// data, not an asymmetric search.
package train

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/driftlab/driftdetect/dataset"
	"github.com/driftlab/driftdetect/forest"
)

// Grid is the randomized-search space. Candidate parameter sets are the cross
// product of the three axes.
type Grid struct {
	NEstimators []int
	MaxSamples  []float64
	MaxDepth    []int
}

// DefaultGrid mirrors the stock search space: ensemble size, bootstrap
// fraction, and tree depth.
func DefaultGrid() Grid {
	return Grid{
		NEstimators: []int{100, 200},
		MaxSamples:  []float64{0.6, 0.8, 1},
		MaxDepth:    []int{3, 4, 5},
	}
}

func (g Grid) empty() bool {
	return len(g.NEstimators) == 0 || len(g.MaxSamples) == 0 || len(g.MaxDepth) == 0
}

// combinations expands the grid into the full candidate list, in a fixed
// axis-major order so that seeded sampling is reproducible.
func (g Grid) combinations() []forest.Params {
	out := make([]forest.Params, 0, len(g.NEstimators)*len(g.MaxSamples)*len(g.MaxDepth))
	for _, n := range g.NEstimators {
		for _, s := range g.MaxSamples {
			for _, d := range g.MaxDepth {
				out = append(out, forest.Params{NEstimators: n, MaxSamples: s, MaxDepth: d})
			}
		}
	}
	return out
}

// Config controls one lineage's search.
type Config struct {
	Grid       Grid
	Iterations int // candidates to evaluate, default 5
	Folds      int // cross-validation folds, default 3
	Seed       int64
	Classify   bool // true: classifier scored by accuracy; false: regressor scored by R²
}

func (c Config) withDefaults() Config {
	if c.Grid.empty() {
		c.Grid = DefaultGrid()
	}
	if c.Iterations <= 0 {
		c.Iterations = 5
	}
	if c.Folds <= 0 {
		c.Folds = 3
	}
	return c
}

// Result is the refit best model together with its winning parameters and
// mean cross-validation score.
type Result struct {
	Model  *forest.Forest
	Params forest.Params
	Score  float64
}

// Search samples candidate parameter sets without replacement, scores each by
// k-fold cross-validation, refits the best candidate on the full training
// data, and logs the winning parameters. lineage names the dataset being
// fitted, for the log line only.
func Search(lineage string, x [][]float64, y []float64, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if len(x) == 0 || len(x) != len(y) {
		return nil, &dataset.InvalidConfigError{
			Detail: fmt.Sprintf("training set has %d feature rows and %d targets", len(x), len(y)),
		}
	}
	if cfg.Folds < 2 || cfg.Folds > len(x) {
		return nil, &dataset.InvalidConfigError{
			Detail: fmt.Sprintf("%d cross-validation folds infeasible for %d rows", cfg.Folds, len(x)),
		}
	}

	candidates := sampleCandidates(cfg.Grid, cfg.Iterations, cfg.Seed)

	best := -1
	bestScore := 0.0
	for i, p := range candidates {
		p.Seed = cfg.Seed
		score := crossValidate(x, y, p, cfg)
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}

	winner := candidates[best]
	winner.Seed = cfg.Seed
	log.Printf("train: %s best params n_estimators=%d max_samples=%g max_depth=%d (cv score %.4f)",
		lineage, winner.NEstimators, winner.MaxSamples, winner.MaxDepth, bestScore)

	var model *forest.Forest
	if cfg.Classify {
		model = forest.TrainClassifier(x, y, winner)
	} else {
		model = forest.TrainRegressor(x, y, winner)
	}
	return &Result{Model: model, Params: winner, Score: bestScore}, nil
}

// sampleCandidates draws up to iterations parameter sets from the grid
// without replacement; a budget covering the whole grid degenerates to an
// exhaustive search.
func sampleCandidates(g Grid, iterations int, seed int64) []forest.Params {
	all := g.combinations()
	if iterations >= len(all) {
		return all
	}
	perm := rand.New(rand.NewSource(seed)).Perm(len(all))
	out := make([]forest.Params, iterations)
	for i := 0; i < iterations; i++ {
		out[i] = all[perm[i]]
	}
	return out
}

// crossValidate scores one candidate with contiguous k-fold splits: fold f
// holds out rows [f*n/k, (f+1)*n/k) and trains on the rest.
func crossValidate(x [][]float64, y []float64, p forest.Params, cfg Config) float64 {
	n := len(x)
	total := 0.0
	for f := 0; f < cfg.Folds; f++ {
		lo := f * n / cfg.Folds
		hi := (f + 1) * n / cfg.Folds

		trainX := make([][]float64, 0, n-(hi-lo))
		trainY := make([]float64, 0, n-(hi-lo))
		for i := 0; i < n; i++ {
			if i >= lo && i < hi {
				continue
			}
			trainX = append(trainX, x[i])
			trainY = append(trainY, y[i])
		}

		var model *forest.Forest
		if cfg.Classify {
			model = forest.TrainClassifier(trainX, trainY, p)
		} else {
			model = forest.TrainRegressor(trainX, trainY, p)
		}
		pred := model.Predict(x[lo:hi])
		if cfg.Classify {
			total += accuracy(y[lo:hi], pred)
		} else {
			total += rSquared(y[lo:hi], pred)
		}
	}
	return total / float64(cfg.Folds)
}

func accuracy(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	hits := 0
	for i := range truth {
		if truth[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}

func rSquared(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
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
