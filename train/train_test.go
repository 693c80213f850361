package train

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/driftlab/driftdetect/dataset"
	"github.com/driftlab/driftdetect/forest"
)

func TestDefaultGridCombinations(t *testing.T) {
	combos := DefaultGrid().combinations()
	if len(combos) != 18 {
		t.Fatalf("default grid has %d combinations, want 18 (2*3*3)", len(combos))
	}

	seen := make(map[forest.Params]struct{})
	for _, p := range combos {
		if _, dup := seen[p]; dup {
			t.Errorf("duplicate combination %+v", p)
		}
		seen[p] = struct{}{}
	}
}

func TestSampleCandidatesWithoutReplacement(t *testing.T) {
	g := DefaultGrid()

	sampled := sampleCandidates(g, 5, 42)
	if len(sampled) != 5 {
		t.Fatalf("sampled %d candidates, want 5", len(sampled))
	}
	seen := make(map[forest.Params]struct{})
	for _, p := range sampled {
		if _, dup := seen[p]; dup {
			t.Errorf("candidate %+v drawn twice", p)
		}
		seen[p] = struct{}{}
	}

	// Budget covering the whole grid degenerates to exhaustive search.
	all := sampleCandidates(g, 100, 42)
	if len(all) != 18 {
		t.Errorf("oversized budget sampled %d, want all 18", len(all))
	}

	// Seeded sampling is reproducible.
	again := sampleCandidates(g, 5, 42)
	if !reflect.DeepEqual(sampled, again) {
		t.Error("same seed should sample the same candidates")
	}
}

func TestSearchClassification(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 60
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		cls := float64(i % 2)
		x[i] = []float64{rng.Float64() + cls*4}
		y[i] = cls
	}

	cfg := Config{
		Grid:       Grid{NEstimators: []int{5}, MaxSamples: []float64{1}, MaxDepth: []int{3}},
		Iterations: 1,
		Folds:      3,
		Seed:       1,
		Classify:   true,
	}
	res, err := Search("prior", x, y, cfg)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if res.Model == nil {
		t.Fatal("Search returned nil model")
	}
	if res.Score < 0.9 {
		t.Errorf("cv accuracy = %.3f on separable data, want >= 0.9", res.Score)
	}
	if res.Params.NEstimators != 5 || res.Params.MaxDepth != 3 {
		t.Errorf("winning params = %+v, want the only candidate", res.Params)
	}
}

func TestSearchRegressionSeeded(t *testing.T) {
	n := 60
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		v := float64(i)
		x[i] = []float64{v}
		y[i] = 2 * v
	}

	cfg := Config{
		Grid:       Grid{NEstimators: []int{5, 10}, MaxSamples: []float64{0.8, 1}, MaxDepth: []int{3, 5}},
		Iterations: 3,
		Folds:      3,
		Seed:       7,
	}
	a, err := Search("prior", x, y, cfg)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	b, err := Search("post", x, y, cfg)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// Identical data, config, and seed must reproduce the same winner.
	if a.Params != b.Params {
		t.Errorf("seeded searches disagree: %+v vs %+v", a.Params, b.Params)
	}
	if math.Abs(a.Score-b.Score) > 1e-12 {
		t.Errorf("seeded search scores differ: %g vs %g", a.Score, b.Score)
	}
}

func TestSearchValidation(t *testing.T) {
	var invalid *dataset.InvalidConfigError

	_, err := Search("prior", nil, nil, Config{})
	if !errors.As(err, &invalid) {
		t.Errorf("Search with no data = %v, want InvalidConfigError", err)
	}

	x := [][]float64{{1}, {2}}
	y := []float64{1, 2}
	_, err = Search("prior", x, y, Config{Folds: 5})
	if !errors.As(err, &invalid) {
		t.Errorf("Search with folds > rows = %v, want InvalidConfigError", err)
	}
}

func TestRSquared(t *testing.T) {
	tests := []struct {
		name  string
		truth []float64
		pred  []float64
		want  float64
	}{
		{"perfect", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"mean predictor", []float64{1, 2, 3}, []float64{2, 2, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rSquared(tt.truth, tt.pred); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("rSquared = %g, want %g", got, tt.want)
			}
		})
	}
}
