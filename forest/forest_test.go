package forest

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func separableClassification(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		cls := float64(i % 2)
		x[i] = []float64{rng.Float64() + cls*3, rng.Float64() + cls*3}
		y[i] = cls
	}
	return x, y
}

func TestClassifierSeparable(t *testing.T) {
	x, y := separableClassification(120, 1)
	f := TrainClassifier(x, y, Params{NEstimators: 10, MaxDepth: 4, MaxSamples: 0.8, Seed: 1})

	pred := f.Predict(x)
	hits := 0
	for i := range y {
		if pred[i] == y[i] {
			hits++
		}
	}
	if acc := float64(hits) / float64(len(y)); acc < 0.95 {
		t.Errorf("training accuracy = %.3f on separable data, want >= 0.95", acc)
	}
}

func TestRegressorApproximates(t *testing.T) {
	// y = 3x with x on a grid; a depth-limited forest should land near the
	// target well inside the grid.
	n := 200
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		v := float64(i) / 10
		x[i] = []float64{v}
		y[i] = 3 * v
	}
	f := TrainRegressor(x, y, Params{NEstimators: 20, MaxDepth: 8, MaxSamples: 1, Seed: 1})

	pred := f.Predict([][]float64{{5}, {10}, {15}})
	want := []float64{15, 30, 45}
	for i := range want {
		if math.Abs(pred[i]-want[i]) > 3 {
			t.Errorf("Predict(x=%g) = %g, want ~%g", want[i]/3, pred[i], want[i])
		}
	}
}

func TestTrainDeterministicWithSeed(t *testing.T) {
	x, y := separableClassification(80, 2)
	test := [][]float64{{0.5, 0.5}, {3.5, 3.5}, {1.8, 1.8}}

	a := TrainClassifier(x, y, Params{NEstimators: 10, MaxDepth: 4, MaxSamples: 0.8, Seed: 9}).Predict(test)
	b := TrainClassifier(x, y, Params{NEstimators: 10, MaxDepth: 4, MaxSamples: 0.8, Seed: 9}).Predict(test)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed predictions differ: %v vs %v", a, b)
	}
}

func TestClassifierPureLeaf(t *testing.T) {
	// One class only: every prediction is that class.
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{1, 1, 1, 1}
	f := TrainClassifier(x, y, Params{NEstimators: 3, MaxDepth: 3, MaxSamples: 1, Seed: 0})

	for _, p := range f.Predict(x) {
		if p != 1 {
			t.Errorf("prediction = %g, want 1", p)
		}
	}
}

func TestGini(t *testing.T) {
	y := []float64{0, 0, 1, 1}
	tests := []struct {
		name string
		rows []int
		want float64
	}{
		{"pure", []int{0, 1}, 0},
		{"even", []int{0, 1, 2, 3}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gini(y, tt.rows); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("gini = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestVariance(t *testing.T) {
	y := []float64{2, 4, 6}
	// mean 4, variance (4+0+4)/3.
	if got, want := variance(y, []int{0, 1, 2}), 8.0/3.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("variance = %g, want %g", got, want)
	}
}
