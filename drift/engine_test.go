package drift

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/driftlab/driftdetect/dataset"
)

func normalizePair(t *testing.T, prior, post []dataset.Series) (*dataset.Dataset, *dataset.Dataset, dataset.Roles) {
	t.Helper()
	dsPrior, dsPost, roles, err := dataset.Normalize(prior, post, dataset.Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return dsPrior, dsPost, roles
}

func repeat(value string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestCategoricalIdenticalDistributions(t *testing.T) {
	// Scenario: both snapshots hold {"a": 50, "b": 50}.
	values := append(repeat("a", 50), repeat("b", 50)...)
	prior := []dataset.Series{dataset.StringSeries("c", values)}
	dsPrior, dsPost, roles := normalizePair(t, prior, prior)

	report, err := Compute(dsPrior, dsPost, roles)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := report.Categorical[0].Distance; got != 0 {
		t.Errorf("identical categorical distance = %g, want exactly 0", got)
	}
}

func TestCategoricalDisjointDistributions(t *testing.T) {
	// Scenario: prior all "a", post all "b" hits the upper bound.
	prior := []dataset.Series{dataset.StringSeries("c", repeat("a", 40))}
	post := []dataset.Series{dataset.StringSeries("c", repeat("b", 40))}
	dsPrior, dsPost, roles := normalizePair(t, prior, post)

	report, err := Compute(dsPrior, dsPost, roles)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := report.Categorical[0].Distance; math.Abs(got-MaxDistance) > 1e-12 {
		t.Errorf("disjoint categorical distance = %g, want %g", got, MaxDistance)
	}
}

func TestNumericShiftedDistributions(t *testing.T) {
	// Scenario: N(0,1) vs N(5,1) must score far above a self-comparison.
	rng := rand.New(rand.NewSource(1))
	base := make([]float64, 1000)
	shifted := make([]float64, 1000)
	for i := range base {
		base[i] = rng.NormFloat64()
		shifted[i] = rng.NormFloat64() + 5
	}

	dsPrior, dsPost, roles := normalizePair(t,
		[]dataset.Series{dataset.FloatSeries("x", base)},
		[]dataset.Series{dataset.FloatSeries("x", shifted)},
	)
	report, err := Compute(dsPrior, dsPost, roles)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := report.Numeric[0].Distance; got < 0.3 {
		t.Errorf("shifted numeric distance = %g, want > 0.3", got)
	}

	dsSelf, dsSelf2, roles := normalizePair(t,
		[]dataset.Series{dataset.FloatSeries("x", base)},
		[]dataset.Series{dataset.FloatSeries("x", base)},
	)
	selfReport, err := Compute(dsSelf, dsSelf2, roles)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if got := selfReport.Numeric[0].Distance; got > 1e-9 {
		t.Errorf("self numeric distance = %g, want ~0", got)
	}
	if report.Numeric[0].Distance <= selfReport.Numeric[0].Distance {
		t.Error("shifted distance should exceed self distance")
	}
}

func TestDistanceSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := make([]float64, 200)
	b := make([]float64, 200)
	for i := range a {
		a[i] = rng.NormFloat64()
		b[i] = rng.NormFloat64()*2 + 1
	}
	catA := make([]string, 200)
	catB := make([]string, 200)
	labels := []string{"x", "y", "z"}
	for i := range catA {
		catA[i] = labels[rng.Intn(2)]
		catB[i] = labels[rng.Intn(3)]
	}

	mk := func(cat []string, num []float64) []dataset.Series {
		return []dataset.Series{
			dataset.StringSeries("c", cat),
			dataset.FloatSeries("n", num),
		}
	}

	dsPrior, dsPost, roles := normalizePair(t, mk(catA, a), mk(catB, b))
	forward, err := Compute(dsPrior, dsPost, roles)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	backward, err := Compute(dsPost, dsPrior, roles)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if math.Abs(forward.Categorical[0].Distance-backward.Categorical[0].Distance) > 1e-12 {
		t.Errorf("categorical distance not symmetric: %g vs %g",
			forward.Categorical[0].Distance, backward.Categorical[0].Distance)
	}
	if math.Abs(forward.Numeric[0].Distance-backward.Numeric[0].Distance) > 1e-12 {
		t.Errorf("numeric distance not symmetric: %g vs %g",
			forward.Numeric[0].Distance, backward.Numeric[0].Distance)
	}
}

func TestDistanceBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 10; trial++ {
		a := make([]float64, 100)
		b := make([]float64, 100)
		for i := range a {
			a[i] = rng.NormFloat64() * float64(trial+1)
			b[i] = rng.NormFloat64() + float64(trial)
		}
		dsPrior, dsPost, roles := normalizePair(t,
			[]dataset.Series{dataset.FloatSeries("x", a)},
			[]dataset.Series{dataset.FloatSeries("x", b)},
		)
		report, err := Compute(dsPrior, dsPost, roles)
		if err != nil {
			t.Fatalf("Compute failed: %v", err)
		}
		d := report.Numeric[0].Distance
		if d < 0 || d > MaxDistance+1e-9 {
			t.Errorf("trial %d: distance %g outside [0, %g]", trial, d, MaxDistance)
		}
	}
}

func TestReportRanking(t *testing.T) {
	// Three categorical columns with increasing drift; the report must come
	// back sorted descending.
	n := 60
	same := repeat("a", n)
	mild := append(repeat("a", n*2/3), repeat("b", n/3)...)
	full := repeat("b", n)

	prior := []dataset.Series{
		dataset.StringSeries("none", same),
		dataset.StringSeries("mild", same),
		dataset.StringSeries("full", same),
	}
	post := []dataset.Series{
		dataset.StringSeries("none", same),
		dataset.StringSeries("mild", mild),
		dataset.StringSeries("full", full),
	}
	dsPrior, dsPost, roles := normalizePair(t, prior, post)

	report, err := Compute(dsPrior, dsPost, roles)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	wantOrder := []string{"full", "mild", "none"}
	for i, want := range wantOrder {
		if report.Categorical[i].Column != want {
			t.Fatalf("rank %d = %s, want %s", i, report.Categorical[i].Column, want)
		}
	}
	for i := 1; i < len(report.Categorical); i++ {
		if report.Categorical[i].Distance > report.Categorical[i-1].Distance {
			t.Error("categorical scores not sorted descending")
		}
	}
}

func TestRankingTiesStable(t *testing.T) {
	// Two columns with identical drift keep schema order.
	n := 40
	same := repeat("a", n)
	flipped := repeat("b", n)
	prior := []dataset.Series{
		dataset.StringSeries("first", same),
		dataset.StringSeries("second", same),
	}
	post := []dataset.Series{
		dataset.StringSeries("first", flipped),
		dataset.StringSeries("second", flipped),
	}
	dsPrior, dsPost, roles := normalizePair(t, prior, post)

	report, err := Compute(dsPrior, dsPost, roles)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if report.Categorical[0].Column != "first" || report.Categorical[1].Column != "second" {
		t.Errorf("tie order = [%s %s], want schema order [first second]",
			report.Categorical[0].Column, report.Categorical[1].Column)
	}
}

func TestNumericInsufficientData(t *testing.T) {
	constant := []float64{2, 2, 2, 2}
	varied := []float64{1, 2, 3, 4}
	dsPrior, dsPost, roles := normalizePair(t,
		[]dataset.Series{dataset.FloatSeries("x", constant)},
		[]dataset.Series{dataset.FloatSeries("x", varied)},
	)

	_, err := Compute(dsPrior, dsPost, roles)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Compute error = %v, want InsufficientDataError", err)
	}
	if insufficient.Column != "x" {
		t.Errorf("failing column = %q, want x", insufficient.Column)
	}
}
