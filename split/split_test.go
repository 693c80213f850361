package split

import (
	"errors"
	"reflect"
	"testing"

	"github.com/driftlab/driftdetect/dataset"
)

func buildDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i)
	}
	series := []dataset.Series{dataset.FloatSeries("x", vals)}
	ds, _, _, err := dataset.Normalize(series, series, dataset.Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return ds
}

func TestAllocateSplitsPost(t *testing.T) {
	prior := buildDataset(t, 50)
	post := buildDataset(t, 100)

	parts, err := Allocate(prior, post, nil, 0.7, 42)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if parts.TrainPrior.Rows() != 50 {
		t.Errorf("prior training rows = %d, want all 50", parts.TrainPrior.Rows())
	}
	if parts.TrainPost.Rows() != 70 {
		t.Errorf("post training rows = %d, want 70", parts.TrainPost.Rows())
	}
	if parts.Test.Rows() != 30 {
		t.Errorf("test rows = %d, want 30", parts.Test.Rows())
	}

	// Train and test cover the post rows exactly once.
	seen := make(map[float64]int)
	for _, ds := range []*dataset.Dataset{parts.TrainPost, parts.Test} {
		col, _ := ds.Column("x")
		for _, v := range col.Num {
			seen[v]++
		}
	}
	if len(seen) != 100 {
		t.Errorf("split covers %d distinct rows, want 100", len(seen))
	}
	for v, count := range seen {
		if count != 1 {
			t.Errorf("row %g appears %d times across the split", v, count)
		}
	}
}

func TestAllocateSeedReproducible(t *testing.T) {
	prior := buildDataset(t, 10)
	post := buildDataset(t, 40)

	a, err := Allocate(prior, post, nil, 0.7, 7)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	b, err := Allocate(prior, post, nil, 0.7, 7)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	colA, _ := a.Test.Column("x")
	colB, _ := b.Test.Column("x")
	if !reflect.DeepEqual(colA.Num, colB.Num) {
		t.Error("same seed should produce identical splits")
	}

	c, err := Allocate(prior, post, nil, 0.7, 8)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	colC, _ := c.Test.Column("x")
	if reflect.DeepEqual(colA.Num, colC.Num) {
		t.Error("different seeds should normally produce different splits")
	}
}

func TestAllocateExternalTest(t *testing.T) {
	prior := buildDataset(t, 20)
	post := buildDataset(t, 30)
	test := buildDataset(t, 5)

	parts, err := Allocate(prior, post, test, 0.7, 0)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if parts.TrainPost.Rows() != 30 {
		t.Errorf("with external test, post training rows = %d, want all 30", parts.TrainPost.Rows())
	}
	if parts.Test != test {
		t.Error("external test set should pass through untouched")
	}
}

func TestAllocateInvalidFraction(t *testing.T) {
	prior := buildDataset(t, 10)
	post := buildDataset(t, 10)

	for _, fraction := range []float64{0, 1, -0.5, 1.5} {
		_, err := Allocate(prior, post, nil, fraction, 0)
		var invalid *dataset.InvalidConfigError
		if !errors.As(err, &invalid) {
			t.Errorf("Allocate(fraction=%g) error = %v, want InvalidConfigError", fraction, err)
		}
	}
}

func TestAllocateTooFewRows(t *testing.T) {
	prior := buildDataset(t, 10)
	post := buildDataset(t, 1)

	_, err := Allocate(prior, post, nil, 0.7, 0)
	var invalid *dataset.InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Errorf("Allocate with 1 post row = %v, want InvalidConfigError", err)
	}
}
