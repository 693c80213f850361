package encode

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/driftlab/driftdetect/dataset"
)

func buildDataset(t *testing.T, series []dataset.Series) *dataset.Dataset {
	t.Helper()
	ds, _, _, err := dataset.Normalize(series, series, dataset.Options{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return ds
}

func TestFeaturesAlignment(t *testing.T) {
	// The post training set has a category ("green") the prior never sees;
	// the joint one-hot fit must still give all four matrices one layout.
	trainPrior := buildDataset(t, []dataset.Series{
		dataset.StringSeries("color", []string{"red", "blue", "red"}),
		dataset.FloatSeries("size", []float64{1, 2, 3}),
	})
	trainPost := buildDataset(t, []dataset.Series{
		dataset.StringSeries("color", []string{"green", "blue", "green"}),
		dataset.FloatSeries("size", []float64{4, 5, 6}),
	})
	test := buildDataset(t, []dataset.Series{
		dataset.StringSeries("color", []string{"red", "green"}),
		dataset.FloatSeries("size", []float64{7, 8}),
	})

	fs, err := Features(Input{
		TrainPrior: trainPrior,
		Test:       test,
		TrainPost:  trainPost,
		OneHot:     []string{"color"},
	})
	if err != nil {
		t.Fatalf("Features failed: %v", err)
	}

	wantCols := []string{"size", "color=blue", "color=green", "color=red"}
	if !reflect.DeepEqual(fs.Columns, wantCols) {
		t.Fatalf("Columns = %v, want %v", fs.Columns, wantCols)
	}

	for name, m := range map[string][][]float64{
		"XTrainPrior": fs.XTrainPrior,
		"XTestPrior":  fs.XTestPrior,
		"XTrainPost":  fs.XTrainPost,
		"XTestPost":   fs.XTestPost,
	} {
		for r, row := range m {
			if len(row) != len(wantCols) {
				t.Errorf("%s row %d has %d features, want %d", name, r, len(row), len(wantCols))
			}
		}
	}

	// Prior train row 0: size=1, color=red.
	if got, want := fs.XTrainPrior[0], []float64{1, 0, 0, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("XTrainPrior[0] = %v, want %v", got, want)
	}
	// Post train row 0: size=4, color=green.
	if got, want := fs.XTrainPost[0], []float64{4, 0, 1, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("XTrainPost[0] = %v, want %v", got, want)
	}
	// Without high-cardinality columns the two test matrices are identical.
	if !reflect.DeepEqual(fs.XTestPrior, fs.XTestPost) {
		t.Error("test matrices should match when no target-statistic columns exist")
	}
}

func TestFeaturesTargetInclusionFails(t *testing.T) {
	ds := buildDataset(t, []dataset.Series{
		dataset.StringSeries("label", []string{"a", "b"}),
		dataset.FloatSeries("x", []float64{1, 2}),
	})

	for _, in := range []Input{
		{TrainPrior: ds, Test: ds, TrainPost: ds, Target: "label", OneHot: []string{"label"}},
		{TrainPrior: ds, Test: ds, TrainPost: ds, Target: "label", HighCardinality: []string{"label"}},
	} {
		_, err := Features(in)
		var encErr *EncodingError
		if !errors.As(err, &encErr) {
			t.Errorf("Features with target in encoding set = %v, want EncodingError", err)
		}
	}
}

func TestFeaturesEmptyPartitionFails(t *testing.T) {
	ds := buildDataset(t, []dataset.Series{dataset.FloatSeries("x", []float64{1, 2})})

	_, err := Features(Input{TrainPrior: ds, Test: nil, TrainPost: ds})
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Errorf("Features with nil partition = %v, want EncodingError", err)
	}
}

func TestTargetEncoderOrderedStatistics(t *testing.T) {
	// Prior mean = 0.5. Row-by-row ordered encoding:
	//   row 0 ("a"): (0 + 0.5) / 1 = 0.5
	//   row 1 ("a"): (1 + 0.5) / 2 = 0.75
	//   row 2 ("b"): (0 + 0.5) / 1 = 0.5
	//   row 3 ("a"): (1 + 0.5) / 3 = 0.5
	values := []string{"a", "a", "b", "a"}
	y := []float64{1, 0, 0, 1}

	encoded, enc := fitTransform(values, y)
	want := []float64{0.5, 0.75, 0.5, 0.5}
	for i := range want {
		if math.Abs(encoded[i]-want[i]) > 1e-12 {
			t.Errorf("encoded[%d] = %g, want %g", i, encoded[i], want[i])
		}
	}

	// Transform uses full statistics: "a" has sum 2 over 3 rows.
	out := enc.transform([]string{"a", "b", "unseen"})
	wantOut := []float64{(2 + 0.5) / 4, (0 + 0.5) / 2, 0.5}
	for i := range wantOut {
		if math.Abs(out[i]-wantOut[i]) > 1e-12 {
			t.Errorf("transform[%d] = %g, want %g", i, out[i], wantOut[i])
		}
	}
}

func TestFeaturesPerLineageEncoders(t *testing.T) {
	// Same city column, opposite targets per lineage: the encoded test
	// columns must differ, proving the encoders are not shared.
	cities := []dataset.Series{
		dataset.StringSeries("city", []string{"sf", "sf", "nyc", "nyc"}),
	}
	trainPrior := buildDataset(t, cities)
	trainPost := buildDataset(t, cities)
	test := buildDataset(t, []dataset.Series{
		dataset.StringSeries("city", []string{"sf", "nyc"}),
	})

	fs, err := Features(Input{
		TrainPrior:      trainPrior,
		Test:            test,
		TrainPost:       trainPost,
		HighCardinality: []string{"city"},
		YTrainPrior:     []float64{1, 1, 0, 0},
		YTrainPost:      []float64{0, 0, 1, 1},
	})
	if err != nil {
		t.Fatalf("Features failed: %v", err)
	}

	if reflect.DeepEqual(fs.XTestPrior, fs.XTestPost) {
		t.Error("per-lineage encoders must produce different test encodings for opposite targets")
	}
}

func TestFeaturesTargetVectorLengthMismatch(t *testing.T) {
	ds := buildDataset(t, []dataset.Series{
		dataset.StringSeries("city", []string{"sf", "nyc"}),
	})

	_, err := Features(Input{
		TrainPrior:      ds,
		Test:            ds,
		TrainPost:       ds,
		HighCardinality: []string{"city"},
		YTrainPrior:     []float64{1},
		YTrainPost:      []float64{0, 1},
	})
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Errorf("Features with short target vector = %v, want EncodingError", err)
	}
}
