// Package encode converts categorical columns into model-ready numeric
// features without leaking information between the prior, post, and test
// partitions.
//
// Low-cardinality columns are one-hot expanded with a single fit over the
// union of all three partitions, so both lineages end up with identical
// feature columns even when a category appears in only one partition.
// High-cardinality columns use ordered target statistics fitted separately
// per lineage (see targetEncoder).
package encode

import (
	"fmt"
	"log"
	"sort"

	"github.com/driftlab/driftdetect/dataset"
)

// EncodingError reports that the encoder cannot run: the target column leaked
// into a feature-encoding set, or a partition cannot support a fit.
type EncodingError struct {
	Detail string
}

func (e *EncodingError) Error() string {
	return "encoding: " + e.Detail
}

// Input carries the three partitions and the encoding assignment. YTrainPrior
// and YTrainPost are the numeric target vectors of the two training
// partitions; they feed the per-lineage target-statistic encoders and are
// required only when HighCardinality is non-empty.
type Input struct {
	TrainPrior *dataset.Dataset
	Test       *dataset.Dataset
	TrainPost  *dataset.Dataset

	Target          string
	OneHot          []string
	HighCardinality []string

	YTrainPrior []float64
	YTrainPost  []float64
}

// FeatureSet is the encoded output: four feature matrices over one shared
// column layout. XTestPrior and XTestPost cover the same test rows but differ
// in the high-cardinality columns, which are encoded by each lineage's own
// encoder.
type FeatureSet struct {
	Columns []string

	XTrainPrior [][]float64
	XTestPrior  [][]float64
	XTrainPost  [][]float64
	XTestPost   [][]float64
}

const (
	partTrainPrior = iota
	partTest
	partTrainPost
	numPartitions
)

// Features encodes the three partitions. The produced matrices always share
// column names and ordering: non-expanded columns keep schema order, followed
// by the one-hot indicator columns.
func Features(in Input) (*FeatureSet, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	oneHot := toSet(in.OneHot)
	hiCard := toSet(in.HighCardinality)

	if len(in.OneHot) > 0 {
		log.Printf("encode: one-hot columns: %v", in.OneHot)
	}
	if len(in.HighCardinality) > 0 {
		log.Printf("encode: target-statistic columns: %v", in.HighCardinality)
	}

	parts := [numPartitions]*dataset.Dataset{in.TrainPrior, in.Test, in.TrainPost}

	// Column layout: passthrough and high-cardinality columns in schema
	// order, then one-hot expansions in schema order with categories sorted.
	var columns []string
	type colPlan struct {
		name   string
		hi     bool
		oneHot bool
	}
	var plans []colPlan
	for _, name := range in.TrainPrior.ColumnNames() {
		if name == in.Target {
			continue
		}
		switch {
		case oneHot[name]:
			plans = append(plans, colPlan{name: name, oneHot: true})
		case hiCard[name]:
			plans = append(plans, colPlan{name: name, hi: true})
			columns = append(columns, name)
		default:
			columns = append(columns, name)
		}
	}

	// Per-partition column-major buffers; the lineage-split test matrices
	// share everything except high-cardinality columns.
	type buffers struct {
		cols [][]float64
	}
	var shared [numPartitions]buffers
	var testPriorHi, testPostHi, trainPriorHi, trainPostHi map[string][]float64
	trainPriorHi = make(map[string][]float64)
	trainPostHi = make(map[string][]float64)
	testPriorHi = make(map[string][]float64)
	testPostHi = make(map[string][]float64)

	appendCol := func(p int, vals []float64) {
		shared[p].cols = append(shared[p].cols, vals)
	}

	for _, plan := range plans {
		if plan.oneHot {
			continue
		}
		if plan.hi {
			// Placeholder position; actual values are lineage-specific and
			// substituted during assembly.
			encodeHighCardinality(parts, plan.name, in,
				trainPriorHi, trainPostHi, testPriorHi, testPostHi)
			for p := 0; p < numPartitions; p++ {
				appendCol(p, nil)
			}
			continue
		}
		for p := 0; p < numPartitions; p++ {
			col, _ := parts[p].Column(plan.name)
			appendCol(p, col.Num)
		}
	}

	// One-hot: concatenate the three partitions with a provenance tag, fit
	// the category-to-indicator mapping once over the union, apply
	// uniformly, then split the indicators back out by tag.
	for _, plan := range plans {
		if !plan.oneHot {
			continue
		}
		var combined []string
		var tags []int
		for p := 0; p < numPartitions; p++ {
			col, _ := parts[p].Column(plan.name)
			for _, v := range col.Str {
				combined = append(combined, v)
				tags = append(tags, p)
			}
		}
		cats := sortedUnique(combined)
		for _, cat := range cats {
			columns = append(columns, plan.name+"="+cat)
			var split [numPartitions][]float64
			for p := 0; p < numPartitions; p++ {
				split[p] = make([]float64, 0, parts[p].Rows())
			}
			for i, v := range combined {
				ind := 0.0
				if v == cat {
					ind = 1.0
				}
				split[tags[i]] = append(split[tags[i]], ind)
			}
			for p := 0; p < numPartitions; p++ {
				appendCol(p, split[p])
			}
		}
	}

	// Assemble row-major matrices, substituting the lineage-specific
	// high-cardinality columns.
	hiIdx := map[int]string{}
	pos := 0
	for _, plan := range plans {
		if plan.oneHot {
			continue
		}
		if plan.hi {
			hiIdx[pos] = plan.name
		}
		pos++
	}

	assemble := func(p int, hi map[string][]float64) [][]float64 {
		rows := parts[p].Rows()
		out := make([][]float64, rows)
		for r := 0; r < rows; r++ {
			out[r] = make([]float64, len(columns))
		}
		for c, vals := range shared[p].cols {
			if name, ok := hiIdx[c]; ok {
				vals = hi[name]
			}
			for r := 0; r < rows; r++ {
				out[r][c] = vals[r]
			}
		}
		return out
	}

	return &FeatureSet{
		Columns:     columns,
		XTrainPrior: assemble(partTrainPrior, trainPriorHi),
		XTestPrior:  assemble(partTest, testPriorHi),
		XTrainPost:  assemble(partTrainPost, trainPostHi),
		XTestPost:   assemble(partTest, testPostHi),
	}, nil
}

// encodeHighCardinality fits one target-statistic encoder per lineage and
// applies each to its own training partition and to the shared test rows.
func encodeHighCardinality(
	parts [numPartitions]*dataset.Dataset,
	name string,
	in Input,
	trainPriorHi, trainPostHi, testPriorHi, testPostHi map[string][]float64,
) {
	trainPriorCol, _ := parts[partTrainPrior].Column(name)
	trainPostCol, _ := parts[partTrainPost].Column(name)
	testCol, _ := parts[partTest].Column(name)

	encodedPrior, encPrior := fitTransform(trainPriorCol.Str, in.YTrainPrior)
	encodedPost, encPost := fitTransform(trainPostCol.Str, in.YTrainPost)

	trainPriorHi[name] = encodedPrior
	trainPostHi[name] = encodedPost
	testPriorHi[name] = encPrior.transform(testCol.Str)
	testPostHi[name] = encPost.transform(testCol.Str)
}

func validate(in Input) error {
	for _, col := range in.OneHot {
		if col == in.Target {
			return &EncodingError{Detail: fmt.Sprintf("target column %q listed for one-hot encoding", col)}
		}
	}
	for _, col := range in.HighCardinality {
		if col == in.Target {
			return &EncodingError{Detail: fmt.Sprintf("target column %q listed for target-statistic encoding", col)}
		}
	}
	for _, part := range []struct {
		name string
		ds   *dataset.Dataset
	}{
		{"prior training", in.TrainPrior},
		{"test", in.Test},
		{"post training", in.TrainPost},
	} {
		if part.ds == nil || part.ds.Rows() == 0 {
			return &EncodingError{Detail: fmt.Sprintf("%s partition has no rows; encoder cannot fit", part.name)}
		}
	}
	if len(in.HighCardinality) > 0 {
		if len(in.YTrainPrior) != in.TrainPrior.Rows() || len(in.YTrainPost) != in.TrainPost.Rows() {
			return &EncodingError{Detail: "target vectors do not match training partition row counts"}
		}
	}
	return nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func sortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
