package encode

// targetEncoder replaces a high-cardinality categorical column with ordered
// target statistics, the scheme used by CatBoost: row i is encoded from the
// target values of rows 0..i-1 only, smoothed toward the global target mean.
// A fresh encoder is fitted per dataset lineage; sharing one across lineages
// would leak one dataset's target statistics into the other model's
// evaluation.
type targetEncoder struct {
	prior float64 // global target mean over the fitted training data
	sums  map[string]float64
	count map[string]int
}

// fitTransform encodes the training values with the ordered pass and retains
// the full-data statistics for later transform calls.
//
// enc_i = (sum of targets of earlier rows in the category + prior) /
//         (number of earlier rows in the category + 1)
func fitTransform(values []string, y []float64) ([]float64, *targetEncoder) {
	enc := &targetEncoder{
		sums:  make(map[string]float64),
		count: make(map[string]int),
	}
	total := 0.0
	for _, v := range y {
		total += v
	}
	enc.prior = total / float64(len(y))

	out := make([]float64, len(values))
	for i, cat := range values {
		out[i] = (enc.sums[cat] + enc.prior) / (float64(enc.count[cat]) + 1)
		enc.sums[cat] += y[i]
		enc.count[cat]++
	}
	return out, enc
}

// transform encodes held-out values using the full training statistics.
// Categories unseen during fitting fall back to the global mean.
func (e *targetEncoder) transform(values []string) []float64 {
	out := make([]float64, len(values))
	for i, cat := range values {
		out[i] = (e.sums[cat] + e.prior) / (float64(e.count[cat]) + 1)
	}
	return out
}
