package drift

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// kde is a univariate Gaussian kernel density estimate with Scott's-rule
// bandwidth: h = sigma * n^(-1/5), sigma the sample standard deviation.
type kde struct {
	samples   []float64
	bandwidth float64
}

// fitKDE fits a density estimate on raw values. The caller guarantees at
// least two distinct values, so the bandwidth is strictly positive.
func fitKDE(values []float64) kde {
	n := float64(len(values))
	sigma := stat.StdDev(values, nil)
	return kde{
		samples:   values,
		bandwidth: sigma * math.Pow(n, -0.2),
	}
}

// evaluate returns the estimated density at x.
func (k kde) evaluate(x float64) float64 {
	const invSqrt2Pi = 0.3989422804014327
	sum := 0.0
	for _, s := range k.samples {
		z := (x - s) / k.bandwidth
		sum += math.Exp(-0.5*z*z) * invSqrt2Pi
	}
	return sum / (float64(len(k.samples)) * k.bandwidth)
}

// sample evaluates the density at each grid point.
func (k kde) sample(grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, x := range grid {
		out[i] = k.evaluate(x)
	}
	return out
}
