// Package split allocates training and evaluation partitions for the
// efficacy comparison.
package split

import (
	"fmt"
	"math/rand"

	"github.com/driftlab/driftdetect/dataset"
)

// Partitions are the three row sets the efficacy pipeline trains and scores
// on. The test set is shared: its labels score both lineages' models, which
// is what makes the two metric reports comparable.
type Partitions struct {
	TrainPrior *dataset.Dataset
	TrainPost  *dataset.Dataset
	Test       *dataset.Dataset
}

// Allocate partitions the snapshots. When test is non-nil it is used directly
// as the evaluation set and both snapshots train in full. Otherwise the post
// snapshot is shuffled with the seed and cut at trainFraction: the leading
// rows train the post model, the trailing rows become the shared test set,
// and the prior snapshot trains in full.
func Allocate(prior, post, test *dataset.Dataset, trainFraction float64, seed int64) (*Partitions, error) {
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, &dataset.InvalidConfigError{
			Detail: fmt.Sprintf("train fraction %g outside (0, 1)", trainFraction),
		}
	}

	if test != nil {
		return &Partitions{TrainPrior: prior, TrainPost: post, Test: test}, nil
	}

	n := post.Rows()
	cut := int(float64(n) * trainFraction)
	if cut < 1 || cut >= n {
		return nil, &dataset.InvalidConfigError{
			Detail: fmt.Sprintf("post snapshot with %d rows cannot be split at fraction %g", n, trainFraction),
		}
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return &Partitions{
		TrainPrior: prior,
		TrainPost:  post.Subset(perm[:cut]),
		Test:       post.Subset(perm[cut:]),
	}, nil
}
