package driftdetect

import (
	"fmt"
	"sort"

	"github.com/driftlab/driftdetect/dataset"
	"github.com/driftlab/driftdetect/drift"
	"github.com/driftlab/driftdetect/efficacy"
	"github.com/driftlab/driftdetect/encode"
	"github.com/driftlab/driftdetect/plot"
	"github.com/driftlab/driftdetect/split"
	"github.com/driftlab/driftdetect/train"
)

// Detector holds the two normalized snapshots and their immutable role
// assignment. All analysis state is per-call; nothing is accumulated on the
// detector between operations.
type Detector struct {
	prior *dataset.Dataset
	post  *dataset.Dataset
	roles dataset.Roles
}

// Option adjusts role assignment at construction.
type Option func(*dataset.Options)

// WithCategorical forces the listed columns to the categorical role.
func WithCategorical(cols ...string) Option {
	return func(o *dataset.Options) { o.Categorical = append(o.Categorical, cols...) }
}

// WithNumeric forces the listed columns to the numeric role.
func WithNumeric(cols ...string) Option {
	return func(o *dataset.Options) { o.Numeric = append(o.Numeric, cols...) }
}

// New validates that the two raw snapshots share a schema, assigns column
// roles, normalizes both, and returns a detector over them.
func New(prior, post []dataset.Series, opts ...Option) (*Detector, error) {
	var dsOpts dataset.Options
	for _, opt := range opts {
		opt(&dsOpts)
	}
	dsPrior, dsPost, roles, err := dataset.Normalize(prior, post, dsOpts)
	if err != nil {
		return nil, err
	}
	return &Detector{prior: dsPrior, post: dsPost, roles: roles}, nil
}

// Prior returns the normalized prior snapshot.
func (d *Detector) Prior() *dataset.Dataset { return d.prior }

// Post returns the normalized post snapshot.
func (d *Detector) Post() *dataset.Dataset { return d.post }

// Roles returns the column-role assignment.
func (d *Detector) Roles() dataset.Roles { return d.roles }

// ComputeDrift scores every column's distributional divergence between the
// two snapshots and returns the ranked report.
func (d *Detector) ComputeDrift() (*drift.Report, error) {
	return drift.Compute(d.prior, d.post, d.roles)
}

// EfficacyConfig configures one efficacy comparison. Zero values take the
// documented defaults.
type EfficacyConfig struct {
	// TargetColumn is the supervised target. Required. A categorical target
	// selects classification, a numeric one regression.
	TargetColumn string

	// TestData optionally supplies an external held-out set with the same
	// schema as the snapshots. When nil, the test set is carved from the post
	// snapshot at 1-TrainFraction.
	TestData []dataset.Series

	// OneHotColumns and HighCardinalityColumns override the automatic
	// encoding assignment. When both are empty, categorical feature columns
	// with cardinality at most CardinalityCutoff are one-hot encoded and the
	// rest are target-statistic encoded.
	OneHotColumns          []string
	HighCardinalityColumns []string
	CardinalityCutoff      int // default 5

	Seed             int64
	TrainFraction    float64    // default 0.7
	CVFolds          int        // default 3
	SearchIterations int        // default 5
	ParamGrid        train.Grid // default train.DefaultGrid()

	// PositiveLabel selects the reported class for a binary target; defaults
	// to the second label in sorted order.
	PositiveLabel string
}

func (c EfficacyConfig) withDefaults() EfficacyConfig {
	if c.CardinalityCutoff <= 0 {
		c.CardinalityCutoff = 5
	}
	if c.TrainFraction == 0 {
		c.TrainFraction = 0.7
	}
	if c.CVFolds <= 0 {
		c.CVFolds = 3
	}
	if c.SearchIterations <= 0 {
		c.SearchIterations = 5
	}
	return c
}

// CompareEfficacy trains one ensemble per snapshot lineage and scores both on
// the shared test labels. The model family follows the target column's role.
func (d *Detector) CompareEfficacy(cfg EfficacyConfig) (*efficacy.Report, error) {
	cfg = cfg.withDefaults()

	if cfg.TargetColumn == "" {
		return nil, &dataset.InvalidConfigError{Detail: "target column is required"}
	}
	targetRole, ok := d.roles.Role(cfg.TargetColumn)
	if !ok {
		return nil, &dataset.InvalidConfigError{
			Detail: fmt.Sprintf("target column %q not in schema", cfg.TargetColumn),
		}
	}
	classify := targetRole == dataset.RoleCategorical

	var test *dataset.Dataset
	if cfg.TestData != nil {
		var err error
		test, err = dataset.NormalizeWith(d.prior, d.roles, cfg.TestData)
		if err != nil {
			return nil, err
		}
	}

	parts, err := split.Allocate(d.prior, d.post, test, cfg.TrainFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}

	oneHot, hiCard, err := d.encodingAssignment(cfg)
	if err != nil {
		return nil, err
	}

	// Target vectors. Classification labels map to indices in a vocabulary
	// built jointly over all three partitions so both models and the truth
	// agree on class identity.
	var vocab []string
	var yTrainPrior, yTrainPost, yTest []float64
	if classify {
		vocab = labelVocabulary(cfg.TargetColumn, parts)
		yTrainPrior = labelIndices(parts.TrainPrior, cfg.TargetColumn, vocab)
		yTrainPost = labelIndices(parts.TrainPost, cfg.TargetColumn, vocab)
	} else {
		yTrainPrior = numericTarget(parts.TrainPrior, cfg.TargetColumn)
		yTrainPost = numericTarget(parts.TrainPost, cfg.TargetColumn)
		yTest = numericTarget(parts.Test, cfg.TargetColumn)
	}

	features, err := encode.Features(encode.Input{
		TrainPrior:      parts.TrainPrior,
		Test:            parts.Test,
		TrainPost:       parts.TrainPost,
		Target:          cfg.TargetColumn,
		OneHot:          oneHot,
		HighCardinality: hiCard,
		YTrainPrior:     yTrainPrior,
		YTrainPost:      yTrainPost,
	})
	if err != nil {
		return nil, err
	}

	searchCfg := train.Config{
		Grid:       cfg.ParamGrid,
		Iterations: cfg.SearchIterations,
		Folds:      cfg.CVFolds,
		Seed:       cfg.Seed,
		Classify:   classify,
	}
	resPrior, err := train.Search("prior", features.XTrainPrior, yTrainPrior, searchCfg)
	if err != nil {
		return nil, err
	}
	resPost, err := train.Search("post", features.XTrainPost, yTrainPost, searchCfg)
	if err != nil {
		return nil, err
	}

	predPrior := resPrior.Model.Predict(features.XTestPrior)
	predPost := resPost.Model.Predict(features.XTestPost)

	if !classify {
		return &efficacy.Report{
			Task:       efficacy.TaskRegression,
			Regression: efficacy.EvalRegression(yTest, predPrior, predPost),
		}, nil
	}

	truth, _ := parts.Test.Column(cfg.TargetColumn)
	report := efficacy.EvalClassification(
		truth.Str,
		labelsFromIndices(predPrior, vocab),
		labelsFromIndices(predPost, vocab),
		cfg.PositiveLabel,
	)
	return &efficacy.Report{Task: efficacy.TaskClassification, Classification: report}, nil
}

// encodingAssignment resolves which categorical feature columns are one-hot
// encoded and which get target statistics. Explicit lists are validated;
// otherwise the split is by cardinality over both snapshots.
func (d *Detector) encodingAssignment(cfg EfficacyConfig) (oneHot, hiCard []string, err error) {
	if len(cfg.OneHotColumns) > 0 || len(cfg.HighCardinalityColumns) > 0 {
		for _, set := range [][]string{cfg.OneHotColumns, cfg.HighCardinalityColumns} {
			for _, name := range set {
				role, ok := d.roles.Role(name)
				if !ok {
					return nil, nil, &dataset.InvalidConfigError{
						Detail: fmt.Sprintf("encoding column %q not in schema", name),
					}
				}
				if role != dataset.RoleCategorical {
					return nil, nil, &dataset.InvalidConfigError{
						Detail: fmt.Sprintf("encoding column %q is not categorical", name),
					}
				}
			}
		}
		return cfg.OneHotColumns, cfg.HighCardinalityColumns, nil
	}

	for _, name := range d.roles.Categorical() {
		if name == cfg.TargetColumn {
			continue
		}
		card := d.prior.Cardinality(name)
		if c := d.post.Cardinality(name); c > card {
			card = c
		}
		if card <= cfg.CardinalityCutoff {
			oneHot = append(oneHot, name)
		} else {
			hiCard = append(hiCard, name)
		}
	}
	return oneHot, hiCard, nil
}

// labelVocabulary collects the sorted union of target labels across the three
// partitions.
func labelVocabulary(target string, parts *split.Partitions) []string {
	seen := make(map[string]struct{})
	var vocab []string
	for _, ds := range []*dataset.Dataset{parts.TrainPrior, parts.Test, parts.TrainPost} {
		col, _ := ds.Column(target)
		for _, v := range col.Str {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				vocab = append(vocab, v)
			}
		}
	}
	sort.Strings(vocab)
	return vocab
}

func labelIndices(ds *dataset.Dataset, target string, vocab []string) []float64 {
	index := make(map[string]int, len(vocab))
	for i, v := range vocab {
		index[v] = i
	}
	col, _ := ds.Column(target)
	out := make([]float64, len(col.Str))
	for i, v := range col.Str {
		out[i] = float64(index[v])
	}
	return out
}

func labelsFromIndices(indices []float64, vocab []string) []string {
	out := make([]string, len(indices))
	for i, v := range indices {
		idx := int(v)
		if idx < 0 {
			idx = 0
		}
		if idx >= len(vocab) {
			idx = len(vocab) - 1
		}
		out[i] = vocab[idx]
	}
	return out
}

func numericTarget(ds *dataset.Dataset, target string) []float64 {
	col, _ := ds.Column(target)
	return col.Num
}

// PlotNumericPairs builds a pairwise scatter figure over the numeric columns
// (all of them when cols is empty), prior and post overlaid.
func (d *Detector) PlotNumericPairs(cols ...string) (*plot.Figure, error) {
	return plot.NumericPairs(d.prior, d.post, d.roles, cols)
}

// PlotCategoricalToNumeric builds violin figures of each numeric column
// grouped by each categorical column, prior and post side by side.
func (d *Detector) PlotCategoricalToNumeric(catCols, numCols []string) (*plot.Figure, error) {
	return plot.CategoricalToNumeric(d.prior, d.post, d.roles, catCols, numCols)
}

// PlotCategorical builds category-proportion bar figures. When cols is empty
// it covers every categorical column with at most 20 distinct values.
func (d *Detector) PlotCategorical(cols ...string) (*plot.Figure, error) {
	return plot.CategoricalProportions(d.prior, d.post, d.roles, cols)
}
