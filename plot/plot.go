// Package plot builds renderable figure handles over the normalized
// snapshots. A Figure bundles the chart data with a matplotlib script that
// renders it; Save writes both into an output directory, so rendering needs
// only a Python environment with matplotlib.
package plot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftlab/driftdetect/dataset"
)

// MaxCategories is the default cutoff above which a categorical column is
// skipped by the proportion and violin figures, keeping the charts legible.
const MaxCategories = 20

// Figure is a renderable chart handle: JSON-marshalable data plus the
// matplotlib script that consumes it.
type Figure struct {
	Name   string
	Data   any
	Script string
}

// Save writes <name>_data.json and plot_<name>.py into dir, creating it if
// needed.
func (f *Figure) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	raw, err := json.MarshalIndent(f.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", f.Name, err)
	}
	dataPath := filepath.Join(dir, f.Name+"_data.json")
	if err := os.WriteFile(dataPath, raw, 0644); err != nil {
		return err
	}
	scriptPath := filepath.Join(dir, "plot_"+f.Name+".py")
	return os.WriteFile(scriptPath, []byte(f.Script), 0755)
}

// NumericPairs builds a pairwise scatter figure over the numeric columns,
// prior and post overlaid per panel. An empty cols selects every numeric
// column.
func NumericPairs(prior, post *dataset.Dataset, roles dataset.Roles, cols []string) (*Figure, error) {
	if len(cols) == 0 {
		cols = roles.Numeric()
	}
	for _, name := range cols {
		if err := requireRole(roles, name, dataset.RoleNumeric); err != nil {
			return nil, err
		}
	}

	data := map[string]any{
		"columns": cols,
		"prior":   numericColumns(prior, cols),
		"post":    numericColumns(post, cols),
	}
	return &Figure{Name: "numeric_pairs", Data: data, Script: numericPairsScript}, nil
}

// CategoricalToNumeric builds violin figures of each numeric column grouped
// by each categorical column, one panel per (categorical, numeric) pair with
// prior and post side by side. Empty slices select every eligible column;
// categorical columns above MaxCategories distinct values are skipped.
func CategoricalToNumeric(prior, post *dataset.Dataset, roles dataset.Roles, catCols, numCols []string) (*Figure, error) {
	explicit := len(catCols) > 0
	if !explicit {
		catCols = roles.Categorical()
	}
	if len(numCols) == 0 {
		numCols = roles.Numeric()
	}
	for _, name := range catCols {
		if err := requireRole(roles, name, dataset.RoleCategorical); err != nil {
			return nil, err
		}
	}
	for _, name := range numCols {
		if err := requireRole(roles, name, dataset.RoleNumeric); err != nil {
			return nil, err
		}
	}

	var pairs []violinPair
	for _, cat := range catCols {
		if !explicit && tooManyCategories(prior, post, cat) {
			continue
		}
		for _, num := range numCols {
			pairs = append(pairs, violinPair{
				Categorical: cat,
				Numeric:     num,
				Prior:       groupedValues(prior, cat, num),
				Post:        groupedValues(post, cat, num),
			})
		}
	}
	return &Figure{Name: "violin", Data: map[string]any{"pairs": pairs}, Script: violinScript}, nil
}

// CategoricalProportions builds category-frequency bar figures, prior and
// post side by side per column. An empty cols selects every categorical
// column with at most MaxCategories distinct values.
func CategoricalProportions(prior, post *dataset.Dataset, roles dataset.Roles, cols []string) (*Figure, error) {
	explicit := len(cols) > 0
	if !explicit {
		cols = roles.Categorical()
	}
	for _, name := range cols {
		if err := requireRole(roles, name, dataset.RoleCategorical); err != nil {
			return nil, err
		}
	}

	var out []categoricalColumn
	for _, name := range cols {
		if !explicit && tooManyCategories(prior, post, name) {
			continue
		}
		cats, p, q := proportions(prior, post, name)
		out = append(out, categoricalColumn{Name: name, Categories: cats, Prior: p, Post: q})
	}
	return &Figure{Name: "categorical", Data: map[string]any{"columns": out}, Script: categoricalScript}, nil
}

// violinPair is one (categorical, numeric) panel of the violin figure.
type violinPair struct {
	Categorical string               `json:"categorical"`
	Numeric     string               `json:"numeric"`
	Prior       map[string][]float64 `json:"prior"`
	Post        map[string][]float64 `json:"post"`
}

// categoricalColumn is one panel of the category-proportion figure.
type categoricalColumn struct {
	Name       string    `json:"name"`
	Categories []string  `json:"categories"`
	Prior      []float64 `json:"prior"`
	Post       []float64 `json:"post"`
}

func requireRole(roles dataset.Roles, name string, want dataset.Role) error {
	role, ok := roles.Role(name)
	if !ok {
		return &dataset.InvalidConfigError{Detail: fmt.Sprintf("plot column %q not in schema", name)}
	}
	if role != want {
		return &dataset.InvalidConfigError{Detail: fmt.Sprintf("plot column %q is not %s", name, want)}
	}
	return nil
}

func tooManyCategories(prior, post *dataset.Dataset, name string) bool {
	return prior.Cardinality(name) > MaxCategories || post.Cardinality(name) > MaxCategories
}

func numericColumns(ds *dataset.Dataset, cols []string) map[string][]float64 {
	out := make(map[string][]float64, len(cols))
	for _, name := range cols {
		col, _ := ds.Column(name)
		out[name] = col.Num
	}
	return out
}

func groupedValues(ds *dataset.Dataset, cat, num string) map[string][]float64 {
	catCol, _ := ds.Column(cat)
	numCol, _ := ds.Column(num)
	out := make(map[string][]float64)
	for i, label := range catCol.Str {
		out[label] = append(out[label], numCol.Num[i])
	}
	return out
}

func proportions(prior, post *dataset.Dataset, name string) ([]string, []float64, []float64) {
	colPrior, _ := prior.Column(name)
	colPost, _ := post.Column(name)

	seen := make(map[string]struct{})
	var cats []string
	countsPrior := make(map[string]int)
	countsPost := make(map[string]int)
	for _, v := range colPrior.Str {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			cats = append(cats, v)
		}
		countsPrior[v]++
	}
	for _, v := range colPost.Str {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			cats = append(cats, v)
		}
		countsPost[v]++
	}

	p := make([]float64, len(cats))
	q := make([]float64, len(cats))
	for i, c := range cats {
		p[i] = float64(countsPrior[c]) / float64(len(colPrior.Str))
		q[i] = float64(countsPost[c]) / float64(len(colPost.Str))
	}
	return cats, p, q
}

const numericPairsScript = `#!/usr/bin/env python3
import matplotlib.pyplot as plt
import json

with open('numeric_pairs_data.json', 'r') as f:
    data = json.load(f)

cols = data['columns']
n = len(cols)

fig, axes = plt.subplots(n, n, figsize=(3 * n, 3 * n))

for i, yc in enumerate(cols):
    for j, xc in enumerate(cols):
        ax = axes[i][j] if n > 1 else axes
        if i == j:
            ax.hist(data['prior'][xc], bins=30, alpha=0.5, label='prior')
            ax.hist(data['post'][xc], bins=30, alpha=0.5, label='post')
        else:
            ax.scatter(data['prior'][xc], data['prior'][yc], s=4, alpha=0.4, label='prior')
            ax.scatter(data['post'][xc], data['post'][yc], s=4, alpha=0.4, label='post')
        if i == n - 1:
            ax.set_xlabel(xc, fontsize=9)
        if j == 0:
            ax.set_ylabel(yc, fontsize=9)

handles, labels = (axes[0][0] if n > 1 else axes).get_legend_handles_labels()
fig.legend(handles, labels, loc='upper right')
plt.tight_layout()
plt.savefig('numeric_pairs.png', dpi=300)
print('Saved numeric_pairs.png')
`

const violinScript = `#!/usr/bin/env python3
import matplotlib.pyplot as plt
import json

with open('violin_data.json', 'r') as f:
    data = json.load(f)

pairs = data['pairs']

for pair in pairs:
    cats = sorted(set(pair['prior']) | set(pair['post']))
    fig, (ax1, ax2) = plt.subplots(1, 2, figsize=(12, 5), sharey=True)
    for ax, side, title in ((ax1, pair['prior'], 'prior'), (ax2, pair['post'], 'post')):
        groups = [side.get(c, []) for c in cats]
        groups = [g if g else [float('nan')] for g in groups]
        ax.violinplot(groups, showmedians=True)
        ax.set_xticks(range(1, len(cats) + 1))
        ax.set_xticklabels(cats, rotation=45, fontsize=9)
        ax.set_title(title, fontsize=11)
        ax.grid(True, alpha=0.3)
    ax1.set_ylabel(pair['numeric'], fontsize=11)
    fig.suptitle(f"{pair['numeric']} by {pair['categorical']}", fontsize=13)
    plt.tight_layout()
    name = f"violin_{pair['categorical']}_{pair['numeric']}.png"
    plt.savefig(name, dpi=300)
    plt.close(fig)
    print(f'Saved {name}')
`

const categoricalScript = `#!/usr/bin/env python3
import matplotlib.pyplot as plt
import numpy as np
import json

with open('categorical_data.json', 'r') as f:
    data = json.load(f)

for col in data['columns']:
    cats = col['categories']
    x = np.arange(len(cats))
    width = 0.4
    fig, ax = plt.subplots(figsize=(max(6, len(cats)), 5))
    ax.bar(x - width / 2, col['prior'], width, label='prior', alpha=0.8)
    ax.bar(x + width / 2, col['post'], width, label='post', alpha=0.8)
    ax.set_xticks(x)
    ax.set_xticklabels(cats, rotation=45, fontsize=9)
    ax.set_ylabel('Proportion', fontsize=11)
    ax.set_title(col['name'], fontsize=13)
    ax.legend()
    ax.grid(True, alpha=0.3, axis='y')
    plt.tight_layout()
    name = f"categorical_{col['name']}.png"
    plt.savefig(name, dpi=300)
    plt.close(fig)
    print(f'Saved {name}')
`
