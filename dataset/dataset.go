// Package dataset defines the typed, normalized representation of a tabular
// snapshot and the schema/role machinery shared by the drift and efficacy
// pipelines.
//
// A raw snapshot is a slice of Series, each carrying a declared value kind
// from a closed set (string, int, float, bool). Normalization coerces every
// column to a uniform storage type per role: categorical columns to strings,
// numeric columns to float64. Role assignment is computed once, from declared
// kinds or explicit overrides, and is immutable afterwards.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Kind is the declared storage kind of a raw column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Role classifies a column for analysis purposes.
type Role int

const (
	RoleCategorical Role = iota
	RoleNumeric
)

func (r Role) String() string {
	if r == RoleCategorical {
		return "categorical"
	}
	return "numeric"
}

// Series is one raw input column with a declared kind. Exactly one of the
// value slices is populated, matching Kind.
type Series struct {
	Name    string
	Kind    Kind
	Strings []string
	Ints    []int64
	Floats  []float64
	Bools   []bool
}

// StringSeries constructs a raw string column.
func StringSeries(name string, values []string) Series {
	return Series{Name: name, Kind: KindString, Strings: values}
}

// IntSeries constructs a raw integer column.
func IntSeries(name string, values []int64) Series {
	return Series{Name: name, Kind: KindInt, Ints: values}
}

// FloatSeries constructs a raw float column.
func FloatSeries(name string, values []float64) Series {
	return Series{Name: name, Kind: KindFloat, Floats: values}
}

// BoolSeries constructs a raw boolean column.
func BoolSeries(name string, values []bool) Series {
	return Series{Name: name, Kind: KindBool, Bools: values}
}

func (s Series) len() int {
	switch s.Kind {
	case KindString:
		return len(s.Strings)
	case KindInt:
		return len(s.Ints)
	case KindFloat:
		return len(s.Floats)
	case KindBool:
		return len(s.Bools)
	}
	return 0
}

// SchemaMismatchError reports that two snapshots disagree on column names,
// order, or declared kinds. It is unrecoverable and raised at construction.
type SchemaMismatchError struct {
	Detail string
}

func (e *SchemaMismatchError) Error() string {
	return "schema mismatch: " + e.Detail
}

// InvalidConfigError reports malformed arguments: unknown column names,
// conflicting role overrides, or columns left without a role. It is raised
// before any computation starts.
type InvalidConfigError struct {
	Detail string
}

func (e *InvalidConfigError) Error() string {
	return "invalid config: " + e.Detail
}

// Roles is the immutable column-role assignment produced by Normalize.
type Roles struct {
	byName      map[string]Role
	categorical []string // in schema order
	numeric     []string // in schema order
}

// Role returns the role assigned to a column.
func (r Roles) Role(name string) (Role, bool) {
	role, ok := r.byName[name]
	return role, ok
}

// Categorical returns the categorical column names in schema order.
func (r Roles) Categorical() []string {
	out := make([]string, len(r.categorical))
	copy(out, r.categorical)
	return out
}

// Numeric returns the numeric column names in schema order.
func (r Roles) Numeric() []string {
	out := make([]string, len(r.numeric))
	copy(out, r.numeric)
	return out
}

// Column is one normalized column. Str is populated for categorical columns,
// Num for numeric ones.
type Column struct {
	Name string
	Kind Kind
	Role Role
	Str  []string
	Num  []float64
}

// Dataset is a normalized snapshot: ordered columns with a fixed row count.
// Datasets are never mutated after construction; derived views (subsets) are
// fresh copies.
type Dataset struct {
	cols  []Column
	index map[string]int
	rows  int
}

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// ColumnNames returns the column names in schema order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return &d.cols[i], true
}

// Cardinality returns the number of distinct values in a categorical column,
// or distinct float values in a numeric one.
func (d *Dataset) Cardinality(name string) int {
	col, ok := d.Column(name)
	if !ok {
		return 0
	}
	if col.Role == RoleCategorical {
		seen := make(map[string]struct{}, len(col.Str))
		for _, v := range col.Str {
			seen[v] = struct{}{}
		}
		return len(seen)
	}
	seen := make(map[float64]struct{}, len(col.Num))
	for _, v := range col.Num {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Subset returns a new dataset containing the given rows, in the given order.
func (d *Dataset) Subset(rows []int) *Dataset {
	out := &Dataset{
		cols:  make([]Column, len(d.cols)),
		index: make(map[string]int, len(d.cols)),
		rows:  len(rows),
	}
	for i, c := range d.cols {
		nc := Column{Name: c.Name, Kind: c.Kind, Role: c.Role}
		if c.Role == RoleCategorical {
			nc.Str = make([]string, len(rows))
			for j, r := range rows {
				nc.Str[j] = c.Str[r]
			}
		} else {
			nc.Num = make([]float64, len(rows))
			for j, r := range rows {
				nc.Num[j] = c.Num[r]
			}
		}
		out.cols[i] = nc
		out.index[c.Name] = i
	}
	return out
}

// Hash returns a SHA-256 content hash over the normalized column data.
// Identical snapshots hash identically regardless of how they were loaded.
func (d *Dataset) Hash() string {
	hasher := sha256.New()
	for _, c := range d.cols {
		fmt.Fprintf(hasher, "%s|%s\n", c.Name, c.Role)
		if c.Role == RoleCategorical {
			for _, v := range c.Str {
				hasher.Write([]byte(v))
				hasher.Write([]byte{0})
			}
		} else {
			for _, v := range c.Num {
				fmt.Fprintf(hasher, "%.9f,", v)
			}
		}
		hasher.Write([]byte("\n"))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// Options controls role assignment during normalization. Columns listed in
// Categorical or Numeric are assigned that role regardless of declared kind;
// the two lists must be disjoint.
type Options struct {
	Categorical []string
	Numeric     []string
}

// Normalize validates that prior and post share a schema, assigns roles, and
// produces the two normalized datasets.
//
// Role inference for columns not covered by Options: string kind is
// categorical; int and float kinds are numeric. A bool column (or any future
// kind outside the closed set) has no inferred role and must be classified
// explicitly; leaving it unclassified fails with InvalidConfigError rather
// than silently dropping the column from both analyses.
func Normalize(prior, post []Series, opts Options) (*Dataset, *Dataset, Roles, error) {
	var zero Roles

	if err := checkSchema(prior, post); err != nil {
		return nil, nil, zero, err
	}

	roles, inferred, err := assignRoles(prior, opts)
	if err != nil {
		return nil, nil, zero, err
	}
	if len(inferred) > 0 {
		log.Printf("dataset: inferred roles: %s", strings.Join(inferred, ", "))
	}

	dsPrior, err := build(prior, roles)
	if err != nil {
		return nil, nil, zero, err
	}
	dsPost, err := build(post, roles)
	if err != nil {
		return nil, nil, zero, err
	}
	return dsPrior, dsPost, roles, nil
}

// NormalizeWith normalizes an additional snapshot (e.g. an external test set)
// against an already-finalized schema and role assignment.
func NormalizeWith(reference *Dataset, roles Roles, raw []Series) (*Dataset, error) {
	if len(raw) != len(reference.cols) {
		return nil, &SchemaMismatchError{
			Detail: fmt.Sprintf("expected %d columns, got %d", len(reference.cols), len(raw)),
		}
	}
	for i, s := range raw {
		ref := reference.cols[i]
		if s.Name != ref.Name {
			return nil, &SchemaMismatchError{
				Detail: fmt.Sprintf("column %d: expected %q, got %q", i, ref.Name, s.Name),
			}
		}
		if s.Kind != ref.Kind {
			return nil, &SchemaMismatchError{
				Detail: fmt.Sprintf("column %q: expected kind %s, got %s", s.Name, ref.Kind, s.Kind),
			}
		}
	}
	return build(raw, roles)
}

func checkSchema(prior, post []Series) error {
	if len(prior) == 0 {
		return &InvalidConfigError{Detail: "prior dataset has no columns"}
	}
	if len(prior) != len(post) {
		return &SchemaMismatchError{
			Detail: fmt.Sprintf("prior has %d columns, post has %d", len(prior), len(post)),
		}
	}
	seen := make(map[string]struct{}, len(prior))
	for i := range prior {
		p, q := prior[i], post[i]
		if p.Name == "" {
			return &InvalidConfigError{Detail: fmt.Sprintf("column %d has an empty name", i)}
		}
		if _, dup := seen[p.Name]; dup {
			return &InvalidConfigError{Detail: fmt.Sprintf("duplicate column name %q", p.Name)}
		}
		seen[p.Name] = struct{}{}
		if p.Name != q.Name {
			return &SchemaMismatchError{
				Detail: fmt.Sprintf("column %d: prior %q vs post %q", i, p.Name, q.Name),
			}
		}
		if p.Kind != q.Kind {
			return &SchemaMismatchError{
				Detail: fmt.Sprintf("column %q: prior kind %s vs post kind %s", p.Name, p.Kind, q.Kind),
			}
		}
	}
	// Row counts must be uniform within each snapshot (they may differ
	// between the two snapshots).
	for _, set := range [][]Series{prior, post} {
		n := set[0].len()
		for _, s := range set[1:] {
			if s.len() != n {
				return &SchemaMismatchError{
					Detail: fmt.Sprintf("column %q has %d rows, expected %d", s.Name, s.len(), n),
				}
			}
		}
	}
	return nil
}

func assignRoles(schema []Series, opts Options) (Roles, []string, error) {
	byName := make(map[string]Role, len(schema))
	names := make(map[string]Kind, len(schema))
	for _, s := range schema {
		names[s.Name] = s.Kind
	}

	override := make(map[string]Role)
	for _, c := range opts.Categorical {
		if _, ok := names[c]; !ok {
			return Roles{}, nil, &InvalidConfigError{Detail: fmt.Sprintf("categorical column %q not in schema", c)}
		}
		override[c] = RoleCategorical
	}
	for _, c := range opts.Numeric {
		if prev, ok := override[c]; ok && prev == RoleCategorical {
			return Roles{}, nil, &InvalidConfigError{Detail: fmt.Sprintf("column %q listed as both categorical and numeric", c)}
		}
		if _, ok := names[c]; !ok {
			return Roles{}, nil, &InvalidConfigError{Detail: fmt.Sprintf("numeric column %q not in schema", c)}
		}
		override[c] = RoleNumeric
	}

	var inferred []string
	for _, s := range schema {
		if role, ok := override[s.Name]; ok {
			byName[s.Name] = role
			continue
		}
		switch s.Kind {
		case KindString:
			byName[s.Name] = RoleCategorical
			inferred = append(inferred, fmt.Sprintf("%s=categorical", s.Name))
		case KindInt, KindFloat:
			byName[s.Name] = RoleNumeric
			inferred = append(inferred, fmt.Sprintf("%s=numeric", s.Name))
		default:
			return Roles{}, nil, &InvalidConfigError{
				Detail: fmt.Sprintf("column %q has kind %s with no inferred role; classify it explicitly", s.Name, s.Kind),
			}
		}
	}

	roles := Roles{byName: byName}
	for _, s := range schema {
		if byName[s.Name] == RoleCategorical {
			roles.categorical = append(roles.categorical, s.Name)
		} else {
			roles.numeric = append(roles.numeric, s.Name)
		}
	}
	return roles, inferred, nil
}

func build(raw []Series, roles Roles) (*Dataset, error) {
	ds := &Dataset{
		cols:  make([]Column, len(raw)),
		index: make(map[string]int, len(raw)),
		rows:  raw[0].len(),
	}
	for i, s := range raw {
		role := roles.byName[s.Name]
		col := Column{Name: s.Name, Kind: s.Kind, Role: role}
		if role == RoleCategorical {
			col.Str = toStrings(s)
		} else {
			num, err := toFloats(s)
			if err != nil {
				return nil, err
			}
			col.Num = num
		}
		ds.cols[i] = col
		ds.index[s.Name] = i
	}
	return ds, nil
}

func toStrings(s Series) []string {
	switch s.Kind {
	case KindString:
		out := make([]string, len(s.Strings))
		copy(out, s.Strings)
		return out
	case KindInt:
		out := make([]string, len(s.Ints))
		for i, v := range s.Ints {
			out[i] = strconv.FormatInt(v, 10)
		}
		return out
	case KindFloat:
		out := make([]string, len(s.Floats))
		for i, v := range s.Floats {
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return out
	case KindBool:
		out := make([]string, len(s.Bools))
		for i, v := range s.Bools {
			out[i] = strconv.FormatBool(v)
		}
		return out
	}
	return nil
}

func toFloats(s Series) ([]float64, error) {
	switch s.Kind {
	case KindFloat:
		out := make([]float64, len(s.Floats))
		copy(out, s.Floats)
		return out, nil
	case KindInt:
		out := make([]float64, len(s.Ints))
		for i, v := range s.Ints {
			out[i] = float64(v)
		}
		return out, nil
	case KindBool:
		out := make([]float64, len(s.Bools))
		for i, v := range s.Bools {
			if v {
				out[i] = 1
			}
		}
		return out, nil
	case KindString:
		out := make([]float64, len(s.Strings))
		for i, v := range s.Strings {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, &InvalidConfigError{
					Detail: fmt.Sprintf("column %q marked numeric but row %d (%q) is not a number", s.Name, i, v),
				}
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, &InvalidConfigError{Detail: fmt.Sprintf("column %q has unsupported kind", s.Name)}
}
