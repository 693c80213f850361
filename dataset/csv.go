package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadCSV loads a headered CSV file into raw series, inferring a kind per
// column. Inference tries int, then float, then bool; a column where any
// non-empty cell fails all three is a string column. Empty cells are not
// supported for non-string columns.
func ReadCSV(path string) ([]Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return parseCSV(f, path)
}

func parseCSV(r io.Reader, name string) ([]Series, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("parse %s: need a header row and at least one data row", name)
	}

	header := records[0]
	rows := records[1:]
	series := make([]Series, len(header))

	for c, colName := range header {
		cells := make([]string, len(rows))
		for r, row := range rows {
			if len(row) != len(header) {
				return nil, fmt.Errorf("parse %s: row %d has %d fields, expected %d", name, r+1, len(row), len(header))
			}
			cells[r] = row[c]
		}
		series[c] = inferSeries(colName, cells)
	}
	return series, nil
}

func inferSeries(name string, cells []string) Series {
	if ints, ok := tryInts(cells); ok {
		return IntSeries(name, ints)
	}
	if floats, ok := tryFloats(cells); ok {
		return FloatSeries(name, floats)
	}
	if bools, ok := tryBools(cells); ok {
		return BoolSeries(name, bools)
	}
	return StringSeries(name, cells)
}

func tryInts(cells []string) ([]int64, bool) {
	out := make([]int64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func tryFloats(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func tryBools(cells []string) ([]bool, bool) {
	out := make([]bool, len(cells))
	for i, c := range cells {
		switch c {
		case "true", "True", "TRUE":
			out[i] = true
		case "false", "False", "FALSE":
			out[i] = false
		default:
			return nil, false
		}
	}
	return out, true
}
