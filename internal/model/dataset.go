package model

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Encoders maps a categorical column name to its value → code table.
// Codes are assigned by sorted unique value so encoding is deterministic
// for a fixed input file.
type Encoders map[string]map[string]float64

// Dataset is an in-memory feature matrix plus binary labels.
type Dataset struct {
	FeatureNames []string
	TargetColumn string
	Features     [][]float64
	Labels       []float64
	Encoders     Encoders
}

// LoadCSV reads a CSV file and projects it onto the given feature and target
// columns. Columns with non-numeric values are label-encoded; when enc is
// nil fresh encoders are built (training), otherwise the provided encoders
// are applied (evaluation/serving) and unseen categories map to -1.
// A missing feature or target column is an error, never silently skipped.
func LoadCSV(path string, features []string, target string, enc Encoders) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset %s has no data rows", path)
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}

	cols := append(append([]string{}, features...), target)
	for _, name := range cols {
		if _, ok := colIdx[name]; !ok {
			return nil, fmt.Errorf("dataset %s: required column %q not present", path, name)
		}
	}

	rows := records[1:]
	build := enc == nil
	if build {
		enc = Encoders{}
		for _, name := range cols {
			idx := colIdx[name]
			numeric := true
			for _, row := range rows {
				if _, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64); err != nil {
					numeric = false
					break
				}
			}
			if !numeric {
				enc[name] = buildEncoder(rows, idx)
			}
		}
	}

	ds := &Dataset{
		FeatureNames: append([]string{}, features...),
		TargetColumn: target,
		Features:     make([][]float64, 0, len(rows)),
		Labels:       make([]float64, 0, len(rows)),
		Encoders:     enc,
	}

	for n, row := range rows {
		vec := make([]float64, len(features))
		for j, name := range features {
			v, err := decodeCell(row[colIdx[name]], name, enc)
			if err != nil {
				return nil, fmt.Errorf("dataset %s row %d: %w", path, n+2, err)
			}
			vec[j] = v
		}
		label, err := decodeCell(row[colIdx[target]], target, enc)
		if err != nil {
			return nil, fmt.Errorf("dataset %s row %d: %w", path, n+2, err)
		}
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("dataset %s row %d: target %q is not binary (got %v)", path, n+2, target, label)
		}
		ds.Features = append(ds.Features, vec)
		ds.Labels = append(ds.Labels, label)
	}

	return ds, nil
}

func buildEncoder(rows [][]string, idx int) map[string]float64 {
	seen := map[string]struct{}{}
	for _, row := range rows {
		seen[strings.TrimSpace(row[idx])] = struct{}{}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	table := make(map[string]float64, len(values))
	for i, v := range values {
		table[v] = float64(i)
	}
	return table
}

func decodeCell(raw, column string, enc Encoders) (float64, error) {
	raw = strings.TrimSpace(raw)
	if table, ok := enc[column]; ok {
		if code, ok := table[raw]; ok {
			return code, nil
		}
		return -1, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: cannot parse %q", column, raw)
	}
	return v, nil
}

// Split partitions the dataset into train and validation sets. Shuffling is
// seeded so the same seed reproduces the same partition.
func (d *Dataset) Split(testSize float64, seed int64) (*Dataset, *Dataset) {
	n := len(d.Features)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	cut := n - int(float64(n)*testSize)
	if cut < 1 {
		cut = 1
	}
	if cut > n {
		cut = n
	}

	return d.subset(idx[:cut]), d.subset(idx[cut:])
}

func (d *Dataset) subset(idx []int) *Dataset {
	s := &Dataset{
		FeatureNames: d.FeatureNames,
		TargetColumn: d.TargetColumn,
		Features:     make([][]float64, len(idx)),
		Labels:       make([]float64, len(idx)),
		Encoders:     d.Encoders,
	}
	for i, j := range idx {
		s.Features[i] = d.Features[j]
		s.Labels[i] = d.Labels[j]
	}
	return s
}
