package dataset

import (
	"fmt"
	"math"
	"sort"

	"armts/internal/model"
)

type FeatureSummary struct {
	Name       string            `json:"name"`
	Kind       model.FeatureKind `json:"type"`
	Count      int               `json:"count"`
	Min        float64           `json:"min,omitempty"`
	Max        float64           `json:"max,omitempty"`
	Mean       float64           `json:"mean,omitempty"`
	StdDev     float64           `json:"std_dev,omitempty"`
	Categories []string          `json:"categories,omitempty"`
}

// Describe summarizes every column, the timestamp column first when present.
// StdDev is the sample standard deviation.
func Describe(t *Table) []FeatureSummary {
	out := make([]FeatureSummary, 0, len(t.columns)+1)
	if t.timestamps != nil {
		out = append(out, FeatureSummary{Name: t.tsColumn, Kind: model.Datetime, Count: t.rows})
	}
	for _, col := range t.columns {
		switch col.Kind {
		case model.Numerical:
			out = append(out, numericSummary(col.Name, t.numeric[col.Name]))
		case model.Categorical:
			categories := distinctCategories(t.categorical[col.Name])
			count := 0
			for _, v := range t.categorical[col.Name] {
				if v != "" {
					count++
				}
			}
			out = append(out, FeatureSummary{
				Name:       col.Name,
				Kind:       model.Categorical,
				Count:      count,
				Categories: categories,
			})
		}
	}
	return out
}

func numericSummary(name string, values []float64) FeatureSummary {
	s := FeatureSummary{Name: name, Kind: model.Numerical}
	lo, hi, ok := minMax(values, nil)
	if !ok {
		return s
	}
	s.Min, s.Max = lo, hi

	sum := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		s.Count++
	}
	s.Mean = sum / float64(s.Count)
	if s.Count > 1 {
		sq := 0.0
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			d := v - s.Mean
			sq += d * d
		}
		s.StdDev = math.Sqrt(sq / float64(s.Count-1))
	}
	return s
}

func distinctCategories(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 8)
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Catalog builds the gene catalog from the feature columns, in column order,
// with global bounds and sorted category labels. Columns without any value
// are skipped.
func Catalog(t *Table) (*model.Catalog, error) {
	features := make([]model.Feature, 0, len(t.columns))
	for _, col := range t.columns {
		switch col.Kind {
		case model.Numerical:
			lo, hi, ok := minMax(t.numeric[col.Name], nil)
			if !ok {
				continue
			}
			features = append(features, model.NumericalFeature(col.Name, lo, hi))
		case model.Categorical:
			categories := distinctCategories(t.categorical[col.Name])
			if len(categories) == 0 {
				continue
			}
			features = append(features, model.CategoricalFeature(col.Name, categories...))
		}
	}
	catalog, err := model.NewCatalog(features...)
	if err != nil {
		return nil, fmt.Errorf("build catalog for %s: %w", t.name, err)
	}
	return catalog, nil
}
