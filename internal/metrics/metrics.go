// Package metrics scores association rules against a transaction table. Every
// function is pure: the same table, conditions and window always produce the
// same value, and every ratio has a defined fallback for a zero denominator.
package metrics

import (
	"fmt"
	"math"
	"strings"

	"armts/internal/dataset"
	"armts/internal/model"
)

// Scope selects which numeric span borders and widths are measured against.
type Scope string

const (
	// WindowScope uses the span the feature takes inside the window.
	WindowScope Scope = "window"
	// GlobalScope uses the catalog's global min/max.
	GlobalScope Scope = "global"
)

func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", WindowScope:
		return WindowScope, nil
	case GlobalScope:
		return GlobalScope, nil
	default:
		return "", fmt.Errorf("unsupported scope: %s", raw)
	}
}

// Scorer counts rows of one window. It resolves the window once so that
// several metrics of the same evaluation share a single scan.
type Scorer struct {
	table *dataset.Table
	rows  []int
}

func NewScorer(table *dataset.Table, w model.Window) *Scorer {
	return &Scorer{table: table, rows: table.WindowRows(w)}
}

// WindowSize is the number of rows inside the window.
func (s *Scorer) WindowSize() int {
	return len(s.rows)
}

// Count returns how many window rows satisfy every condition of every part.
func (s *Scorer) Count(parts ...model.Rule) int {
	n := 0
	for _, row := range s.rows {
		if matchesAll(s.table, row, parts) {
			n++
		}
	}
	return n
}

func (s *Scorer) Support(antecedent, consequent model.Rule) float64 {
	if len(s.rows) == 0 {
		return 0
	}
	return float64(s.Count(antecedent, consequent)) / float64(len(s.rows))
}

func (s *Scorer) Confidence(antecedent, consequent model.Rule) float64 {
	covered := 0
	both := 0
	for _, row := range s.rows {
		if !Matches(s.table, row, antecedent) {
			continue
		}
		covered++
		if Matches(s.table, row, consequent) {
			both++
		}
	}
	if covered == 0 {
		return 0
	}
	return float64(both) / float64(covered)
}

func (s *Scorer) Coverage(c model.Condition) float64 {
	return s.Support(model.Rule{c}, nil)
}

// Support is the share of window rows matching antecedent and consequent.
func Support(table *dataset.Table, antecedent, consequent model.Rule, w model.Window) float64 {
	return NewScorer(table, w).Support(antecedent, consequent)
}

// Confidence is the share of antecedent-matching window rows that also match
// the consequent.
func Confidence(table *dataset.Table, antecedent, consequent model.Rule, w model.Window) float64 {
	return NewScorer(table, w).Confidence(antecedent, consequent)
}

// Coverage is the support of a single condition.
func Coverage(table *dataset.Table, c model.Condition, w model.Window) float64 {
	return NewScorer(table, w).Coverage(c)
}

// Inclusion is the Jaccard overlap between the feature sets of both sides.
func Inclusion(antecedent, consequent model.Rule) float64 {
	left := featureSet(antecedent)
	right := featureSet(consequent)
	union := len(left)
	common := 0
	for name := range right {
		if _, ok := left[name]; ok {
			common++
			continue
		}
		union++
	}
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}

// Amplitude rewards narrow numerical ranges: one minus the mean border width
// normalized by the feature span. A degenerate span contributes zero width.
// Rules without numerical conditions score zero.
func Amplitude(table *dataset.Table, catalog *model.Catalog, antecedent, consequent model.Rule, w model.Window, scope Scope) float64 {
	total := 0.0
	count := 0
	for _, part := range []model.Rule{antecedent, consequent} {
		for _, c := range part {
			if c.Kind != model.Numerical {
				continue
			}
			count++
			lo, hi, ok := span(table, catalog, c.Feature, w, scope)
			if !ok || hi == lo {
				continue
			}
			total += (c.Border2 - c.Border1) / (hi - lo)
		}
	}
	if count == 0 {
		return 0
	}
	return clamp01(1 - total/float64(count))
}

// ConditionAmplitude scores a single numerical condition against its span
// inside the window. Categorical conditions score zero, a degenerate span one.
func ConditionAmplitude(table *dataset.Table, c model.Condition, w model.Window) float64 {
	if c.Kind != model.Numerical {
		return 0
	}
	lo, hi, ok := table.NumericBounds(c.Feature, w)
	if !ok || hi == lo {
		return 1
	}
	return clamp01(1 - (c.Border2-c.Border1)/(hi-lo))
}

// TSM rewards narrow windows: one minus the window width relative to the
// span of the whole column the window is defined on.
func TSM(table *dataset.Table, w model.Window) float64 {
	var total float64
	if w.Kind == model.IntervalWindow {
		lo, hi, err := table.IntervalBounds()
		if err != nil {
			return 0
		}
		total = hi - lo
	} else {
		lo, hi, err := table.TimeBounds()
		if err != nil {
			return 0
		}
		total = hi.Sub(lo).Seconds()
	}
	if total <= 0 {
		return 0
	}
	return clamp01(1 - w.Width()/total)
}

// Matches reports whether the row satisfies every condition.
func Matches(table *dataset.Table, row int, conditions model.Rule) bool {
	for _, c := range conditions {
		if !matchCondition(table, row, c) {
			return false
		}
	}
	return true
}

func matchesAll(table *dataset.Table, row int, parts []model.Rule) bool {
	for _, part := range parts {
		if !Matches(table, row, part) {
			return false
		}
	}
	return true
}

func matchCondition(table *dataset.Table, row int, c model.Condition) bool {
	if c.Kind == model.Categorical {
		values, ok := table.Categorical(c.Feature)
		return ok && values[row] == c.Category
	}
	values, ok := table.Numeric(c.Feature)
	if !ok {
		return false
	}
	v := values[row]
	// NaN fails both comparisons, so missing cells never match.
	return v >= c.Border1 && v <= c.Border2
}

func span(table *dataset.Table, catalog *model.Catalog, name string, w model.Window, scope Scope) (float64, float64, bool) {
	if scope == WindowScope {
		if lo, hi, ok := table.NumericBounds(name, w); ok {
			return lo, hi, true
		}
	}
	if catalog == nil {
		return 0, 0, false
	}
	f, ok := catalog.Lookup(name)
	if !ok {
		return 0, 0, false
	}
	return f.Min, f.Max, true
}

func featureSet(r model.Rule) map[string]struct{} {
	out := make(map[string]struct{}, len(r))
	for _, c := range r {
		out[c.Feature] = struct{}{}
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
