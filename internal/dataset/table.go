package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"armts/internal/model"
)

var (
	ErrNoTimestampColumn = errors.New("table has no timestamp column")
	ErrNoIntervalColumn  = errors.New("table has no interval column")
	ErrColumnLength      = errors.New("column length mismatch")
	ErrUnknownColumn     = errors.New("unknown column")
)

// Columns is the raw material of a Table. Missing numeric cells are NaN,
// missing categorical cells are empty strings.
type Columns struct {
	Name string
	// TimestampColumn names the column Timestamps came from; "timestamp"
	// when empty.
	TimestampColumn string
	Timestamps      []time.Time
	Intervals   []float64
	Numeric     map[string][]float64
	Categorical map[string][]string
	// Order fixes the feature order of the catalog built from the table.
	// Columns missing from Order are appended in name order.
	Order []string
}

type Column struct {
	Name string
	Kind model.FeatureKind
}

// Table is a read-only columnar transaction table. Nothing mutates it after
// NewTable returns, so it is safe to share between goroutines.
type Table struct {
	name        string
	rows        int
	tsColumn    string
	timestamps  []time.Time
	intervals   []float64
	numeric     map[string][]float64
	categorical map[string][]string
	columns     []Column
}

func NewTable(cols Columns) (*Table, error) {
	rows := -1
	check := func(name string, n int) error {
		if rows < 0 {
			rows = n
			return nil
		}
		if n != rows {
			return fmt.Errorf("%w: column %s has %d rows, want %d", ErrColumnLength, name, n, rows)
		}
		return nil
	}

	t := &Table{
		name:        cols.Name,
		tsColumn:    cols.TimestampColumn,
		numeric:     make(map[string][]float64, len(cols.Numeric)),
		categorical: make(map[string][]string, len(cols.Categorical)),
	}
	if t.tsColumn == "" {
		t.tsColumn = DefaultTimestampColumn
	}
	if cols.Timestamps != nil {
		if err := check(t.tsColumn, len(cols.Timestamps)); err != nil {
			return nil, err
		}
		t.timestamps = append([]time.Time(nil), cols.Timestamps...)
	}
	if cols.Intervals != nil {
		if err := check("interval", len(cols.Intervals)); err != nil {
			return nil, err
		}
		t.intervals = append([]float64(nil), cols.Intervals...)
	}
	for name, values := range cols.Numeric {
		if err := check(name, len(values)); err != nil {
			return nil, err
		}
		t.numeric[name] = append([]float64(nil), values...)
	}
	for name, values := range cols.Categorical {
		if _, dup := t.numeric[name]; dup {
			return nil, fmt.Errorf("column %s is both numerical and categorical", name)
		}
		if err := check(name, len(values)); err != nil {
			return nil, err
		}
		t.categorical[name] = append([]string(nil), values...)
	}
	if rows < 0 {
		rows = 0
	}
	t.rows = rows

	seen := make(map[string]bool)
	for _, name := range cols.Order {
		if seen[name] {
			continue
		}
		if kind, ok := t.kindOf(name); ok {
			t.columns = append(t.columns, Column{Name: name, Kind: kind})
			seen[name] = true
		}
	}
	var rest []string
	for name := range t.numeric {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	for name := range t.categorical {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		kind, _ := t.kindOf(name)
		t.columns = append(t.columns, Column{Name: name, Kind: kind})
	}
	return t, nil
}

func (t *Table) kindOf(name string) (model.FeatureKind, bool) {
	if _, ok := t.numeric[name]; ok {
		return model.Numerical, true
	}
	if _, ok := t.categorical[name]; ok {
		return model.Categorical, true
	}
	return "", false
}

func (t *Table) Name() string {
	return t.name
}

// TimestampColumn is the name of the column the timestamps were read from.
func (t *Table) TimestampColumn() string {
	return t.tsColumn
}

func (t *Table) Len() int {
	return t.rows
}

// Columns lists the feature columns in catalog order. The timestamp and
// interval columns are not features.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

func (t *Table) HasTimestamps() bool {
	return t.timestamps != nil
}

func (t *Table) HasIntervals() bool {
	return t.intervals != nil
}

func (t *Table) Timestamp(row int) time.Time {
	return t.timestamps[row]
}

func (t *Table) Interval(row int) float64 {
	return t.intervals[row]
}

// Numeric exposes a numeric column. Callers must not modify the slice.
func (t *Table) Numeric(name string) ([]float64, bool) {
	values, ok := t.numeric[name]
	return values, ok
}

// Categorical exposes a categorical column. Callers must not modify the slice.
func (t *Table) Categorical(name string) ([]string, bool) {
	values, ok := t.categorical[name]
	return values, ok
}

// Contains reports whether the row falls inside the inclusive window.
func (t *Table) Contains(row int, w model.Window) bool {
	if w.Kind == model.IntervalWindow {
		if t.intervals == nil {
			return false
		}
		v := t.intervals[row]
		return v >= w.StartInterval && v <= w.EndInterval
	}
	if t.timestamps == nil {
		return false
	}
	ts := t.timestamps[row]
	return !ts.Before(w.StartTime) && !ts.After(w.EndTime)
}

// WindowRows returns the indices of the rows inside the window.
func (t *Table) WindowRows(w model.Window) []int {
	out := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if t.Contains(i, w) {
			out = append(out, i)
		}
	}
	return out
}

// TimeBounds is the earliest and latest timestamp of the whole table.
func (t *Table) TimeBounds() (time.Time, time.Time, error) {
	if t.timestamps == nil {
		return time.Time{}, time.Time{}, ErrNoTimestampColumn
	}
	if t.rows == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("timestamp bounds of empty table")
	}
	lo, hi := t.timestamps[0], t.timestamps[0]
	for _, ts := range t.timestamps[1:] {
		if ts.Before(lo) {
			lo = ts
		}
		if ts.After(hi) {
			hi = ts
		}
	}
	return lo, hi, nil
}

// IntervalBounds is the smallest and largest interval value of the whole table.
func (t *Table) IntervalBounds() (float64, float64, error) {
	if t.intervals == nil {
		return 0, 0, ErrNoIntervalColumn
	}
	lo, hi, ok := minMax(t.intervals, nil)
	if !ok {
		return 0, 0, fmt.Errorf("interval bounds of empty table")
	}
	return lo, hi, nil
}

// Segments returns the distinct interval values in ascending order.
func (t *Table) Segments() ([]float64, error) {
	if t.intervals == nil {
		return nil, ErrNoIntervalColumn
	}
	seen := make(map[float64]struct{}, 16)
	out := make([]float64, 0, 16)
	for _, v := range t.intervals {
		if math.IsNaN(v) {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out, nil
}

// NumericBounds returns the min and max of a numeric feature over the rows
// of the window. ok is false when the window holds no value for it.
func (t *Table) NumericBounds(name string, w model.Window) (float64, float64, bool) {
	values, exists := t.numeric[name]
	if !exists {
		return 0, 0, false
	}
	return minMax(values, func(i int) bool { return t.Contains(i, w) })
}

func minMax(values []float64, keep func(int) bool) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	found := false
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if keep != nil && !keep(i) {
			continue
		}
		found = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !found {
		return 0, 0, false
	}
	return lo, hi, true
}
