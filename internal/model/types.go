package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type FeatureKind string

const (
	Numerical   FeatureKind = "Numerical"
	Categorical FeatureKind = "Categorical"
	Datetime    FeatureKind = "Datetime"
)

// EmptyCategory marks numerical conditions, which carry no category label.
const EmptyCategory = "EMPTY"

// Feature describes one column of the transaction table. Min and Max are
// meaningful for numerical features, Categories for categorical ones.
type Feature struct {
	Name       string      `json:"name"`
	Kind       FeatureKind `json:"type"`
	Min        float64     `json:"min,omitempty"`
	Max        float64     `json:"max,omitempty"`
	Categories []string    `json:"categories,omitempty"`
}

func NumericalFeature(name string, min, max float64) Feature {
	return Feature{Name: name, Kind: Numerical, Min: min, Max: max}
}

func CategoricalFeature(name string, categories ...string) Feature {
	return Feature{Name: name, Kind: Categorical, Categories: append([]string(nil), categories...)}
}

// SlotWidth is the number of genes the feature occupies in front of the
// permutation block.
func (f Feature) SlotWidth() int {
	if f.Kind == Categorical {
		return 2
	}
	return 3
}

// Condition is one attribute test of a rule.
type Condition struct {
	Feature  string      `json:"feature"`
	Kind     FeatureKind `json:"type"`
	Border1  float64     `json:"border1"`
	Border2  float64     `json:"border2"`
	Category string      `json:"category"`
}

func NumericalCondition(feature string, border1, border2 float64) Condition {
	if border1 > border2 {
		border1, border2 = border2, border1
	}
	return Condition{Feature: feature, Kind: Numerical, Border1: border1, Border2: border2, Category: EmptyCategory}
}

func CategoricalCondition(feature, category string) Condition {
	return Condition{Feature: feature, Kind: Categorical, Border1: 1.0, Border2: 1.0, Category: category}
}

// String renders every field so that two conditions share a string only when
// they are equal. Archive keys are built from it.
func (c Condition) String() string {
	return fmt.Sprintf("{feature:%s type:%s border1:%s border2:%s category:%s}",
		c.Feature, c.Kind, formatFloat(c.Border1), formatFloat(c.Border2), c.Category)
}

// Label renders the condition the way reports print it.
func (c Condition) Label() string {
	if c.Kind == Categorical {
		return fmt.Sprintf("%s(%s)", c.Feature, c.Category)
	}
	return fmt.Sprintf("%s(%s, %s)", c.Feature, formatFloat(c.Border1), formatFloat(c.Border2))
}

type Rule []Condition

func (r Rule) Clone() Rule {
	if r == nil {
		return nil
	}
	return append(Rule(nil), r...)
}

func (r Rule) Features() []string {
	out := make([]string, 0, len(r))
	for _, c := range r {
		out = append(out, c.Feature)
	}
	return out
}

func (r Rule) String() string {
	parts := make([]string, 0, len(r))
	for _, c := range r {
		parts = append(parts, c.Label())
	}
	return strings.Join(parts, " AND ")
}

type WindowKind string

const (
	TimestampWindow WindowKind = "timestamp"
	IntervalWindow  WindowKind = "interval"
)

// Window is an inclusive range over the timestamp column or the interval
// column, depending on Kind.
type Window struct {
	Kind          WindowKind `json:"kind"`
	StartTime     time.Time  `json:"start_time,omitzero"`
	EndTime       time.Time  `json:"end_time,omitzero"`
	StartInterval float64    `json:"start_interval,omitzero"`
	EndInterval   float64    `json:"end_interval,omitzero"`
}

func TimeWindow(start, end time.Time) Window {
	if start.After(end) {
		start, end = end, start
	}
	return Window{Kind: TimestampWindow, StartTime: start, EndTime: end}
}

func IntervalRange(start, end float64) Window {
	if start > end {
		start, end = end, start
	}
	return Window{Kind: IntervalWindow, StartInterval: start, EndInterval: end}
}

// Width is the window length in seconds for timestamp windows and in
// interval units otherwise.
func (w Window) Width() float64 {
	if w.Kind == IntervalWindow {
		return w.EndInterval - w.StartInterval
	}
	return w.EndTime.Sub(w.StartTime).Seconds()
}

// Shift moves the window by the given amount, in the same units as Width.
func (w Window) Shift(by float64) Window {
	if w.Kind == IntervalWindow {
		return IntervalRange(w.StartInterval+by, w.EndInterval+by)
	}
	d := time.Duration(by * float64(time.Second))
	return TimeWindow(w.StartTime.Add(d), w.EndTime.Add(d))
}

func (w Window) StartString() string {
	if w.Kind == IntervalWindow {
		return formatFloat(w.StartInterval)
	}
	return w.StartTime.Format(TimeLayout)
}

func (w Window) EndString() string {
	if w.Kind == IntervalWindow {
		return formatFloat(w.EndInterval)
	}
	return w.EndTime.Format(TimeLayout)
}

// TimeLayout is the layout used when windows are rendered as text.
const TimeLayout = "2006-01-02 15:04:05"

// Metrics is the fixed metric vector every fitness aggregator consumes.
type Metrics struct {
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Inclusion  float64 `json:"inclusion"`
	Amplitude  float64 `json:"amplitude"`
	TSM        float64 `json:"tsm"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Mode selects how the trailing genes of a vector are turned into a window.
type Mode string

const (
	TimeSeriesMode Mode = "timeseries"
	IntervalMode   Mode = "interval"
)

// ModeGenes is the number of window genes the mode consumes.
func (m Mode) ModeGenes() int {
	if m == IntervalMode {
		return 1
	}
	return 2
}

func (m Mode) WindowKind() WindowKind {
	if m == IntervalMode {
		return IntervalWindow
	}
	return TimestampWindow
}

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "timeseries", "time-series", "ts":
		return TimeSeriesMode, nil
	case "interval":
		return IntervalMode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", raw)
	}
}
