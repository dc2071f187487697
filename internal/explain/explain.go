// Package explain reports how individual conditions and time shifts affect a
// mined rule.
package explain

import (
	"errors"
	"math"
	"sort"

	"armts/internal/dataset"
	"armts/internal/metrics"
	"armts/internal/model"
)

// Contribution weights of a condition score.
const (
	CoverageWeight  = 0.5
	InclusionWeight = 0.3
	AmplitudeWeight = 0.2
)

var ErrInvalidSteps = errors.New("stability requires a positive shift and at least one step")

// FeatureScore is the contribution of one condition to its side of a rule.
type FeatureScore struct {
	Feature   string  `json:"feature"`
	Coverage  float64 `json:"coverage"`
	Inclusion float64 `json:"inclusion"`
	Amplitude float64 `json:"amplitude"`
	Score     float64 `json:"score"`
}

// RankFeatures scores every condition of one rule side and returns them best
// first. Inclusion is shared by all conditions of the side since it compares
// the side as a whole against its counterpart. Amplitude is always measured
// against the feature's span inside w, whatever scope the rule was mined with.
func RankFeatures(table *dataset.Table, conditions, counterpart model.Rule, w model.Window) []FeatureScore {
	scorer := metrics.NewScorer(table, w)
	inclusion := metrics.Inclusion(conditions, counterpart)

	out := make([]FeatureScore, 0, len(conditions))
	for _, c := range conditions {
		fs := FeatureScore{
			Feature:   c.Feature,
			Coverage:  scorer.Coverage(c),
			Inclusion: inclusion,
			Amplitude: metrics.ConditionAmplitude(table, c, w),
		}
		fs.Score = CoverageWeight*fs.Coverage + InclusionWeight*fs.Inclusion + AmplitudeWeight*fs.Amplitude
		out = append(out, fs)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// WindowConfidence is the rule confidence in one shifted window.
type WindowConfidence struct {
	Offset     int          `json:"offset"`
	Window     model.Window `json:"window"`
	Confidence float64      `json:"confidence"`
}

// StabilityReport summarizes how confidence varies as the window moves.
type StabilityReport struct {
	Score  float64            `json:"score"`
	Series []WindowConfidence `json:"series"`
}

// Stability measures the confidence of the rule in the window and in windows
// shifted by k*shift for k in [-steps, steps]. The score is one minus the
// population standard deviation of those confidences, clamped to [0, 1].
// shift uses the units of model.Window.Width.
func Stability(table *dataset.Table, antecedent, consequent model.Rule, w model.Window, shift float64, steps int) (StabilityReport, error) {
	if !(shift > 0) || steps < 1 {
		return StabilityReport{}, ErrInvalidSteps
	}

	series := make([]WindowConfidence, 0, 2*steps+1)
	for k := -steps; k <= steps; k++ {
		shifted := w.Shift(float64(k) * shift)
		series = append(series, WindowConfidence{
			Offset:     k,
			Window:     shifted,
			Confidence: metrics.Confidence(table, antecedent, consequent, shifted),
		})
	}

	mean := 0.0
	for _, s := range series {
		mean += s.Confidence
	}
	mean /= float64(len(series))
	variance := 0.0
	for _, s := range series {
		d := s.Confidence - mean
		variance += d * d
	}
	variance /= float64(len(series))

	score := 1 - math.Sqrt(variance)
	return StabilityReport{
		Score:  math.Max(0, math.Min(1, score)),
		Series: series,
	}, nil
}
