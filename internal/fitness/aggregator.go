package fitness

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"armts/internal/model"
)

var (
	ErrAggregatorExists   = errors.New("aggregator already registered")
	ErrAggregatorNotFound = errors.New("aggregator not found")
	ErrInvalidWeights     = errors.New("invalid weights")
)

const DefaultAggregator = "weighted_mean"

// Weights scales each metric. A zero weight removes the metric from the
// fitness entirely.
type Weights struct {
	Support    float64 `json:"support" yaml:"support"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Inclusion  float64 `json:"inclusion" yaml:"inclusion"`
	Amplitude  float64 `json:"amplitude" yaml:"amplitude"`
	TSM        float64 `json:"tsm" yaml:"tsm"`
}

func DefaultWeights() Weights {
	return Weights{Support: 1, Confidence: 1, Inclusion: 1, Amplitude: 1, TSM: 1}
}

func (w Weights) Validate() error {
	for _, v := range w.vector() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %+v", ErrInvalidWeights, w)
		}
	}
	return nil
}

// Active counts the metrics with a non-zero weight.
func (w Weights) Active() int {
	n := 0
	for _, v := range w.vector() {
		if v != 0 {
			n++
		}
	}
	return n
}

func (w Weights) vector() [5]float64 {
	return [5]float64{w.Support, w.Confidence, w.Inclusion, w.Amplitude, w.TSM}
}

func weightedSum(w Weights, m model.Metrics) float64 {
	return w.Support*m.Support +
		w.Confidence*m.Confidence +
		w.Inclusion*m.Inclusion +
		w.Amplitude*m.Amplitude +
		w.TSM*m.TSM
}

// Aggregator folds the metric vector into one scalar fitness.
type Aggregator interface {
	Name() string
	Aggregate(w Weights, m model.Metrics) float64
}

// WeightedMean divides the weighted sum by the number of active metrics.
type WeightedMean struct{}

func (WeightedMean) Name() string {
	return "weighted_mean"
}

func (WeightedMean) Aggregate(w Weights, m model.Metrics) float64 {
	active := w.Active()
	if active == 0 {
		return 0
	}
	return weightedSum(w, m) / float64(active)
}

// NormalizedSum divides the weighted sum by the sum of the weights, keeping
// the result in [0,1] whatever the weight scale.
type NormalizedSum struct{}

func (NormalizedSum) Name() string {
	return "weighted_sum"
}

func (NormalizedSum) Aggregate(w Weights, m model.Metrics) float64 {
	total := 0.0
	for _, v := range w.vector() {
		total += v
	}
	if total == 0 {
		return 0
	}
	return weightedSum(w, m) / total
}

// ThreeMetric is the original support/confidence/inclusion form: the
// weighted sum of those three over a fixed three.
type ThreeMetric struct{}

func (ThreeMetric) Name() string {
	return "reference3"
}

func (ThreeMetric) Aggregate(w Weights, m model.Metrics) float64 {
	return (w.Support*m.Support + w.Confidence*m.Confidence + w.Inclusion*m.Inclusion) / 3
}

var aggregatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]Aggregator
}{
	m: map[string]Aggregator{
		WeightedMean{}.Name():  WeightedMean{},
		NormalizedSum{}.Name(): NormalizedSum{},
		ThreeMetric{}.Name():   ThreeMetric{},
	},
}

func Register(a Aggregator) error {
	if a == nil {
		return errors.New("aggregator is required")
	}
	if a.Name() == "" {
		return errors.New("aggregator name is required")
	}

	aggregatorRegistry.mu.Lock()
	defer aggregatorRegistry.mu.Unlock()

	if _, exists := aggregatorRegistry.m[a.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrAggregatorExists, a.Name())
	}
	aggregatorRegistry.m[a.Name()] = a
	return nil
}

// Lookup resolves an aggregator by name. The empty name resolves to the
// default.
func Lookup(name string) (Aggregator, error) {
	if name == "" {
		name = DefaultAggregator
	}
	aggregatorRegistry.mu.RLock()
	defer aggregatorRegistry.mu.RUnlock()

	a, ok := aggregatorRegistry.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAggregatorNotFound, name)
	}
	return a, nil
}

func Names() []string {
	aggregatorRegistry.mu.RLock()
	defer aggregatorRegistry.mu.RUnlock()

	out := make([]string, 0, len(aggregatorRegistry.m))
	for name := range aggregatorRegistry.m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
