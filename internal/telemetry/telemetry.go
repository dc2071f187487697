package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "armts"

// Evaluation outcomes.
const (
	OutcomeScored      = "scored"
	OutcomeDegenerate  = "degenerate"
	OutcomeZeroFitness = "zero_fitness"
	OutcomeError       = "error"
)

// Recorder receives evaluation events from a problem.
type Recorder interface {
	Evaluation(outcome string, fitness float64)
	Archived(accepted bool)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Evaluation(string, float64) {}
func (Nop) Archived(bool)              {}

// Metrics records evaluation events as prometheus collectors.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	Archive     *prometheus.CounterVec
	Fitness     prometheus.Histogram
}

// NewMetrics builds the collectors and registers them when reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Candidate vectors evaluated, by outcome.",
		}, []string{"outcome"}),
		Archive: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_offers_total",
			Help:      "Rules offered to the archive, by result.",
		}, []string{"result"}),
		Fitness: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fitness",
			Help:      "Fitness of scored rules.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Evaluations, m.Archive, m.Fitness} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) Evaluation(outcome string, fitness float64) {
	m.Evaluations.WithLabelValues(outcome).Inc()
	if outcome == OutcomeScored {
		m.Fitness.Observe(fitness)
	}
}

func (m *Metrics) Archived(accepted bool) {
	result := "duplicate"
	if accepted {
		result = "accepted"
	}
	m.Archive.WithLabelValues(result).Inc()
}
