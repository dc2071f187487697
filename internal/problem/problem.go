package problem

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"armts/internal/archive"
	"armts/internal/dataset"
	"armts/internal/fitness"
	"armts/internal/metrics"
	"armts/internal/model"
	"armts/internal/rule"
	"armts/internal/telemetry"
)

type Config struct {
	Catalog *model.Catalog
	Table   *dataset.Table
	Mode    model.Mode
	// IntervalMapping applies in interval mode only.
	IntervalMapping rule.IntervalMapping
	KeyScheme       archive.KeyScheme
	// Scope picks the numeric span used both to scale decoded borders and to
	// normalize amplitude.
	Scope      metrics.Scope
	Weights    fitness.Weights
	Aggregator string

	Logger   *zap.Logger
	Recorder telemetry.Recorder
}

// Problem is the evaluation entry point an optimizer drives. It owns the
// archive of accepted rules for the lifetime of one run and is safe for
// concurrent use.
type Problem struct {
	catalog    *model.Catalog
	table      *dataset.Table
	mode       model.Mode
	mapping    rule.IntervalMapping
	scope      metrics.Scope
	weights    fitness.Weights
	aggregator fitness.Aggregator
	archive    *archive.Archive
	logger     *zap.Logger
	recorder   telemetry.Recorder
	dimension  int
}

// Evaluation is the full outcome of scoring one vector.
type Evaluation struct {
	Outcome    string
	Rule       model.Rule
	Antecedent model.Rule
	Consequent model.Rule
	Window     model.Window
	Metrics    model.Metrics
	Fitness    float64
	Archived   bool
}

func New(cfg Config) (*Problem, error) {
	if cfg.Catalog == nil || cfg.Catalog.Len() == 0 {
		return nil, errors.New("problem requires a non-empty feature catalog")
	}
	if cfg.Table == nil || cfg.Table.Len() == 0 {
		return nil, rule.ErrEmptyTable
	}
	mode := cfg.Mode
	if mode == "" {
		mode = model.TimeSeriesMode
	}
	switch mode {
	case model.TimeSeriesMode:
		if !cfg.Table.HasTimestamps() {
			return nil, dataset.ErrNoTimestampColumn
		}
	case model.IntervalMode:
		if !cfg.Table.HasIntervals() {
			return nil, dataset.ErrNoIntervalColumn
		}
	default:
		return nil, fmt.Errorf("unsupported mode: %s", mode)
	}
	mapping, err := rule.ParseIntervalMapping(string(cfg.IntervalMapping))
	if err != nil {
		return nil, err
	}
	scheme, err := archive.ParseKeyScheme(string(cfg.KeyScheme))
	if err != nil {
		return nil, err
	}
	scope, err := metrics.ParseScope(string(cfg.Scope))
	if err != nil {
		return nil, err
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	aggregator, err := fitness.Lookup(cfg.Aggregator)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = telemetry.Nop{}
	}

	return &Problem{
		catalog:    cfg.Catalog,
		table:      cfg.Table,
		mode:       mode,
		mapping:    mapping,
		scope:      scope,
		weights:    cfg.Weights,
		aggregator: aggregator,
		archive:    archive.New(scheme),
		logger:     logger,
		recorder:   recorder,
		dimension:  rule.Dimension(cfg.Catalog, mode),
	}, nil
}

// Dimension is the vector length Evaluate expects.
func (p *Problem) Dimension() int {
	return p.dimension
}

func (p *Problem) Mode() model.Mode {
	return p.mode
}

func (p *Problem) Catalog() *model.Catalog {
	return p.catalog
}

func (p *Problem) Table() *dataset.Table {
	return p.table
}

func (p *Problem) Archive() *archive.Archive {
	return p.archive
}

// Evaluate returns the fitness of the vector. The only error is a malformed
// vector (or a cancelled context); every degenerate rule scores zero.
func (p *Problem) Evaluate(ctx context.Context, vector []float64) (float64, error) {
	ev, err := p.Score(ctx, vector)
	if err != nil {
		return 0, err
	}
	return ev.Fitness, nil
}

// Score evaluates the vector and reports everything computed on the way.
func (p *Problem) Score(ctx context.Context, vector []float64) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, err
	}
	ev, err := p.score(vector)
	if err != nil {
		p.recorder.Evaluation(telemetry.OutcomeError, 0)
		return Evaluation{}, err
	}
	p.recorder.Evaluation(ev.Outcome, ev.Fitness)
	return ev, nil
}

func (p *Problem) score(vector []float64) (Evaluation, error) {
	genes, err := rule.SplitVector(vector, p.catalog, p.mode)
	if err != nil {
		return Evaluation{}, err
	}
	window, err := rule.SelectWindow(genes.Window, p.mode, p.table, p.mapping)
	if err != nil {
		return Evaluation{}, err
	}

	var bounds rule.Bounds = rule.GlobalBounds{}
	if p.scope == metrics.WindowScope {
		bounds = rule.WindowBounds{Table: p.table, Window: window}
	}
	full, err := rule.Decode(genes.Rule, p.catalog, bounds)
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{Rule: full, Window: window}
	antecedent, consequent, ok := rule.Split(full, genes.Cut)
	if !ok {
		ev.Outcome = telemetry.OutcomeDegenerate
		return ev, nil
	}
	ev.Antecedent = antecedent
	ev.Consequent = consequent
	ev.Metrics = p.measure(antecedent, consequent, window)

	f := p.aggregator.Aggregate(p.weights, ev.Metrics)
	if !(f > 0) {
		ev.Outcome = telemetry.OutcomeZeroFitness
		return ev, nil
	}
	ev.Outcome = telemetry.OutcomeScored
	ev.Fitness = f

	ev.Archived = p.archive.Accept(archive.Entry{
		Rule:       full,
		Antecedent: antecedent,
		Consequent: consequent,
		Metrics:    ev.Metrics,
		Fitness:    f,
		Window:     window,
	})
	p.recorder.Archived(ev.Archived)
	if ev.Archived {
		p.logger.Debug("archived rule",
			zap.String("antecedent", antecedent.String()),
			zap.String("consequent", consequent.String()),
			zap.Float64("fitness", f),
			zap.Int("archive_size", p.archive.Len()),
		)
	}
	return ev, nil
}

// measure computes support and confidence always, and the remaining metrics
// only when their weight is non-zero.
func (p *Problem) measure(antecedent, consequent model.Rule, window model.Window) model.Metrics {
	scorer := metrics.NewScorer(p.table, window)
	m := model.Metrics{
		Support:    scorer.Support(antecedent, consequent),
		Confidence: scorer.Confidence(antecedent, consequent),
	}
	if p.weights.Inclusion != 0 {
		m.Inclusion = metrics.Inclusion(antecedent, consequent)
	}
	if p.weights.Amplitude != 0 {
		m.Amplitude = metrics.Amplitude(p.table, p.catalog, antecedent, consequent, window, p.scope)
	}
	if p.weights.TSM != 0 {
		m.TSM = metrics.TSM(p.table, window)
	}
	return m
}
