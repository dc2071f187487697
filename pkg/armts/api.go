// Package armts is the embedding API: mine rules from a CSV dataset, keep a
// record of finished runs and explain stored rules.
package armts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"armts/internal/archive"
	"armts/internal/config"
	"armts/internal/dataset"
	"armts/internal/explain"
	"armts/internal/export"
	"armts/internal/fitness"
	"armts/internal/metrics"
	"armts/internal/model"
	"armts/internal/problem"
	"armts/internal/rule"
	"armts/internal/sampler"
	"armts/internal/storage"
	"armts/internal/telemetry"
)

var ErrNoRuns = errors.New("no runs available")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
	// Recorder receives evaluation telemetry; telemetry.Nop when nil.
	Recorder telemetry.Recorder
}

type Client struct {
	store    storage.Store
	logger   *zap.Logger
	recorder telemetry.Recorder
}

func New(opts Options) (*Client, error) {
	store, err := storage.NewStore(opts.StoreKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = telemetry.Nop{}
	}
	return &Client{store: store, logger: logger, recorder: recorder}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

type MineRequest struct {
	Config config.Config
	// Table overrides Config.Dataset.Path when set.
	Table *dataset.Table
}

type MineSummary struct {
	RunID       string
	Dataset     string
	Rows        int
	Dimension   int
	Evaluations int
	BestFitness float64
	ArchiveSize int
	// Top holds at most Config.Search.Top rules, best first; all of them when
	// Top is zero.
	Top      []archive.Row
	Exported []string
}

// Mine runs the reference sampler over the problem built from the request,
// stores the finished run and optionally exports its rules.
func (c *Client) Mine(ctx context.Context, req MineRequest) (MineSummary, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return MineSummary{}, err
	}

	table := req.Table
	if table == nil {
		var err error
		table, err = LoadTable(cfg.Dataset)
		if err != nil {
			return MineSummary{}, err
		}
	}
	p, err := c.buildProblem(cfg.Problem, table)
	if err != nil {
		return MineSummary{}, err
	}

	c.logger.Info("mining",
		zap.String("dataset", table.Name()),
		zap.Int("rows", table.Len()),
		zap.Int("dimension", p.Dimension()),
		zap.String("mode", string(p.Mode())),
	)
	result, err := sampler.Run(ctx, p, sampler.Config{
		Population: cfg.Search.Population,
		Iterations: cfg.Search.Iterations,
		Seed:       cfg.Search.Seed,
		Workers:    cfg.Search.Workers,
		Logger:     c.logger,
	})
	if err != nil {
		return MineSummary{}, fmt.Errorf("sample: %w", err)
	}

	ranked := p.Archive().Ranked()
	record := storage.NewRunRecord(runConfig(cfg, table.Name(), p.Mode()), result.Evaluations, ranked)
	if err := c.store.SaveRun(ctx, record); err != nil {
		return MineSummary{}, fmt.Errorf("save run: %w", err)
	}

	rows := record.Rows()
	summary := MineSummary{
		RunID:       record.ID,
		Dataset:     table.Name(),
		Rows:        table.Len(),
		Dimension:   p.Dimension(),
		Evaluations: result.Evaluations,
		BestFitness: record.BestFitness,
		ArchiveSize: len(rows),
		Top:         rows,
	}
	if cfg.Search.Top > 0 && len(summary.Top) > cfg.Search.Top {
		summary.Top = summary.Top[:cfg.Search.Top]
	}
	if cfg.Output.Dir != "" {
		summary.Exported, err = export.WriteFiles(filepath.Join(cfg.Output.Dir, record.ID), rows)
		if err != nil {
			return MineSummary{}, err
		}
	}
	return summary, nil
}

type RunsRequest struct {
	Limit int
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]storage.RunSummary, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return runs, nil
}

type RunRequest struct {
	RunID  string
	Latest bool
}

func (c *Client) Run(ctx context.Context, req RunRequest) (storage.RunRecord, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return storage.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return storage.RunRecord{}, err
	}
	if !ok {
		return storage.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

type ExplainRequest struct {
	RunID  string
	Latest bool
	// Rank selects the stored rule, 0 being the best.
	Rank    int
	Dataset config.DatasetConfig
	Table   *dataset.Table
	// StabilityShift enables the stability report when positive. It uses
	// seconds for timestamp windows and interval units otherwise.
	StabilityShift float64
	StabilitySteps int
}

type ExplainSummary struct {
	RunID      string
	Rule       archive.Row
	Antecedent []explain.FeatureScore
	Consequent []explain.FeatureScore
	Stability  *explain.StabilityReport
}

// Explain ranks the conditions of a stored rule against the dataset it was
// mined from.
func (c *Client) Explain(ctx context.Context, req ExplainRequest) (ExplainSummary, error) {
	run, err := c.Run(ctx, RunRequest{RunID: req.RunID, Latest: req.Latest})
	if err != nil {
		return ExplainSummary{}, err
	}
	if req.Rank < 0 || req.Rank >= len(run.Rules) {
		return ExplainSummary{}, fmt.Errorf("run %s has %d rules, rank %d out of range", run.ID, len(run.Rules), req.Rank)
	}
	entry := run.Rules[req.Rank]

	table := req.Table
	if table == nil {
		table, err = LoadTable(req.Dataset)
		if err != nil {
			return ExplainSummary{}, err
		}
	}
	out := ExplainSummary{
		RunID:      run.ID,
		Rule:       entry.Row(),
		Antecedent: explain.RankFeatures(table, entry.Antecedent, entry.Consequent, entry.Window),
		Consequent: explain.RankFeatures(table, entry.Consequent, entry.Antecedent, entry.Window),
	}
	if req.StabilityShift > 0 {
		steps := req.StabilitySteps
		if steps <= 0 {
			steps = 1
		}
		report, err := explain.Stability(table, entry.Antecedent, entry.Consequent, entry.Window, req.StabilityShift, steps)
		if err != nil {
			return ExplainSummary{}, err
		}
		out.Stability = &report
	}
	return out, nil
}

// LoadTable reads the dataset CSV described by cfg.
func LoadTable(cfg config.DatasetConfig) (*dataset.Table, error) {
	if cfg.Path == "" {
		return nil, errors.New("dataset path is required")
	}
	return dataset.LoadCSVFile(cfg.Path, dataset.LoadOptions{
		TimestampColumn: cfg.TimestampColumn,
		IntervalColumn:  cfg.IntervalColumn,
	})
}

// Dimension is the vector length a problem over the table expects in mode.
func Dimension(table *dataset.Table, mode string) (int, error) {
	m, err := model.ParseMode(mode)
	if err != nil {
		return 0, err
	}
	catalog, err := dataset.Catalog(table)
	if err != nil {
		return 0, err
	}
	return rule.Dimension(catalog, m), nil
}

func (c *Client) buildProblem(cfg config.ProblemConfig, table *dataset.Table) (*problem.Problem, error) {
	mode, err := model.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	catalog, err := dataset.Catalog(table)
	if err != nil {
		return nil, err
	}
	return problem.New(problem.Config{
		Catalog:         catalog,
		Table:           table,
		Mode:            mode,
		IntervalMapping: rule.IntervalMapping(cfg.IntervalMapping),
		KeyScheme:       archive.KeyScheme(cfg.KeyScheme),
		Scope:           metrics.Scope(cfg.Scope),
		Weights:         cfg.Weights,
		Aggregator:      cfg.Aggregator,
		Logger:          c.logger,
		Recorder:        c.recorder,
	})
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[0].ID, nil
}

func runConfig(cfg config.Config, name string, mode model.Mode) storage.RunConfig {
	aggregator := cfg.Problem.Aggregator
	if aggregator == "" {
		aggregator = fitness.DefaultAggregator
	}
	return storage.RunConfig{
		Dataset:         name,
		Mode:            mode,
		IntervalMapping: cfg.Problem.IntervalMapping,
		KeyScheme:       cfg.Problem.KeyScheme,
		Scope:           cfg.Problem.Scope,
		Aggregator:      aggregator,
		Weights:         cfg.Problem.Weights,
		Population:      cfg.Search.Population,
		Iterations:      cfg.Search.Iterations,
		Seed:            cfg.Search.Seed,
		Workers:         cfg.Search.Workers,
	}
}
