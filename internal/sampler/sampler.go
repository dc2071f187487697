// Package sampler drives an evaluator with uniformly random vectors. It is a
// reference driver for exercising a problem end to end, not a search
// algorithm.
package sampler

import (
	"context"
	"errors"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Evaluator is the optimizer-facing contract of a problem.
type Evaluator interface {
	Dimension() int
	Evaluate(ctx context.Context, vector []float64) (float64, error)
}

type Config struct {
	Population int
	Iterations int
	Seed       int64
	Workers    int
	Logger     *zap.Logger
}

type Result struct {
	Evaluations int
	BestFitness float64
	BestVector  []float64
	// BestByIteration is the running best fitness after each iteration.
	BestByIteration []float64
}

func (c Config) validate() error {
	if c.Population <= 0 {
		return errors.New("population must be positive")
	}
	if c.Iterations <= 0 {
		return errors.New("iterations must be positive")
	}
	return nil
}

// Run evaluates Iterations batches of Population vectors. Vectors are drawn
// from a single seeded source before each batch is fanned out, so results do
// not depend on the number of workers.
func Run(ctx context.Context, ev Evaluator, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > cfg.Population {
		workers = cfg.Population
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	dim := ev.Dimension()
	result := Result{BestByIteration: make([]float64, 0, cfg.Iterations)}

	for iteration := 1; iteration <= cfg.Iterations; iteration++ {
		batch := make([][]float64, cfg.Population)
		for i := range batch {
			batch[i] = randomVector(rng, dim)
		}

		fitness, err := evaluateBatch(ctx, ev, batch, workers)
		if err != nil {
			return result, err
		}
		result.Evaluations += len(batch)

		for i, f := range fitness {
			if result.BestVector == nil || f > result.BestFitness {
				result.BestFitness = f
				result.BestVector = batch[i]
			}
		}
		result.BestByIteration = append(result.BestByIteration, result.BestFitness)
		logger.Debug("iteration complete",
			zap.Int("iteration", iteration),
			zap.Float64("best_fitness", result.BestFitness),
		)
	}

	logger.Info("sampling finished",
		zap.Int("evaluations", result.Evaluations),
		zap.Float64("best_fitness", result.BestFitness),
	)
	return result, nil
}

func evaluateBatch(ctx context.Context, ev Evaluator, batch [][]float64, workers int) ([]float64, error) {
	fitness := make([]float64, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range batch {
		g.Go(func() error {
			f, err := ev.Evaluate(gctx, batch[i])
			if err != nil {
				return err
			}
			fitness[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fitness, nil
}

func randomVector(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = rng.Float64()
	}
	return v
}
