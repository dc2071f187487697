package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armts/internal/fitness"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
dataset:
  path: data/september24.csv
problem:
  mode: interval
  key_scheme: sided
  weights:
    tsm: 0
search:
  population: 20
  workers: 2
store:
  kind: sqlite
  path: runs.db
`))
	require.NoError(t, err)

	assert.Equal(t, "data/september24.csv", cfg.Dataset.Path)
	assert.Equal(t, "timestamp", cfg.Dataset.TimestampColumn)
	assert.Equal(t, "interval", cfg.Problem.Mode)
	assert.Equal(t, "segment", cfg.Problem.IntervalMapping)
	assert.Equal(t, "sided", cfg.Problem.KeyScheme)
	assert.Equal(t, fitness.Weights{Support: 1, Confidence: 1, Inclusion: 1, Amplitude: 1}, cfg.Problem.Weights)
	assert.Equal(t, 20, cfg.Search.Population)
	assert.Equal(t, 40, cfg.Search.Iterations)
	assert.Equal(t, "runs.db", cfg.Store.Path)
}

func TestParseEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"mode":          "problem:\n  mode: weekly\n",
		"population":    "search:\n  population: 0\n",
		"sqlite path":   "store:\n  kind: sqlite\n",
		"log level":     "log:\n  level: loud\n",
		"unknown field": "search:\n  generations: 3\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsNegativeWeights(t *testing.T) {
	_, err := Parse(strings.NewReader("problem:\n  weights:\n    support: -1\n"))
	assert.True(t, errors.Is(err, fitness.ErrInvalidWeights))
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "armts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
