// Package config loads mining run configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"armts/internal/fitness"
)

var validate = validator.New()

type Config struct {
	Dataset DatasetConfig `yaml:"dataset"`
	Problem ProblemConfig `yaml:"problem"`
	Search  SearchConfig  `yaml:"search"`
	Store   StoreConfig   `yaml:"store"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
}

type DatasetConfig struct {
	Path            string `yaml:"path"`
	TimestampColumn string `yaml:"timestamp_column"`
	IntervalColumn  string `yaml:"interval_column"`
}

type ProblemConfig struct {
	Mode            string          `yaml:"mode" validate:"oneof=timeseries interval"`
	IntervalMapping string          `yaml:"interval_mapping" validate:"oneof=segment global"`
	KeyScheme       string          `yaml:"key_scheme" validate:"oneof=unordered sided"`
	Scope           string          `yaml:"scope" validate:"oneof=window global"`
	Aggregator      string          `yaml:"aggregator" validate:"required"`
	Weights         fitness.Weights `yaml:"weights"`
}

type SearchConfig struct {
	Population int   `yaml:"population" validate:"gte=1"`
	Iterations int   `yaml:"iterations" validate:"gte=1"`
	Seed       int64 `yaml:"seed"`
	Workers    int   `yaml:"workers" validate:"gte=1,lte=256"`
	Top        int   `yaml:"top" validate:"gte=0"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" validate:"oneof=memory sqlite"`
	Path string `yaml:"path" validate:"required_if=Kind sqlite"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Default is the configuration a run uses when nothing overrides it.
func Default() Config {
	return Config{
		Dataset: DatasetConfig{
			TimestampColumn: "timestamp",
			IntervalColumn:  "interval",
		},
		Problem: ProblemConfig{
			Mode:            "timeseries",
			IntervalMapping: "segment",
			KeyScheme:       "unordered",
			Scope:           "window",
			Aggregator:      fitness.DefaultAggregator,
			Weights:         fitness.DefaultWeights(),
		},
		Search: SearchConfig{
			Population: 50,
			Iterations: 40,
			Seed:       1,
			Workers:    4,
			Top:        10,
		},
		Store: StoreConfig{Kind: "memory"},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown keys
// are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Problem.Weights.Validate(); err != nil {
		return err
	}
	return nil
}
