package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"armts/internal/archive"
	"armts/internal/fitness"
	"armts/internal/model"
)

var ErrMissingRunID = errors.New("run id is required")

// RunConfig is the problem and search configuration a run was mined with.
type RunConfig struct {
	Dataset         string          `json:"dataset"`
	Mode            model.Mode      `json:"mode"`
	IntervalMapping string          `json:"interval_mapping,omitempty"`
	KeyScheme       string          `json:"key_scheme"`
	Scope           string          `json:"scope"`
	Aggregator      string          `json:"aggregator"`
	Weights         fitness.Weights `json:"weights"`
	Population      int             `json:"population"`
	Iterations      int             `json:"iterations"`
	Seed            int64           `json:"seed"`
	Workers         int             `json:"workers"`
}

// RunRecord is a finished run: its configuration and the ranked archive it
// produced.
type RunRecord struct {
	model.VersionedRecord
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Config      RunConfig       `json:"config"`
	Evaluations int             `json:"evaluations"`
	BestFitness float64         `json:"best_fitness"`
	Rules       []archive.Entry `json:"rules"`
}

type RunSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Dataset     string    `json:"dataset"`
	Mode        string    `json:"mode"`
	Evaluations int       `json:"evaluations"`
	BestFitness float64   `json:"best_fitness"`
	RuleCount   int       `json:"rule_count"`
}

// NewRunRecord stamps a record with a fresh id, the current versions and the
// creation time.
func NewRunRecord(cfg RunConfig, evaluations int, ranked []archive.Entry) RunRecord {
	best := 0.0
	for _, e := range ranked {
		if e.Fitness > best {
			best = e.Fitness
		}
	}
	return RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		Config:          cfg,
		Evaluations:     evaluations,
		BestFitness:     best,
		Rules:           append([]archive.Entry(nil), ranked...),
	}
}

func (r RunRecord) Summary() RunSummary {
	return RunSummary{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		Dataset:     r.Config.Dataset,
		Mode:        string(r.Config.Mode),
		Evaluations: r.Evaluations,
		BestFitness: r.BestFitness,
		RuleCount:   len(r.Rules),
	}
}

// Rows renders the stored rules in export shape.
func (r RunRecord) Rows() []archive.Row {
	out := make([]archive.Row, 0, len(r.Rules))
	for _, e := range r.Rules {
		out = append(out, e.Row())
	}
	return out
}

func (r RunRecord) clone() RunRecord {
	r.Rules = append([]archive.Entry(nil), r.Rules...)
	return r
}
