package storage

import (
	"context"
)

// Store persists summaries of finished mining runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, bool, error)
	// ListRuns returns run summaries, newest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)
}
