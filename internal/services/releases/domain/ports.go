package domain

import (
	"context"

	"github.com/google/uuid"
)

// Source fetches every raw record for one region
// A rate limited source returns what it gathered with a nil error
type Source interface {
	Name() string
	FetchAll(ctx context.Context, q Query) ([]RawRecord, error)
}

// RatingLookup resolves one title id to a rating; (nil, nil) means unrated
type RatingLookup interface {
	Rating(ctx context.Context, titleID string) (*float64, error)
}

// SinkPort persists a finished run
type SinkPort interface {
	Name() string
	Save(ctx context.Context, rep Report) error
}

// RunnerPort runs the pipeline once
type RunnerPort interface {
	Run(ctx context.Context) (Report, error)
}

// QueryPort reads persisted runs
type QueryPort interface {
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	LatestRun(ctx context.Context) (RunSummary, error)
	Rows(ctx context.Context, runID uuid.UUID, f RowFilter) ([]CanonicalRow, error)
}
