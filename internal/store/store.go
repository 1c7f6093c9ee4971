package store

import (
	"context"

	"github.com/taxdeedflow/property-report/internal/model"
)

// RunFilter specifies criteria for listing persisted report runs.
type RunFilter struct {
	Quality model.DataQuality `json:"quality,omitempty"`
	State   string            `json:"state,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Offset  int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for report runs.
type Store interface {
	SaveRun(ctx context.Context, rec *model.EnrichedRecord) (*model.Run, error)
	SaveRuns(ctx context.Context, recs []*model.EnrichedRecord) (int64, error)
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
