package repositories

import (
	"context"
	"time"

	"github.com/contentloop/contentloop/internal/domain/entities"
)

// PerformanceAggregate summarizes completed runs for one client/content type.
type PerformanceAggregate struct {
	AvgQuality float64
	AvgCost    float64
	SampleSize int
}

// GenerationRunRepository defines the interface for generation-run persistence.
type GenerationRunRepository interface {
	Create(ctx context.Context, run *entities.GenerationRun) error

	// GetByID returns the run or a NOT_FOUND application error.
	GetByID(ctx context.Context, id string) (*entities.GenerationRun, error)

	// Complete writes status and actuals. Missing runs are a silent no-op.
	Complete(ctx context.Context, id string, status entities.RunStatus, actuals entities.RunActuals) error

	// ClaimAnalysis atomically marks the run as analyzed and reports whether
	// this caller won the claim. Used to keep at-least-once analysis tasks
	// from double-counting.
	ClaimAnalysis(ctx context.Context, id string) (bool, error)

	// ReleaseAnalysis clears the analysis claim so a failed task can retry.
	ReleaseAnalysis(ctx context.Context, id string) error

	// AggregatePerformance averages quality and cost over completed runs for
	// the client/content type since the cutoff.
	AggregatePerformance(ctx context.Context, clientID string, contentType entities.ContentType, since time.Time) (*PerformanceAggregate, error)
}
