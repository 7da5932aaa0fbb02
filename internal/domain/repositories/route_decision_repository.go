package repositories

import (
	"context"

	"github.com/contentloop/contentloop/internal/domain/entities"
)

// RouteDecisionRepository defines the interface for persisted route decisions.
type RouteDecisionRepository interface {
	// Create inserts the record, replacing any existing record for the same
	// run id so that exactly one decision exists per generation run.
	Create(ctx context.Context, record *entities.RouteDecisionRecord) error

	// GetByID returns the record or a NOT_FOUND application error.
	GetByID(ctx context.Context, id string) (*entities.RouteDecisionRecord, error)

	// GetByRunID returns the record or a NOT_FOUND application error.
	GetByRunID(ctx context.Context, runID string) (*entities.RouteDecisionRecord, error)

	// UpdateOutcome writes actuals and the correctness verdict, and inserts
	// the corrective signal (when non-nil) in the same transaction.
	UpdateOutcome(ctx context.Context, id string, actuals entities.RunActuals, wasCorrect bool, corrective *entities.LearningSignal) error
}
