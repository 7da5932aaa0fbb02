package repositories

import (
	"context"
	"time"

	"github.com/contentloop/contentloop/internal/domain/entities"
)

// SignalFilter narrows a learning-signal query. Zero values are ignored.
type SignalFilter struct {
	Category       entities.ContentType
	ClientID       string
	Since          time.Time
	ActionableOnly bool
	Limit          int
}

// SignalRepository defines the interface for learning-signal persistence.
// Signals are append-mostly: rows are never removed, only expired or bumped.
type SignalRepository interface {
	Create(ctx context.Context, signal *entities.LearningSignal) error

	// List returns signals matching the filter ordered by confidence
	// descending, capped at filter.Limit.
	List(ctx context.Context, filter SignalFilter) ([]*entities.LearningSignal, error)

	// IncrementApplied bumps applied_count for the given signal ids.
	IncrementApplied(ctx context.Context, ids []int64) error

	// MarkExpired flips is_actionable off for actionable signals created
	// before the cutoff. Idempotent; returns the number of rows updated.
	MarkExpired(ctx context.Context, olderThan time.Time) (int64, error)
}
