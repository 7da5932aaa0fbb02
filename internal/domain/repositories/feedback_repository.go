package repositories

import (
	"context"

	"github.com/contentloop/contentloop/internal/domain/entities"
)

// FeedbackRepository defines the interface for quality-feedback persistence.
// Feedback is append-only per run.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *entities.QualityFeedback) error
	ListByRun(ctx context.Context, runID string) ([]*entities.QualityFeedback, error)
}
