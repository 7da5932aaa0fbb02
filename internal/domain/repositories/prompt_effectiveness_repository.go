package repositories

import (
	"context"
	"time"

	"github.com/contentloop/contentloop/internal/domain/entities"
)

// PromptEffectivenessRepository tracks rolling quality averages per prompt hash.
type PromptEffectivenessRepository interface {
	// GetByHash returns the record or a NOT_FOUND application error.
	GetByHash(ctx context.Context, promptHash string) (*entities.PromptEffectivenessRecord, error)

	// RecordUse folds one quality score into the running average for the
	// hash, inserting the record on first use. The update is atomic per row.
	RecordUse(ctx context.Context, promptHash string, qualityScore float64, usedAt time.Time) error
}
