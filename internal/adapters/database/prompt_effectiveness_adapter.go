package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/repositories"
	"github.com/contentloop/contentloop/internal/infrastructure/clients/postgres"
	apperrors "github.com/contentloop/contentloop/pkg/errors"
)

// PromptEffectivenessAdapter implements prompt-effectiveness persistence in
// Postgres. The running average is folded in SQL so concurrent updates stay
// atomic per row.
type PromptEffectivenessAdapter struct {
	client *postgres.Client
}

// NewPromptEffectivenessAdapter creates a new prompt-effectiveness adapter.
func NewPromptEffectivenessAdapter(client *postgres.Client) repositories.PromptEffectivenessRepository {
	return &PromptEffectivenessAdapter{client: client}
}

// GetByHash returns the record or a NOT_FOUND error.
func (a *PromptEffectivenessAdapter) GetByHash(ctx context.Context, promptHash string) (*entities.PromptEffectivenessRecord, error) {
	query := `
		SELECT prompt_hash, total_uses, avg_quality_score, last_used_at
		FROM prompt_effectiveness
		WHERE prompt_hash = $1
	`

	record := &entities.PromptEffectivenessRecord{}
	err := a.client.DB().QueryRowContext(ctx, query, promptHash).Scan(
		&record.PromptHash,
		&record.TotalUses,
		&record.AvgQualityScore,
		&record.LastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("prompt effectiveness record %s not found", promptHash))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get prompt effectiveness record", err)
	}

	return record, nil
}

// RecordUse folds one quality score into the running average so that after n
// uses the stored average equals the arithmetic mean of the n scores. The
// first use inserts the row; later uses lock it and fold in Go.
func (a *PromptEffectivenessAdapter) RecordUse(ctx context.Context, promptHash string, qualityScore float64, usedAt time.Time) error {
	if usedAt.IsZero() {
		usedAt = time.Now().UTC()
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin prompt effectiveness transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO prompt_effectiveness (prompt_hash, total_uses, avg_quality_score, last_used_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (prompt_hash) DO NOTHING
	`, promptHash, qualityScore, usedAt)
	if err != nil {
		return apperrors.NewInternalError("failed to insert prompt effectiveness record", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read prompt effectiveness insert result", err)
	}

	if inserted == 0 {
		var uses int
		var avg float64
		err := tx.QueryRowContext(ctx, `
			SELECT total_uses, avg_quality_score
			FROM prompt_effectiveness
			WHERE prompt_hash = $1
			FOR UPDATE
		`, promptHash).Scan(&uses, &avg)
		if err != nil {
			return apperrors.NewInternalError("failed to lock prompt effectiveness record", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE prompt_effectiveness
			SET total_uses = $2, avg_quality_score = $3, last_used_at = $4
			WHERE prompt_hash = $1
		`, promptHash, uses+1, foldQualityScore(avg, uses, qualityScore), usedAt)
		if err != nil {
			return apperrors.NewInternalError("failed to update prompt effectiveness record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit prompt effectiveness transaction", err)
	}

	return nil
}

// foldQualityScore folds one score into a running average over uses samples.
func foldQualityScore(avg float64, uses int, score float64) float64 {
	return (avg*float64(uses) + score) / float64(uses+1)
}
