package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/repositories"
	"github.com/contentloop/contentloop/internal/infrastructure/clients/postgres"
	"github.com/contentloop/contentloop/internal/infrastructure/observability"
	apperrors "github.com/contentloop/contentloop/pkg/errors"
)

// FeedbackAdapter implements quality-feedback persistence in Postgres.
type FeedbackAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewFeedbackAdapter creates a new feedback adapter.
func NewFeedbackAdapter(client *postgres.Client) repositories.FeedbackRepository {
	return &FeedbackAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a feedback record.
func (a *FeedbackAdapter) Create(ctx context.Context, feedback *entities.QualityFeedback) error {
	if feedback == nil {
		return apperrors.NewInternalError("feedback is nil", fmt.Errorf("feedback is nil"))
	}
	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}

	issues, err := json.Marshal(feedback.Issues)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal feedback issues", err)
	}
	suggestions, err := json.Marshal(feedback.Suggestions)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal feedback suggestions", err)
	}

	record := goqu.Record{
		"id":            feedback.ID,
		"run_id":        feedback.RunID,
		"feedback_type": string(feedback.FeedbackType),
		"overall_score": feedback.OverallScore,
		"issues":        string(issues),
		"suggestions":   string(suggestions),
		"approved":      feedback.Approved,
		"created_at":    feedback.CreatedAt,
	}

	query, args, err := a.db.Insert("quality_feedback").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build feedback insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create feedback", err)
	}

	return nil
}

// ListByRun returns all feedback for a run, oldest first.
func (a *FeedbackAdapter) ListByRun(ctx context.Context, runID string) ([]*entities.QualityFeedback, error) {
	query, args, err := a.db.From("quality_feedback").Select(
		"id", "run_id", "feedback_type", "overall_score",
		"issues", "suggestions", "approved", "created_at",
	).Where(goqu.C("run_id").Eq(runID)).
		Order(goqu.C("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build feedback list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list feedback", err)
	}
	defer rows.Close()

	var feedback []*entities.QualityFeedback
	for rows.Next() {
		f := &entities.QualityFeedback{}
		var issues, suggestions []byte
		err := rows.Scan(
			&f.ID,
			&f.RunID,
			&f.FeedbackType,
			&f.OverallScore,
			&issues,
			&suggestions,
			&f.Approved,
			&f.CreatedAt,
		)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("skipping malformed feedback row")
			continue
		}
		if err := json.Unmarshal(issues, &f.Issues); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("feedback_id", f.ID).Msg("skipping feedback with malformed issues")
			continue
		}
		if err := json.Unmarshal(suggestions, &f.Suggestions); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("feedback_id", f.ID).Msg("skipping feedback with malformed suggestions")
			continue
		}
		feedback = append(feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate feedback", err)
	}

	return feedback, nil
}
