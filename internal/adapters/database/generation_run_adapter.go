package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/repositories"
	"github.com/contentloop/contentloop/internal/infrastructure/clients/postgres"
	apperrors "github.com/contentloop/contentloop/pkg/errors"
)

// GenerationRunAdapter implements generation-run persistence in Postgres.
type GenerationRunAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewGenerationRunAdapter creates a new generation-run adapter.
func NewGenerationRunAdapter(client *postgres.Client) repositories.GenerationRunRepository {
	return &GenerationRunAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a generation run.
func (a *GenerationRunAdapter) Create(ctx context.Context, run *entities.GenerationRun) error {
	if run == nil {
		return apperrors.NewInternalError("run is nil", fmt.Errorf("run is nil"))
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = entities.RunPending
	}

	record := goqu.Record{
		"id":           run.ID,
		"client_id":    run.ClientID,
		"content_type": string(run.ContentType),
		"route_type":   string(run.RouteType),
		"provider":     run.Provider,
		"prompt_hash":  run.PromptHash,
		"status":       string(run.Status),
		"created_at":   run.CreatedAt,
	}

	query, args, err := a.db.Insert("generation_runs").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build run insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create generation run", err)
	}

	return nil
}

// GetByID returns the run or a NOT_FOUND error.
func (a *GenerationRunAdapter) GetByID(ctx context.Context, id string) (*entities.GenerationRun, error) {
	query, args, err := a.db.From("generation_runs").Select(
		"id", "client_id", "content_type", "route_type", "provider",
		"prompt_hash", "status", "actual_quality", "actual_cost",
		"actual_time_ms", "created_at", "completed_at",
	).Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build run query", err)
	}

	run := &entities.GenerationRun{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&run.ID,
		&run.ClientID,
		&run.ContentType,
		&run.RouteType,
		&run.Provider,
		&run.PromptHash,
		&run.Status,
		&run.ActualQuality,
		&run.ActualCost,
		&run.ActualTimeMs,
		&run.CreatedAt,
		&run.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("generation run %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get generation run", err)
	}

	return run, nil
}

// Complete writes status and actuals for a run. Missing runs are a no-op.
func (a *GenerationRunAdapter) Complete(ctx context.Context, id string, status entities.RunStatus, actuals entities.RunActuals) error {
	record := goqu.Record{
		"status":       string(status),
		"completed_at": time.Now().UTC(),
	}
	if actuals.Quality != nil {
		record["actual_quality"] = *actuals.Quality
	}
	if actuals.CostUsd != nil {
		record["actual_cost"] = *actuals.CostUsd
	}
	if actuals.TimeMs != nil {
		record["actual_time_ms"] = *actuals.TimeMs
	}

	query, args, err := a.db.Update("generation_runs").
		Set(record).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build run completion update", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to complete generation run", err)
	}

	return nil
}

// ClaimAnalysis marks the run analyzed if nobody has yet; reports whether the
// claim succeeded.
func (a *GenerationRunAdapter) ClaimAnalysis(ctx context.Context, id string) (bool, error) {
	query, args, err := a.db.Update("generation_runs").
		Set(goqu.Record{"analyzed_at": time.Now().UTC()}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("analyzed_at").IsNull(),
		).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build analysis claim update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to claim analysis", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to read analysis claim row count", err)
	}
	return affected > 0, nil
}

// ReleaseAnalysis clears the analysis claim so a failed task can run again.
func (a *GenerationRunAdapter) ReleaseAnalysis(ctx context.Context, id string) error {
	query, args, err := a.db.Update("generation_runs").
		Set(goqu.Record{"analyzed_at": nil}).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build analysis release update", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to release analysis claim", err)
	}
	return nil
}

// AggregatePerformance averages quality and cost over completed runs.
func (a *GenerationRunAdapter) AggregatePerformance(ctx context.Context, clientID string, contentType entities.ContentType, since time.Time) (*repositories.PerformanceAggregate, error) {
	query := `
		SELECT
			COALESCE(AVG(actual_quality), 0),
			COALESCE(AVG(actual_cost), 0),
			COUNT(*)
		FROM generation_runs
		WHERE client_id = $1
		  AND content_type = $2
		  AND status = $3
		  AND completed_at >= $4
		  AND actual_quality IS NOT NULL
	`

	agg := &repositories.PerformanceAggregate{}
	err := a.client.DB().QueryRowContext(ctx, query,
		clientID, string(contentType), string(entities.RunCompleted), since,
	).Scan(&agg.AvgQuality, &agg.AvgCost, &agg.SampleSize)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate run performance", err)
	}

	return agg, nil
}
