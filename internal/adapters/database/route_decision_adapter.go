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

// RouteDecisionAdapter implements route-decision persistence in Postgres.
type RouteDecisionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewRouteDecisionAdapter creates a new route-decision adapter.
func NewRouteDecisionAdapter(client *postgres.Client) repositories.RouteDecisionRepository {
	return &RouteDecisionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

const routeDecisionColumns = `
	id, run_id, client_id, content_type, route_type, reason,
	expected_quality, expected_cost, expected_time_minutes,
	actual_quality, actual_cost, actual_time_ms, was_correct,
	created_at, evaluated_at
`

// Create inserts the record, replacing any prior decision for the same run so
// the one-decision-per-run invariant holds.
func (a *RouteDecisionAdapter) Create(ctx context.Context, record *entities.RouteDecisionRecord) error {
	if record == nil {
		return apperrors.NewInternalError("route decision record is nil", fmt.Errorf("record is nil"))
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO route_decisions
			(id, run_id, client_id, content_type, route_type, reason,
			 expected_quality, expected_cost, expected_time_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			route_type            = EXCLUDED.route_type,
			reason                = EXCLUDED.reason,
			expected_quality      = EXCLUDED.expected_quality,
			expected_cost         = EXCLUDED.expected_cost,
			expected_time_minutes = EXCLUDED.expected_time_minutes
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		record.ID,
		record.RunID,
		record.ClientID,
		string(record.ContentType),
		string(record.Route),
		record.Reason,
		record.ExpectedQuality,
		record.ExpectedCostUsd,
		record.ExpectedTimeMinutes,
		record.CreatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to create route decision record", err)
	}

	return nil
}

// GetByID returns the record or a NOT_FOUND error.
func (a *RouteDecisionAdapter) GetByID(ctx context.Context, id string) (*entities.RouteDecisionRecord, error) {
	return a.getOne(ctx, "id", id)
}

// GetByRunID returns the record for a run or a NOT_FOUND error.
func (a *RouteDecisionAdapter) GetByRunID(ctx context.Context, runID string) (*entities.RouteDecisionRecord, error) {
	return a.getOne(ctx, "run_id", runID)
}

func (a *RouteDecisionAdapter) getOne(ctx context.Context, column, value string) (*entities.RouteDecisionRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM route_decisions WHERE %s = $1", routeDecisionColumns, column)

	record := &entities.RouteDecisionRecord{}
	err := a.client.DB().QueryRowContext(ctx, query, value).Scan(
		&record.ID,
		&record.RunID,
		&record.ClientID,
		&record.ContentType,
		&record.Route,
		&record.Reason,
		&record.ExpectedQuality,
		&record.ExpectedCostUsd,
		&record.ExpectedTimeMinutes,
		&record.ActualQuality,
		&record.ActualCost,
		&record.ActualTimeMs,
		&record.WasCorrect,
		&record.CreatedAt,
		&record.EvaluatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("route decision %s not found", value))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get route decision record", err)
	}

	return record, nil
}

// UpdateOutcome writes actuals and the verdict, inserting the corrective
// signal in the same transaction so a crash cannot leave the pair half done.
// Missing records are a silent no-op.
func (a *RouteDecisionAdapter) UpdateOutcome(ctx context.Context, id string, actuals entities.RunActuals, wasCorrect bool, corrective *entities.LearningSignal) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin outcome transaction", err)
	}
	defer tx.Rollback()

	record := goqu.Record{
		"was_correct":  wasCorrect,
		"evaluated_at": time.Now().UTC(),
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

	query, args, err := a.db.Update("route_decisions").
		Set(record).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build outcome update", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update route decision outcome", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read outcome row count", err)
	}
	if affected == 0 {
		// Unknown decision id: nothing to evaluate.
		return nil
	}

	if corrective != nil {
		if corrective.CreatedAt.IsZero() {
			corrective.CreatedAt = time.Now().UTC()
		}
		if corrective.SampleSize < 1 {
			corrective.SampleSize = 1
		}

		insert := `
			INSERT INTO learning_signals
				(signal_type, category, pattern, affected_provider, confidence,
				 sample_size, client_id, quality_delta, cost_delta, speed_delta,
				 recommendation, is_actionable, applied_count, source_run_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, insert,
			string(corrective.SignalType),
			string(corrective.Category),
			corrective.Pattern,
			corrective.AffectedProvider,
			corrective.Confidence,
			corrective.SampleSize,
			sql.NullString{String: corrective.ClientID, Valid: corrective.ClientID != ""},
			corrective.Impact.QualityDelta,
			corrective.Impact.CostDelta,
			corrective.Impact.SpeedDelta,
			corrective.Recommendation,
			corrective.IsActionable,
			corrective.AppliedCount,
			sql.NullString{String: corrective.SourceRunID, Valid: corrective.SourceRunID != ""},
			corrective.CreatedAt,
		).Scan(&corrective.ID)
		if err != nil {
			return apperrors.NewInternalError("failed to insert corrective signal", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit outcome transaction", err)
	}

	return nil
}
