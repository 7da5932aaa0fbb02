package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/repositories"
	"github.com/contentloop/contentloop/internal/infrastructure/clients/postgres"
	"github.com/contentloop/contentloop/internal/infrastructure/observability"
	apperrors "github.com/contentloop/contentloop/pkg/errors"
)

// SignalAdapter implements learning-signal persistence in Postgres.
type SignalAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSignalAdapter creates a new signal adapter.
func NewSignalAdapter(client *postgres.Client) repositories.SignalRepository {
	return &SignalAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a learning signal and populates its generated id.
func (a *SignalAdapter) Create(ctx context.Context, signal *entities.LearningSignal) error {
	if signal == nil {
		return apperrors.NewInternalError("signal is nil", fmt.Errorf("signal is nil"))
	}
	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = time.Now().UTC()
	}
	if signal.SampleSize < 1 {
		signal.SampleSize = 1
	}

	record := goqu.Record{
		"signal_type":       string(signal.SignalType),
		"category":          string(signal.Category),
		"pattern":           signal.Pattern,
		"affected_provider": signal.AffectedProvider,
		"confidence":        signal.Confidence,
		"sample_size":       signal.SampleSize,
		"client_id":         sql.NullString{String: signal.ClientID, Valid: signal.ClientID != ""},
		"quality_delta":     signal.Impact.QualityDelta,
		"cost_delta":        signal.Impact.CostDelta,
		"speed_delta":       signal.Impact.SpeedDelta,
		"recommendation":    signal.Recommendation,
		"is_actionable":     signal.IsActionable,
		"applied_count":     signal.AppliedCount,
		"source_run_id":     sql.NullString{String: signal.SourceRunID, Valid: signal.SourceRunID != ""},
		"created_at":        signal.CreatedAt,
	}

	query, args, err := a.db.Insert("learning_signals").Rows(record).Returning("id").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build signal insert query", err)
	}

	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&signal.ID); err != nil {
		return apperrors.NewInternalError("failed to create learning signal", err)
	}

	return nil
}

// List returns signals matching the filter, ordered by confidence descending.
func (a *SignalAdapter) List(ctx context.Context, filter repositories.SignalFilter) ([]*entities.LearningSignal, error) {
	ds := a.db.From("learning_signals").Select(
		"id", "signal_type", "category", "pattern", "affected_provider",
		"confidence", "sample_size", "client_id", "quality_delta", "cost_delta",
		"speed_delta", "recommendation", "is_actionable", "applied_count",
		"source_run_id", "created_at",
	)

	if filter.Category != "" {
		ds = ds.Where(goqu.C("category").Eq(string(filter.Category)))
	}
	if filter.ClientID != "" {
		ds = ds.Where(goqu.C("client_id").Eq(filter.ClientID))
	}
	if !filter.Since.IsZero() {
		ds = ds.Where(goqu.C("created_at").Gte(filter.Since))
	}
	if filter.ActionableOnly {
		ds = ds.Where(goqu.C("is_actionable").IsTrue())
	}

	ds = ds.Order(goqu.C("confidence").Desc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build signal list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list learning signals", err)
	}
	defer rows.Close()

	var signals []*entities.LearningSignal
	for rows.Next() {
		s := &entities.LearningSignal{}
		var clientID, sourceRunID sql.NullString
		err := rows.Scan(
			&s.ID,
			&s.SignalType,
			&s.Category,
			&s.Pattern,
			&s.AffectedProvider,
			&s.Confidence,
			&s.SampleSize,
			&clientID,
			&s.Impact.QualityDelta,
			&s.Impact.CostDelta,
			&s.Impact.SpeedDelta,
			&s.Recommendation,
			&s.IsActionable,
			&s.AppliedCount,
			&sourceRunID,
			&s.CreatedAt,
		)
		if err != nil {
			// A malformed row must not abort the whole query.
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("skipping malformed learning signal row")
			continue
		}
		s.ClientID = clientID.String
		s.SourceRunID = sourceRunID.String
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate learning signals", err)
	}

	return signals, nil
}

// IncrementApplied bumps applied_count for the given signal ids.
func (a *SignalAdapter) IncrementApplied(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := a.db.Update("learning_signals").
		Set(goqu.Record{"applied_count": goqu.L("applied_count + 1")}).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build applied-count update", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to increment applied count", err)
	}

	return nil
}

// MarkExpired flips is_actionable off for actionable signals older than the cutoff.
func (a *SignalAdapter) MarkExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	query, args, err := a.db.Update("learning_signals").
		Set(goqu.Record{"is_actionable": false}).
		Where(
			goqu.C("is_actionable").IsTrue(),
			goqu.C("created_at").Lt(olderThan),
		).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build signal expiry update", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to expire learning signals", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read expiry row count", err)
	}
	return affected, nil
}
