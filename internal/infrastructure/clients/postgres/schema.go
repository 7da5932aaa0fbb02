package postgres

import (
	"context"
	"fmt"
)

// schemaStatements are executed in order on startup. Bootstrap only; schema
// evolution is handled by the ops migration tooling, not this service.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS generation_runs (
		id             TEXT PRIMARY KEY,
		client_id      TEXT NOT NULL,
		content_type   TEXT NOT NULL,
		route_type     TEXT NOT NULL DEFAULT '',
		provider       TEXT NOT NULL DEFAULT '',
		prompt_hash    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'pending',
		actual_quality DOUBLE PRECISION,
		actual_cost    DOUBLE PRECISION,
		actual_time_ms BIGINT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at   TIMESTAMPTZ,
		analyzed_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generation_runs_client_type
		ON generation_runs (client_id, content_type, status, completed_at)`,
	`CREATE TABLE IF NOT EXISTS quality_feedback (
		id            TEXT PRIMARY KEY,
		run_id        TEXT NOT NULL REFERENCES generation_runs (id),
		feedback_type TEXT NOT NULL,
		overall_score DOUBLE PRECISION,
		issues        JSONB NOT NULL DEFAULT '[]',
		suggestions   JSONB NOT NULL DEFAULT '[]',
		approved      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quality_feedback_run ON quality_feedback (run_id)`,
	`CREATE TABLE IF NOT EXISTS learning_signals (
		id                BIGSERIAL PRIMARY KEY,
		signal_type       TEXT NOT NULL,
		category          TEXT NOT NULL,
		pattern           TEXT NOT NULL,
		affected_provider TEXT NOT NULL DEFAULT '',
		confidence        DOUBLE PRECISION NOT NULL,
		sample_size       INTEGER NOT NULL DEFAULT 1,
		client_id         TEXT,
		quality_delta     DOUBLE PRECISION NOT NULL DEFAULT 0,
		cost_delta        DOUBLE PRECISION NOT NULL DEFAULT 0,
		speed_delta       DOUBLE PRECISION NOT NULL DEFAULT 0,
		recommendation    TEXT NOT NULL DEFAULT '',
		is_actionable     BOOLEAN NOT NULL DEFAULT TRUE,
		applied_count     INTEGER NOT NULL DEFAULT 0,
		source_run_id     TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_learning_signals_category
		ON learning_signals (category, is_actionable, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_learning_signals_client
		ON learning_signals (client_id, is_actionable, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_learning_signals_source_run
		ON learning_signals (source_run_id)`,
	`CREATE TABLE IF NOT EXISTS prompt_effectiveness (
		prompt_hash       TEXT PRIMARY KEY,
		total_uses        INTEGER NOT NULL DEFAULT 0,
		avg_quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_used_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS route_decisions (
		id                    TEXT PRIMARY KEY,
		run_id                TEXT NOT NULL UNIQUE,
		client_id             TEXT NOT NULL,
		content_type          TEXT NOT NULL,
		route_type            TEXT NOT NULL,
		reason                TEXT NOT NULL DEFAULT '',
		expected_quality      DOUBLE PRECISION NOT NULL,
		expected_cost         DOUBLE PRECISION NOT NULL,
		expected_time_minutes DOUBLE PRECISION NOT NULL,
		actual_quality        DOUBLE PRECISION,
		actual_cost           DOUBLE PRECISION,
		actual_time_ms        BIGINT,
		was_correct           BOOLEAN,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		evaluated_at          TIMESTAMPTZ
	)`,
}

// EnsureSchema creates the routing tables if they do not exist yet.
func (c *Client) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
