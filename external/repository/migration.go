package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		total_focus_seconds BIGINT NOT NULL DEFAULT 0,
		total_distraction_seconds BIGINT NOT NULL DEFAULT 0,
		app_usage JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		focus_seconds BIGINT NOT NULL DEFAULT 0,
		distraction_seconds BIGINT NOT NULL DEFAULT 0,
		app_usage JSONB NOT NULL DEFAULT '{}',
		latest_service TEXT,
		latest_productivity TEXT,
		latest_reason TEXT,
		latest_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// One open session per user, enforced by the database rather than by the
	// find-then-create sequence alone.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_open_per_user
		ON sessions (user_id) WHERE ended_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_started
		ON sessions (user_id, started_at DESC)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
