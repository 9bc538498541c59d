package repository

import (
	"context"
	"errors"
	"time"

	"github.com/focuslab/focusguard/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `id, user_id, started_at, ended_at, focus_seconds, distraction_seconds,
	app_usage, latest_service, latest_productivity, latest_reason, latest_at, created_at, updated_at`

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	var endedAt, latestAt *time.Time
	var latestService, latestProductivity, latestReason *string
	err := row.Scan(&s.ID, &s.UserID, &s.StartedAt, &endedAt, &s.FocusSeconds, &s.DistractionSeconds,
		&s.AppUsage, &latestService, &latestProductivity, &latestReason, &latestAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.EndedAt = endedAt
	if s.AppUsage == nil {
		s.AppUsage = map[string]int64{}
	}
	if latestService != nil && latestAt != nil {
		s.LatestActivity = &repository.Activity{
			Service:   *latestService,
			Timestamp: *latestAt,
		}
		if latestProductivity != nil {
			s.LatestActivity.Productivity = *latestProductivity
		}
		if latestReason != nil {
			s.LatestActivity.Reason = *latestReason
		}
	}
	return &s, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (user_id, started_at)
		 VALUES ($1, $2)
		 RETURNING `+sessionColumns,
		input.UserID, input.StartedAt)
	s, err := scanSession(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, repository.ErrDuplicateOpenSession
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) GetOpenSessionByUser(ctx context.Context, userID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions WHERE user_id = $1 AND ended_at IS NULL
		 LIMIT 1`,
		userID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) GetSessionByID(ctx context.Context, sessionID, userID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) ListSessionsByUser(ctx context.Context, userID string) ([]repository.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions WHERE user_id = $1 ORDER BY started_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) UpdateSessionActivated(ctx context.Context, sessionID, userID string, startedAt time.Time) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE sessions SET started_at = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND ended_at IS NULL
		 RETURNING `+sessionColumns,
		sessionID, userID, startedAt)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) UpdateSessionCompleted(ctx context.Context, input repository.CompleteSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE sessions SET ended_at = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND ended_at IS NULL
		 RETURNING `+sessionColumns,
		input.SessionID, input.UserID, input.EndedAt)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) ApplySessionIncrement(ctx context.Context, input repository.SessionIncrementInput) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET
		   focus_seconds = focus_seconds + CASE WHEN $3 THEN $4::bigint ELSE 0 END,
		   distraction_seconds = distraction_seconds + CASE WHEN $3 THEN 0 ELSE $4::bigint END,
		   app_usage = jsonb_set(app_usage, ARRAY[$5::text],
		     to_jsonb(COALESCE((app_usage->>$5)::bigint, 0) + $4::bigint)),
		   latest_service = $6,
		   latest_productivity = $7,
		   latest_reason = $8,
		   latest_at = $9,
		   updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND ended_at IS NULL`,
		input.SessionID, input.UserID, input.Focus, input.IncrementSeconds, input.AppKey,
		input.Activity.Service, input.Activity.Productivity, input.Activity.Reason, input.Activity.Timestamp)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, userID string) (*repository.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, total_focus_seconds, total_distraction_seconds, app_usage, created_at, updated_at
		 FROM users WHERE id = $1`,
		userID)
	var u repository.User
	err := row.Scan(&u.ID, &u.TotalFocusSeconds, &u.TotalDistractionSeconds, &u.AppUsage, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if u.AppUsage == nil {
		u.AppUsage = map[string]int64{}
	}
	return &u, nil
}

func (r *PostgresRepository) ApplyUserIncrement(ctx context.Context, input repository.UserIncrementInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, total_focus_seconds, total_distraction_seconds, app_usage)
		 VALUES ($1,
		   CASE WHEN $2 THEN $3::bigint ELSE 0 END,
		   CASE WHEN $2 THEN 0 ELSE $3::bigint END,
		   jsonb_build_object($4::text, $3::bigint))
		 ON CONFLICT (id) DO UPDATE SET
		   total_focus_seconds = users.total_focus_seconds + CASE WHEN $2 THEN $3::bigint ELSE 0 END,
		   total_distraction_seconds = users.total_distraction_seconds + CASE WHEN $2 THEN 0 ELSE $3::bigint END,
		   app_usage = jsonb_set(users.app_usage, ARRAY[$4::text],
		     to_jsonb(COALESCE((users.app_usage->>$4)::bigint, 0) + $3::bigint)),
		   updated_at = NOW()`,
		input.UserID, input.Focus, input.IncrementSeconds, input.AppKey)
	return err
}

func (r *PostgresRepository) DailyTotals(ctx context.Context, userID string, since time.Time) ([]repository.DailyTotalsRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT to_char(started_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		        COALESCE(SUM(focus_seconds), 0)::bigint,
		        COALESCE(SUM(distraction_seconds), 0)::bigint,
		        COUNT(*)::int
		 FROM sessions
		 WHERE user_id = $1 AND started_at >= $2
		 GROUP BY day
		 ORDER BY day ASC`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.DailyTotalsRow
	for rows.Next() {
		var row repository.DailyTotalsRow
		if err := rows.Scan(&row.Date, &row.FocusSeconds, &row.DistractionSeconds, &row.SessionCount); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) AppUsageTotals(ctx context.Context, userID string, since time.Time) ([]repository.AppUsageTotalsRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT kv.key, SUM(kv.value::bigint)::bigint AS total_seconds
		 FROM sessions, jsonb_each_text(app_usage) AS kv
		 WHERE user_id = $1 AND started_at >= $2
		 GROUP BY kv.key
		 ORDER BY total_seconds DESC`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.AppUsageTotalsRow
	for rows.Next() {
		var row repository.AppUsageTotalsRow
		if err := rows.Scan(&row.AppKey, &row.TotalSeconds); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}
