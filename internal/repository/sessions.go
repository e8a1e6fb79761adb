package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunahq/attendant/internal/domain"
)

// uniqueViolation is the Postgres error code raised when an insert collides
// with the one-active-session-per-user index.
const uniqueViolation = "23505"

// Queries is the durable store of record for sessions and messages.
type Queries struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const sessionColumns = `id, user_id, status, message_count, started_at, last_active`

func (q *Queries) CreateSession(ctx context.Context, userID string) (*domain.Session, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, status)
		VALUES ($1, $2, 'active')
		RETURNING `+sessionColumns,
		uuid.NewString(), userID)

	s, err := scanSession(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrActiveSessionExists
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (q *Queries) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (q *Queries) ActiveSession(ctx context.Context, userID string) (*domain.Session, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND status = 'active'`, userID)

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, nil
}

func (q *Queries) TouchSession(ctx context.Context, id string, increment int) error {
	tag, err := q.pool.Exec(ctx, `
		UPDATE sessions
		SET message_count = message_count + $2, last_active = now()
		WHERE id = $1`, id, increment)
	if err != nil {
		return fmt.Errorf("update session activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (q *Queries) EndSession(ctx context.Context, id string) error {
	if _, err := q.pool.Exec(ctx, `
		UPDATE sessions SET status = 'ended' WHERE id = $1`, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (q *Queries) ActiveSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// EndExpiredSessions ends every active session whose last activity predates
// the cutoff and returns the sessions it ended, so the caller can clear
// their fast-store pointers.
func (q *Queries) EndExpiredSessions(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	rows, err := q.pool.Query(ctx, `
		UPDATE sessions SET status = 'ended'
		WHERE status = 'active' AND last_active <= $1
		RETURNING `+sessionColumns, cutoff)
	if err != nil {
		return nil, fmt.Errorf("end expired sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.MessageCount, &s.StartedAt, &s.LastActive)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSessions(rows pgx.Rows) ([]domain.Session, error) {
	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
