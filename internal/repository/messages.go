package repository

import (
	"context"
	"fmt"

	"github.com/lunahq/attendant/internal/domain"
)

func (q *Queries) CreateMessage(ctx context.Context, p domain.NewMessage) (*domain.Message, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO messages (session_id, user_id, role, content, intent, confidence)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, 0.0))
		RETURNING id, created_at`,
		p.SessionID, p.UserID, string(p.Role), p.Content, p.Intent, p.Confidence)

	m := domain.Message{
		SessionID:  p.SessionID,
		UserID:     p.UserID,
		Role:       p.Role,
		Content:    p.Content,
		Intent:     p.Intent,
		Confidence: p.Confidence,
	}
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &m, nil
}

// History returns the most recent limit messages of a session in
// chronological order, oldest first.
func (q *Queries) History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, session_id, user_id, role, content,
		       COALESCE(intent, ''), COALESCE(confidence, 0.0), created_at
		FROM (
			SELECT * FROM messages
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Role,
			&m.Content, &m.Intent, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
