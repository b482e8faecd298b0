package chat

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateSession inserts a new session.
func (r *PGRepo) CreateSession(ctx context.Context, session Session) error {
	const query = `
INSERT INTO chat_sessions (id, mode, candidate_slug, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.DB.ExecContext(ctx, query,
		session.ID,
		session.Mode,
		session.CandidateSlug,
		session.CreatedAt,
	)
	return err
}

// GetSession returns a session by ID.
func (r *PGRepo) GetSession(ctx context.Context, sessionID string) (Session, error) {
	const query = `
SELECT id, mode, candidate_slug, created_at
FROM chat_sessions
WHERE id = $1
LIMIT 1`
	var s Session
	var candidateSlug sql.NullString
	err := r.DB.QueryRowContext(ctx, query, sessionID).Scan(&s.ID, &s.Mode, &candidateSlug, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if candidateSlug.Valid {
		s.CandidateSlug = &candidateSlug.String
	}
	return s, nil
}

// AppendMessage inserts a message.
func (r *PGRepo) AppendMessage(ctx context.Context, msg Message) error {
	const query = `
INSERT INTO chat_messages (id, session_id, role, content, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query,
		msg.ID,
		msg.SessionID,
		msg.Role,
		msg.Content,
		msg.CreatedAt,
	)
	return err
}

// ListMessages returns a session's messages ordered oldest first.
func (r *PGRepo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	const query = `
SELECT id, session_id, role, content, created_at
FROM chat_messages
WHERE session_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
