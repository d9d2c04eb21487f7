package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragforge/ragforge/internal/convo"
)

// ConversationRepo implements convo.Store over Postgres, with cascading
// delete handled by the conversation_messages foreign key's ON DELETE
// CASCADE (see Init's schema) rather than an application-level loop.
type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) CreateSession(ctx context.Context, s convo.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_sessions (id, user_id, collection_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, s.CollectionID, s.Status, s.CreatedAt)
	return err
}

func (r *ConversationRepo) AppendMessage(ctx context.Context, m convo.Message) error {
	meta, err := json.Marshal(m.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO conversation_messages (id, session_id, role, type, content, metadata, token_count, execution_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, m.SessionID, string(m.Role), m.Type, m.Content, meta, m.TokenCount, m.ExecutionTime, m.CreatedAt)
	return err
}

func (r *ConversationRepo) MessagesBySession(ctx context.Context, sessionID string) ([]convo.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, role, type, content, metadata, token_count, execution_time, created_at
		FROM conversation_messages WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []convo.Message
	for rows.Next() {
		var m convo.Message
		var role string
		var meta []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Type, &m.Content, &meta, &m.TokenCount, &m.ExecutionTime, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = convo.Role(role)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM conversation_sessions WHERE id = $1`, sessionID)
	return err
}
