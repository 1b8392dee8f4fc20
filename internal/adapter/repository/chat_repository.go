package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomops/pms-console/pkg/chat"
)

// ChatRepository persists chat transcripts in Postgres.
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a Postgres-backed chat repository.
func NewChatRepository(db *pgxpool.Pool) chat.Repository {
	return &ChatRepository{
		db: db,
	}
}

func (r *ChatRepository) SaveMessage(ctx context.Context, message *chat.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	query := `
		INSERT INTO chat_history (id, tenant_id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		message.ID,
		message.TenantID,
		message.UserID,
		message.Role,
		message.Content,
		message.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("error saving message: %w", err)
	}

	return nil
}

func (r *ChatRepository) GetUserHistory(ctx context.Context, tenantID, userID string, limit, offset int) ([]chat.Message, error) {
	query := `
		SELECT id, tenant_id, user_id, role, content, created_at
		FROM chat_history
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, tenantID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error fetching history: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading history: %w", err)
	}

	return messages, nil
}

func (r *ChatRepository) DeleteUserHistory(ctx context.Context, tenantID, userID string) error {
	query := `DELETE FROM chat_history WHERE tenant_id = $1 AND user_id = $2`

	if _, err := r.db.Exec(ctx, query, tenantID, userID); err != nil {
		return fmt.Errorf("error deleting history: %w", err)
	}
	return nil
}

func (r *ChatRepository) CountUserMessages(ctx context.Context, tenantID, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM chat_history WHERE tenant_id = $1 AND user_id = $2`

	var count int
	if err := r.db.QueryRow(ctx, query, tenantID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting messages: %w", err)
	}
	return count, nil
}
