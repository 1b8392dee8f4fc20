package chat

import (
	"context"
)

// Repository defines the transcript store. The conversational core only
// appends to and reads from it; rendering and retention policy live
// elsewhere.
type Repository interface {
	// SaveMessage appends a message to the transcript.
	SaveMessage(ctx context.Context, message *Message) error

	// GetUserHistory returns a staff member's messages, newest first.
	GetUserHistory(ctx context.Context, tenantID, userID string, limit, offset int) ([]Message, error)

	// DeleteUserHistory removes a staff member's entire transcript.
	DeleteUserHistory(ctx context.Context, tenantID, userID string) error

	// CountUserMessages counts a staff member's messages.
	CountUserMessages(ctx context.Context, tenantID, userID string) (int, error)
}
