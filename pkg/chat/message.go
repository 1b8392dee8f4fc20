package chat

import "time"

// Roles stored in the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a staff member's chat transcript.
type Message struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
