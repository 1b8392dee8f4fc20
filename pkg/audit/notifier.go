package audit

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/roomops/pms-console/pkg/conversation"
	"github.com/roomops/pms-console/pkg/logger"
)

// Notifier publishes one event per dispatched action to NATS, where the
// audit-log service picks them up. Publishing is fire-and-forget: an
// unreachable broker never blocks or fails a dispatch.
type Notifier struct {
	conn    *nats.Conn
	subject string
	logger  logger.Logger
}

// NewNotifierFromEnv connects to the broker named by NATS_URL and uses
// NATS_AUDIT_SUBJECT as the publish subject. Returns (nil, nil) when
// NATS_URL is unset, meaning auditing is simply disabled.
func NewNotifierFromEnv(log logger.Logger) (*Notifier, error) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		return nil, nil
	}

	subject := os.Getenv("NATS_AUDIT_SUBJECT")
	if subject == "" {
		subject = "pms.console.actions"
	}

	conn, err := nats.Connect(url,
		nats.Name("pms-console"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}

	log.Info("connected to NATS for audit events", "url", url, "subject", subject)

	return &Notifier{
		conn:    conn,
		subject: subject,
		logger:  log,
	}, nil
}

// ActionDispatched publishes the event. Implements conversation.EventSink.
func (n *Notifier) ActionDispatched(_ context.Context, event conversation.ActionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to serialize audit event", "error", err)
		return
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		n.logger.Warn("failed to publish audit event",
			"operation_id", event.OperationID,
			"error", err)
	}
}

// Close drains the connection.
func (n *Notifier) Close() {
	if n != nil && n.conn != nil {
		n.conn.Close()
	}
}
