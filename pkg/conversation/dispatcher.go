package conversation

import (
	"context"

	"github.com/google/uuid"

	"github.com/roomops/pms-console/pkg/logger"
)

// Executor sends a fully-resolved action to the remote execution endpoint.
// It is the only collaborator allowed to cause a durable change in the
// property domain.
type Executor interface {
	Execute(ctx context.Context, action *ActionDescriptor, confirmed bool) (*ExecuteResult, error)
}

// ExecuteResult is the execution endpoint's reply.
type ExecuteResult struct {
	Success     bool
	Message     string
	QueryResult *StructuredResult
}

// ActionEvent describes one dispatched action, successful or not, for the
// audit trail.
type ActionEvent struct {
	OperationID string `json:"operation_id"`
	ProposalID  string `json:"proposal_id,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	ActionType  string `json:"action_type"`
	EntityType  string `json:"entity_type,omitempty"`
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
}

// EventSink receives an event after every dispatch. Implementations must
// tolerate being called on the request path; publishing is fire-and-forget.
type EventSink interface {
	ActionDispatched(ctx context.Context, event ActionEvent)
}

// FallbackFailureMessage is surfaced when the execution endpoint fails
// without supplying its own message.
const FallbackFailureMessage = "The operation could not be completed. Please try again."

// Dispatcher executes resolved actions and turns the outcome into a chat
// message. Failures are folded into the result, never returned as errors:
// whatever happens, the transcript gets a message and the caller's gate
// stays cleared.
type Dispatcher struct {
	exec   Executor
	sink   EventSink
	logger logger.Logger
}

// NewDispatcher creates a dispatcher. The sink may be nil when no audit
// trail is configured.
func NewDispatcher(exec Executor, sink EventSink, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		exec:   exec,
		sink:   sink,
		logger: log,
	}
}

// DispatchResult is the transcript-ready outcome of one dispatch.
type DispatchResult struct {
	Success     bool
	Message     string
	QueryResult *StructuredResult
	OperationID string
}

// Dispatch sends the action to the execution endpoint exactly once, with
// the confirmed flag set. There is no automatic retry: a failure is
// reported and the user must re-initiate.
func (d *Dispatcher) Dispatch(ctx context.Context, action *ActionDescriptor) *DispatchResult {
	opID := uuid.New().String()

	result := &DispatchResult{OperationID: opID}

	res, err := d.exec.Execute(ctx, action, true)
	switch {
	case err != nil:
		d.logger.Error("action execution failed",
			"operation_id", opID,
			"action_type", action.ActionType,
			"error", err)
		result.Message = FallbackFailureMessage

	case !res.Success:
		d.logger.Warn("action execution rejected",
			"operation_id", opID,
			"action_type", action.ActionType,
			"message", res.Message)
		result.Message = res.Message
		if result.Message == "" {
			result.Message = FallbackFailureMessage
		}
		result.QueryResult = res.QueryResult

	default:
		d.logger.Info("action executed",
			"operation_id", opID,
			"action_type", action.ActionType,
			"entity_type", action.EntityType)
		result.Success = true
		result.Message = res.Message
		result.QueryResult = res.QueryResult
	}

	d.notify(ctx, action, result)

	return result
}

func (d *Dispatcher) notify(ctx context.Context, action *ActionDescriptor, result *DispatchResult) {
	if d.sink == nil {
		return
	}
	d.sink.ActionDispatched(ctx, ActionEvent{
		OperationID: result.OperationID,
		ProposalID:  action.ProposalID,
		TenantID:    TenantIDFrom(ctx),
		UserID:      UserIDFrom(ctx),
		ActionType:  action.ActionType,
		EntityType:  action.EntityType,
		Success:     result.Success,
		Message:     result.Message,
	})
}
