package conversation

import "context"

// FollowUpContext is the continuation context sent back to the assistant
// while a slot-filling session is in progress, so the backend can ask only
// for what is still missing.
type FollowUpContext struct {
	ActionType      string            `json:"action_type"`
	CollectedFields map[string]string `json:"collected_fields"`
}

// OracleRequest is one turn sent to the assistant backend.
type OracleRequest struct {
	Content         string           `json:"content"`
	TopicID         string           `json:"topic_id,omitempty"`
	FollowUpContext *FollowUpContext `json:"follow_up_context,omitempty"`
}

// OracleResponse is the assistant backend's reply: prose for the
// transcript, plus at most one proposed action with its gating
// requirements.
type OracleResponse struct {
	Message              string             `json:"message"`
	SuggestedActions     []ActionDescriptor `json:"suggested_actions,omitempty"`
	FollowUp             *FollowUpState     `json:"follow_up,omitempty"`
	TopicID              string             `json:"topic_id,omitempty"`
	QueryResult          *StructuredResult  `json:"query_result,omitempty"`
	RequiresConfirmation bool               `json:"requires_confirmation,omitempty"`
	Candidates           []Candidate        `json:"candidates,omitempty"`
}

// Oracle is the remote assistant that interprets free text and proposes
// actions. How it decides what to propose is opaque to this package; the
// orchestrator only tracks, completes, confirms and dispatches whatever
// comes back.
type Oracle interface {
	Resolve(ctx context.Context, req OracleRequest) (*OracleResponse, error)
}
