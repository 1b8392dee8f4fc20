package dto

import (
	"github.com/roomops/pms-console/pkg/chat"
	"github.com/roomops/pms-console/pkg/conversation"
)

// MessageRequest is one free-text turn from the console.
type MessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// FormRequest is an explicit submission of the slot-filling form.
type FormRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// CandidateRequest selects one disambiguation candidate for the pending
// proposal.
type CandidateRequest struct {
	ActionType  string `json:"action_type" binding:"required"`
	ProposalID  string `json:"proposal_id,omitempty"`
	CandidateID string `json:"candidate_id" binding:"required"`
}

// TurnResponse is the outcome of one conversational turn, ready for the
// console to render.
type TurnResponse struct {
	Kind        string                          `json:"kind"`
	Success     bool                            `json:"success"`
	Messages    []chat.Message                  `json:"messages"`
	Pending     *conversation.ActionDescriptor  `json:"pending_action,omitempty"`
	FollowUp    *conversation.FollowUpState     `json:"follow_up,omitempty"`
	QueryResult *conversation.StructuredResult  `json:"query_result,omitempty"`
	OperationID string                          `json:"operation_id,omitempty"`
	TopicID     string                          `json:"topic_id,omitempty"`
}

// HistoryResponse is a page of the staff member's transcript, newest
// first.
type HistoryResponse struct {
	Messages []chat.Message `json:"messages"`
	Total    int            `json:"total"`
}

// TurnKindString maps a turn kind to its wire name.
func TurnKindString(kind conversation.TurnKind) string {
	switch kind {
	case conversation.TurnActionExecuted:
		return "action_executed"
	case conversation.TurnActionCancelled:
		return "action_cancelled"
	default:
		return "assistant_message"
	}
}
