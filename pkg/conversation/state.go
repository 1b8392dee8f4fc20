package conversation

// Phase identifies which member of the conversation state is active.
type Phase int

const (
	// PhaseIdle means no action is in flight.
	PhaseIdle Phase = iota

	// PhaseCollecting means a slot-filling session is in progress.
	PhaseCollecting

	// PhaseConfirming means one action is pending explicit confirm/cancel.
	PhaseConfirming
)

// String returns the phase name used in logs and snapshots.
func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseConfirming:
		return "confirming"
	default:
		return "idle"
	}
}

// State is a snapshot of the conversation state: exactly one of idle,
// collecting or confirming. It is built only through the constructors below,
// which guarantee that at most one non-idle member is populated.
type State struct {
	Phase    Phase             `json:"phase"`
	TopicID  string            `json:"topic_id,omitempty"`
	FollowUp *FollowUpState    `json:"follow_up,omitempty"`
	Pending  *ActionDescriptor `json:"pending,omitempty"`
}

// IdleState returns the empty state.
func IdleState(topicID string) State {
	return State{Phase: PhaseIdle, TopicID: topicID}
}

// CollectingState returns a state holding an active slot-filling session.
func CollectingState(topicID string, fu *FollowUpState) State {
	return State{Phase: PhaseCollecting, TopicID: topicID, FollowUp: fu}
}

// ConfirmingState returns a state holding one action pending confirmation.
func ConfirmingState(topicID string, pending *ActionDescriptor) State {
	return State{Phase: PhaseConfirming, TopicID: topicID, Pending: pending}
}
