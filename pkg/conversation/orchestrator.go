package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roomops/pms-console/pkg/logger"
)

var (
	// ErrTurnInFlight is returned when a turn arrives while a previous
	// oracle or dispatch call for the same conversation is still
	// unresolved. Turns are serialized, never interleaved.
	ErrTurnInFlight = errors.New("a previous turn is still being resolved")

	// ErrNoActiveForm is returned when a form submission arrives outside a
	// slot-filling session.
	ErrNoActiveForm = errors.New("no slot-filling session is active")

	// ErrStaleSelection is returned when a candidate selection no longer
	// matches the pending proposal. Nothing is dispatched.
	ErrStaleSelection = errors.New("candidate selection does not match the pending proposal")
)

// AssistantUnavailableMessage is surfaced when the assistant backend cannot
// be reached. The conversation state is left exactly as it was.
const AssistantUnavailableMessage = "Sorry, I couldn't reach the assistant service. Please try again."

// TurnKind classifies the outcome of one submitted turn.
type TurnKind int

const (
	// TurnAssistantMessage: prose (and possibly a query result) only.
	TurnAssistantMessage TurnKind = iota

	// TurnActionExecuted: an action was dispatched; Success tells how it went.
	TurnActionExecuted

	// TurnActionCancelled: a pending action or slot session was discarded.
	TurnActionCancelled
)

// TurnResult is what one turn produced. Message and Notices are appended to
// the transcript in order: notices first (e.g. a superseded proposal being
// reported as cancelled), then the main message.
type TurnResult struct {
	Kind        TurnKind
	Success     bool
	Message     string
	Notices     []string
	Action      *ActionDescriptor
	Pending     *ActionDescriptor
	FollowUp    *FollowUpState
	QueryResult *StructuredResult
	OperationID string
	TopicID     string
}

// Orchestrator owns the state of one conversation and routes each turn to
// the right component. It is the only thing that mutates conversation
// state; the satellite components receive and return values.
type Orchestrator struct {
	mu  sync.Mutex
	key string

	topicID  string
	gate     Gate
	followUp *FollowUpState

	oracle     Oracle
	dispatcher *Dispatcher
	classifier Classifier
	store      StateStore
	logger     logger.Logger
}

// NewOrchestrator creates the orchestrator for one conversation. The store
// may be nil when no persistence is wanted.
func NewOrchestrator(key string, oracle Oracle, dispatcher *Dispatcher, classifier Classifier, store StateStore, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		key:        key,
		oracle:     oracle,
		dispatcher: dispatcher,
		classifier: classifier,
		store:      store,
		logger:     log,
	}
}

// Submit routes one user utterance. While an action is pending
// confirmation the utterance is first checked for confirm/cancel keywords;
// while slots are being filled it is checked for cancel only. Anything
// else goes to the assistant backend as a fresh turn.
func (o *Orchestrator) Submit(ctx context.Context, utterance string) (*TurnResult, error) {
	if !o.mu.TryLock() {
		return nil, ErrTurnInFlight
	}
	defer o.mu.Unlock()
	defer o.persist(ctx)

	if o.gate.Armed() {
		switch o.classifier.Classify(utterance) {
		case IntentCancel:
			action, _ := o.gate.Cancel()
			o.logger.Info("pending action cancelled",
				"conversation", o.key,
				"action_type", action.ActionType)
			return o.finish(&TurnResult{
				Kind:    TurnActionCancelled,
				Action:  action,
				Message: cancelledMessage(action),
			}), nil

		case IntentConfirm:
			action, _ := o.gate.Confirm()
			o.logger.Info("pending action confirmed",
				"conversation", o.key,
				"action_type", action.ActionType)
			return o.finish(o.dispatchLocked(ctx, action)), nil
		}
		// Neither keyword matched: the user is rephrasing, so this becomes
		// a fresh assistant turn. The gate stays armed until the response
		// says otherwise.
	} else if o.followUp != nil {
		if o.classifier.Classify(utterance) == IntentCancel {
			o.followUp = nil
			o.logger.Info("slot-filling session cancelled", "conversation", o.key)
			return o.finish(&TurnResult{
				Kind:    TurnActionCancelled,
				Message: "Okay, I've cancelled that. The information collected so far was discarded.",
			}), nil
		}
		fuCtx := &FollowUpContext{
			ActionType:      o.followUp.ActionType,
			CollectedFields: o.followUp.CollectedFields,
		}
		res, err := o.resolveLocked(ctx, utterance, fuCtx)
		if err != nil {
			return nil, err
		}
		return o.finish(res), nil
	}

	res, err := o.resolveLocked(ctx, utterance, nil)
	if err != nil {
		return nil, err
	}
	return o.finish(res), nil
}

// SubmitForm merges explicitly submitted form values into the active
// slot-filling session. A completed form dispatches immediately: filling
// and submitting the form is taken as consent, no confirmation prompt
// follows.
func (o *Orchestrator) SubmitForm(ctx context.Context, values map[string]string) (*TurnResult, error) {
	if !o.mu.TryLock() {
		return nil, ErrTurnInFlight
	}
	defer o.mu.Unlock()
	defer o.persist(ctx)

	if o.followUp == nil {
		return nil, ErrNoActiveForm
	}

	merged := Merge(o.followUp, values)
	if merged.Action != nil {
		o.logger.Info("form complete, dispatching",
			"conversation", o.key,
			"action_type", merged.Action.ActionType)
		return o.finish(o.dispatchLocked(ctx, merged.Action)), nil
	}

	o.followUp = merged.FollowUp
	res, err := o.resolveLocked(ctx, "", &FollowUpContext{
		ActionType:      merged.FollowUp.ActionType,
		CollectedFields: merged.FollowUp.CollectedFields,
	})
	if err != nil {
		return nil, err
	}
	return o.finish(res), nil
}

// SelectCandidate maps a chosen candidate into the pending proposal and
// dispatches it; picking a candidate implies confirmation. The selection
// must match the pending proposal's action type (and proposal id, when
// both sides carry one); a stale selection dispatches nothing.
func (o *Orchestrator) SelectCandidate(ctx context.Context, actionType, proposalID, candidateID string) (*TurnResult, error) {
	if !o.mu.TryLock() {
		return nil, ErrTurnInFlight
	}
	defer o.mu.Unlock()
	defer o.persist(ctx)

	pending := o.gate.Action()
	if pending == nil || pending.ActionType != actionType {
		return nil, ErrStaleSelection
	}
	if proposalID != "" && pending.ProposalID != "" && proposalID != pending.ProposalID {
		return nil, ErrStaleSelection
	}

	var chosen *Candidate
	for i := range pending.Candidates {
		if pending.Candidates[i].ID == candidateID {
			chosen = &pending.Candidates[i]
			break
		}
	}
	if chosen == nil {
		return nil, ErrStaleSelection
	}

	o.gate.Confirm()
	resolved := ResolveSelection(pending, *chosen)
	o.logger.Info("candidate selected",
		"conversation", o.key,
		"action_type", resolved.ActionType,
		"candidate_id", chosen.ID)
	return o.finish(o.dispatchLocked(ctx, resolved)), nil
}

// CancelPending discards whichever of the gate or the slot session is
// active (the cancel button, as opposed to the cancel keyword).
func (o *Orchestrator) CancelPending(ctx context.Context) (*TurnResult, error) {
	if !o.mu.TryLock() {
		return nil, ErrTurnInFlight
	}
	defer o.mu.Unlock()
	defer o.persist(ctx)

	if action, ok := o.gate.Cancel(); ok {
		return o.finish(&TurnResult{
			Kind:    TurnActionCancelled,
			Action:  action,
			Message: cancelledMessage(action),
		}), nil
	}
	if o.followUp != nil {
		o.followUp = nil
		return o.finish(&TurnResult{
			Kind:    TurnActionCancelled,
			Message: "Okay, I've cancelled that. The information collected so far was discarded.",
		}), nil
	}
	return o.finish(&TurnResult{
		Kind:    TurnAssistantMessage,
		Message: "There is nothing pending to cancel.",
	}), nil
}

// State returns a snapshot of the conversation state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// resolveLocked runs one assistant turn and classifies whatever comes back.
func (o *Orchestrator) resolveLocked(ctx context.Context, content string, fuCtx *FollowUpContext) (*TurnResult, error) {
	resp, err := o.oracle.Resolve(ctx, OracleRequest{
		Content:         content,
		TopicID:         o.topicID,
		FollowUpContext: fuCtx,
	})
	if err != nil {
		// The conversation state is deliberately untouched: an armed gate
		// stays armed, a slot session keeps its fields.
		o.logger.Error("assistant call failed", "conversation", o.key, "error", err)
		return &TurnResult{Kind: TurnAssistantMessage, Message: AssistantUnavailableMessage}, nil
	}

	if resp.TopicID != "" {
		o.topicID = resp.TopicID
	}

	result := &TurnResult{
		Kind:        TurnAssistantMessage,
		Message:     resp.Message,
		QueryResult: resp.QueryResult,
	}

	action := proposedAction(resp)

	switch {
	case resp.FollowUp != nil && (action == nil || !action.Complete()):
		fu := resp.FollowUp
		if fu.CollectedFields == nil {
			fu.CollectedFields = make(map[string]string)
		}
		if cancelled := o.enterCollecting(fu); cancelled != nil {
			result.Notices = append(result.Notices, supersededNotice(cancelled))
		}
		result.FollowUp = fu

	case action == nil:
		// Prose or a query answer; nothing to track.

	case action.RequiresConfirmation:
		if prev := o.arm(action); prev != nil {
			result.Notices = append(result.Notices, supersededNotice(prev))
		}
		result.Pending = action

	default:
		// Complete and unguarded: execute right away. An armed proposal is
		// superseded here too and must be reported, not dropped.
		superseded, _ := o.gate.Cancel()
		exec := o.dispatchLocked(ctx, action)
		if resp.Message != "" {
			exec.Notices = append([]string{resp.Message}, exec.Notices...)
		}
		if superseded != nil {
			exec.Notices = append([]string{supersededNotice(superseded)}, exec.Notices...)
		}
		if exec.QueryResult == nil {
			exec.QueryResult = resp.QueryResult
		}
		return exec, nil
	}

	return result, nil
}

// dispatchLocked clears the conversation state and executes the action.
// The state is cleared whatever the outcome: a failed dispatch is reported,
// never re-armed, and the user must re-initiate.
func (o *Orchestrator) dispatchLocked(ctx context.Context, action *ActionDescriptor) *TurnResult {
	o.gate = Gate{}
	o.followUp = nil

	dr := o.dispatcher.Dispatch(ctx, action)
	return &TurnResult{
		Kind:        TurnActionExecuted,
		Success:     dr.Success,
		Message:     dr.Message,
		Action:      action,
		QueryResult: dr.QueryResult,
		OperationID: dr.OperationID,
	}
}

// enterCollecting starts (or continues) a slot session, clearing the gate.
// Returns the pending action that was discarded, if any.
func (o *Orchestrator) enterCollecting(fu *FollowUpState) (cancelled *ActionDescriptor) {
	cancelled, _ = o.gate.Cancel()
	o.followUp = fu
	return cancelled
}

// arm gates the action for confirmation, clearing any slot session.
// Returns the previously pending action that was superseded, if any.
func (o *Orchestrator) arm(action *ActionDescriptor) (superseded *ActionDescriptor) {
	o.followUp = nil
	return o.gate.Arm(action)
}

// finish decorates the result with the current topic and (when the gate is
// still armed) the pending action, so the caller can re-render the
// confirmation prompt.
func (o *Orchestrator) finish(result *TurnResult) *TurnResult {
	result.TopicID = o.topicID
	if result.Pending == nil && o.gate.Armed() {
		result.Pending = o.gate.Action()
	}
	if result.FollowUp == nil && o.followUp != nil {
		result.FollowUp = o.followUp
	}
	return result
}

func (o *Orchestrator) snapshotLocked() State {
	switch {
	case o.gate.Armed():
		return ConfirmingState(o.topicID, o.gate.Action())
	case o.followUp != nil:
		return CollectingState(o.topicID, o.followUp)
	default:
		return IdleState(o.topicID)
	}
}

// restore rebuilds in-memory state from a stored snapshot.
func (o *Orchestrator) restore(state State) {
	o.topicID = state.TopicID
	o.gate = Gate{}
	o.followUp = nil

	switch state.Phase {
	case PhaseConfirming:
		if state.Pending != nil {
			o.gate.Arm(state.Pending)
		}
	case PhaseCollecting:
		o.followUp = state.FollowUp
	}
}

// persist writes the state snapshot through the store. A failed snapshot
// is logged and otherwise ignored: the turn's outcome is already decided.
func (o *Orchestrator) persist(ctx context.Context) {
	if o.store == nil {
		return
	}

	state := o.snapshotLocked()
	var err error
	if state.Phase == PhaseIdle && state.TopicID == "" {
		err = o.store.Clear(ctx, o.key)
	} else {
		err = o.store.Save(ctx, o.key, state)
	}
	if err != nil {
		o.logger.Warn("failed to persist conversation state",
			"conversation", o.key,
			"error", err)
	}
}

// proposedAction extracts the single proposed action from a response and
// normalizes it: response-level confirmation and candidate fields are
// folded in, the entity type is derived when absent, and a proposal id is
// minted when the backend did not supply one.
func proposedAction(resp *OracleResponse) *ActionDescriptor {
	if len(resp.SuggestedActions) == 0 {
		return nil
	}

	action := resp.SuggestedActions[0]
	if action.ActionType == "" {
		return nil
	}

	if resp.RequiresConfirmation {
		action.RequiresConfirmation = true
	}
	if len(action.Candidates) == 0 {
		action.Candidates = resp.Candidates
	}
	if action.EntityType == "" {
		action.EntityType = EntityTypeFor(action.ActionType)
	}
	if action.Params == nil {
		action.Params = make(map[string]interface{})
	}
	if action.ProposalID == "" {
		action.ProposalID = uuid.New().String()
	}
	return &action
}

func cancelledMessage(action *ActionDescriptor) string {
	if action.Description != "" {
		return fmt.Sprintf("Cancelled: %s.", action.Description)
	}
	return "Okay, the pending operation has been cancelled."
}

func supersededNotice(action *ActionDescriptor) string {
	if action.Description != "" {
		return fmt.Sprintf("The earlier pending operation was discarded: %s.", action.Description)
	}
	return "The earlier pending operation was discarded."
}
