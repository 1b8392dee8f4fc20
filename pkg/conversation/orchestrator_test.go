package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomops/pms-console/pkg/logger"
)

// fakeOracle replies from a script, one response per Resolve call, and
// records every request it saw.
type fakeOracle struct {
	mu        sync.Mutex
	requests  []OracleRequest
	responses []*OracleResponse
	errs      []error
	entered   chan struct{}
	block     chan struct{}
}

func (f *fakeOracle) Resolve(_ context.Context, req OracleRequest) (*OracleResponse, error) {
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &OracleResponse{Message: "Anything else?"}, nil
}

func newTestOrchestrator(oracle Oracle, exec Executor, store StateStore) *Orchestrator {
	log := logger.NewLogger()
	return NewOrchestrator("tenant-1:user-1", oracle, NewDispatcher(exec, nil, log), NewKeywordClassifier(), store, log)
}

func checkoutProposal() *OracleResponse {
	return &OracleResponse{
		Message: "Check out room 500?",
		SuggestedActions: []ActionDescriptor{{
			ProposalID:           "p-checkout",
			ActionType:           "checkout",
			Params:               map[string]interface{}{"room_id": "500"},
			Description:          "check out room 500",
			RequiresConfirmation: true,
		}},
	}
}

func TestSubmitConfirmFlowDispatchesOnce(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{checkoutProposal()}}
	exec := &fakeExecutor{results: []*ExecuteResult{{Success: true, Message: "Room 500 checked out."}}}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	res, err := o.Submit(ctx, "check out room 500")
	require.NoError(t, err)
	assert.Equal(t, TurnAssistantMessage, res.Kind)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "checkout", res.Pending.ActionType)
	assert.Zero(t, exec.callCount())
	assert.Equal(t, PhaseConfirming, o.State().Phase)

	res, err = o.Submit(ctx, "确认")
	require.NoError(t, err)
	assert.Equal(t, TurnActionExecuted, res.Kind)
	assert.True(t, res.Success)
	assert.Equal(t, "Room 500 checked out.", res.Message)
	assert.NotEmpty(t, res.OperationID)
	assert.Nil(t, res.Pending)

	require.Len(t, exec.calls, 1)
	assert.True(t, exec.calls[0].confirmed)
	assert.Equal(t, "p-checkout", exec.calls[0].action.ProposalID)
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestSubmitCancelKeywordDiscardsPending(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{checkoutProposal()}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "check out room 500")
	require.NoError(t, err)

	res, err := o.Submit(ctx, "取消")
	require.NoError(t, err)
	assert.Equal(t, TurnActionCancelled, res.Kind)
	assert.Contains(t, res.Message, "check out room 500")

	assert.Zero(t, exec.callCount())
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestSubmitRephraseKeepsGateArmed(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{
		checkoutProposal(),
		{Message: "Room 500 is a deluxe double on the fifth floor."},
	}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "check out room 500")
	require.NoError(t, err)

	// Neither confirm nor cancel: the utterance becomes a fresh assistant
	// turn and the pending action is carried along unchanged.
	res, err := o.Submit(ctx, "which room is that again?")
	require.NoError(t, err)
	assert.Equal(t, TurnAssistantMessage, res.Kind)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "p-checkout", res.Pending.ProposalID)
	assert.Zero(t, exec.callCount())
	assert.Equal(t, PhaseConfirming, o.State().Phase)
}

func TestSubmitExecutionFailureSurfacesMessageAndResetsState(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{{
		Message: "Check in Zhang San to room 302?",
		SuggestedActions: []ActionDescriptor{{
			ActionType:           "walkin_checkin",
			Params:               map[string]interface{}{"room_id": "302", "guest_name": "Zhang San"},
			Description:          "check in Zhang San to room 302",
			RequiresConfirmation: true,
		}},
	}}}
	exec := &fakeExecutor{results: []*ExecuteResult{{Success: false, Message: "房间已被占用"}}}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "帮张三办理入住302")
	require.NoError(t, err)

	res, err := o.Submit(ctx, "confirm")
	require.NoError(t, err)
	assert.Equal(t, TurnActionExecuted, res.Kind)
	assert.False(t, res.Success)
	assert.Equal(t, "房间已被占用", res.Message)

	// The gate is not re-armed after a failed dispatch; the next turn
	// starts from a clean slate.
	assert.Equal(t, PhaseIdle, o.State().Phase)
	assert.Equal(t, 1, exec.callCount())
}

func TestSubmitNewProposalSupersedesPending(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{
		checkoutProposal(),
		{
			Message: "Check in Li Si to room 302?",
			SuggestedActions: []ActionDescriptor{{
				ActionType:           "walkin_checkin",
				Params:               map[string]interface{}{"room_id": "302"},
				Description:          "check in Li Si to room 302",
				RequiresConfirmation: true,
			}},
		},
	}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "check out room 500")
	require.NoError(t, err)

	res, err := o.Submit(ctx, "actually check in Li Si to 302")
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	assert.Equal(t, "walkin_checkin", res.Pending.ActionType)
	require.Len(t, res.Notices, 1)
	assert.Contains(t, res.Notices[0], "check out room 500")

	// Confirming now executes only the latest proposal.
	res, err = o.Submit(ctx, "yes")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "walkin_checkin", exec.calls[0].action.ActionType)
}

func TestSubmitImmediateDispatchReportsSupersededPending(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{
		checkoutProposal(),
		{
			Message: "Marking room 410 as clean.",
			SuggestedActions: []ActionDescriptor{{
				ActionType: "update_room_status",
				Params:     map[string]interface{}{"room_id": "410", "status": "clean"},
			}},
		},
	}}
	exec := &fakeExecutor{results: []*ExecuteResult{{Success: true, Message: "Room 410 is now clean."}}}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "check out room 500")
	require.NoError(t, err)

	// The unguarded action executes right away, but the proposal the user
	// was shown is reported as discarded, not dropped silently.
	res, err := o.Submit(ctx, "room 410 is clean")
	require.NoError(t, err)
	assert.Equal(t, TurnActionExecuted, res.Kind)
	assert.True(t, res.Success)
	require.Len(t, res.Notices, 2)
	assert.Contains(t, res.Notices[0], "check out room 500")
	assert.Equal(t, "Marking room 410 as clean.", res.Notices[1])

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "update_room_status", exec.calls[0].action.ActionType)
	assert.Equal(t, PhaseIdle, o.State().Phase)
	assert.Nil(t, res.Pending)
}

func TestSubmitOracleFailureLeavesStateUntouched(t *testing.T) {
	oracle := &fakeOracle{
		responses: []*OracleResponse{checkoutProposal(), nil},
		errs:      []error{nil, errors.New("upstream timeout")},
	}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "check out room 500")
	require.NoError(t, err)

	res, err := o.Submit(ctx, "hmm let me think")
	require.NoError(t, err)
	assert.Equal(t, AssistantUnavailableMessage, res.Message)

	// The pending action survives the outage and can still be confirmed.
	require.NotNil(t, res.Pending)
	assert.Equal(t, PhaseConfirming, o.State().Phase)

	res, err = o.Submit(ctx, "confirm")
	require.NoError(t, err)
	assert.Equal(t, TurnActionExecuted, res.Kind)
	assert.Equal(t, 1, exec.callCount())
}

func TestSubmitImmediateDispatchForUnguardedAction(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{{
		Message: "Marking room 410 as clean.",
		SuggestedActions: []ActionDescriptor{{
			ActionType: "update_room_status",
			Params:     map[string]interface{}{"room_id": "410", "status": "clean"},
		}},
	}}}
	exec := &fakeExecutor{results: []*ExecuteResult{{Success: true, Message: "Room 410 is now clean."}}}
	o := newTestOrchestrator(oracle, exec, nil)

	res, err := o.Submit(context.Background(), "room 410 is clean")
	require.NoError(t, err)
	assert.Equal(t, TurnActionExecuted, res.Kind)
	assert.True(t, res.Success)
	assert.Equal(t, "Room 410 is now clean.", res.Message)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, "Marking room 410 as clean.", res.Notices[0])
	assert.Equal(t, 1, exec.callCount())
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestSlotFillingAcrossTurns(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{
		{
			Message: "Who is checking in, and to which room?",
			FollowUp: &FollowUpState{
				ActionType: "walkin_checkin",
				MissingFields: []FieldSpec{
					{FieldName: "guest_name", FieldType: FieldTypeText},
					{FieldName: "room_id", FieldType: FieldTypeText},
				},
			},
		},
		{
			Message: "Which room?",
			FollowUp: &FollowUpState{
				ActionType:      "walkin_checkin",
				CollectedFields: map[string]string{"guest_name": "Zhang San"},
				MissingFields: []FieldSpec{
					{FieldName: "room_id", FieldType: FieldTypeText},
				},
			},
		},
	}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	res, err := o.Submit(ctx, "walk-in check-in please")
	require.NoError(t, err)
	require.NotNil(t, res.FollowUp)
	assert.Equal(t, PhaseCollecting, o.State().Phase)

	res, err = o.Submit(ctx, "the guest is Zhang San")
	require.NoError(t, err)
	require.NotNil(t, res.FollowUp)
	assert.Equal(t, "Zhang San", res.FollowUp.CollectedFields["guest_name"])

	// The continuation context travels with every in-session turn.
	require.Len(t, oracle.requests, 2)
	require.NotNil(t, oracle.requests[1].FollowUpContext)
	assert.Equal(t, "walkin_checkin", oracle.requests[1].FollowUpContext.ActionType)
}

func TestSubmitCancelKeywordDiscardsSlotSession(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{{
		Message: "Who is checking in?",
		FollowUp: &FollowUpState{
			ActionType:    "walkin_checkin",
			MissingFields: []FieldSpec{{FieldName: "guest_name", FieldType: FieldTypeText}},
		},
	}}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "walk-in check-in please")
	require.NoError(t, err)

	res, err := o.Submit(ctx, "cancel")
	require.NoError(t, err)
	assert.Equal(t, TurnActionCancelled, res.Kind)
	assert.Equal(t, PhaseIdle, o.State().Phase)
	assert.Len(t, oracle.requests, 1)
}

func TestSubmitFormCompletionBypassesConfirmation(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{{
		Message: "I need the guest's details.",
		FollowUp: &FollowUpState{
			ActionType: "walkin_checkin",
			MissingFields: []FieldSpec{
				{FieldName: "guest_name", FieldType: FieldTypeText},
				{FieldName: "room_id", FieldType: FieldTypeText},
			},
		},
	}}}
	exec := &fakeExecutor{results: []*ExecuteResult{{Success: true, Message: "Checked in."}}}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "walk-in check-in please")
	require.NoError(t, err)

	res, err := o.SubmitForm(ctx, map[string]string{
		"guest_name": "Zhang San",
		"room_id":    "302",
	})
	require.NoError(t, err)
	assert.Equal(t, TurnActionExecuted, res.Kind)
	assert.True(t, res.Success)

	require.Len(t, exec.calls, 1)
	assert.False(t, exec.calls[0].action.RequiresConfirmation)
	assert.True(t, exec.calls[0].confirmed)
	assert.Equal(t, "302", exec.calls[0].action.Params["room_id"])
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestSubmitFormPartialReResolves(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{
		{
			Message: "I need the guest's details.",
			FollowUp: &FollowUpState{
				ActionType: "walkin_checkin",
				MissingFields: []FieldSpec{
					{FieldName: "guest_name", FieldType: FieldTypeText},
					{FieldName: "room_id", FieldType: FieldTypeText},
				},
			},
		},
		{Message: "Which room should Zhang San go to?"},
	}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "walk-in check-in please")
	require.NoError(t, err)

	res, err := o.SubmitForm(ctx, map[string]string{"guest_name": "Zhang San"})
	require.NoError(t, err)
	assert.Equal(t, "Which room should Zhang San go to?", res.Message)
	assert.Zero(t, exec.callCount())

	require.Len(t, oracle.requests, 2)
	require.NotNil(t, oracle.requests[1].FollowUpContext)
	assert.Equal(t, "Zhang San", oracle.requests[1].FollowUpContext.CollectedFields["guest_name"])
	assert.Equal(t, PhaseCollecting, o.State().Phase)
}

func TestSubmitFormWithoutSessionFails(t *testing.T) {
	o := newTestOrchestrator(&fakeOracle{}, &fakeExecutor{}, nil)

	_, err := o.SubmitForm(context.Background(), map[string]string{"room_id": "302"})
	assert.ErrorIs(t, err, ErrNoActiveForm)
}

func candidateProposal() *OracleResponse {
	return &OracleResponse{
		Message: "Several rooms match, which one?",
		SuggestedActions: []ActionDescriptor{{
			ProposalID:           "p-rooms",
			ActionType:           "walkin_checkin",
			Params:               map[string]interface{}{"guest_name": "Zhang San"},
			RequiresConfirmation: true,
			Candidates: []Candidate{
				{ID: "room-302", Name: "302"},
				{ID: "room-305", Name: "305"},
			},
		}},
	}
}

func TestSelectCandidateDispatchesResolvedAction(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{candidateProposal()}}
	exec := &fakeExecutor{results: []*ExecuteResult{{Success: true, Message: "Checked in to 305."}}}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "check in Zhang San")
	require.NoError(t, err)

	res, err := o.SelectCandidate(ctx, "walkin_checkin", "p-rooms", "room-305")
	require.NoError(t, err)
	assert.Equal(t, TurnActionExecuted, res.Kind)
	assert.True(t, res.Success)

	require.Len(t, exec.calls, 1)
	dispatched := exec.calls[0].action
	assert.Equal(t, "room-305", dispatched.Params["room_id"])
	assert.Equal(t, "Zhang San", dispatched.Params["guest_name"])
	assert.Nil(t, dispatched.Candidates)
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestSelectCandidateStaleSelectionDispatchesNothing(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{candidateProposal()}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "check in Zhang San")
	require.NoError(t, err)

	// Wrong action type.
	_, err = o.SelectCandidate(ctx, "checkout", "p-rooms", "room-305")
	assert.ErrorIs(t, err, ErrStaleSelection)

	// Wrong proposal id.
	_, err = o.SelectCandidate(ctx, "walkin_checkin", "p-older", "room-305")
	assert.ErrorIs(t, err, ErrStaleSelection)

	// Unknown candidate id.
	_, err = o.SelectCandidate(ctx, "walkin_checkin", "p-rooms", "room-999")
	assert.ErrorIs(t, err, ErrStaleSelection)

	assert.Zero(t, exec.callCount())
	// The proposal is still pending; a valid selection can follow.
	assert.Equal(t, PhaseConfirming, o.State().Phase)
}

func TestSelectCandidateWithNoPendingAction(t *testing.T) {
	o := newTestOrchestrator(&fakeOracle{}, &fakeExecutor{}, nil)

	_, err := o.SelectCandidate(context.Background(), "walkin_checkin", "p-1", "room-302")
	assert.ErrorIs(t, err, ErrStaleSelection)
}

func TestCollectingAndConfirmingAreMutuallyExclusive(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{
		{
			Message: "Who is checking in?",
			FollowUp: &FollowUpState{
				ActionType:    "walkin_checkin",
				MissingFields: []FieldSpec{{FieldName: "guest_name", FieldType: FieldTypeText}},
			},
		},
		checkoutProposal(),
	}}
	exec := &fakeExecutor{}
	o := newTestOrchestrator(oracle, exec, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "walk-in check-in please")
	require.NoError(t, err)
	assert.Equal(t, PhaseCollecting, o.State().Phase)

	// A confirmable proposal mid-session replaces the slot session.
	res, err := o.Submit(ctx, "forget that, check out room 500")
	require.NoError(t, err)
	require.NotNil(t, res.Pending)

	state := o.State()
	assert.Equal(t, PhaseConfirming, state.Phase)
	assert.Nil(t, state.FollowUp)
}

func TestCancelPending(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{checkoutProposal()}}
	o := newTestOrchestrator(oracle, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := o.Submit(ctx, "check out room 500")
	require.NoError(t, err)

	res, err := o.CancelPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, TurnActionCancelled, res.Kind)
	assert.Equal(t, PhaseIdle, o.State().Phase)

	// Nothing left to cancel.
	res, err = o.CancelPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, TurnAssistantMessage, res.Kind)
}

func TestSubmitRejectsConcurrentTurn(t *testing.T) {
	oracle := &fakeOracle{
		entered: make(chan struct{}),
		block:   make(chan struct{}),
	}
	o := newTestOrchestrator(oracle, &fakeExecutor{}, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(ctx, "show me today's arrivals")
		done <- err
	}()

	select {
	case <-oracle.entered:
	case <-time.After(time.Second):
		t.Fatal("first turn never reached the assistant")
	}

	_, err := o.Submit(ctx, "and departures")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	close(oracle.block)
	require.NoError(t, <-done)

	// Once the first turn resolves, the conversation accepts turns again.
	_, err = o.Submit(ctx, "and departures")
	assert.NoError(t, err)
}

func TestTopicIDCarriesAcrossTurns(t *testing.T) {
	oracle := &fakeOracle{responses: []*OracleResponse{
		{Message: "Hello.", TopicID: "topic-42"},
		{Message: "Still here."},
	}}
	o := newTestOrchestrator(oracle, &fakeExecutor{}, nil)
	ctx := context.Background()

	res, err := o.Submit(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "topic-42", res.TopicID)

	res, err = o.Submit(ctx, "anything new?")
	require.NoError(t, err)
	assert.Equal(t, "topic-42", res.TopicID)

	require.Len(t, oracle.requests, 2)
	assert.Equal(t, "topic-42", oracle.requests[1].TopicID)
}

func TestManagerRestoresPendingConfirmation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	log := logger.NewLogger()

	oracle := &fakeOracle{responses: []*OracleResponse{checkoutProposal()}}
	exec := &fakeExecutor{results: []*ExecuteResult{{Success: true, Message: "Done."}}}
	dispatcher := NewDispatcher(exec, nil, log)

	m := NewManager(oracle, dispatcher, NewKeywordClassifier(), store, log)
	orch := m.Conversation(ctx, "tenant-1", "user-1")
	_, err := orch.Submit(ctx, "check out room 500")
	require.NoError(t, err)

	// A new manager simulates a console restart; the pending confirmation
	// comes back from the store and can be confirmed directly.
	m2 := NewManager(oracle, dispatcher, NewKeywordClassifier(), store, log)
	orch2 := m2.Conversation(ctx, "tenant-1", "user-1")
	assert.Equal(t, PhaseConfirming, orch2.State().Phase)

	res, err := orch2.Submit(ctx, "confirm")
	require.NoError(t, err)
	assert.Equal(t, TurnActionExecuted, res.Kind)
	assert.True(t, res.Success)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "p-checkout", exec.calls[0].action.ProposalID)
}

func TestManagerReturnsSameOrchestratorPerUser(t *testing.T) {
	log := logger.NewLogger()
	m := NewManager(&fakeOracle{}, NewDispatcher(&fakeExecutor{}, nil, log), NewKeywordClassifier(), nil, log)
	ctx := context.Background()

	a := m.Conversation(ctx, "tenant-1", "user-1")
	b := m.Conversation(ctx, "tenant-1", "user-1")
	c := m.Conversation(ctx, "tenant-1", "user-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
