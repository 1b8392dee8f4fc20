package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSelectionWritesMappedParam(t *testing.T) {
	tests := []struct {
		actionType string
		param      string
	}{
		{"create_reservation", "room_type_id"},
		{"walkin_checkin", "room_id"},
		{"checkin", "room_id"},
		{"create_task", "room_id"},
		{"update_room_status", "room_id"},
		{"assign_task", "assignee_id"},
	}

	for _, tt := range tests {
		action := &ActionDescriptor{
			ActionType: tt.actionType,
			Params:     map[string]interface{}{"note": "keep me"},
			Candidates: []Candidate{{ID: "c-1", Name: "Option A"}},
		}

		resolved := ResolveSelection(action, Candidate{ID: "c-1", Name: "Option A"})

		assert.Equal(t, "c-1", resolved.Params[tt.param], tt.actionType)
		assert.Equal(t, "keep me", resolved.Params["note"], tt.actionType)
		assert.Nil(t, resolved.Candidates, tt.actionType)
		assert.False(t, resolved.RequiresConfirmation, tt.actionType)
	}
}

func TestResolveSelectionUnknownActionTypeLeavesParams(t *testing.T) {
	action := &ActionDescriptor{
		ActionType: "checkout",
		Params:     map[string]interface{}{"room_id": "302"},
		Candidates: []Candidate{{ID: "c-9"}},
	}

	resolved := ResolveSelection(action, Candidate{ID: "c-9"})

	require.Len(t, resolved.Params, 1)
	assert.Equal(t, "302", resolved.Params["room_id"])
	assert.Nil(t, resolved.Candidates)
	assert.False(t, resolved.RequiresConfirmation)
}

func TestResolveSelectionDoesNotMutateOriginal(t *testing.T) {
	action := &ActionDescriptor{
		ActionType:           "walkin_checkin",
		Params:               map[string]interface{}{"guest_name": "Zhang San"},
		Candidates:           []Candidate{{ID: "room-302"}, {ID: "room-305"}},
		RequiresConfirmation: true,
	}

	resolved := ResolveSelection(action, Candidate{ID: "room-305"})

	assert.Equal(t, "room-305", resolved.Params["room_id"])
	_, touched := action.Params["room_id"]
	assert.False(t, touched)
	assert.Len(t, action.Candidates, 2)
	assert.True(t, action.RequiresConfirmation)
}
