package conversation

// candidateParams maps an action type to the parameter a chosen candidate's
// id is written into. Action types not listed here ignore candidate
// selection entirely.
var candidateParams = map[string]string{
	"create_reservation": "room_type_id",
	"walkin_checkin":     "room_id",
	"checkin":            "room_id",
	"create_task":        "room_id",
	"update_room_status": "room_id",
	"assign_task":        "assignee_id",
}

// ResolveSelection maps the chosen candidate into the action's parameters
// and returns the updated descriptor. The original proposal is not mutated.
// For action types with no candidate parameter the params are left
// unchanged. The returned descriptor no longer carries a candidate list and
// is treated as confirmed by the caller: picking a candidate implies
// consent.
func ResolveSelection(action *ActionDescriptor, c Candidate) *ActionDescriptor {
	resolved := action.Clone()
	resolved.Candidates = nil
	resolved.RequiresConfirmation = false

	if param, ok := candidateParams[action.ActionType]; ok {
		resolved.Params[param] = c.ID
	}
	return resolved
}
