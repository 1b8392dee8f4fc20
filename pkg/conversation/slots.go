package conversation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// entityTypes maps an action type to the domain entity it targets. The
// mapping is a static table; everything not listed operates on the guest's
// stay record.
var entityTypes = map[string]string{
	"create_reservation": "reservation",
}

const defaultEntityType = "stay_record"

// EntityTypeFor returns the domain entity targeted by an action type.
func EntityTypeFor(actionType string) string {
	if et, ok := entityTypes[actionType]; ok {
		return et
	}
	return defaultEntityType
}

// MergeResult is the outcome of merging newly supplied values into a
// slot-filling session. Exactly one of Action and FollowUp is set: Action
// when every required field is filled, FollowUp when fields remain.
type MergeResult struct {
	Action   *ActionDescriptor
	FollowUp *FollowUpState
}

// Merge folds the supplied values into the session's collected fields.
// A field counts as filled only when its merged value is non-blank; unset,
// empty and whitespace-only values are all treated as blank.
//
// When the form is complete the synthesized action skips the confirmation
// gate: the user explicitly filled and submitted the form, which counts as
// consent.
func Merge(fu *FollowUpState, values map[string]string) MergeResult {
	merged := make(map[string]string, len(fu.CollectedFields)+len(values))
	for k, v := range fu.CollectedFields {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}

	var remaining []FieldSpec
	for _, f := range fu.MissingFields {
		if isBlank(merged[f.FieldName]) {
			remaining = append(remaining, f)
		}
	}

	if len(remaining) > 0 {
		return MergeResult{FollowUp: &FollowUpState{
			ActionType:      fu.ActionType,
			CollectedFields: merged,
			MissingFields:   remaining,
			Message:         fu.Message,
		}}
	}

	params := make(map[string]interface{}, len(merged))
	for k, v := range merged {
		params[k] = v
	}

	return MergeResult{Action: &ActionDescriptor{
		ProposalID:           uuid.New().String(),
		ActionType:           fu.ActionType,
		EntityType:           EntityTypeFor(fu.ActionType),
		Params:               params,
		Description:          fmt.Sprintf("%s (completed form)", fu.ActionType),
		RequiresConfirmation: false,
	}}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
