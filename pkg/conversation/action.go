package conversation

// Field types accepted by the slot-filling form.
const (
	FieldTypeText   = "text"
	FieldTypeSelect = "select"
	FieldTypeDate   = "date"
	FieldTypeNumber = "number"
)

// FieldSpec describes one parameter the assistant still needs before an
// action can be executed.
type FieldSpec struct {
	FieldName   string   `json:"field_name"`
	DisplayName string   `json:"display_name"`
	FieldType   string   `json:"field_type"`
	Options     []string `json:"options,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required"`
}

// Candidate is one of several entities that could satisfy an ambiguous
// reference in the user's request (a room, a room type, an employee).
type Candidate struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Hints map[string]interface{} `json:"hints,omitempty"`
}

// ActionDescriptor is the structured proposal for one business operation,
// as produced by the assistant backend. It is mutated by the slot collector
// and the candidate resolver and destroyed the moment it is dispatched,
// cancelled or superseded by a newer proposal.
type ActionDescriptor struct {
	// ProposalID correlates candidate selections and confirmations with the
	// proposal they were issued for. Assigned client-side when the backend
	// does not provide one.
	ProposalID string `json:"proposal_id,omitempty"`

	ActionType string `json:"action_type"`

	EntityType string `json:"entity_type,omitempty"`

	// EntityID is set once a concrete target has been resolved.
	EntityID string `json:"entity_id,omitempty"`

	Params map[string]interface{} `json:"params,omitempty"`

	// Description is the human-readable summary shown in confirmation
	// prompts.
	Description string `json:"description,omitempty"`

	RequiresConfirmation bool `json:"requires_confirmation"`

	// MissingFields lists the parameters still unfilled. Empty means the
	// action is complete.
	MissingFields []FieldSpec `json:"missing_fields,omitempty"`

	// Candidates is set when the target entity is ambiguous.
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Complete reports whether the action has no unfilled parameters left.
func (a *ActionDescriptor) Complete() bool {
	return len(a.MissingFields) == 0
}

// Clone returns a copy of the descriptor with its own params map, so the
// resolver can fill parameters without mutating the original proposal.
func (a *ActionDescriptor) Clone() *ActionDescriptor {
	clone := *a
	clone.Params = make(map[string]interface{}, len(a.Params))
	for k, v := range a.Params {
		clone.Params[k] = v
	}
	return &clone
}

// FollowUpState is the continuation carried across turns while an action's
// parameters are being collected.
type FollowUpState struct {
	ActionType      string            `json:"action_type"`
	CollectedFields map[string]string `json:"collected_fields"`
	MissingFields   []FieldSpec       `json:"missing_fields"`
	Message         string            `json:"message,omitempty"`
}

// StructuredResult is a tabular or chart payload returned by the backend.
// The conversation core forwards it unchanged; rendering happens client-side.
type StructuredResult struct {
	DisplayType string          `json:"display_type"`
	Columns     []string        `json:"columns,omitempty"`
	Rows        [][]interface{} `json:"rows,omitempty"`
	Data        interface{}     `json:"data,omitempty"`
}
