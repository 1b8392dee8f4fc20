package conversation

// Gate holds at most one action awaiting explicit user confirmation. It is
// the single chokepoint between a proposed side effect and its execution:
// nothing reaches the dispatcher out of a confirmation flow without passing
// through here.
type Gate struct {
	pending *ActionDescriptor
}

// Arm stores the action as the one pending confirmation. An older
// unconfirmed action is replaced unconditionally (last proposal wins) and
// returned so the caller can report it as cancelled rather than dropping it
// silently.
func (g *Gate) Arm(action *ActionDescriptor) (superseded *ActionDescriptor) {
	superseded = g.pending
	g.pending = action
	return superseded
}

// Confirm releases the held action for dispatch and empties the gate. On an
// empty gate it is a no-op and reports ok=false, so a repeated confirmation
// can never dispatch twice.
func (g *Gate) Confirm() (action *ActionDescriptor, ok bool) {
	if g.pending == nil {
		return nil, false
	}
	action = g.pending
	g.pending = nil
	return action, true
}

// Cancel discards the held action and empties the gate. On an empty gate it
// is a no-op.
func (g *Gate) Cancel() (action *ActionDescriptor, ok bool) {
	if g.pending == nil {
		return nil, false
	}
	action = g.pending
	g.pending = nil
	return action, true
}

// Armed reports whether an action is pending confirmation.
func (g *Gate) Armed() bool {
	return g.pending != nil
}

// Action returns the pending action without releasing it.
func (g *Gate) Action() *ActionDescriptor {
	return g.pending
}
