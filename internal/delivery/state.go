package delivery

// State is the lifecycle state of one delivery request.
type State string

const (
	StatePreparing State = "preparing"
	StateSending   State = "sending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// validTransitions lists the allowed "to" states for each "from" state.
var validTransitions = map[State][]State{
	StatePreparing: {StateSending, StateFailed},
	StateSending:   {StateCompleted, StateFailed},
	StateCompleted: {},
	StateFailed:    {},
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s State) CanTransitionTo(target State) bool {
	for _, v := range validTransitions[s] {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}
