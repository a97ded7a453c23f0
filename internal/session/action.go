package session

// Action is a betting action submitted by a player.
type Action string

const (
	ActionCheck Action = "check"
	ActionCall  Action = "call"
	ActionRaise Action = "raise"
	ActionFold  Action = "fold"
	ActionAllIn Action = "all-in"
)

// Valid reports whether a is one of the five known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCheck, ActionCall, ActionRaise, ActionFold, ActionAllIn:
		return true
	}
	return false
}
