package types

import "fmt"

// Transition moves an attempt to the next lifecycle state after validating
// the move. Transitions are monotonic and one-directional; no terminal
// state is ever re-entered.
//
// Allowed:
//
//	queued     -> dispatched | failed   (failed = launch rejected)
//	dispatched -> polling
//	polling    -> ended | failed | timed_out
func Transition(a *CallAttempt, to AttemptState) error {
	if a == nil {
		return fmt.Errorf("nil attempt")
	}
	if !isAllowedTransition(a.State, to) {
		return fmt.Errorf("disallowed transition for attempt %s: %s -> %s", a.ID, a.State, to)
	}
	a.State = to
	return nil
}

func isAllowedTransition(from, to AttemptState) bool {
	switch from {
	case StateQueued:
		return to == StateDispatched || to == StateFailed
	case StateDispatched:
		return to == StatePolling
	case StatePolling:
		return to == StateEnded || to == StateFailed || to == StateTimedOut
	default:
		return false
	}
}
