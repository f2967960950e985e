package types

import "testing"

func TestTransitionHappyPath(t *testing.T) {
	a := &CallAttempt{ID: "a1", State: StateQueued}

	for _, next := range []AttemptState{StateDispatched, StatePolling, StateEnded} {
		if err := Transition(a, next); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
	}

	if a.State != StateEnded {
		t.Errorf("expected ended, got %s", a.State)
	}
}

func TestTransitionFailedFromQueued(t *testing.T) {
	// Launch rejection: failed is reachable directly from queued.
	a := &CallAttempt{ID: "a1", State: StateQueued}
	if err := Transition(a, StateFailed); err != nil {
		t.Fatalf("queued -> failed should be allowed: %v", err)
	}
}

func TestTerminalStatesDoNotTransition(t *testing.T) {
	for _, terminal := range []AttemptState{StateEnded, StateFailed, StateTimedOut} {
		a := &CallAttempt{ID: "a1", State: terminal}
		if !terminal.IsTerminal() {
			t.Errorf("%s should be terminal", terminal)
		}
		for _, next := range []AttemptState{StateQueued, StateDispatched, StatePolling, StateEnded, StateFailed, StateTimedOut} {
			if err := Transition(a, next); err == nil {
				t.Errorf("terminal %s transitioned to %s", terminal, next)
			}
		}
	}
}

func TestTimedOutOnlyFromPolling(t *testing.T) {
	a := &CallAttempt{ID: "a1", State: StateQueued}
	if err := Transition(a, StateTimedOut); err == nil {
		t.Error("queued -> timed_out should be rejected")
	}
	a.State = StateDispatched
	if err := Transition(a, StateTimedOut); err == nil {
		t.Error("dispatched -> timed_out should be rejected")
	}
	a.State = StatePolling
	if err := Transition(a, StateTimedOut); err != nil {
		t.Errorf("polling -> timed_out should be allowed: %v", err)
	}
}

func TestDefaultAnalysisAllUnknown(t *testing.T) {
	r := DefaultAnalysis()
	for name, v := range map[string]string{
		"specialist":   r.SpecialistAvailable,
		"ultrasound":   r.UltrasoundAvailable,
		"price":        r.ConsultationPrice,
		"availability": r.EarliestAvailability,
	} {
		if v != Unknown {
			t.Errorf("%s: expected %q, got %q", name, Unknown, v)
		}
	}
}
