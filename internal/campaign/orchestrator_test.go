package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"dialscout/internal/phone"
	"dialscout/internal/telephony"
	"dialscout/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testOptions() Options {
	return Options{
		RunID:          "run-test",
		CountryCode:    "+27",
		MaxCalls:       10,
		PollInterval:   time.Millisecond,
		CallTimeout:    250 * time.Millisecond,
		InterCallDelay: time.Millisecond,
		Profile:        telephony.DefaultProfile(),
	}
}

func target(name, rawPhone string) types.Target {
	return types.Target{
		Key:   phone.Normalize(rawPhone, "+27"),
		Name:  name,
		Phone: rawPhone,
	}
}

func TestRunEndToEnd(t *testing.T) {
	dialer := newMockDialer()
	// A connects and completes after two in-progress polls.
	dialer.statuses["+27821111111"] = []telephony.CallStatus{
		{Status: telephony.StatusInProgress},
		{Status: telephony.StatusInProgress},
		{
			Status:     telephony.StatusEnded,
			Transcript: "yes we have availability Tuesday, consultation is 500 rand",
			Duration:   95,
		},
	}
	// B fails immediately.
	dialer.statuses["+27822222222"] = []telephony.CallStatus{
		{Status: telephony.StatusFailed, EndedReason: "no-answer"},
	}

	store := newMemStore()
	o := NewOrchestrator(dialer, keywordAnalyzer{}, noopRecorder{}, store, testOptions())

	summary, err := o.Run(context.Background(), []types.Target{
		target("Practice A", "0821111111"),
		target("Practice B", "+27822222222"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Dialed != 2 || summary.Ended != 1 || summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	// Exactly N rows for N dispatched attempts.
	if len(store.rows) != 2 {
		t.Fatalf("expected 2 result rows, got %d", len(store.rows))
	}

	rowA, rowB := store.rows[0], store.rows[1]
	if rowA.Status != types.StateEnded {
		t.Errorf("A should be ended, got %s", rowA.Status)
	}
	if rowA.Analysis.ConsultationPrice == types.Unknown || rowA.Analysis.EarliestAvailability == types.Unknown {
		t.Errorf("A should have analyzed fields, got %+v", rowA.Analysis)
	}
	if rowB.Status != types.StateFailed {
		t.Errorf("B should be failed, got %s", rowB.Status)
	}
	if rowB.Analysis != types.DefaultAnalysis() {
		t.Errorf("failed attempt should carry Unknown analysis: %+v", rowB.Analysis)
	}

	// Only the ended attempt enters the ledger.
	ledger, _ := store.LoadLedger()
	if len(ledger) != 1 || !ledger["+27821111111"] {
		t.Errorf("ledger should hold only A: %v", ledger)
	}
}

func TestRunIdempotenceAgainstLedger(t *testing.T) {
	dialer := newMockDialer()
	dialer.statuses["+27821111111"] = []telephony.CallStatus{{Status: telephony.StatusEnded, Transcript: "ok"}}

	store := newMemStore()
	candidates := []types.Target{target("A", "0821111111")}

	o := NewOrchestrator(dialer, nil, nil, store, testOptions())
	if _, err := o.Run(context.Background(), candidates); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Second run over the same candidates dispatches nothing new.
	o2 := NewOrchestrator(dialer, nil, nil, store, testOptions())
	summary, err := o2.Run(context.Background(), candidates)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Dialed != 0 || summary.AlreadyReached != 1 {
		t.Errorf("second run should skip the reached contact: %+v", summary)
	}
	if len(dialer.launched) != 1 {
		t.Errorf("expected exactly 1 launch across both runs, got %d", len(dialer.launched))
	}
	if len(store.rows) != 1 {
		t.Errorf("expected 1 row total, got %d", len(store.rows))
	}
}

func TestRunLaunchRejectionKeepsContactEligible(t *testing.T) {
	dialer := newMockDialer()
	dialer.launchErr["+27821111111"] = telephony.ErrLaunchRejected

	store := newMemStore()
	o := NewOrchestrator(dialer, nil, nil, store, testOptions())

	summary, err := o.Run(context.Background(), []types.Target{target("A", "0821111111")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("expected 1 failed attempt: %+v", summary)
	}
	if len(store.rows) != 1 || store.rows[0].Status != types.StateFailed {
		t.Fatalf("rejection should still persist a failed row: %+v", store.rows)
	}
	if ledger, _ := store.LoadLedger(); len(ledger) != 0 {
		t.Errorf("ledger must stay untouched on launch rejection: %v", ledger)
	}
}

func TestRunTimedOutAttemptPersistedWithoutLedger(t *testing.T) {
	dialer := newMockDialer() // never terminal
	store := newMemStore()

	opts := testOptions()
	opts.CallTimeout = 20 * time.Millisecond
	o := NewOrchestrator(dialer, nil, nil, store, opts)

	summary, err := o.Run(context.Background(), []types.Target{target("A", "0821111111")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.TimedOut != 1 {
		t.Errorf("expected 1 timed out attempt: %+v", summary)
	}
	if len(store.rows) != 1 || store.rows[0].Status != types.StateTimedOut {
		t.Fatalf("timeout should persist a timed_out row: %+v", store.rows)
	}
	if ledger, _ := store.LoadLedger(); len(ledger) != 0 {
		t.Errorf("ledger must stay untouched on timeout: %v", ledger)
	}
}

func TestRunBatchBound(t *testing.T) {
	dialer := newMockDialer()
	for _, n := range []string{"+27821111111", "+27822222222", "+27823333333"} {
		dialer.statuses[n] = []telephony.CallStatus{{Status: telephony.StatusEnded}}
	}

	store := newMemStore()
	opts := testOptions()
	opts.MaxCalls = 2
	o := NewOrchestrator(dialer, nil, nil, store, opts)

	summary, err := o.Run(context.Background(), []types.Target{
		target("A", "0821111111"),
		target("B", "0822222222"),
		target("C", "0823333333"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Dialed != 2 || summary.Skipped != 1 {
		t.Errorf("batch bound not applied: %+v", summary)
	}
}

func TestRunDryRunPlacesNoCalls(t *testing.T) {
	dialer := newMockDialer()
	store := newMemStore()
	opts := testOptions()
	opts.DryRun = true

	o := NewOrchestrator(dialer, nil, nil, store, opts)
	summary, err := o.Run(context.Background(), []types.Target{target("A", "0821111111")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Dialed != 0 || len(dialer.launched) != 0 || len(store.rows) != 0 {
		t.Errorf("dry run must not dial or persist: %+v", summary)
	}
}

func TestRunPersistenceFailureAborts(t *testing.T) {
	dialer := newMockDialer()
	dialer.statuses["+27821111111"] = []telephony.CallStatus{{Status: telephony.StatusEnded}}
	dialer.statuses["+27822222222"] = []telephony.CallStatus{{Status: telephony.StatusEnded}}

	store := newMemStore()
	store.appendErr = errors.New("disk full")

	o := NewOrchestrator(dialer, nil, nil, store, testOptions())
	_, err := o.Run(context.Background(), []types.Target{
		target("A", "0821111111"),
		target("B", "0822222222"),
	})
	if err == nil {
		t.Fatal("a lost row must abort the run")
	}
	// The ledger must not record a contact whose row was lost.
	if ledger, _ := store.LoadLedger(); len(ledger) != 0 {
		t.Errorf("ledger updated despite persistence failure: %v", ledger)
	}
	if len(dialer.launched) != 1 {
		t.Errorf("run should stop after the failed persist, launched %d", len(dialer.launched))
	}
}
