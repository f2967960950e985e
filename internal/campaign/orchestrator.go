package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dialscout/internal/logging"
	"dialscout/internal/targets"
	"dialscout/internal/telephony"
	"dialscout/internal/types"
)

// Orchestrator drives a live calling run.
type Orchestrator struct {
	dialer   Dialer
	analyzer Analyzer
	recorder Recorder
	store    ResultStore
	poller   *Poller
	opts     Options
}

// NewOrchestrator wires the pipeline. analyzer may be nil, in which case
// every attempt records all-Unknown analysis fields (the reasoning
// collaborator is optional credentials-wise, never structurally).
func NewOrchestrator(dialer Dialer, analyzer Analyzer, recorder Recorder, store ResultStore, opts Options) *Orchestrator {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Orchestrator{
		dialer:   dialer,
		analyzer: analyzer,
		recorder: recorder,
		store:    store,
		poller:   NewPoller(dialer, opts.PollInterval, opts.CallTimeout),
		opts:     opts,
	}
}

// Run executes one batch over the given candidate targets. It returns a
// summary of what was dialed; the only fatal errors after launch begins
// are persistence failures, which abort the run rather than silently
// dropping a row.
func (o *Orchestrator) Run(ctx context.Context, candidates []types.Target) (*Summary, error) {
	timer := logging.StartTimer(logging.CategoryCampaign, "Run")
	defer timer.StopWithInfo()

	summary := &Summary{RunID: o.opts.RunID, Candidates: len(candidates)}

	ledger, err := o.store.LoadLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	remaining := targets.Remaining(candidates, ledger)
	summary.AlreadyReached = len(candidates) - len(remaining)

	batch := remaining
	if o.opts.MaxCalls > 0 && len(batch) > o.opts.MaxCalls {
		batch = batch[:o.opts.MaxCalls]
	}
	summary.Skipped = len(remaining) - len(batch)

	logging.Campaign("run %s: %d candidates, %d already reached, dialing %d (deferring %d)",
		summary.RunID, summary.Candidates, summary.AlreadyReached, len(batch), summary.Skipped)

	if o.opts.DryRun || len(batch) == 0 {
		return summary, nil
	}

	// Assistant provisioning is the first billable-adjacent action; it
	// happens only after the ledger and targets are known good.
	assistantID, err := o.dialer.CreateAssistant(ctx, o.opts.Profile)
	if err != nil {
		return summary, fmt.Errorf("failed to create assistant: %w", err)
	}

	for i, target := range batch {
		if err := ctx.Err(); err != nil {
			logging.Campaign("run %s cancelled after %d attempts", summary.RunID, summary.Dialed)
			return summary, err
		}

		logging.Campaign("[%d/%d] dialing %s (%s)", i+1, len(batch), target.Name, target.Key)
		if err := o.processTarget(ctx, assistantID, target, summary); err != nil {
			return summary, err
		}
		summary.Dialed++

		if i < len(batch)-1 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(o.opts.InterCallDelay):
			}
		}
	}

	logging.Campaign("run %s complete: dialed=%d ended=%d failed=%d timed_out=%d",
		summary.RunID, summary.Dialed, summary.Ended, summary.Failed, summary.TimedOut)
	return summary, nil
}

// processTarget drives one contact from launch to persisted row. The
// returned error is non-nil only for persistence failures; every
// per-contact telephony outcome is recorded and the run continues.
func (o *Orchestrator) processTarget(ctx context.Context, assistantID string, target types.Target, summary *Summary) error {
	attempt := &types.CallAttempt{
		ID:        uuid.NewString(),
		TargetKey: target.Key,
		State:     types.StateQueued,
		StartedAt: time.Now(),
	}

	callID, err := o.dialer.LaunchCall(ctx, assistantID, target.Key, target.Name, map[string]string{
		"practice_name":  target.Name,
		"original_phone": target.Phone,
	})
	if err != nil {
		// Launch rejected: the attempt never reached dispatched, the
		// ledger is untouched, and the contact stays retry-eligible.
		logging.Get(logging.CategoryCampaign).Warn("launch failed for %s: %v", target.Key, err)
		_ = types.Transition(attempt, types.StateFailed)
		summary.Failed++
		return o.persist(target, attempt, types.DefaultAnalysis(), "")
	}
	attempt.CallID = callID
	_ = types.Transition(attempt, types.StateDispatched)
	_ = types.Transition(attempt, types.StatePolling)

	status, err := o.poller.Await(ctx, callID)
	switch {
	case errors.Is(err, ErrPollTimeout):
		_ = types.Transition(attempt, types.StateTimedOut)
		summary.TimedOut++
		return o.persist(target, attempt, types.DefaultAnalysis(), "")
	case err != nil:
		// Context cancellation mid-poll: classify locally as timed out
		// so the row conservation invariant holds, then surface.
		_ = types.Transition(attempt, types.StateTimedOut)
		summary.TimedOut++
		if perr := o.persist(target, attempt, types.DefaultAnalysis(), ""); perr != nil {
			return perr
		}
		return err
	}

	attempt.EndedAt = time.Now()
	attempt.Duration = status.Duration
	attempt.EndedReason = status.EndedReason
	attempt.Cost = status.Cost
	attempt.Transcript = status.Transcript
	attempt.RecordingURL = status.RecordingURL

	if status.Status != telephony.StatusEnded {
		_ = types.Transition(attempt, types.StateFailed)
		summary.Failed++
		return o.persist(target, attempt, types.DefaultAnalysis(), "")
	}
	_ = types.Transition(attempt, types.StateEnded)
	summary.Ended++

	result := types.DefaultAnalysis()
	if o.analyzer != nil {
		result = o.analyzer.Analyze(ctx, attempt.Transcript)
	}

	localRecording := ""
	if o.recorder != nil && attempt.RecordingURL != "" {
		localRecording = o.recorder.Fetch(attempt.RecordingURL, target.Name, attempt.CallID)
	}

	if err := o.persist(target, attempt, result, localRecording); err != nil {
		return err
	}

	// Ledger update comes strictly after the row is durable; the call
	// connected and ran to completion, so re-dialing would be wasteful
	// and billable.
	if err := o.store.MarkContacted(target.Key); err != nil {
		return fmt.Errorf("failed to update ledger for %s: %w", target.Key, err)
	}
	return nil
}

// persist appends exactly one row for the attempt. A persistence error
// is fatal to the run; the pipeline never continues past a lost row.
func (o *Orchestrator) persist(target types.Target, attempt *types.CallAttempt, result types.AnalysisResult, localRecording string) error {
	row := types.ResultRow{
		RunID:          o.opts.RunID,
		AttemptID:      attempt.ID,
		CallID:         attempt.CallID,
		PracticeName:   target.Name,
		Phone:          target.Key,
		Address:        target.Address,
		Analysis:       result,
		Status:         attempt.State,
		Duration:       attempt.Duration,
		EndedReason:    attempt.EndedReason,
		Cost:           attempt.Cost,
		Transcript:     attempt.Transcript,
		RecordingURL:   attempt.RecordingURL,
		LocalRecording: localRecording,
		CalledAt:       attempt.StartedAt,
	}
	if err := o.store.AppendResult(row); err != nil {
		return fmt.Errorf("failed to persist attempt for %s: %w", target.Key, err)
	}
	return nil
}
