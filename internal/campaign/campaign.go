// Package campaign implements the call-orchestration pipeline: it turns
// a list of discovered contacts into a durable, resumable, deduplicated
// set of call attempts with recorded outcomes.
//
// Execution is strictly sequential within a batch. One contact is fully
// processed (launch -> poll -> analyze -> persist -> ledger update)
// before the next begins; a fixed inter-attempt delay respects provider
// rate limits and the per-run billing ceiling. The ledger write happens
// strictly after result persistence, so killing the process between
// attempts leaves both stores consistent up to the last persisted
// attempt.
package campaign

import (
	"context"
	"time"

	"dialscout/internal/telephony"
	"dialscout/internal/types"
)

// Dialer is the telephony collaborator surface the pipeline needs.
// *telephony.Client satisfies it; tests substitute mocks.
type Dialer interface {
	CreateAssistant(ctx context.Context, profile telephony.AssistantProfile) (string, error)
	LaunchCall(ctx context.Context, assistantID, number, displayName string, metadata map[string]string) (string, error)
	GetCallStatus(ctx context.Context, callID string) (*telephony.CallStatus, error)
}

// Analyzer is the reasoning collaborator surface. It never fails; error
// paths inside the implementation degrade to all-Unknown fields.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) types.AnalysisResult
}

// Recorder fetches call audio best-effort, returning "" on any failure.
type Recorder interface {
	Fetch(url, practiceName, callID string) string
}

// ResultStore is the durable state surface: the contact ledger plus the
// append-only result table.
type ResultStore interface {
	LoadLedger() (map[string]bool, error)
	MarkContacted(key string) error
	AppendResult(row types.ResultRow) error
	HasAnalyzedResult(key string) (bool, error)
}

// Options configures one pipeline invocation.
type Options struct {
	RunID          string
	CountryCode    string
	MaxCalls       int
	PollInterval   time.Duration
	CallTimeout    time.Duration
	InterCallDelay time.Duration
	Profile        telephony.AssistantProfile
	// DryRun loads and filters targets but places no calls.
	DryRun bool
}

// Summary reports what one run did.
type Summary struct {
	RunID          string
	Candidates     int // targets loaded
	AlreadyReached int // filtered out by the ledger
	Dialed         int // attempts dispatched or rejected at launch
	Ended          int
	Failed         int
	TimedOut       int
	Skipped        int // left for a future run by the batch bound
}
