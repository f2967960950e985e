// Package types defines the shared data model for the dialscout pipeline:
// targets loaded from discovery, call attempts and their lifecycle states,
// transcript analysis results, and the denormalized result rows that get
// persisted once per attempt.
package types

import "time"

// Target is one candidate contact produced by the discovery collaborator.
// Immutable once loaded; Key is the normalized international phone number
// and is the identity used by the ledger.
type Target struct {
	Key      string            `json:"key"`
	Name     string            `json:"name"`
	Phone    string            `json:"phone"`
	Address  string            `json:"address"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AttemptState is the lifecycle state of a CallAttempt.
type AttemptState string

const (
	StateQueued     AttemptState = "queued"     // Created, not yet dispatched
	StateDispatched AttemptState = "dispatched" // Launch accepted by provider
	StatePolling    AttemptState = "polling"    // Waiting for terminal status
	StateEnded      AttemptState = "ended"      // Call connected and ran to completion
	StateFailed     AttemptState = "failed"     // Launch rejected or provider reported failure
	StateTimedOut   AttemptState = "timed_out"  // Local poll deadline expired
)

// IsTerminal reports whether the state is terminal. Terminal states are
// never re-entered and never transition further.
func (s AttemptState) IsTerminal() bool {
	switch s {
	case StateEnded, StateFailed, StateTimedOut:
		return true
	default:
		return false
	}
}

// CallAttempt is one dispatch-to-terminal-state lifecycle for a single
// target. Created when a launch request is made; mutated only by the
// poller; never deleted.
type CallAttempt struct {
	ID           string       `json:"id"`      // Local attempt ID
	CallID       string       `json:"call_id"` // Provider-issued call handle
	TargetKey    string       `json:"target_key"`
	State        AttemptState `json:"state"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      time.Time    `json:"ended_at,omitempty"`
	Duration     float64      `json:"duration_seconds,omitempty"`
	EndedReason  string       `json:"ended_reason,omitempty"`
	Cost         float64      `json:"cost,omitempty"`
	Transcript   string       `json:"transcript,omitempty"`
	RecordingURL string       `json:"recording_url,omitempty"`
}

// AnalysisResult holds the four categorical answers extracted from a call
// transcript. Every field defaults to Unknown; the analyzer never returns
// an error in place of a result.
type AnalysisResult struct {
	SpecialistAvailable  string `json:"specialist_available"`
	UltrasoundAvailable  string `json:"ultrasound_available"`
	ConsultationPrice    string `json:"consultation_price"`
	EarliestAvailability string `json:"earliest_availability"`
}

// Unknown is the fallback value for every analysis field.
const Unknown = "Unknown"

// DefaultAnalysis returns an AnalysisResult with all fields Unknown.
func DefaultAnalysis() AnalysisResult {
	return AnalysisResult{
		SpecialistAvailable:  Unknown,
		UltrasoundAvailable:  Unknown,
		ConsultationPrice:    Unknown,
		EarliestAvailability: Unknown,
	}
}

// ResultRow is the denormalized union of Target + CallAttempt +
// AnalysisResult + recording reference. Exactly one row is appended per
// dispatched attempt, including failed and timed-out attempts; a retried
// contact produces multiple rows across runs.
type ResultRow struct {
	RunID          string
	AttemptID      string
	CallID         string
	PracticeName   string
	Phone          string
	Address        string
	Analysis       AnalysisResult
	Status         AttemptState
	Duration       float64
	EndedReason    string
	Cost           float64
	Transcript     string
	RecordingURL   string
	LocalRecording string
	CalledAt       time.Time
}
