package campaign

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dialscout/internal/telephony"
	"dialscout/internal/types"
)

// mockDialer scripts per-number call outcomes. Each launched call walks
// its status sequence one entry per poll, holding the last entry.
type mockDialer struct {
	mu sync.Mutex

	assistantErr error
	// launchErr maps a number to a launch rejection.
	launchErr map[string]error
	// statuses maps a number to its poll status sequence.
	statuses map[string][]telephony.CallStatus
	// launched records numbers in launch order.
	launched []string
	// polls counts status queries per callID.
	polls        map[string]int
	numberByCall map[string]string
	nextCall     int
}

func newMockDialer() *mockDialer {
	return &mockDialer{
		launchErr:    make(map[string]error),
		statuses:     make(map[string][]telephony.CallStatus),
		polls:        make(map[string]int),
		numberByCall: make(map[string]string),
	}
}

func (m *mockDialer) CreateAssistant(ctx context.Context, profile telephony.AssistantProfile) (string, error) {
	if m.assistantErr != nil {
		return "", m.assistantErr
	}
	return "asst-mock", nil
}

func (m *mockDialer) LaunchCall(ctx context.Context, assistantID, number, displayName string, metadata map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.launchErr[number]; err != nil {
		return "", err
	}
	m.nextCall++
	callID := fmt.Sprintf("call-%d", m.nextCall)
	m.launched = append(m.launched, number)
	m.numberByCall[callID] = number
	return callID, nil
}

func (m *mockDialer) GetCallStatus(ctx context.Context, callID string) (*telephony.CallStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	number := m.numberByCall[callID]
	seq := m.statuses[number]
	if len(seq) == 0 {
		return &telephony.CallStatus{ID: callID, Status: telephony.StatusInProgress}, nil
	}
	idx := m.polls[callID]
	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	m.polls[callID]++
	status := seq[idx]
	status.ID = callID
	return &status, nil
}

// keywordAnalyzer fakes the reasoning collaborator: it fills the price
// and availability fields when the transcript mentions them.
type keywordAnalyzer struct{}

func (keywordAnalyzer) Analyze(ctx context.Context, transcript string) types.AnalysisResult {
	result := types.DefaultAnalysis()
	if strings.Contains(transcript, "rand") {
		result.ConsultationPrice = "500 rand"
	}
	if strings.Contains(transcript, "Tuesday") {
		result.EarliestAvailability = "Tuesday"
		result.SpecialistAvailable = "Yes"
	}
	return result
}

// noopRecorder skips downloads.
type noopRecorder struct{}

func (noopRecorder) Fetch(url, practiceName, callID string) string { return "" }

// memStore is an in-memory ResultStore with error injection.
type memStore struct {
	mu        sync.Mutex
	ledger    map[string]bool
	rows      []types.ResultRow
	appendErr error
}

func newMemStore() *memStore {
	return &memStore{ledger: make(map[string]bool)}
}

func (s *memStore) LoadLedger() (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.ledger))
	for k := range s.ledger {
		out[k] = true
	}
	return out, nil
}

func (s *memStore) MarkContacted(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger[key] = true
	return nil
}

func (s *memStore) AppendResult(row types.ResultRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *memStore) HasAnalyzedResult(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.Phone != key {
			continue
		}
		if r.Analysis.SpecialistAvailable != types.Unknown ||
			r.Analysis.UltrasoundAvailable != types.Unknown ||
			r.Analysis.ConsultationPrice != types.Unknown ||
			r.Analysis.EarliestAvailability != types.Unknown {
			return true, nil
		}
	}
	return false, nil
}
