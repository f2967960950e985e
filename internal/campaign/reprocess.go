package campaign

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"dialscout/internal/logging"
	"dialscout/internal/phone"
	"dialscout/internal/types"
)

// ManifestEntry maps one pre-existing transcript file to the contact it
// came from.
type ManifestEntry struct {
	Transcript string `yaml:"transcript"` // path to the transcript text file
	Name       string `yaml:"name"`
	Phone      string `yaml:"phone"`
	Address    string `yaml:"address"`
	CallID     string `yaml:"call_id,omitempty"`
}

// Manifest describes a set of previously recorded calls to analyze
// without the launcher or poller.
type Manifest struct {
	Entries []ManifestEntry `yaml:"entries"`
}

// LoadManifest reads a reprocess manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if len(m.Entries) == 0 {
		return nil, fmt.Errorf("manifest %s has no entries", path)
	}
	return &m, nil
}

// Reprocessor runs the analyzer and persister over existing transcripts.
type Reprocessor struct {
	analyzer    Analyzer
	store       ResultStore
	countryCode string
	runID       string
	// Force re-analyzes contacts that already hold an analyzed row.
	Force bool
}

// NewReprocessor wires the offline pipeline.
func NewReprocessor(analyzer Analyzer, store ResultStore, countryCode string) *Reprocessor {
	return &Reprocessor{
		analyzer:    analyzer,
		store:       store,
		countryCode: countryCode,
		runID:       uuid.NewString(),
	}
}

// Run analyzes every manifest entry and appends one row each. Entries
// whose contact already has an analyzed row are skipped unless Force is
// set. These calls connected and completed when they were originally
// recorded, so each persisted contact also enters the ledger.
func (r *Reprocessor) Run(ctx context.Context, m *Manifest) (*Summary, error) {
	summary := &Summary{RunID: r.runID, Candidates: len(m.Entries)}
	log := logging.Get(logging.CategoryCampaign)

	for _, entry := range m.Entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		key := phone.Normalize(entry.Phone, r.countryCode)
		if key == "" {
			log.Warn("manifest entry %q has no phone number, skipping", entry.Name)
			summary.Skipped++
			continue
		}

		if !r.Force {
			analyzed, err := r.store.HasAnalyzedResult(key)
			if err != nil {
				return summary, fmt.Errorf("failed to check prior analysis for %s: %w", key, err)
			}
			if analyzed {
				log.Debug("skipping %s: already analyzed", key)
				summary.AlreadyReached++
				continue
			}
		}

		transcript := ""
		if data, err := os.ReadFile(entry.Transcript); err != nil {
			log.Warn("transcript %s unreadable, recording Unknown fields: %v", entry.Transcript, err)
		} else {
			transcript = string(data)
		}

		result := types.DefaultAnalysis()
		if r.analyzer != nil {
			result = r.analyzer.Analyze(ctx, transcript)
		}

		row := types.ResultRow{
			RunID:        r.runID,
			AttemptID:    uuid.NewString(),
			CallID:       entry.CallID,
			PracticeName: entry.Name,
			Phone:        key,
			Address:      entry.Address,
			Analysis:     result,
			Status:       types.StateEnded,
			Transcript:   transcript,
			CalledAt:     time.Now(),
		}
		if err := r.store.AppendResult(row); err != nil {
			return summary, fmt.Errorf("failed to persist reprocessed row for %s: %w", key, err)
		}
		if err := r.store.MarkContacted(key); err != nil {
			return summary, fmt.Errorf("failed to update ledger for %s: %w", key, err)
		}
		summary.Dialed++
		summary.Ended++
	}

	logging.Campaign("reprocess %s complete: analyzed=%d skipped=%d",
		summary.RunID, summary.Ended, summary.AlreadyReached+summary.Skipped)
	return summary, nil
}
