// Package targets loads the candidate contact list produced by the
// discovery collaborator and filters it against the contact ledger.
package targets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"dialscout/internal/logging"
	"dialscout/internal/phone"
	"dialscout/internal/types"
)

// ErrMissingSource means the discovery collaborator's output file is
// absent. There is nothing to dial, so this is fatal to a run.
var ErrMissingSource = errors.New("targets source file not found")

// rawTarget matches the discovery collaborator's JSON records.
type rawTarget struct {
	Name     string            `json:"name"`
	Address  string            `json:"address"`
	Phone    string            `json:"phone"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Load reads the discovery output at path and returns targets keyed by
// normalized phone number. Records without a phone number are skipped.
func Load(path, countryCode string) ([]types.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}

	var raw []rawTarget
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse targets %s: %w", path, err)
	}

	targets := make([]types.Target, 0, len(raw))
	for _, r := range raw {
		key := phone.Normalize(r.Phone, countryCode)
		if key == "" {
			logging.Get(logging.CategoryTargets).Warn("skipping %q: no phone number", r.Name)
			continue
		}
		targets = append(targets, types.Target{
			Key:      key,
			Name:     r.Name,
			Phone:    r.Phone,
			Address:  r.Address,
			Metadata: r.Metadata,
		})
	}

	logging.Get(logging.CategoryTargets).Info("loaded %d targets from %s", len(targets), path)
	return targets, nil
}

// Remaining returns the targets whose identity key is not in the ledger,
// preserving input order. Only contacts whose prior attempt actually
// ended are filtered out; failed and timed-out contacts stay eligible.
func Remaining(all []types.Target, ledger map[string]bool) []types.Target {
	remaining := make([]types.Target, 0, len(all))
	for _, t := range all {
		if ledger[t.Key] {
			continue
		}
		remaining = append(remaining, t)
	}
	return remaining
}
