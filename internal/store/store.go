// Package store implements dialscout's durable state: the contact ledger
// and the append-only call result table, both backed by a single SQLite
// database. The database is a single-writer artifact; Open takes an
// exclusive lockfile so a second concurrent invocation refuses to start
// instead of interleaving writes.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dialscout/internal/logging"
	"dialscout/internal/types"
)

// LocalStore holds the ledger and result tables.
type LocalStore struct {
	db       *sql.DB
	mu       sync.Mutex
	dbPath   string
	lockPath string
}

// appendRetries is how many times a failed result append is retried
// before the error is surfaced. A lost row is worse than a stopped batch.
const appendRetries = 3

// Open initializes the SQLite database at the given path, creating the
// schema if absent. Pass ":memory:" for an ephemeral store in tests.
func Open(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	store := &LocalStore{dbPath: path}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		if err := store.acquireLock(); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		store.releaseLock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	// FULL keeps every committed append on disk even through power loss.
	// The write rate is one row per phone call, so the cost is irrelevant.
	if _, err := db.Exec("PRAGMA synchronous = FULL"); err != nil {
		logging.StoreDebug("failed to set sqlite synchronous=FULL: %v", err)
	}

	store.db = db
	if err := store.initialize(); err != nil {
		db.Close()
		store.releaseLock()
		return nil, err
	}

	logging.Store("store opened at %s", path)
	return store, nil
}

// acquireLock takes an exclusive pid lockfile next to the database.
func (s *LocalStore) acquireLock() error {
	s.lockPath = s.dbPath + ".lock"
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("store is locked by another dialscout process (remove %s if stale)", s.lockPath)
		}
		return fmt.Errorf("failed to create lockfile: %w", err)
	}
	fmt.Fprintf(f, "%s\n", strconv.Itoa(os.Getpid()))
	return f.Close()
}

func (s *LocalStore) releaseLock() {
	if s.lockPath != "" {
		os.Remove(s.lockPath)
		s.lockPath = ""
	}
}

func (s *LocalStore) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS ledger (
			contact_key TEXT PRIMARY KEY,
			contacted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS call_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			attempt_id TEXT NOT NULL,
			call_id TEXT,
			practice_name TEXT,
			phone TEXT NOT NULL,
			address TEXT,
			specialist_available TEXT NOT NULL,
			ultrasound_available TEXT NOT NULL,
			consultation_price TEXT NOT NULL,
			earliest_availability TEXT NOT NULL,
			status TEXT NOT NULL,
			duration_seconds REAL,
			ended_reason TEXT,
			cost REAL,
			transcript TEXT,
			recording_url TEXT,
			local_recording TEXT,
			called_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_phone ON call_results(phone)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON call_results(run_id)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database and releases the process lock.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadLedger returns the set of contact keys already successfully
// reached. A fresh database yields an empty set, not an error.
func (s *LocalStore) LoadLedger() (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT contact_key FROM ledger`)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	defer rows.Close()

	ledger := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		ledger[key] = true
	}
	return ledger, rows.Err()
}

// MarkContacted inserts a contact key into the ledger. Called only after
// an attempt reached the ended state; inserting an existing key is a
// no-op, so the ledger grows monotonically.
func (s *LocalStore) MarkContacted(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		return fmt.Errorf("empty contact key")
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO ledger (contact_key) VALUES (?)`, key)
	if err != nil {
		return fmt.Errorf("failed to mark %s contacted: %w", key, err)
	}
	logging.Store("ledger: marked %s contacted", key)
	return nil
}

// AppendResult durably appends one result row. The insert is its own
// transaction, so a killed process leaves prior rows intact and no
// partial row behind. Transient failures are retried before the error
// is surfaced to the caller.
func (s *LocalStore) AppendResult(row types.ResultRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for i := 0; i < appendRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i) * 200 * time.Millisecond)
		}
		_, lastErr = s.db.Exec(`INSERT INTO call_results (
			run_id, attempt_id, call_id, practice_name, phone, address,
			specialist_available, ultrasound_available, consultation_price, earliest_availability,
			status, duration_seconds, ended_reason, cost,
			transcript, recording_url, local_recording, called_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.RunID, row.AttemptID, row.CallID, row.PracticeName, row.Phone, row.Address,
			row.Analysis.SpecialistAvailable, row.Analysis.UltrasoundAvailable,
			row.Analysis.ConsultationPrice, row.Analysis.EarliestAvailability,
			string(row.Status), row.Duration, row.EndedReason, row.Cost,
			row.Transcript, row.RecordingURL, row.LocalRecording,
			row.CalledAt.UTC().Format(time.RFC3339),
		)
		if lastErr == nil {
			logging.Store("result appended: %s status=%s", row.Phone, row.Status)
			return nil
		}
		logging.Get(logging.CategoryStore).Warn("append attempt %d failed: %v", i+1, lastErr)
	}
	return fmt.Errorf("failed to append result for %s after %d attempts: %w", row.Phone, appendRetries, lastErr)
}

// HasAnalyzedResult reports whether a contact already has a persisted row
// with at least one non-Unknown analysis field. Used by the offline
// reprocess mode to skip work unless forced.
func (s *LocalStore) HasAnalyzedResult(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM call_results WHERE phone = ?
		AND (specialist_available != ? OR ultrasound_available != ?
		     OR consultation_price != ? OR earliest_availability != ?)`,
		key, types.Unknown, types.Unknown, types.Unknown, types.Unknown).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query results for %s: %w", key, err)
	}
	return n > 0, nil
}

// CountResults returns the number of persisted result rows.
func (s *LocalStore) CountResults() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM call_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}

// Stats summarizes the store for the stats command.
type Stats struct {
	Attempts   int
	ByStatus   map[string]int
	LedgerSize int
}

// GetStats aggregates attempt counts by status plus the ledger size.
func (s *LocalStore) GetStats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &Stats{ByStatus: make(map[string]int)}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM call_results GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = n
		stats.Attempts += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ledger`).Scan(&stats.LedgerSize); err != nil {
		return nil, fmt.Errorf("failed to count ledger: %w", err)
	}
	return stats, nil
}
