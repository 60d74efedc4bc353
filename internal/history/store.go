package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"leafscan/internal/ai"
	"leafscan/internal/models"
)

const (
	// storageKey is the single key under which the whole history list is
	// persisted, as one JSON array.
	storageKey = "scan_history"

	// MaxEntries caps the history list; the oldest entries are evicted
	// once the cap is exceeded.
	MaxEntries = 50
)

// Store persists the scan history as a single JSON document. The whole
// list is read, mutated and written back on every append, so writes go
// through one mutex.
type Store struct {
	db *DB
	mu sync.Mutex
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// LoadAll returns the persisted history, newest first. A missing or
// malformed stored value is treated as empty history, never as an error.
func (s *Store) LoadAll() []models.ScanResult {
	var value string
	err := s.db.conn.QueryRow(
		`SELECT value FROM app_storage WHERE key = ?`, storageKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return []models.ScanResult{}
	}
	if err != nil {
		log.Printf("[HISTORY] Error reading history: %v", err)
		return []models.ScanResult{}
	}

	var results []models.ScanResult
	if err := json.Unmarshal([]byte(value), &results); err != nil {
		log.Printf("[HISTORY] Malformed history payload, treating as empty: %v", err)
		return []models.ScanResult{}
	}

	if len(results) > MaxEntries {
		results = results[:MaxEntries]
	}

	return results
}

// Append builds a ScanResult for a completed analysis, inserts it at the
// front of the list, truncates to MaxEntries and persists the full list.
func (s *Store) Append(image string, diagnosis ai.Diagnosis) (*models.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := models.NewScanResult(image, diagnosis)

	list := append([]models.ScanResult{*result}, s.LoadAll()...)
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}

	if err := s.persist(list); err != nil {
		return nil, fmt.Errorf("failed to persist history: %w", err)
	}

	return result, nil
}

// GetByID returns one stored scan, or nil if no entry has that id.
func (s *Store) GetByID(id string) *models.ScanResult {
	for _, r := range s.LoadAll() {
		if r.ID == id {
			return &r
		}
	}
	return nil
}

// Clear drops the whole history list.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.conn.Exec(`DELETE FROM app_storage WHERE key = ?`, storageKey)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (s *Store) persist(list []models.ScanResult) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	_, err = s.db.conn.Exec(`
		INSERT INTO app_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		storageKey, string(payload), time.Now(),
	)
	return err
}
