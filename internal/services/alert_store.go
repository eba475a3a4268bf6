package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crop-advisor-api/internal/models"
	"crop-advisor-api/internal/pkg/logger"
)

const (
	maxRetainedAlerts = 1000
	maxRecentAlerts   = 10
)

// AlertStore persists weather alerts as an append-only JSON array with
// bounded retention: once the cap is reached the oldest records are dropped
// first. A single mutex serializes writers; reads copy under the same lock.
type AlertStore struct {
	path   string
	logger *logger.Logger

	mu      sync.Mutex
	records []models.AlertRecord
	nextID  int64
}

func NewAlertStore(path string, log *logger.Logger) (*AlertStore, error) {
	store := &AlertStore{
		path:   path,
		logger: log,
		nextID: 1,
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	log.Info("Alert store initialized",
		"path", path,
		"retained", len(store.records))

	return store, nil
}

func (store *AlertStore) load() error {
	raw, err := os.ReadFile(store.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read alert log: %w", err)
	}

	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, &store.records); err != nil {
		return fmt.Errorf("alert log is corrupt: %w", err)
	}

	for _, record := range store.records {
		if record.ID >= store.nextID {
			store.nextID = record.ID + 1
		}
	}

	return nil
}

// Append adds one alert, enforcing FIFO retention, and persists the log.
func (store *AlertStore) Append(record models.AlertRecord) (models.AlertRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	record.ID = store.nextID
	store.nextID++

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	store.records = append(store.records, record)
	if len(store.records) > maxRetainedAlerts {
		store.records = store.records[len(store.records)-maxRetainedAlerts:]
	}

	if err := store.persist(); err != nil {
		return record, err
	}

	return record, nil
}

// Recent returns up to the last 10 alerts inside the window, newest last,
// plus counts by risk tier across every match in the window.
func (store *AlertStore) Recent(window time.Duration) models.RecentAlertsResponse {
	store.mu.Lock()
	defer store.mu.Unlock()

	cutoff := time.Now().Add(-window)

	var matched []models.AlertRecord
	counts := map[models.RiskLevel]int{
		models.RiskLevelLow:    0,
		models.RiskLevelMedium: 0,
		models.RiskLevelHigh:   0,
	}

	for _, record := range store.records {
		if record.CreatedAt.Before(cutoff) {
			continue
		}
		matched = append(matched, record)
		counts[record.Assessment.RiskLevel]++
	}

	total := len(matched)
	if len(matched) > maxRecentAlerts {
		matched = matched[len(matched)-maxRecentAlerts:]
	}
	if matched == nil {
		matched = []models.AlertRecord{}
	}

	return models.RecentAlertsResponse{
		Alerts:       matched,
		TotalMatched: total,
		CountsByRisk: counts,
		WindowHours:  int(window.Hours()),
	}
}

// Count reports how many records are currently retained.
func (store *AlertStore) Count() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.records)
}

// Oldest returns the first retained record, if any.
func (store *AlertStore) Oldest() (models.AlertRecord, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.records) == 0 {
		return models.AlertRecord{}, false
	}
	return store.records[0], true
}

func (store *AlertStore) persist() error {
	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return fmt.Errorf("failed to create alert log directory: %w", err)
	}

	encoded, err := json.MarshalIndent(store.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode alert log: %w", err)
	}

	tmpPath := store.path + ".tmp"
	if err := os.WriteFile(tmpPath, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write alert log: %w", err)
	}

	return os.Rename(tmpPath, store.path)
}
