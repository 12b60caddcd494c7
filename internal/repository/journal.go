package repository

import (
	"fmt"
	"sync"
	"time"
)

// Order action statuses as recorded in the journal.
const (
	StatusSubmitted    = "SUBMITTED"
	StatusRejected     = "REJECTED"
	StatusFailed       = "FAILED"
	StatusCancelled    = "CANCELLED"
	StatusCancelFailed = "CANCEL_FAILED"
)

// OrderRecord is one journaled order action. Quantity and price are kept as
// the exact strings sent to the exchange.
type OrderRecord struct {
	Cycle     int64     `json:"cycle"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Quantity  string    `json:"quantity"`
	Price     string    `json:"price,omitempty"`
	OrderID   int64     `json:"order_id,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderJournal is an append-only record of every order action the strategy
// took, persisted as a JSON file between runs.
type OrderJournal struct {
	storage *Storage
	path    string

	mu      sync.Mutex
	records []OrderRecord
}

func NewOrderJournal(storage *Storage, path string) *OrderJournal {
	return &OrderJournal{
		storage: storage,
		path:    path,
	}
}

// Load reads the journal from disk. A missing file is a fresh journal.
func (j *OrderJournal) Load() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.storage.Exists(j.path) {
		j.records = nil
		return nil
	}

	var records []OrderRecord
	if err := j.storage.Read(j.path, &records); err != nil {
		return fmt.Errorf("failed to load order journal: %w", err)
	}
	j.records = records
	return nil
}

// Append adds one record and persists the whole journal.
func (j *OrderJournal) Append(rec OrderRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = append(j.records, rec)
	if err := j.storage.Write(j.path, j.records); err != nil {
		return fmt.Errorf("failed to persist order journal: %w", err)
	}
	return nil
}

// Records returns a copy of the journal contents.
func (j *OrderJournal) Records() []OrderRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]OrderRecord, len(j.records))
	copy(out, j.records)
	return out
}
