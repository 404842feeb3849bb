package models

import (
	"encoding/json"
	"sort"
	"time"
)

// SessionStatus is the persisted state of a batch session
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// BatchSession is the persisted cross-run record of which items were processed
type BatchSession struct {
	ID               string
	StartedAt        time.Time
	LastUpdatedAt    time.Time
	ProcessedItemIDs map[int64]struct{}
	FailedItemIDs    map[int64]struct{}
	TotalItems       int
	Status           SessionStatus
}

type batchSessionJSON struct {
	ID                  string        `json:"id,omitempty"`
	StartedAt           time.Time     `json:"startedAt"`
	LastUpdatedAt       time.Time     `json:"lastUpdatedAt"`
	ProcessedProductIDs []int64       `json:"processedProductIds"`
	FailedProductIDs    []int64       `json:"failedProductIds"`
	TotalProducts       int           `json:"totalProducts"`
	Status              SessionStatus `json:"status"`
}

// NewBatchSession starts an empty active session
func NewBatchSession(id string, now time.Time, totalItems int) *BatchSession {
	return &BatchSession{
		ID:               id,
		StartedAt:        now,
		LastUpdatedAt:    now,
		ProcessedItemIDs: make(map[int64]struct{}),
		FailedItemIDs:    make(map[int64]struct{}),
		TotalItems:       totalItems,
		Status:           SessionActive,
	}
}

// IsProcessed reports whether id completed in this or an earlier run
func (s *BatchSession) IsProcessed(id int64) bool {
	_, ok := s.ProcessedItemIDs[id]
	return ok
}

// MarkProcessed records a successful item; it is no longer considered failed
func (s *BatchSession) MarkProcessed(id int64, now time.Time) {
	s.ProcessedItemIDs[id] = struct{}{}
	delete(s.FailedItemIDs, id)
	s.LastUpdatedAt = now
}

// MarkFailed records a failed item; it stays eligible for a later run
func (s *BatchSession) MarkFailed(id int64, now time.Time) {
	s.FailedItemIDs[id] = struct{}{}
	s.LastUpdatedAt = now
}

// SetStatus changes the status and bumps LastUpdatedAt
func (s *BatchSession) SetStatus(status SessionStatus, now time.Time) {
	s.Status = status
	s.LastUpdatedAt = now
}

// MarshalJSON renders the session in its exported format with sorted id lists
func (s *BatchSession) MarshalJSON() ([]byte, error) {
	return json.Marshal(batchSessionJSON{
		ID:                  s.ID,
		StartedAt:           s.StartedAt,
		LastUpdatedAt:       s.LastUpdatedAt,
		ProcessedProductIDs: sortedIDs(s.ProcessedItemIDs),
		FailedProductIDs:    sortedIDs(s.FailedItemIDs),
		TotalProducts:       s.TotalItems,
		Status:              s.Status,
	})
}

// UnmarshalJSON reads the exported format
func (s *BatchSession) UnmarshalJSON(data []byte) error {
	var raw batchSessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.StartedAt = raw.StartedAt
	s.LastUpdatedAt = raw.LastUpdatedAt
	s.TotalItems = raw.TotalProducts
	s.Status = raw.Status
	s.ProcessedItemIDs = make(map[int64]struct{}, len(raw.ProcessedProductIDs))
	for _, id := range raw.ProcessedProductIDs {
		s.ProcessedItemIDs[id] = struct{}{}
	}
	s.FailedItemIDs = make(map[int64]struct{}, len(raw.FailedProductIDs))
	for _, id := range raw.FailedProductIDs {
		s.FailedItemIDs[id] = struct{}{}
	}
	return nil
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
