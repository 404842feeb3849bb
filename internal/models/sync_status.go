package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncState is the lifecycle state of one (site, data type) pair
type SyncState string

const (
	SyncStateIdle      SyncState = "idle"
	SyncStateSyncing   SyncState = "syncing"
	SyncStateCompleted SyncState = "completed"
	SyncStateError     SyncState = "error"
)

// SyncMetadata tracks the sync state of one (site, data type) pair
type SyncMetadata struct {
	SiteID      int64      `json:"site_id"`
	DataType    EntityType `json:"data_type"`
	LastSync    *time.Time `json:"last_sync"`
	Status      SyncState  `json:"status"`
	TotalCount  int        `json:"total_count"`
	SyncedCount int        `json:"synced_count"`
	Error       string     `json:"error,omitempty"`
}

// SyncMetadataUpdate is a partial update; nil fields are left untouched
type SyncMetadataUpdate struct {
	LastSync    *time.Time
	Status      *SyncState
	TotalCount  *int
	SyncedCount *int
	// Error set to a pointer to "" clears the stored error
	Error *string
}

// NewSyncMetadata returns the placeholder row for a pair that was never synced
func NewSyncMetadata(siteID int64, dataType EntityType) *SyncMetadata {
	return &SyncMetadata{
		SiteID:   siteID,
		DataType: dataType,
		Status:   SyncStateIdle,
	}
}

// Apply merges the update into m
func (m *SyncMetadata) Apply(u SyncMetadataUpdate) {
	if u.LastSync != nil {
		t := *u.LastSync
		m.LastSync = &t
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
	if u.TotalCount != nil {
		m.TotalCount = *u.TotalCount
	}
	if u.SyncedCount != nil {
		m.SyncedCount = *u.SyncedCount
	}
	if u.Error != nil {
		m.Error = *u.Error
	}
}

// String returns the JSON string representation of the sync metadata
func (m *SyncMetadata) String() string {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal sync metadata: %v"}`, err)
	}
	return string(data)
}

// SyncLogStatus is the outcome of a sync run
type SyncLogStatus string

const (
	SyncLogCompleted SyncLogStatus = "completed"
	SyncLogFailed    SyncLogStatus = "failed"
	SyncLogCancelled SyncLogStatus = "cancelled"
)

// SyncLog is the append-only audit record of a sync run
type SyncLog struct {
	ID          string        `json:"id"`
	SiteID      int64         `json:"site_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	DataType    string        `json:"data_type"`
	ItemsSynced int           `json:"items_synced"`
	Status      SyncLogStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
}
