package models

// SyncProgress is emitted to observers after every committed cache batch
type SyncProgress struct {
	Total       int        `json:"total"`
	Current     int        `json:"current"`
	Percentage  float64    `json:"percentage"`
	CurrentType EntityType `json:"current_type"`
	Status      string     `json:"status"`
	Message     string     `json:"message"`
}

// Progress statuses reported through SyncProgress.Status
const (
	ProgressSyncing   = "syncing"
	ProgressSkipped   = "skipped"
	ProgressCompleted = "completed"
	ProgressError     = "error"
	ProgressCancelled = "cancelled"
)
