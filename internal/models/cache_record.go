package models

import (
	"encoding/json"
	"time"
)

// CacheRecord is one mirrored remote entity
type CacheRecord struct {
	SiteID      int64           `json:"site_id"`
	EntityID    int64           `json:"entity_id"`
	EntityType  EntityType      `json:"entity_type"`
	Data        json.RawMessage `json:"data"`
	LastUpdated time.Time       `json:"last_updated"`
}

// CacheSize is an approximate summary of everything in the cache
type CacheSize struct {
	TotalItems   int64 `json:"total_items"`
	SizeEstimate int64 `json:"size_estimate"`
}

// EntityID extracts the numeric "id" field from a remote entity payload
func EntityID(data json.RawMessage) (int64, error) {
	var probe struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, err
	}
	return probe.ID.Int64()
}
