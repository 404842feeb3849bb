package api

import (
	_ "github.com/Kamar-Folarin/site-sync/docs"

	"github.com/Kamar-Folarin/site-sync/internal/batch"
	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// ErrorResponse represents an API error
// @Description Error response from the API
type ErrorResponse struct {
	// Error message
	Error string `json:"error" example:"site 9 not found"`
}

// StatusResponse acknowledges an asynchronous request
type StatusResponse struct {
	Status string `json:"status" example:"sync started"`
}

// SyncRequest selects what a sync run covers
// @Description Options of a sync run
type SyncRequest struct {
	// Data types to sync in order; empty means all
	DataTypes []string `json:"data_types" example:"orders,products"`
	// Clear the cached partitions before fetching
	ForceFullSync bool `json:"force_full_sync"`
}

// SyncStatusResponse is the sync state of every data type of a site
type SyncStatusResponse struct {
	SiteID    int64                  `json:"site_id" example:"7"`
	IsSyncing bool                   `json:"is_syncing"`
	Types     []*models.SyncMetadata `json:"types"`
}

// BatchStartRequest describes the items of a content batch
// @Description Items to generate content for; empty uses the active site's products without a description
type BatchStartRequest struct {
	Items []batch.Item `json:"items"`
	Style string       `json:"style" example:"professional"`
}
