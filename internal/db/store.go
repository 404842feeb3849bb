package db

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// Store defines the interface for the local cache of remote site data
type Store interface {
	// Cache record operations
	Get(ctx context.Context, siteID int64, entityType models.EntityType, entityID int64) (*models.CacheRecord, error)
	List(ctx context.Context, siteID int64, entityType models.EntityType) ([]*models.CacheRecord, error)
	Upsert(ctx context.Context, siteID int64, entityType models.EntityType, records []*models.CacheRecord) error
	DeleteAll(ctx context.Context, siteID int64, entityType models.EntityType) error

	// Sync metadata operations
	GetSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType) (*models.SyncMetadata, error)
	UpdateSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType, update models.SyncMetadataUpdate) (*models.SyncMetadata, error)
	DeleteSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType) error

	// Sync log operations
	AppendSyncLog(ctx context.Context, log *models.SyncLog) error
	ListSyncLogs(ctx context.Context, siteID int64, limit int) ([]*models.SyncLog, error)

	CacheSizeEstimate(ctx context.Context) (*models.CacheSize, error)
	Close() error
}

func validateEntityType(entityType models.EntityType) error {
	if !entityType.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown entity type %q", entityType), nil)
	}
	return nil
}

// prepareRecords checks a batch and stamps the partition key onto every record
func prepareRecords(siteID int64, entityType models.EntityType, records []*models.CacheRecord) error {
	if err := validateEntityType(entityType); err != nil {
		return err
	}
	now := time.Now()
	for i, r := range records {
		if r == nil {
			return apperrors.NewValidationError(fmt.Sprintf("record %d is nil", i), nil)
		}
		r.SiteID = siteID
		r.EntityType = entityType
		if r.LastUpdated.IsZero() {
			r.LastUpdated = now
		}
	}
	return nil
}
