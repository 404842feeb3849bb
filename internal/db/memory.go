package db

import (
	"context"
	"sort"
	"sync"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

type recordKey struct {
	siteID   int64
	entityID int64
}

type metaKey struct {
	siteID   int64
	dataType models.EntityType
}

// MemoryStore is an in-process Store, used by tests and the CLI's dry runs
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[models.EntityType]map[recordKey]*models.CacheRecord
	metadata   map[metaKey]*models.SyncMetadata
	logs       []*models.SyncLog
}

// NewMemoryStore creates an empty in-memory store with one partition per entity type
func NewMemoryStore() *MemoryStore {
	partitions := make(map[models.EntityType]map[recordKey]*models.CacheRecord, len(models.AllEntityTypes))
	for _, t := range models.AllEntityTypes {
		partitions[t] = make(map[recordKey]*models.CacheRecord)
	}
	return &MemoryStore{
		partitions: partitions,
		metadata:   make(map[metaKey]*models.SyncMetadata),
	}
}

func copyRecord(r *models.CacheRecord) *models.CacheRecord {
	c := *r
	c.Data = append([]byte(nil), r.Data...)
	return &c
}

func copyMetadata(m *models.SyncMetadata) *models.SyncMetadata {
	c := *m
	if m.LastSync != nil {
		t := *m.LastSync
		c.LastSync = &t
	}
	return &c
}

// Get retrieves one cached record, or nil when absent
func (s *MemoryStore) Get(ctx context.Context, siteID int64, entityType models.EntityType, entityID int64) (*models.CacheRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.partitions[entityType][recordKey{siteID, entityID}]
	if !ok {
		return nil, nil
	}
	return copyRecord(r), nil
}

// List returns every record of a site partition
func (s *MemoryStore) List(ctx context.Context, siteID int64, entityType models.EntityType) ([]*models.CacheRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.CacheRecord
	for k, r := range s.partitions[entityType] {
		if k.siteID == siteID {
			records = append(records, copyRecord(r))
		}
	}
	return records, nil
}

// Upsert inserts or replaces records keyed by (siteID, entityID)
func (s *MemoryStore) Upsert(ctx context.Context, siteID int64, entityType models.EntityType, records []*models.CacheRecord) error {
	if err := prepareRecords(siteID, entityType, records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	partition := s.partitions[entityType]
	for _, r := range records {
		partition[recordKey{siteID, r.EntityID}] = copyRecord(r)
	}
	return nil
}

// DeleteAll removes every record of a site partition
func (s *MemoryStore) DeleteAll(ctx context.Context, siteID int64, entityType models.EntityType) error {
	if err := validateEntityType(entityType); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.partitions[entityType] {
		if k.siteID == siteID {
			delete(s.partitions[entityType], k)
		}
	}
	return nil
}

// GetSyncMetadata returns the metadata row, or nil when the pair was never synced
func (s *MemoryStore) GetSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType) (*models.SyncMetadata, error) {
	if err := validateEntityType(dataType); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.metadata[metaKey{siteID, dataType}]
	if !ok {
		return nil, nil
	}
	return copyMetadata(m), nil
}

// UpdateSyncMetadata merges update into the row, creating it when missing
func (s *MemoryStore) UpdateSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType, update models.SyncMetadataUpdate) (*models.SyncMetadata, error) {
	if err := validateEntityType(dataType); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := metaKey{siteID, dataType}
	m, ok := s.metadata[key]
	if !ok {
		m = models.NewSyncMetadata(siteID, dataType)
		s.metadata[key] = m
	}
	m.Apply(update)
	return copyMetadata(m), nil
}

// DeleteSyncMetadata removes the metadata row
func (s *MemoryStore) DeleteSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType) error {
	if err := validateEntityType(dataType); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.metadata, metaKey{siteID, dataType})
	return nil
}

// AppendSyncLog stores a sync run record
func (s *MemoryStore) AppendSyncLog(ctx context.Context, log *models.SyncLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *log
	s.logs = append(s.logs, &c)
	return nil
}

// ListSyncLogs returns the newest logs of a site first
func (s *MemoryStore) ListSyncLogs(ctx context.Context, siteID int64, limit int) ([]*models.SyncLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []*models.SyncLog
	for _, l := range s.logs {
		if l.SiteID == siteID {
			c := *l
			logs = append(logs, &c)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].StartTime.After(logs[j].StartTime)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// CacheSizeEstimate counts records across all partitions and sums their payload sizes
func (s *MemoryStore) CacheSizeEstimate(ctx context.Context) (*models.CacheSize, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := &models.CacheSize{}
	for _, partition := range s.partitions {
		for _, r := range partition {
			size.TotalItems++
			size.SizeEstimate += int64(len(r.Data))
		}
	}
	return size, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
