package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// BadgerStore keeps the cache in an embedded Badger database.
//
// Key layout:
//
//	rec/<type>/<site>/<entity>   cache record
//	meta/<site>/<type>           sync metadata
//	log/<site>/<start>/<id>      sync log
//
// Numeric segments are zero padded so that keys sort numerically.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database at path
func NewBadgerStore(path string, logger logrus.FieldLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger(logger))
	return openBadger(opts)
}

// NewInMemoryBadgerStore opens a Badger database that lives only in memory
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerLogger(logger logrus.FieldLogger) badger.Logger {
	if logger == nil {
		return nil
	}
	return logger.WithField("component", "badger")
}

func recordPrefix(siteID int64, entityType models.EntityType) []byte {
	return []byte(fmt.Sprintf("rec/%s/%020d/", entityType, siteID))
}

func recordKeyBytes(siteID int64, entityType models.EntityType, entityID int64) []byte {
	return append(recordPrefix(siteID, entityType), []byte(fmt.Sprintf("%020d", entityID))...)
}

func metaKeyBytes(siteID int64, dataType models.EntityType) []byte {
	return []byte(fmt.Sprintf("meta/%020d/%s", siteID, dataType))
}

func logPrefix(siteID int64) []byte {
	return []byte(fmt.Sprintf("log/%020d/", siteID))
}

func logKeyBytes(log *models.SyncLog) []byte {
	return append(logPrefix(log.SiteID), []byte(fmt.Sprintf("%020d/%s", log.StartTime.UnixNano(), log.ID))...)
}

func getJSON(txn *badger.Txn, key []byte, out interface{}) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// Get retrieves one cached record, or nil when absent
func (s *BadgerStore) Get(ctx context.Context, siteID int64, entityType models.EntityType, entityID int64) (*models.CacheRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	var record models.CacheRecord
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, recordKeyBytes(siteID, entityType, entityID), &record)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", entityType, entityID, err)
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

// List returns every record of a site partition
func (s *BadgerStore) List(ctx context.Context, siteID int64, entityType models.EntityType) ([]*models.CacheRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	prefix := recordPrefix(siteID, entityType)
	var records []*models.CacheRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r models.CacheRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			records = append(records, &r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}
	return records, nil
}

// Upsert writes the whole batch in a single transaction
func (s *BadgerStore) Upsert(ctx context.Context, siteID int64, entityType models.EntityType, records []*models.CacheRecord) error {
	if err := prepareRecords(siteID, entityType, records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			if err := setJSON(txn, recordKeyBytes(siteID, entityType, r.EntityID), r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d %s: %w", len(records), entityType, err)
	}
	return nil
}

// DeleteAll drops every record of a site partition
func (s *BadgerStore) DeleteAll(ctx context.Context, siteID int64, entityType models.EntityType) error {
	if err := validateEntityType(entityType); err != nil {
		return err
	}
	if err := s.db.DropPrefix(recordPrefix(siteID, entityType)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", entityType, err)
	}
	return nil
}

// GetSyncMetadata returns the metadata row, or nil when the pair was never synced
func (s *BadgerStore) GetSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType) (*models.SyncMetadata, error) {
	if err := validateEntityType(dataType); err != nil {
		return nil, err
	}

	var meta models.SyncMetadata
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, metaKeyBytes(siteID, dataType), &meta)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get sync metadata: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &meta, nil
}

// UpdateSyncMetadata merges update into the row inside one transaction
func (s *BadgerStore) UpdateSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType, update models.SyncMetadataUpdate) (*models.SyncMetadata, error) {
	if err := validateEntityType(dataType); err != nil {
		return nil, err
	}

	var meta *models.SyncMetadata
	err := s.db.Update(func(txn *badger.Txn) error {
		key := metaKeyBytes(siteID, dataType)
		current := models.NewSyncMetadata(siteID, dataType)
		if _, err := getJSON(txn, key, current); err != nil {
			return err
		}
		current.Apply(update)
		meta = current
		return setJSON(txn, key, current)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update sync metadata: %w", err)
	}
	return meta, nil
}

// DeleteSyncMetadata removes the metadata row
func (s *BadgerStore) DeleteSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType) error {
	if err := validateEntityType(dataType); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metaKeyBytes(siteID, dataType))
	})
	if err != nil {
		return fmt.Errorf("failed to delete sync metadata: %w", err)
	}
	return nil
}

// AppendSyncLog stores a sync run record
func (s *BadgerStore) AppendSyncLog(ctx context.Context, log *models.SyncLog) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, logKeyBytes(log), log)
	})
	if err != nil {
		return fmt.Errorf("failed to append sync log: %w", err)
	}
	return nil
}

// ListSyncLogs walks the site's logs backwards so the newest come first
func (s *BadgerStore) ListSyncLogs(ctx context.Context, siteID int64, limit int) ([]*models.SyncLog, error) {
	prefix := logPrefix(siteID)
	var logs []*models.SyncLog
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var l models.SyncLog
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &l)
			}); err != nil {
				return err
			}
			logs = append(logs, &l)
			if limit > 0 && len(logs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	return logs, nil
}

// CacheSizeEstimate counts record keys and sums Badger's estimated entry sizes
func (s *BadgerStore) CacheSizeEstimate(ctx context.Context) (*models.CacheSize, error) {
	prefix := []byte("rec/")
	size := &models.CacheSize{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			size.TotalItems++
			size.SizeEstimate += it.Item().EstimatedSize()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate cache size: %w", err)
	}
	return size, nil
}

// Close closes the underlying database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
