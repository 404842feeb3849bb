package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps the cache in PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// NewPostgresStore opens and pings a PostgreSQL connection
func NewPostgresStore(connectionString string, logger logrus.FieldLogger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger.WithField("component", "postgres")}, nil
}

// Migrate applies the embedded goose migrations
func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Get retrieves one cached record, or nil when absent
func (s *PostgresStore) Get(ctx context.Context, siteID int64, entityType models.EntityType, entityID int64) (*models.CacheRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	r := &models.CacheRecord{SiteID: siteID, EntityType: entityType, EntityID: entityID}
	err := s.db.QueryRowContext(ctx, `
		SELECT data, last_updated FROM cache_records
		WHERE entity_type = $1 AND site_id = $2 AND entity_id = $3`,
		string(entityType), siteID, entityID).Scan(&r.Data, &r.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", entityType, entityID, err)
	}
	return r, nil
}

// List returns every record of a site partition
func (s *PostgresStore) List(ctx context.Context, siteID int64, entityType models.EntityType) ([]*models.CacheRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, data, last_updated FROM cache_records
		WHERE entity_type = $1 AND site_id = $2`,
		string(entityType), siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}
	defer rows.Close()

	var records []*models.CacheRecord
	for rows.Next() {
		r := &models.CacheRecord{SiteID: siteID, EntityType: entityType}
		if err := rows.Scan(&r.EntityID, &r.Data, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", entityType, err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", entityType, err)
	}
	return records, nil
}

// Upsert writes the batch with one prepared statement inside a transaction
func (s *PostgresStore) Upsert(ctx context.Context, siteID int64, entityType models.EntityType, records []*models.CacheRecord) error {
	if err := prepareRecords(siteID, entityType, records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cache_records (entity_type, site_id, entity_id, data, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity_type, site_id, entity_id) DO UPDATE SET
			data = EXCLUDED.data,
			last_updated = EXCLUDED.last_updated`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, string(entityType), siteID, r.EntityID, []byte(r.Data), r.LastUpdated); err != nil {
			return fmt.Errorf("failed to upsert %s %d: %w", entityType, r.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"site_id":     siteID,
		"entity_type": entityType,
		"count":       len(records),
	}).Debug("Upserted cache records")
	return nil
}

// DeleteAll removes every record of a site partition
func (s *PostgresStore) DeleteAll(ctx context.Context, siteID int64, entityType models.EntityType) error {
	if err := validateEntityType(entityType); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_records WHERE entity_type = $1 AND site_id = $2",
		string(entityType), siteID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", entityType, err)
	}
	return nil
}

type metadataScanner interface {
	Scan(dest ...interface{}) error
}

func scanMetadata(row metadataScanner, siteID int64, dataType models.EntityType) (*models.SyncMetadata, error) {
	m := &models.SyncMetadata{SiteID: siteID, DataType: dataType}
	var lastSync sql.NullTime
	var status string
	if err := row.Scan(&lastSync, &status, &m.TotalCount, &m.SyncedCount, &m.Error); err != nil {
		return nil, err
	}
	if lastSync.Valid {
		t := lastSync.Time
		m.LastSync = &t
	}
	m.Status = models.SyncState(status)
	return m, nil
}

// GetSyncMetadata returns the metadata row, or nil when the pair was never synced
func (s *PostgresStore) GetSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType) (*models.SyncMetadata, error) {
	if err := validateEntityType(dataType); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT last_sync, status, total_count, synced_count, error
		FROM sync_metadata WHERE site_id = $1 AND data_type = $2`,
		siteID, string(dataType))
	m, err := scanMetadata(row, siteID, dataType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync metadata: %w", err)
	}
	return m, nil
}

// UpdateSyncMetadata merges update into the row under a row lock
func (s *PostgresStore) UpdateSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType, update models.SyncMetadataUpdate) (*models.SyncMetadata, error) {
	if err := validateEntityType(dataType); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT last_sync, status, total_count, synced_count, error
		FROM sync_metadata WHERE site_id = $1 AND data_type = $2
		FOR UPDATE`,
		siteID, string(dataType))
	m, err := scanMetadata(row, siteID, dataType)
	if err == sql.ErrNoRows {
		m = models.NewSyncMetadata(siteID, dataType)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read sync metadata: %w", err)
	}

	m.Apply(update)

	var lastSync interface{}
	if m.LastSync != nil {
		lastSync = *m.LastSync
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_metadata (site_id, data_type, last_sync, status, total_count, synced_count, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (site_id, data_type) DO UPDATE SET
			last_sync = EXCLUDED.last_sync,
			status = EXCLUDED.status,
			total_count = EXCLUDED.total_count,
			synced_count = EXCLUDED.synced_count,
			error = EXCLUDED.error,
			updated_at = NOW()`,
		siteID, string(dataType), lastSync, string(m.Status), m.TotalCount, m.SyncedCount, m.Error)
	if err != nil {
		return nil, fmt.Errorf("failed to write sync metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync metadata: %w", err)
	}
	return m, nil
}

// DeleteSyncMetadata removes the metadata row
func (s *PostgresStore) DeleteSyncMetadata(ctx context.Context, siteID int64, dataType models.EntityType) error {
	if err := validateEntityType(dataType); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sync_metadata WHERE site_id = $1 AND data_type = $2",
		siteID, string(dataType))
	if err != nil {
		return fmt.Errorf("failed to delete sync metadata: %w", err)
	}
	return nil
}

// AppendSyncLog stores a sync run record
func (s *PostgresStore) AppendSyncLog(ctx context.Context, log *models.SyncLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (id, site_id, start_time, end_time, data_type, items_synced, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.SiteID, log.StartTime, log.EndTime, log.DataType, log.ItemsSynced, string(log.Status), log.Error)
	if err != nil {
		return fmt.Errorf("failed to append sync log: %w", err)
	}
	return nil
}

// ListSyncLogs returns the newest logs of a site first
func (s *PostgresStore) ListSyncLogs(ctx context.Context, siteID int64, limit int) ([]*models.SyncLog, error) {
	var max sql.NullInt64
	if limit > 0 {
		max = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, data_type, items_synced, status, error
		FROM sync_logs
		WHERE site_id = $1
		ORDER BY start_time DESC
		LIMIT $2`, siteID, max)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.SyncLog
	for rows.Next() {
		l := &models.SyncLog{SiteID: siteID}
		var status string
		var start, end time.Time
		if err := rows.Scan(&l.ID, &start, &end, &l.DataType, &l.ItemsSynced, &status, &l.Error); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		l.StartTime, l.EndTime = start, end
		l.Status = models.SyncLogStatus(status)
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync logs: %w", err)
	}
	return logs, nil
}

// CacheSizeEstimate counts cached rows and sums their stored JSON sizes
func (s *PostgresStore) CacheSizeEstimate(ctx context.Context) (*models.CacheSize, error) {
	size := &models.CacheSize{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(pg_column_size(data)), 0) FROM cache_records`).
		Scan(&size.TotalItems, &size.SizeEstimate)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate cache size: %w", err)
	}
	return size, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
