// Package syncer mirrors remote site collections into the local cache
package syncer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/config"
	"github.com/Kamar-Folarin/site-sync/internal/db"
	"github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/observability"
	"github.com/Kamar-Folarin/site-sync/internal/wordpress"
)

// Fetcher pulls a complete remote collection
type Fetcher interface {
	FetchAll(ctx context.Context, siteID int64, entityType models.EntityType, filters *wordpress.Filters, stop wordpress.StopFunc) ([]json.RawMessage, error)
}

// ProgressFunc receives a progress report after every committed cache chunk
type ProgressFunc func(models.SyncProgress)

// Options controls one SyncAll run
type Options struct {
	// DataTypes to sync in order; empty means all types
	DataTypes     []models.EntityType
	ForceFullSync bool
	OnProgress    ProgressFunc
	// Silent demotes the run's info logs to debug
	Silent bool
}

// Result summarizes a finished SyncAll run
type Result struct {
	SiteID      int64               `json:"site_id"`
	Synced      []models.EntityType `json:"synced"`
	Skipped     []models.EntityType `json:"skipped"`
	ItemsSynced int                 `json:"items_synced"`
	Log         *models.SyncLog     `json:"log"`
}

// Service is the sync orchestrator. One instance owns the cache writes of a process.
type Service struct {
	store   db.Store
	fetcher Fetcher
	cfg     *config.SyncConfig
	logger  logrus.FieldLogger
	now     func() time.Time

	mu              sync.Mutex
	running         bool
	runningSite     int64
	cancelRequested bool
}

// Option configures the Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new sync orchestrator
func NewService(store db.Store, fetcher Fetcher, cfg *config.SyncConfig, logger logrus.FieldLogger, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.DefaultSyncConfig()
	}
	s := &Service{
		store:   store,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.WithField("component", "syncer"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsSyncing reports whether a SyncAll run is in flight
func (s *Service) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// CancelSync asks the running sync to stop at its next checkpoint.
// It returns false when nothing is running.
func (s *Service) CancelSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	s.cancelRequested = true
	s.logger.WithField("site_id", s.runningSite).Info("Sync cancellation requested")
	return true
}

func (s *Service) begin(siteID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.NewSyncInProgressError(s.runningSite)
	}
	s.running = true
	s.runningSite = siteID
	s.cancelRequested = false
	return nil
}

func (s *Service) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runningSite = 0
	s.cancelRequested = false
}

func (s *Service) cancelled(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelRequested || ctx.Err() != nil
}

// run carries the state of one SyncAll call
type run struct {
	siteID     int64
	types      []models.EntityType
	opts       Options
	start      time.Time
	items      int
	current    models.EntityType
	inProgress bool
	lastPct    float64
	result     *Result
	logger     logrus.FieldLogger
}

func (r *run) info(logger logrus.FieldLogger, msg string) {
	if r.opts.Silent {
		logger.Debug(msg)
		return
	}
	logger.Info(msg)
}

// percentage gives type i of the run an equal share; frac is the share's completed fraction
func (r *run) percentage(i int, frac float64) float64 {
	return (float64(i) + frac) / float64(len(r.types)) * 100
}

func (r *run) report(p models.SyncProgress) {
	r.lastPct = p.Percentage
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(p)
	}
}

func resolveTypes(requested []models.EntityType) ([]models.EntityType, error) {
	if len(requested) == 0 {
		return append([]models.EntityType(nil), models.AllEntityTypes...), nil
	}
	seen := make(map[models.EntityType]bool, len(requested))
	for _, t := range requested {
		if !t.Valid() {
			return nil, errors.NewValidationError(fmt.Sprintf("unknown data type %q", t), nil)
		}
		if seen[t] {
			return nil, errors.NewValidationError(fmt.Sprintf("duplicate data type %q", t), nil)
		}
		seen[t] = true
	}
	return requested, nil
}

// SyncAll syncs the requested data types of a site one after another.
// Fresh types are skipped unless ForceFullSync is set. Only one run may be
// in flight per Service.
func (s *Service) SyncAll(ctx context.Context, siteID int64, opts Options) (*Result, error) {
	types, err := resolveTypes(opts.DataTypes)
	if err != nil {
		return nil, err
	}

	if err := s.begin(siteID); err != nil {
		s.logger.WithField("site_id", siteID).Warn("Sync already in progress")
		return nil, err
	}
	return s.execute(ctx, siteID, types, opts)
}

// StartSync takes the in-progress guard before returning and runs the sync in
// the background. The returned channel receives the outcome once.
func (s *Service) StartSync(ctx context.Context, siteID int64, opts Options) (<-chan error, error) {
	types, err := resolveTypes(opts.DataTypes)
	if err != nil {
		return nil, err
	}
	if err := s.begin(siteID); err != nil {
		s.logger.WithField("site_id", siteID).Warn("Sync already in progress")
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.execute(ctx, siteID, types, opts)
		done <- err
		close(done)
	}()
	return done, nil
}

// execute performs one sync; the caller holds the guard taken by begin
func (s *Service) execute(ctx context.Context, siteID int64, types []models.EntityType, opts Options) (*Result, error) {
	defer s.finish()

	r := &run{
		siteID: siteID,
		types:  types,
		opts:   opts,
		start:  s.now(),
		result: &Result{SiteID: siteID},
		logger: s.logger.WithFields(logrus.Fields{
			"site_id":    siteID,
			"data_types": models.JoinEntityTypes(types),
			"force":      opts.ForceFullSync,
		}),
	}
	r.info(r.logger, "Starting sync")

	for i, t := range types {
		if s.cancelled(ctx) {
			return nil, s.abort(ctx, r, errors.ErrSyncCancelled)
		}

		r.current = t
		if err := s.syncType(ctx, r, i, t); err != nil {
			return nil, s.abort(ctx, r, err)
		}
	}

	log := s.writeLog(ctx, r, models.SyncLogCompleted, "")
	r.result.ItemsSynced = r.items
	r.result.Log = log

	observability.SyncRunsTotal.WithLabelValues(string(models.SyncLogCompleted)).Inc()
	observability.SyncDuration.Observe(s.now().Sub(r.start).Seconds())

	r.report(models.SyncProgress{
		Total:      r.items,
		Current:    r.items,
		Percentage: 100,
		Status:     models.ProgressCompleted,
		Message:    fmt.Sprintf("Synced %d items", r.items),
	})
	r.logger.WithField("items_synced", r.items).Info("Sync completed")
	return r.result, nil
}

func (s *Service) syncType(ctx context.Context, r *run, i int, t models.EntityType) error {
	logger := r.logger.WithField("entity_type", t)

	if !r.opts.ForceFullSync {
		stale, err := s.IsStale(ctx, r.siteID, t)
		if err != nil {
			return err
		}
		if !stale {
			r.info(logger, "Data is fresh, skipping")
			r.result.Skipped = append(r.result.Skipped, t)
			r.report(models.SyncProgress{
				Percentage:  r.percentage(i, 1),
				CurrentType: t,
				Status:      models.ProgressSkipped,
				Message:     fmt.Sprintf("%s is up to date", t),
			})
			return nil
		}
	} else {
		if err := s.store.DeleteAll(ctx, r.siteID, t); err != nil {
			return fmt.Errorf("failed to clear cached %s: %w", t, err)
		}
		if err := s.store.DeleteSyncMetadata(ctx, r.siteID, t); err != nil {
			return fmt.Errorf("failed to clear %s sync metadata: %w", t, err)
		}
	}

	syncing := models.SyncStateSyncing
	noError := ""
	zero := 0
	if _, err := s.store.UpdateSyncMetadata(ctx, r.siteID, t, models.SyncMetadataUpdate{
		Status:      &syncing,
		Error:       &noError,
		SyncedCount: &zero,
	}); err != nil {
		return fmt.Errorf("failed to mark %s as syncing: %w", t, err)
	}
	r.inProgress = true

	r.report(models.SyncProgress{
		Percentage:  r.percentage(i, 0),
		CurrentType: t,
		Status:      models.ProgressSyncing,
		Message:     fmt.Sprintf("Fetching %s", t),
	})
	r.info(logger, "Fetching remote collection")

	items, err := s.fetcher.FetchAll(ctx, r.siteID, t, nil, func() bool { return s.cancelled(ctx) })
	if stderrors.Is(err, wordpress.ErrFetchStopped) {
		return errors.ErrSyncCancelled
	}
	if err != nil {
		return err
	}

	total := len(items)
	if _, err := s.store.UpdateSyncMetadata(ctx, r.siteID, t, models.SyncMetadataUpdate{TotalCount: &total}); err != nil {
		return fmt.Errorf("failed to record %s total: %w", t, err)
	}

	chunkSize := s.cfg.BatchSizeFor(t)
	synced := 0
	for start := 0; start < total; start += chunkSize {
		if s.cancelled(ctx) {
			return errors.ErrSyncCancelled
		}

		end := start + chunkSize
		if end > total {
			end = total
		}

		records, err := s.toRecords(items[start:end])
		if err != nil {
			return fmt.Errorf("invalid %s payload: %w", t, err)
		}
		if err := s.store.Upsert(ctx, r.siteID, t, records); err != nil {
			return fmt.Errorf("failed to cache %s: %w", t, err)
		}

		synced += len(records)
		r.items += len(records)
		observability.SyncItemsTotal.WithLabelValues(string(t)).Add(float64(len(records)))

		if _, err := s.store.UpdateSyncMetadata(ctx, r.siteID, t, models.SyncMetadataUpdate{SyncedCount: &synced}); err != nil {
			return fmt.Errorf("failed to record %s progress: %w", t, err)
		}

		r.report(models.SyncProgress{
			Total:       total,
			Current:     synced,
			Percentage:  r.percentage(i, float64(synced)/float64(total)),
			CurrentType: t,
			Status:      models.ProgressSyncing,
			Message:     fmt.Sprintf("Synced %d of %d %s", synced, total, t),
		})
		logger.WithFields(logrus.Fields{
			"synced": synced,
			"total":  total,
		}).Debug("Cached chunk")
	}

	completed := models.SyncStateCompleted
	now := s.now()
	if _, err := s.store.UpdateSyncMetadata(ctx, r.siteID, t, models.SyncMetadataUpdate{
		Status:      &completed,
		LastSync:    &now,
		SyncedCount: &total,
	}); err != nil {
		return fmt.Errorf("failed to mark %s as completed: %w", t, err)
	}
	r.inProgress = false
	r.result.Synced = append(r.result.Synced, t)

	if total == 0 {
		r.report(models.SyncProgress{
			Percentage:  r.percentage(i, 1),
			CurrentType: t,
			Status:      models.ProgressSyncing,
			Message:     fmt.Sprintf("No %s found", t),
		})
	}
	r.info(logger.WithField("items", total), "Data type synced")
	return nil
}

func (s *Service) toRecords(items []json.RawMessage) ([]*models.CacheRecord, error) {
	now := s.now()
	records := make([]*models.CacheRecord, 0, len(items))
	for _, item := range items {
		id, err := models.EntityID(item)
		if err != nil {
			return nil, err
		}
		records = append(records, &models.CacheRecord{
			EntityID:    id,
			Data:        item,
			LastUpdated: now,
		})
	}
	return records, nil
}

// abort records a failed or cancelled run and returns the error to hand back to the caller
func (s *Service) abort(ctx context.Context, r *run, cause error) error {
	// bookkeeping must land even when ctx is what stopped the run
	ctx = context.WithoutCancel(ctx)

	status := models.SyncLogFailed
	progress := models.ProgressError
	if stderrors.Is(cause, errors.ErrSyncCancelled) || stderrors.Is(cause, context.Canceled) {
		status = models.SyncLogCancelled
		progress = models.ProgressCancelled
		cause = errors.ErrSyncCancelled
	}
	message := cause.Error()

	if r.inProgress {
		state := models.SyncStateError
		if _, err := s.store.UpdateSyncMetadata(ctx, r.siteID, r.current, models.SyncMetadataUpdate{
			Status: &state,
			Error:  &message,
		}); err != nil {
			r.logger.WithError(err).Error("Failed to record sync error in metadata")
		}
	}

	s.writeLog(ctx, r, status, message)
	observability.SyncRunsTotal.WithLabelValues(string(status)).Inc()
	observability.SyncDuration.Observe(s.now().Sub(r.start).Seconds())

	r.report(models.SyncProgress{
		Percentage:  r.lastPct,
		CurrentType: r.current,
		Status:      progress,
		Message:     message,
	})

	entry := r.logger.WithFields(logrus.Fields{
		"entity_type":  r.current,
		"items_synced": r.items,
	})
	if status == models.SyncLogCancelled {
		entry.Info("Sync cancelled")
		return cause
	}
	entry.WithError(cause).Error("Sync failed")
	return fmt.Errorf("sync of %s for site %d failed: %w", r.current, r.siteID, cause)
}

func (s *Service) writeLog(ctx context.Context, r *run, status models.SyncLogStatus, message string) *models.SyncLog {
	log := &models.SyncLog{
		ID:          uuid.NewString(),
		SiteID:      r.siteID,
		StartTime:   r.start,
		EndTime:     s.now(),
		DataType:    models.JoinEntityTypes(r.types),
		ItemsSynced: r.items,
		Status:      status,
		Error:       message,
	}
	if err := s.store.AppendSyncLog(ctx, log); err != nil {
		r.logger.WithError(err).Error("Failed to write sync log")
	}
	return log
}

// IsStale reports whether a data type needs a fetch: it was never synced
// successfully or its last sync is older than the type's max age
func (s *Service) IsStale(ctx context.Context, siteID int64, dataType models.EntityType) (bool, error) {
	meta, err := s.store.GetSyncMetadata(ctx, siteID, dataType)
	if err != nil {
		return false, fmt.Errorf("failed to read %s sync metadata: %w", dataType, err)
	}
	if meta == nil || meta.LastSync == nil {
		return true, nil
	}
	return s.now().Sub(*meta.LastSync) >= s.cfg.MaxAgeFor(dataType), nil
}

// Status returns the sync metadata of every data type of a site, with idle
// placeholders for types that were never synced
func (s *Service) Status(ctx context.Context, siteID int64) ([]*models.SyncMetadata, error) {
	status := make([]*models.SyncMetadata, 0, len(models.AllEntityTypes))
	for _, t := range models.AllEntityTypes {
		meta, err := s.store.GetSyncMetadata(ctx, siteID, t)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s sync metadata: %w", t, err)
		}
		if meta == nil {
			meta = models.NewSyncMetadata(siteID, t)
		}
		status = append(status, meta)
	}
	return status, nil
}
