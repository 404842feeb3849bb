// Package scheduler runs the background sync of the active site
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/syncer"
)

// Syncer is the part of the sync service the scheduler drives
type Syncer interface {
	IsSyncing() bool
	SyncAll(ctx context.Context, siteID int64, opts syncer.Options) (*syncer.Result, error)
}

// ActiveSiteProvider returns the active site, or nil
type ActiveSiteProvider interface {
	Active() *models.Site
}

// Scheduler triggers a non-forced, silent sync of the active site on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	syncer   Syncer
	sites    ActiveSiteProvider
	schedule string
	logger   logrus.FieldLogger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler; the schedule is parsed with cron descriptors enabled
func New(schedule string, s Syncer, sites ActiveSiteProvider, logger logrus.FieldLogger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithParser(parser)),
		syncer:   s,
		sites:    sites,
		schedule: schedule,
		logger:   logger.WithField("component", "scheduler"),
	}, nil
}

// Start registers the job and starts the cron runner. Runs stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(runCtx) }); err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	s.cron.Start()

	s.logger.WithField("schedule", s.schedule).Info("Background sync scheduled")
	return nil
}

// Stop stops the cron runner and waits for a running job to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("Background sync stopped")
}

// RunOnce performs a single scheduled tick
func (s *Scheduler) RunOnce(ctx context.Context) {
	if s.syncer.IsSyncing() {
		s.logger.Debug("Sync already running, skipping scheduled run")
		return
	}

	site := s.sites.Active()
	if site == nil {
		s.logger.Debug("No active site, skipping scheduled run")
		return
	}

	logger := s.logger.WithField("site_id", site.ID)
	result, err := s.syncer.SyncAll(ctx, site.ID, syncer.Options{Silent: true})
	switch {
	case err == nil:
		logger.WithFields(logrus.Fields{
			"synced":  len(result.Synced),
			"skipped": len(result.Skipped),
			"items":   result.ItemsSynced,
		}).Debug("Scheduled sync finished")
	case apperrors.IsSyncInProgress(err):
		logger.Debug("Sync started concurrently, skipping scheduled run")
	default:
		logger.WithError(err).Warn("Scheduled sync failed")
	}
}
