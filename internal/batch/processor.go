// Package batch runs rate limited per-item jobs with pause, resume and cancel
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/config"
	"github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/observability"
)

// Item is one unit of work, usually a product that needs content
type Item struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	SKU         string   `json:"sku,omitempty"`
	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// Generator produces content for an item
type Generator interface {
	Generate(ctx context.Context, item Item, style string) (*models.GeneratedContent, error)
}

// Updater writes generated content back to the remote site
type Updater interface {
	ApplyContent(ctx context.Context, itemID int64, content *models.GeneratedContent) error
}

// Status is the processor state reported in Progress
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Progress is a snapshot of the current run
type Progress struct {
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	Remaining    int    `json:"remaining"`
	CurrentBatch int    `json:"currentBatch"`
	TotalBatches int    `json:"totalBatches"`
	Status       Status `json:"status"`
	// EstimatedTimeRemaining is nil until an item has completed in this run
	EstimatedTimeRemaining *time.Duration `json:"estimatedTimeRemaining,omitempty"`
}

// Processor runs items in fixed-size batches separated by a cooldown.
// All mutable state is guarded by mu; the batch loop runs on at most one goroutine per run.
type Processor struct {
	generator Generator
	updater   Updater
	sessions  SessionStore
	cfg       *config.BatchConfig
	logger    logrus.FieldLogger
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time

	mu            sync.Mutex
	runID         int
	running       bool
	paused        bool
	loopRunning   bool
	status        Status
	// cancelWait interrupts the cooldown only; items in flight run on workCtx
	cancelWait    context.CancelFunc
	workCtx       context.Context
	waitCtx       context.Context
	batchEnded    time.Time
	style         string
	queue         []Item
	session       *models.BatchSession
	originalTotal int
	runTotal      int
	completed     int
	failed        int
	currentBatch  int
	totalBatches  int
	itemTime      time.Duration
	timedItems    int

	subscribers map[int]EventHandler
	nextSubID   int
	wg          sync.WaitGroup

	progressMu   sync.Mutex
	progressChan chan *Progress
}

// Option configures the Processor
type Option func(*Processor)

// WithSleeper replaces the cooldown sleep
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Processor) {
		p.sleep = sleep
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a new batch processor
func NewProcessor(generator Generator, updater Updater, sessions SessionStore, cfg *config.BatchConfig, opts ...Option) *Processor {
	if cfg == nil {
		cfg = config.DefaultBatchConfig()
	}
	p := &Processor{
		generator:    generator,
		updater:      updater,
		sessions:     sessions,
		cfg:          cfg,
		logger:       logrus.StandardLogger(),
		sleep:        sleepContext,
		now:          time.Now,
		status:       StatusIdle,
		subscribers:  make(map[int]EventHandler),
		progressChan: make(chan *Progress, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("component", "batch")
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Processor) batchSize() int {
	if p.cfg.ItemsPerBatch > 0 {
		return p.cfg.ItemsPerBatch
	}
	return 10
}

func batchesFor(items, size int) int {
	return (items + size - 1) / size
}

// Subscribe registers handler for every event and returns its unsubscribe function
func (p *Processor) Subscribe(handler EventHandler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = handler

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

func (p *Processor) emit(eventType EventType, data interface{}) {
	p.mu.Lock()
	handlers := make([]EventHandler, 0, len(p.subscribers))
	for _, h := range p.subscribers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	event := Event{Type: eventType, Time: p.now(), Data: data}
	for _, h := range handlers {
		h(event)
	}
}

// Updates returns a channel holding the latest progress snapshot
func (p *Processor) Updates() <-chan *Progress {
	return p.progressChan
}

func (p *Processor) publishProgress() Progress {
	progress := p.GetProgress()

	p.progressMu.Lock()
	defer p.progressMu.Unlock()

	snapshot := progress
	select {
	case p.progressChan <- &snapshot:
	default:
		// Channel is full, replace the value
		select {
		case <-p.progressChan:
		default:
		}
		p.progressChan <- &snapshot
	}

	p.emit(EventProgressUpdate, progress)
	return progress
}

// Start begins processing items. Items already recorded as processed in the
// persisted session are skipped. The batch loop runs in the background; use
// Wait to block until it stops.
func (p *Processor) Start(ctx context.Context, items []Item, style string) error {
	p.mu.Lock()
	if p.running || p.loopRunning {
		remaining := len(p.queue)
		p.mu.Unlock()
		return errors.NewBatchInProgressError(remaining)
	}
	p.running = true
	p.mu.Unlock()

	session, err := p.sessions.Load(ctx)
	if err != nil {
		p.release()
		return fmt.Errorf("failed to load batch session: %w", err)
	}
	if session == nil {
		session = models.NewBatchSession(uuid.NewString(), p.now(), len(items))
	}

	pending := make([]Item, 0, len(items))
	for _, item := range items {
		if !session.IsProcessed(item.ID) {
			pending = append(pending, item)
		}
	}

	logger := p.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"items":      len(items),
		"pending":    len(pending),
	})

	if len(pending) == 0 {
		p.mu.Lock()
		p.session = session
		p.status = StatusCompleted
		p.originalTotal = len(items)
		p.runTotal, p.completed, p.failed = 0, 0, 0
		p.currentBatch, p.totalBatches = 0, 0
		p.timedItems, p.itemTime = 0, 0
		p.mu.Unlock()
		p.release()

		logger.Info("All items already processed")
		p.emit(EventBatchCompleted, BatchCompleted{AllAlreadyProcessed: true, Total: len(items)})
		return nil
	}

	session.TotalItems = len(items)
	session.SetStatus(models.SessionActive, p.now())

	workCtx := context.WithoutCancel(ctx)
	waitCtx, cancel := context.WithCancel(workCtx)

	p.mu.Lock()
	p.runID++
	runID := p.runID
	p.paused = false
	p.status = StatusProcessing
	p.style = style
	p.queue = pending
	p.session = session
	p.originalTotal = len(items)
	p.runTotal = len(pending)
	p.completed = 0
	p.failed = 0
	p.currentBatch = 0
	p.totalBatches = batchesFor(len(pending), p.batchSize())
	p.itemTime = 0
	p.timedItems = 0
	p.workCtx = workCtx
	p.waitCtx = waitCtx
	p.cancelWait = cancel
	p.batchEnded = time.Time{}
	p.loopRunning = true
	snapshot := cloneSession(session)
	p.wg.Add(1)
	p.mu.Unlock()

	observability.BatchQueueDepth.Set(float64(len(pending)))
	p.saveSession(workCtx, snapshot)

	logger.WithField("batches", batchesFor(len(pending), p.batchSize())).Info("Starting batch run")
	go p.loop(workCtx, waitCtx, runID)
	return nil
}

// release drops the running flag taken by a Start that did not launch a loop
func (p *Processor) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

// active reports whether run runID should keep going; the caller holds mu
func (p *Processor) active(runID int) bool {
	return p.running && !p.paused && p.runID == runID
}

func (p *Processor) loop(ctx, waitCtx context.Context, runID int) {
	defer p.wg.Done()

	if !p.finishCooldown(waitCtx, runID) {
		return
	}

	for {
		batch, batchNum, totalBatches, ok := p.nextBatch(ctx, runID)
		if !ok {
			return
		}

		p.emit(EventBatchStarted, BatchStarted{
			CurrentBatch: batchNum,
			TotalBatches: totalBatches,
			ItemCount:    len(batch),
		})
		p.logger.WithFields(logrus.Fields{
			"batch":         batchNum,
			"total_batches": totalBatches,
			"items":         len(batch),
		}).Info("Processing batch")

		completed, failed := 0, 0
		for i, item := range batch {
			if !p.checkpoint(runID, batch[i:]) {
				return
			}
			if p.processItem(ctx, runID, item) {
				completed++
			} else {
				failed++
			}
		}

		p.mu.Lock()
		if p.runID == runID {
			p.batchEnded = p.now()
		}
		p.mu.Unlock()
		if !p.checkpoint(runID, nil) {
			return
		}

		p.emit(EventBatchResults, BatchResults{Batch: batchNum, Completed: completed, Failed: failed})

		p.mu.Lock()
		more := len(p.queue) > 0
		p.mu.Unlock()
		if !more {
			continue
		}

		p.emit(EventWaitingNextBatch, WaitingNextBatch{Delay: p.cfg.DelayBetweenBatches, NextBatch: batchNum + 1})
		p.logger.WithField("delay", p.cfg.DelayBetweenBatches).Info("Waiting before next batch")
		if !p.cooldown(waitCtx, runID, p.cfg.DelayBetweenBatches) {
			return
		}
	}
}

// finishCooldown waits out what is left of the delay when a run paused between
// batches is resumed
func (p *Processor) finishCooldown(waitCtx context.Context, runID int) bool {
	p.mu.Lock()
	if p.batchEnded.IsZero() || len(p.queue) == 0 {
		p.mu.Unlock()
		return true
	}
	left := p.batchEnded.Add(p.cfg.DelayBetweenBatches).Sub(p.now())
	next := p.currentBatch + 1
	p.mu.Unlock()

	if left <= 0 {
		return true
	}
	p.emit(EventWaitingNextBatch, WaitingNextBatch{Delay: left, NextBatch: next})
	p.logger.WithField("delay", left).Info("Waiting out the remaining cooldown")
	return p.cooldown(waitCtx, runID, left)
}

func (p *Processor) cooldown(waitCtx context.Context, runID int, d time.Duration) bool {
	if err := p.sleep(waitCtx, d); err != nil {
		p.logger.WithError(err).Debug("Cooldown interrupted")
		p.mu.Lock()
		if p.runID == runID {
			p.loopRunning = false
		}
		p.mu.Unlock()
		return false
	}

	p.mu.Lock()
	if p.runID == runID {
		p.batchEnded = time.Time{}
	}
	p.mu.Unlock()
	return true
}

// checkpoint stops the loop on pause or cancel. On pause the unstarted items
// go back to the head of the queue.
func (p *Processor) checkpoint(runID int, unstarted []Item) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active(runID) {
		return true
	}
	if p.runID != runID {
		return false
	}
	if p.running && p.paused && len(unstarted) > 0 {
		p.queue = append(append([]Item(nil), unstarted...), p.queue...)
	}
	p.loopRunning = false
	return false
}

// nextBatch takes the next batch off the queue, or finishes the run when the queue is empty
func (p *Processor) nextBatch(ctx context.Context, runID int) ([]Item, int, int, bool) {
	p.mu.Lock()
	if !p.active(runID) {
		if p.runID == runID {
			p.loopRunning = false
		}
		p.mu.Unlock()
		return nil, 0, 0, false
	}

	if len(p.queue) == 0 {
		p.running = false
		p.loopRunning = false
		p.status = StatusCompleted
		p.session.SetStatus(models.SessionCompleted, p.now())
		snapshot := cloneSession(p.session)
		result := AllBatchesCompleted{Completed: p.completed, Failed: p.failed, Total: p.runTotal}
		if p.cancelWait != nil {
			defer p.cancelWait()
		}
		p.mu.Unlock()

		p.saveSession(ctx, snapshot)
		p.logger.WithFields(logrus.Fields{
			"completed": result.Completed,
			"failed":    result.Failed,
		}).Info("All batches completed")
		p.emit(EventAllBatchesCompleted, result)
		return nil, 0, 0, false
	}

	n := p.batchSize()
	if n > len(p.queue) {
		n = len(p.queue)
	}
	batch := p.queue[:n:n]
	p.queue = p.queue[n:]
	p.batchEnded = time.Time{}
	p.currentBatch++
	batchNum, totalBatches := p.currentBatch, p.totalBatches
	depth := len(p.queue)
	p.mu.Unlock()

	observability.BatchQueueDepth.Set(float64(depth))
	return batch, batchNum, totalBatches, true
}

// processItem generates and applies content for one item; failures are recorded, never returned
func (p *Processor) processItem(ctx context.Context, runID int, item Item) bool {
	p.mu.Lock()
	index := p.completed + p.failed + 1
	total := p.runTotal
	style := p.style
	p.mu.Unlock()

	p.emit(EventItemProcessing, ItemProcessing{ItemID: item.ID, Name: item.Name, Index: index, Total: total})
	logger := p.logger.WithFields(logrus.Fields{
		"item_id": item.ID,
		"index":   index,
		"total":   total,
	})

	start := p.now()
	content, err := p.generator.Generate(ctx, item, style)
	if err != nil {
		err = fmt.Errorf("generation failed: %w", err)
	} else if applyErr := p.updater.ApplyContent(ctx, item.ID, content); applyErr != nil {
		err = fmt.Errorf("update failed: %w", applyErr)
	}
	elapsed := p.now().Sub(start)

	p.mu.Lock()
	now := p.now()
	if err != nil {
		p.session.MarkFailed(item.ID, now)
		if p.runID == runID {
			p.failed++
		}
	} else {
		p.session.MarkProcessed(item.ID, now)
		if p.runID == runID {
			p.completed++
			p.itemTime += elapsed
			p.timedItems++
		}
	}
	snapshot := cloneSession(p.session)
	p.mu.Unlock()

	p.saveSession(ctx, snapshot)

	if err != nil {
		observability.BatchItemsTotal.WithLabelValues("failed").Inc()
		logger.WithError(err).Warn("Item failed")
		p.emit(EventItemFailed, ItemFailed{ItemID: item.ID, Error: err.Error()})
	} else {
		observability.BatchItemsTotal.WithLabelValues("completed").Inc()
		logger.WithField("elapsed", elapsed).Info("Item completed")
		p.emit(EventItemCompleted, ItemCompleted{ItemID: item.ID, Content: content})
	}
	p.publishProgress()
	return err == nil
}

// Pause stops the run after the item in flight. It fails when nothing is running.
func (p *Processor) Pause() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return errors.ErrBatchNotRunning
	}
	if p.paused {
		p.mu.Unlock()
		return nil
	}
	p.paused = true
	p.status = StatusPaused
	p.session.SetStatus(models.SessionPaused, p.now())
	snapshot := cloneSession(p.session)
	ctx := p.workCtx
	p.mu.Unlock()

	p.saveSession(ctx, snapshot)
	p.logger.Info("Batch run paused")
	p.emit(EventBatchPaused, p.GetProgress())
	return nil
}

// Resume continues a paused run from the head of the queue
func (p *Processor) Resume() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return errors.ErrBatchNotRunning
	}
	if !p.paused {
		p.mu.Unlock()
		return nil
	}
	p.paused = false
	p.status = StatusProcessing
	p.totalBatches = p.currentBatch + batchesFor(len(p.queue), p.batchSize())
	p.session.SetStatus(models.SessionActive, p.now())
	snapshot := cloneSession(p.session)
	ctx := p.workCtx
	if !p.loopRunning {
		p.loopRunning = true
		p.wg.Add(1)
		go p.loop(ctx, p.waitCtx, p.runID)
	}
	p.mu.Unlock()

	p.saveSession(ctx, snapshot)
	p.logger.Info("Batch run resumed")
	p.emit(EventBatchResumed, p.GetProgress())
	return nil
}

// Cancel empties the queue and stops the run once the item in flight has
// finished. Persisted ids are kept.
func (p *Processor) Cancel() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return errors.ErrBatchNotRunning
	}
	p.running = false
	p.paused = false
	p.status = StatusCancelled
	p.queue = nil
	if p.cancelWait != nil {
		p.cancelWait()
	}
	p.mu.Unlock()

	observability.BatchQueueDepth.Set(0)
	p.logger.Info("Batch run cancelled")
	p.emit(EventBatchCancelled, p.GetProgress())
	return nil
}

// Wait blocks until the batch loop goroutine exits
func (p *Processor) Wait() {
	p.wg.Wait()
}

// IsRunning reports whether a run is in progress, paused or not
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// GetProgress returns a snapshot of the current run
func (p *Processor) GetProgress() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress := Progress{
		Total:        p.originalTotal,
		Failed:       p.failed,
		Remaining:    p.runTotal - p.completed - p.failed,
		CurrentBatch: p.currentBatch,
		TotalBatches: p.totalBatches,
		Status:       p.status,
	}
	if p.session != nil {
		progress.Completed = len(p.session.ProcessedItemIDs)
	}
	if progress.Remaining < 0 || p.status == StatusCancelled {
		progress.Remaining = 0
	}

	if p.timedItems > 0 {
		avg := p.itemTime / time.Duration(p.timedItems)
		remainingBatches := batchesFor(progress.Remaining, p.batchSize())
		eta := time.Duration(progress.Remaining) * avg
		if remainingBatches > 1 {
			eta += time.Duration(remainingBatches-1) * p.cfg.DelayBetweenBatches
		}
		progress.EstimatedTimeRemaining = &eta
	}

	return progress
}

// Session returns the persisted session, or nil when none exists
func (p *Processor) Session(ctx context.Context) (*models.BatchSession, error) {
	return p.sessions.Load(ctx)
}

// ResetSession forgets every processed and failed id. It is rejected while a
// run is active or a cancelled run still has an item in flight.
func (p *Processor) ResetSession(ctx context.Context) error {
	p.mu.Lock()
	if p.running || p.loopRunning {
		remaining := len(p.queue)
		p.mu.Unlock()
		return errors.NewBatchInProgressError(remaining)
	}
	p.session = nil
	p.status = StatusIdle
	p.mu.Unlock()

	if err := p.sessions.Clear(ctx); err != nil {
		return err
	}
	p.logger.Info("Batch session reset")
	return nil
}

// ExportSession returns the persisted session as JSON
func (p *Processor) ExportSession(ctx context.Context) ([]byte, error) {
	session, err := p.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.NewNotFoundError("no batch session", nil)
	}
	return json.MarshalIndent(session, "", "  ")
}

func (p *Processor) saveSession(ctx context.Context, session *models.BatchSession) {
	if err := p.sessions.Save(ctx, session); err != nil {
		p.logger.WithError(err).Error("Failed to persist batch session")
	}
}

func cloneSession(s *models.BatchSession) *models.BatchSession {
	c := *s
	c.ProcessedItemIDs = make(map[int64]struct{}, len(s.ProcessedItemIDs))
	for id := range s.ProcessedItemIDs {
		c.ProcessedItemIDs[id] = struct{}{}
	}
	c.FailedItemIDs = make(map[int64]struct{}, len(s.FailedItemIDs))
	for id := range s.FailedItemIDs {
		c.FailedItemIDs[id] = struct{}{}
	}
	return &c
}
