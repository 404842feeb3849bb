package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/site-sync/internal/config"
	"github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/testutil"
)

// fakeGenerator records calls and fails for the configured ids
type fakeGenerator struct {
	mu     sync.Mutex
	calls  []int64
	fail   map[int64]bool
	before func(item Item)
}

func (g *fakeGenerator) Generate(ctx context.Context, item Item, style string) (*models.GeneratedContent, error) {
	if g.before != nil {
		g.before(item)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, item.ID)
	if g.fail[item.ID] {
		return nil, fmt.Errorf("quota exceeded for %d", item.ID)
	}
	return &models.GeneratedContent{Title: fmt.Sprintf("%s (%s)", item.Name, style)}, nil
}

func (g *fakeGenerator) Calls() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.calls...)
}

type fakeUpdater struct {
	mu      sync.Mutex
	applied []int64
}

func (u *fakeUpdater) ApplyContent(ctx context.Context, itemID int64, content *models.GeneratedContent) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.applied = append(u.applied, itemID)
	return nil
}

// recordingSleeper returns immediately and remembers each requested delay
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) OfType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func makeItems(ids ...int64) []Item {
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, Item{ID: id, Name: fmt.Sprintf("Product %d", id)})
	}
	return items
}

func itemRange(n int) []Item {
	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, int64(i))
	}
	return makeItems(ids...)
}

type harness struct {
	proc     *Processor
	gen      *fakeGenerator
	upd      *fakeUpdater
	sleeper  *recordingSleeper
	sessions *MemorySessionStore
	events   *eventRecorder
}

func newHarness(t *testing.T, opts ...Option) *harness {
	h := &harness{
		gen:      &fakeGenerator{fail: map[int64]bool{}},
		upd:      &fakeUpdater{},
		sleeper:  &recordingSleeper{},
		sessions: NewMemorySessionStore(),
		events:   &eventRecorder{},
	}
	opts = append([]Option{WithSleeper(h.sleeper.Sleep), WithLogger(testutil.NewLogger())}, opts...)
	h.proc = NewProcessor(h.gen, h.upd, h.sessions, config.DefaultBatchConfig(), opts...)
	h.proc.Subscribe(h.events.Handle)
	return h
}

func TestStart_SkipsProcessedItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session := models.NewBatchSession("prev", time.Now(), 5)
	for _, id := range []int64{1, 2, 3} {
		session.MarkProcessed(id, time.Now())
	}
	require.NoError(t, h.sessions.Save(ctx, session))

	require.NoError(t, h.proc.Start(ctx, makeItems(1, 2, 3, 4, 5), "friendly"))
	h.proc.Wait()

	assert.Equal(t, []int64{4, 5}, h.gen.Calls())

	progress := h.proc.GetProgress()
	assert.Equal(t, 5, progress.Total)
	assert.Equal(t, 5, progress.Completed)
	assert.Equal(t, 0, progress.Failed)
	assert.Equal(t, StatusCompleted, progress.Status)

	stored, err := h.sessions.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, stored.Status)
	assert.Equal(t, "prev", stored.ID)
}

func TestStart_AllAlreadyProcessed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session := models.NewBatchSession("prev", time.Now(), 2)
	session.MarkProcessed(1, time.Now())
	session.MarkProcessed(2, time.Now())
	require.NoError(t, h.sessions.Save(ctx, session))

	require.NoError(t, h.proc.Start(ctx, makeItems(1, 2), "friendly"))
	h.proc.Wait()

	assert.Empty(t, h.gen.Calls())
	done := h.events.OfType(EventBatchCompleted)
	require.Len(t, done, 1)
	assert.Equal(t, BatchCompleted{AllAlreadyProcessed: true, Total: 2}, done[0].Data)
	assert.False(t, h.proc.IsRunning())
}

func TestBatches_RespectRateLimit(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.proc.Start(context.Background(), itemRange(25), "friendly"))
	h.proc.Wait()

	started := h.events.OfType(EventBatchStarted)
	require.Len(t, started, 3)
	var sizes []int
	for _, e := range started {
		payload := e.Data.(BatchStarted)
		sizes = append(sizes, payload.ItemCount)
		assert.Equal(t, 3, payload.TotalBatches)
	}
	assert.Equal(t, []int{10, 10, 5}, sizes)

	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, h.sleeper.delays)
	assert.Len(t, h.events.OfType(EventWaitingNextBatch), 2)

	all := h.events.OfType(EventAllBatchesCompleted)
	require.Len(t, all, 1)
	assert.Equal(t, AllBatchesCompleted{Completed: 25, Failed: 0, Total: 25}, all[0].Data)
}

func TestBatches_IsolateFailures(t *testing.T) {
	h := newHarness(t)
	h.gen.fail[2] = true

	require.NoError(t, h.proc.Start(context.Background(), itemRange(10), "friendly"))
	h.proc.Wait()

	assert.Len(t, h.gen.Calls(), 10)
	assert.NotContains(t, h.upd.applied, int64(2))

	results := h.events.OfType(EventBatchResults)
	require.Len(t, results, 1)
	assert.Equal(t, BatchResults{Batch: 1, Completed: 9, Failed: 1}, results[0].Data)

	failed := h.events.OfType(EventItemFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, int64(2), failed[0].Data.(ItemFailed).ItemID)
	assert.Contains(t, failed[0].Data.(ItemFailed).Error, "quota exceeded")

	session, err := h.sessions.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, session.ProcessedItemIDs, 9)
	assert.Contains(t, session.FailedItemIDs, int64(2))
	assert.Equal(t, 1, h.proc.GetProgress().Failed)
}

func TestFailedItemsAreRetriedOnNextStart(t *testing.T) {
	h := newHarness(t)
	h.gen.fail[3] = true
	ctx := context.Background()

	require.NoError(t, h.proc.Start(ctx, itemRange(4), "friendly"))
	h.proc.Wait()

	delete(h.gen.fail, 3)
	require.NoError(t, h.proc.Start(ctx, itemRange(4), "friendly"))
	h.proc.Wait()

	assert.Equal(t, []int64{1, 2, 3, 4, 3}, h.gen.Calls())
	session, err := h.sessions.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, session.ProcessedItemIDs, 4)
	assert.Empty(t, session.FailedItemIDs)
}

func TestPause_StopsAfterCurrentItemAndResumeContinues(t *testing.T) {
	h := newHarness(t)
	h.gen.before = func(item Item) {
		if item.ID == 3 {
			assert.NoError(t, h.proc.Pause())
		}
	}

	require.NoError(t, h.proc.Start(context.Background(), itemRange(10), "friendly"))
	h.proc.Wait()

	assert.Equal(t, []int64{1, 2, 3}, h.gen.Calls())
	progress := h.proc.GetProgress()
	assert.Equal(t, StatusPaused, progress.Status)
	assert.Equal(t, 7, progress.Remaining)
	assert.True(t, h.proc.IsRunning())
	assert.Len(t, h.events.OfType(EventBatchPaused), 1)

	stored, err := h.sessions.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaused, stored.Status)

	h.gen.before = nil
	require.NoError(t, h.proc.Resume())
	h.proc.Wait()

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, h.gen.Calls())
	assert.Len(t, h.events.OfType(EventBatchResumed), 1)
	assert.Equal(t, StatusCompleted, h.proc.GetProgress().Status)

	started := h.events.OfType(EventBatchStarted)
	require.Len(t, started, 2)
	assert.Equal(t, 7, started[1].Data.(BatchStarted).ItemCount)
}

func TestPauseResume_RequireRunningBatch(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.proc.Pause(), errors.ErrBatchNotRunning)
	assert.ErrorIs(t, h.proc.Resume(), errors.ErrBatchNotRunning)
	assert.ErrorIs(t, h.proc.Cancel(), errors.ErrBatchNotRunning)
}

func TestCancel_KeepsPersistedIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gen.before = func(item Item) {
		if item.ID == 2 {
			assert.NoError(t, h.proc.Cancel())
		}
	}

	require.NoError(t, h.proc.Start(ctx, itemRange(5), "friendly"))
	h.proc.Wait()

	assert.Equal(t, []int64{1, 2}, h.gen.Calls())
	assert.Len(t, h.events.OfType(EventBatchCancelled), 1)
	assert.Empty(t, h.events.OfType(EventAllBatchesCompleted))
	assert.False(t, h.proc.IsRunning())

	h.gen.before = nil
	require.NoError(t, h.proc.Start(ctx, itemRange(5), "friendly"))
	h.proc.Wait()
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, h.gen.Calls())
}

func TestCancel_LetsItemInFlightFinish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gen.before = func(item Item) {
		if item.ID != 2 {
			return
		}
		assert.NoError(t, h.proc.Cancel())
		assert.True(t, errors.IsBatchInProgress(h.proc.ResetSession(ctx)))
		assert.True(t, errors.IsBatchInProgress(h.proc.Start(ctx, itemRange(5), "friendly")))
	}

	require.NoError(t, h.proc.Start(ctx, itemRange(5), "friendly"))
	h.proc.Wait()

	assert.Equal(t, []int64{1, 2}, h.gen.Calls())
	assert.Equal(t, []int64{1, 2}, h.upd.applied)
	assert.Empty(t, h.events.OfType(EventItemFailed))
	assert.Len(t, h.events.OfType(EventItemCompleted), 2)

	stored, err := h.sessions.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored.ProcessedItemIDs, 2)
	assert.Empty(t, stored.FailedItemIDs)

	require.NoError(t, h.proc.ResetSession(ctx))
	stored, err = h.sessions.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestCancel_PersistsItemInFlightToRedis(t *testing.T) {
	_, client := testutil.NewMiniredisClient(t)
	sessions := NewRedisSessionStore(client, "sitesync:batch:session")
	gen := &fakeGenerator{fail: map[int64]bool{}}
	sleeper := &recordingSleeper{}
	proc := NewProcessor(gen, &fakeUpdater{}, sessions, config.DefaultBatchConfig(),
		WithSleeper(sleeper.Sleep), WithLogger(testutil.NewLogger()))
	gen.before = func(item Item) {
		if item.ID == 1 {
			assert.NoError(t, proc.Cancel())
		}
	}

	require.NoError(t, proc.Start(context.Background(), itemRange(3), "friendly"))
	proc.Wait()

	stored, err := sessions.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, stored.ProcessedItemIDs, int64(1))
	assert.Empty(t, stored.FailedItemIDs)
}

func TestResume_WaitsOutRemainingCooldown(t *testing.T) {
	var mu sync.Mutex
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	h := newHarness(t, WithClock(now))
	h.proc.cfg = &config.BatchConfig{ItemsPerBatch: 2, DelayBetweenBatches: time.Minute}
	h.gen.before = func(item Item) {
		if item.ID == 2 {
			assert.NoError(t, h.proc.Pause())
		}
	}

	require.NoError(t, h.proc.Start(context.Background(), itemRange(4), "friendly"))
	h.proc.Wait()
	assert.Equal(t, []int64{1, 2}, h.gen.Calls())
	assert.Empty(t, h.sleeper.delays)

	mu.Lock()
	clock = clock.Add(20 * time.Second)
	mu.Unlock()

	h.gen.before = nil
	require.NoError(t, h.proc.Resume())
	h.proc.Wait()

	assert.Equal(t, []int64{1, 2, 3, 4}, h.gen.Calls())
	assert.Equal(t, []time.Duration{40 * time.Second}, h.sleeper.delays)
	waiting := h.events.OfType(EventWaitingNextBatch)
	require.Len(t, waiting, 1)
	assert.Equal(t, WaitingNextBatch{Delay: 40 * time.Second, NextBatch: 2}, waiting[0].Data)
}

func TestCancel_InterruptsCooldown(t *testing.T) {
	h := newHarness(t, WithSleeper(sleepContext))
	h.proc.cfg = &config.BatchConfig{ItemsPerBatch: 2, DelayBetweenBatches: time.Hour}

	waiting := make(chan struct{})
	var once sync.Once
	h.proc.Subscribe(func(e Event) {
		if e.Type == EventWaitingNextBatch {
			once.Do(func() { close(waiting) })
		}
	})

	require.NoError(t, h.proc.Start(context.Background(), itemRange(5), "friendly"))
	<-waiting
	require.NoError(t, h.proc.Cancel())

	finished := make(chan struct{})
	go func() {
		h.proc.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not interrupt the cooldown")
	}
	assert.Equal(t, []int64{1, 2}, h.gen.Calls())
}

func TestStart_RejectsSecondRun(t *testing.T) {
	h := newHarness(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.gen.before = func(item Item) {
		if item.ID == 1 {
			close(entered)
			<-release
		}
	}

	require.NoError(t, h.proc.Start(context.Background(), itemRange(3), "friendly"))
	<-entered

	err := h.proc.Start(context.Background(), itemRange(3), "friendly")
	assert.True(t, errors.IsBatchInProgress(err))
	assert.True(t, errors.IsBatchInProgress(h.proc.ResetSession(context.Background())))

	close(release)
	h.proc.Wait()
	assert.Len(t, h.gen.Calls(), 3)
}

func TestGetProgress_EstimatesRemainingTime(t *testing.T) {
	var mu sync.Mutex
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	h := newHarness(t, WithClock(now))
	h.gen.before = func(Item) {
		mu.Lock()
		clock = clock.Add(2 * time.Second)
		mu.Unlock()
	}

	assert.Nil(t, h.proc.GetProgress().EstimatedTimeRemaining)

	require.NoError(t, h.proc.Start(context.Background(), itemRange(12), "friendly"))
	h.proc.Wait()

	updates := h.events.OfType(EventProgressUpdate)
	require.Len(t, updates, 12)

	first := updates[0].Data.(Progress)
	assert.Equal(t, 11, first.Remaining)
	require.NotNil(t, first.EstimatedTimeRemaining)
	// 11 items at 2s plus one cooldown before the second batch
	assert.Equal(t, 11*2*time.Second+time.Minute, *first.EstimatedTimeRemaining)

	last := updates[11].Data.(Progress)
	require.NotNil(t, last.EstimatedTimeRemaining)
	assert.Equal(t, time.Duration(0), *last.EstimatedTimeRemaining)

	select {
	case latest := <-h.proc.Updates():
		assert.Equal(t, 12, latest.Completed)
	default:
		t.Fatal("expected a progress snapshot on the updates channel")
	}
}

func TestSessionExportAndReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.proc.ExportSession(ctx)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, h.proc.Start(ctx, makeItems(7, 3), "friendly"))
	h.proc.Wait()

	data, err := h.proc.ExportSession(ctx)
	require.NoError(t, err)

	var exported map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, []interface{}{float64(3), float64(7)}, exported["processedProductIds"])
	assert.Equal(t, float64(2), exported["totalProducts"])
	assert.Equal(t, "completed", exported["status"])

	require.NoError(t, h.proc.ResetSession(ctx))
	session, err := h.proc.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Equal(t, 0, h.proc.GetProgress().Completed)
}
