package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"giftcanvas-api/internal/livefeed"
	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/realtime"
	"giftcanvas-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryArchive is a minimal in-memory job archive for tests.
type memoryArchive struct {
	mu   sync.Mutex
	jobs map[string][]model.Job
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{jobs: make(map[string][]model.Job)}
}

func (a *memoryArchive) SaveCompleted(ctx context.Context, accountID string, job *model.Job) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs[accountID] = append(a.jobs[accountID], *job)
	return nil
}

func (a *memoryArchive) ListCompleted(ctx context.Context, accountID string, limit int) ([]model.Job, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Job, len(a.jobs[accountID]))
	copy(out, a.jobs[accountID])
	return out, nil
}

func (a *memoryArchive) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

func (a *memoryArchive) Close() error { return nil }

type workerFixture struct {
	manager   *WorkerManager
	listeners *ListenerService
	conn      *livefeed.SimConnection
	ledger    *repository.MemoryGiftLedger
	queue     *repository.MemoryJobQueue
	logs      *repository.MemoryEventLog
	archive   *memoryArchive
	processor *recordingProcessor
	hub       *realtime.Hub
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	f := &workerFixture{
		conn:      livefeed.NewSimConnection(),
		ledger:    repository.NewMemoryGiftLedger(),
		queue:     repository.NewMemoryJobQueue(),
		logs:      repository.NewMemoryEventLog(),
		archive:   newMemoryArchive(),
		processor: newRecordingProcessor(),
		hub:       realtime.NewHub(),
	}
	logService := NewEventLogService(f.logs, f.hub)
	f.listeners = NewListenerService(&scriptedProvider{conn: f.conn}, f.ledger, f.queue, logService, f.hub, time.Second)
	consumer := NewQueueConsumer(f.queue, f.archive, logService, f.processor, 20*time.Millisecond)
	f.manager = NewWorkerManager(f.listeners, consumer, logService, f.hub)
	return f
}

func testAccount() *model.Account {
	return &model.Account{
		ID:       "A1",
		UserID:   "u1",
		Username: "alice_streams",
		Status:   model.StatusStopped,
	}
}

func TestManagerStartIsIdempotent(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	account := testAccount()
	defer f.manager.Stop(ctx, account)

	assert.Equal(t, model.StatusRunning, f.manager.Start(ctx, account))
	assert.Equal(t, model.StatusRunning, f.manager.Start(ctx, account))
	assert.Equal(t, model.StatusRunning, f.manager.Status(account.ID))

	infos := f.manager.List()
	require.Len(t, infos, 1)
	assert.Equal(t, account.ID, infos[0].AccountID)
}

func TestManagerStopIsIdempotent(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	account := testAccount()

	f.manager.Start(ctx, account)

	assert.Equal(t, model.StatusStopped, f.manager.Stop(ctx, account))
	assert.Equal(t, model.StatusStopped, f.manager.Stop(ctx, account))
	assert.Equal(t, model.StatusStopped, f.manager.Status(account.ID))
}

func TestManagerStatusWithoutWorker(t *testing.T) {
	f := newWorkerFixture(t)

	assert.Equal(t, model.StatusStopped, f.manager.Status("A1"))
}

func TestManagerPublishesStatusChanges(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	account := testAccount()

	messages, unsubscribe := f.hub.Subscribe(realtime.UserTopic(account.UserID))
	defer unsubscribe()

	f.manager.Start(ctx, account)

	select {
	case msg := <-messages:
		assert.Equal(t, realtime.TypeStatus, msg.Type)
		assert.Equal(t, account.ID, msg.AccountID)
		assert.Equal(t, model.StatusRunning, msg.Status)
	case <-time.After(time.Second):
		t.Fatal("no status message after start")
	}

	f.manager.Stop(ctx, account)

	select {
	case msg := <-messages:
		assert.Equal(t, realtime.TypeStatus, msg.Type)
		assert.Equal(t, model.StatusStopped, msg.Status)
	case <-time.After(time.Second):
		t.Fatal("no status message after stop")
	}
}

func TestManagerStartPropagatesConnectFailure(t *testing.T) {
	f := newWorkerFixture(t)
	logService := NewEventLogService(f.logs, f.hub)
	listeners := NewListenerService(&scriptedProvider{err: context.DeadlineExceeded}, f.ledger, f.queue, logService, f.hub, time.Second)
	consumer := NewQueueConsumer(f.queue, nil, logService, f.processor, 20*time.Millisecond)
	manager := NewWorkerManager(listeners, consumer, logService, f.hub)

	status := manager.Start(context.Background(), testAccount())
	assert.Equal(t, model.StatusError, status)

	// A failed start leaves no worker behind.
	assert.Empty(t, manager.List())
	assert.Equal(t, model.StatusStopped, manager.Status("A1"))
}

func TestPipelineGiftToCompletedJob(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	account := testAccount()
	defer f.manager.Stop(ctx, account)

	require.Equal(t, model.StatusRunning, f.manager.Start(ctx, account))

	f.conn.Emit(livefeed.GiftEvent{Viewer: "alice", GiftName: "Rose"})
	f.conn.Emit(livefeed.ChatEvent{Viewer: "alice", Comment: "draw https://cdn.example.com/cat.png"})

	require.Eventually(t, func() bool {
		return len(f.processor.processed()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The queue drains and the completed job lands in the archive.
	jobs, err := f.queue.List(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	archived, err := f.archive.ListCompleted(ctx, account.ID, 0)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "alice", archived[0].User)
	assert.Equal(t, model.JobStatusDone, archived[0].Status)
}

func TestManagerStopHaltsConsumption(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	account := testAccount()

	require.Equal(t, model.StatusRunning, f.manager.Start(ctx, account))
	f.manager.Stop(ctx, account)

	// Give the cancelled consumer a pop cycle to wind down, then verify
	// newly queued work stays untouched.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, f.queue.Push(ctx, account.ID, &model.Job{
		JobID:  "j-late",
		User:   "alice",
		Status: model.JobStatusPending,
	}))
	time.Sleep(100 * time.Millisecond)

	jobs, err := f.queue.List(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j-late", jobs[0].JobID)
}

// blockingProvider parks the first Connect until released so tests can
// land calls inside the connect window; later connects pass through.
type blockingProvider struct {
	conn    *livefeed.SimConnection
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingProvider) Connect(ctx context.Context, handle string) (livefeed.Connection, error) {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return p.conn, nil
}

func TestStopDuringConnectUnwindsPipeline(t *testing.T) {
	f := newWorkerFixture(t)
	provider := &blockingProvider{
		conn:    f.conn,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	logService := NewEventLogService(f.logs, f.hub)
	listeners := NewListenerService(provider, f.ledger, f.queue, logService, f.hub, time.Second)
	consumer := NewQueueConsumer(f.queue, nil, logService, f.processor, 20*time.Millisecond)
	manager := NewWorkerManager(listeners, consumer, logService, f.hub)

	ctx := context.Background()
	account := testAccount()

	started := make(chan string, 1)
	go func() { started <- manager.Start(ctx, account) }()

	// Stop lands while the start is still connecting.
	<-provider.entered
	assert.Equal(t, model.StatusStopped, manager.Stop(ctx, account))
	close(provider.release)

	select {
	case status := <-started:
		assert.Equal(t, model.StatusStopped, status)
	case <-time.After(time.Second):
		t.Fatal("start did not return")
	}

	// Nothing survives the race: no worker, no listener, no consumer.
	assert.Empty(t, manager.List())
	assert.Equal(t, model.StatusStopped, manager.Status(account.ID))
	assert.Equal(t, model.StatusStopped, listeners.Status(account.ID))

	require.NoError(t, f.queue.Push(ctx, account.ID, &model.Job{
		JobID:  "j-race",
		User:   "alice",
		Status: model.JobStatusPending,
	}))
	time.Sleep(100 * time.Millisecond)
	jobs, err := f.queue.List(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j-race", jobs[0].JobID)

	// The tombstone was consumed: a later start on the same manager runs.
	assert.Equal(t, model.StatusRunning, manager.Start(ctx, account))
	manager.Stop(ctx, account)
}

func TestManagerStopAll(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	account := testAccount()

	f.manager.Start(ctx, account)
	require.Len(t, f.manager.List(), 1)

	f.manager.StopAll(ctx)

	assert.Empty(t, f.manager.List())
	assert.Equal(t, model.StatusStopped, f.manager.Status(account.ID))
}
