package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/realtime"
)

// workerEntry pairs one account's listener with its queue consumer task.
type workerEntry struct {
	accountID string
	userID    string
	username  string
	status    string
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan error
}

// WorkerManager is the single source of truth for which account
// pipelines are active. It enforces at most one listener/consumer pair
// per account and owns their cancellation handles.
type WorkerManager struct {
	listeners *ListenerService
	consumer  *QueueConsumer
	logs      *EventLogService
	hub       *realtime.Hub

	mu       sync.Mutex
	workers  map[string]*workerEntry
	starting map[string]struct{}

	// pendingStops records stops that arrived while a start was still
	// connecting; the start observes the tombstone and unwinds.
	pendingStops map[string]struct{}
}

// NewWorkerManager creates a worker manager.
func NewWorkerManager(listeners *ListenerService, consumer *QueueConsumer, logs *EventLogService, hub *realtime.Hub) *WorkerManager {
	return &WorkerManager{
		listeners:    listeners,
		consumer:     consumer,
		logs:         logs,
		hub:          hub,
		workers:      make(map[string]*workerEntry),
		starting:     make(map[string]struct{}),
		pendingStops: make(map[string]struct{}),
	}
}

// Start activates the account's pipeline. Calling it for an active
// account returns the current status without side effects; concurrent
// calls cannot create duplicate pipelines.
func (m *WorkerManager) Start(ctx context.Context, account *model.Account) string {
	m.mu.Lock()
	if w, ok := m.workers[account.ID]; ok {
		status := m.statusLocked(w)
		m.mu.Unlock()
		return status
	}
	if _, inflight := m.starting[account.ID]; inflight {
		m.mu.Unlock()
		return model.StatusAlreadyRunning
	}
	m.starting[account.ID] = struct{}{}
	m.mu.Unlock()

	// Any tombstone left for this account is moot once this attempt
	// resolves: a running worker is visible to Stop, and every other
	// outcome leaves nothing to unwind.
	defer func() {
		m.mu.Lock()
		delete(m.starting, account.ID)
		delete(m.pendingStops, account.ID)
		m.mu.Unlock()
	}()

	result := m.listeners.Start(ctx, account.ID, account.Username)
	if result.Status != model.StatusRunning {
		return result.Status
	}

	wctx, cancel := context.WithCancel(context.Background())
	w := &workerEntry{
		accountID: account.ID,
		userID:    account.UserID,
		username:  account.Username,
		status:    model.StatusRunning,
		startedAt: time.Now(),
		ctx:       wctx,
		cancel:    cancel,
		done:      make(chan error, 1),
	}

	m.mu.Lock()
	if _, stopRequested := m.pendingStops[account.ID]; stopRequested {
		// A stop raced the connect; unwind instead of registering.
		m.mu.Unlock()

		cancel()
		m.listeners.Stop(ctx, account.ID)
		m.publishStatus(account, model.StatusStopped)
		return model.StatusStopped
	}
	m.workers[account.ID] = w
	m.mu.Unlock()

	go func() {
		w.done <- m.consumer.Run(wctx, account.ID)
	}()
	go m.supervise(account.ID, w)

	m.publishStatus(account, model.StatusRunning)
	return model.StatusRunning
}

// Stop deactivates the account's pipeline. Cancellation is cooperative:
// the consumer observes it at its next pop boundary and Stop does not
// wait for the task to exit. Idempotent.
func (m *WorkerManager) Stop(ctx context.Context, account *model.Account) string {
	m.mu.Lock()
	w, ok := m.workers[account.ID]
	if !ok {
		if _, inflight := m.starting[account.ID]; inflight {
			m.pendingStops[account.ID] = struct{}{}
		}
		m.mu.Unlock()
		return model.StatusStopped
	}
	delete(m.workers, account.ID)
	m.mu.Unlock()

	w.cancel()
	m.listeners.Stop(ctx, account.ID)

	m.publishStatus(account, model.StatusStopped)
	return model.StatusStopped
}

// StopAll deactivates every active pipeline. Used on shutdown.
func (m *WorkerManager) StopAll(ctx context.Context) {
	m.mu.Lock()
	workers := make([]*workerEntry, 0, len(m.workers))
	for id, w := range m.workers {
		workers = append(workers, w)
		delete(m.workers, id)
	}
	m.mu.Unlock()

	for _, w := range workers {
		w.cancel()
		m.listeners.Stop(ctx, w.accountID)
		m.publishStatus(&model.Account{ID: w.accountID, UserID: w.userID, Username: w.username}, model.StatusStopped)
	}
}

// Status resolves the account's pipeline status: a cancelled worker is
// stopped regardless of stale state, then the worker entry, then the
// listener registry, then stopped.
func (m *WorkerManager) Status(accountID string) string {
	m.mu.Lock()
	w, ok := m.workers[accountID]
	if ok {
		status := m.statusLocked(w)
		m.mu.Unlock()
		return status
	}
	m.mu.Unlock()

	return m.listeners.Status(accountID)
}

// statusLocked resolves one entry's status. Callers must hold m.mu.
func (m *WorkerManager) statusLocked(w *workerEntry) string {
	if w.ctx.Err() != nil {
		return model.StatusStopped
	}
	if w.status != "" {
		return w.status
	}
	return model.StatusStopped
}

// List returns the active workers for display.
func (m *WorkerManager) List() []model.ListenerInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]model.ListenerInfo, 0, len(m.workers))
	for _, w := range m.workers {
		infos = append(infos, model.ListenerInfo{
			AccountID: w.accountID,
			Username:  w.username,
			Status:    m.statusLocked(w),
		})
	}
	return infos
}

// supervise observes the consumer task's exit. A cancellation exit is
// the normal stop path; anything else marks the worker degraded so the
// operator can see it and restart.
func (m *WorkerManager) supervise(accountID string, w *workerEntry) {
	err := <-w.done
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	log.Printf("[WorkerManager] Queue consumer for %s exited: %v", accountID, err)

	m.mu.Lock()
	if current, ok := m.workers[accountID]; ok && current == w {
		w.status = model.StatusError
	}
	m.mu.Unlock()

	if logErr := m.logs.Append(context.Background(), accountID, model.LogLevelError,
		fmt.Sprintf("queue consumer exited: %v", err)); logErr != nil {
		log.Printf("[WorkerManager] Failed to write log for %s: %v", accountID, logErr)
	}
}

// publishStatus emits a status-change notification scoped to the tenant.
func (m *WorkerManager) publishStatus(account *model.Account, status string) {
	m.hub.Publish(realtime.UserTopic(account.UserID), realtime.Message{
		Type:      realtime.TypeStatus,
		AccountID: account.ID,
		Status:    status,
	})
}
