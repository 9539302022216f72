package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"giftcanvas-api/internal/model"
)

// In-memory implementations of the event log, gift ledger, job queue and
// account repositories. Use them for development and testing or
// single-instance deployments without Redis. Semantics mirror the Redis
// implementations, including the log cap and FIFO queue order.

// MemoryEventLog is an in-memory EventLogRepository.
type MemoryEventLog struct {
	mu   sync.Mutex
	logs map[string][]model.LogEntry // newest-first
}

// NewMemoryEventLog creates an empty in-memory event log.
func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{logs: make(map[string][]model.LogEntry)}
}

// Append writes a log entry and trims the log to its cap.
func (m *MemoryEventLog) Append(ctx context.Context, accountID string, entry model.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := append([]model.LogEntry{entry}, m.logs[accountID]...)
	if len(log) > MaxLogEntries {
		log = log[:MaxLogEntries]
	}
	m.logs[accountID] = log
	return nil
}

// List returns log entries newest-first.
func (m *MemoryEventLog) List(ctx context.Context, accountID string) ([]model.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]model.LogEntry, len(m.logs[accountID]))
	copy(entries, m.logs[accountID])
	return entries, nil
}

// MemoryGiftLedger is an in-memory GiftLedgerRepository.
type MemoryGiftLedger struct {
	mu     sync.Mutex
	gifted map[string]map[string]struct{}
}

// NewMemoryGiftLedger creates an empty in-memory gift ledger.
func NewMemoryGiftLedger() *MemoryGiftLedger {
	return &MemoryGiftLedger{gifted: make(map[string]map[string]struct{})}
}

// MarkGift records a gift from the viewer. Idempotent.
func (m *MemoryGiftLedger) MarkGift(ctx context.Context, accountID, viewer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.gifted[accountID]
	if !ok {
		set = make(map[string]struct{})
		m.gifted[accountID] = set
	}
	set[viewer] = struct{}{}
	return nil
}

// HasGifted reports whether the viewer has gifted on this account.
func (m *MemoryGiftLedger) HasGifted(ctx context.Context, accountID, viewer string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.gifted[accountID][viewer]
	return ok, nil
}

// GiftedViewers returns the viewers who have gifted, unordered.
func (m *MemoryGiftLedger) GiftedViewers(ctx context.Context, accountID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	viewers := make([]string, 0, len(m.gifted[accountID]))
	for viewer := range m.gifted[accountID] {
		viewers = append(viewers, viewer)
	}
	return viewers, nil
}

// MemoryJobQueue is an in-memory JobQueueRepository.
type MemoryJobQueue struct {
	mu       sync.Mutex
	queues   map[string][]string // serialized jobs, head-first
	signals  map[string]chan struct{}
	jobState map[string]model.Job
}

// NewMemoryJobQueue creates an empty in-memory job queue.
func NewMemoryJobQueue() *MemoryJobQueue {
	return &MemoryJobQueue{
		queues:   make(map[string][]string),
		signals:  make(map[string]chan struct{}),
		jobState: make(map[string]model.Job),
	}
}

// signalLocked returns the account's push-notification channel.
// Callers must hold m.mu.
func (m *MemoryJobQueue) signalLocked(accountID string) chan struct{} {
	ch, ok := m.signals[accountID]
	if !ok {
		ch = make(chan struct{}, 1)
		m.signals[accountID] = ch
	}
	return ch
}

// Push appends a job to the queue tail and wakes a blocked Pop.
func (m *MemoryJobQueue) Push(ctx context.Context, accountID string, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}
	return m.PushRaw(ctx, accountID, string(data))
}

// PushRaw appends an already-serialized payload to the queue tail. Tests
// use it to inject malformed rows.
func (m *MemoryJobQueue) PushRaw(ctx context.Context, accountID, raw string) error {
	m.mu.Lock()
	m.queues[accountID] = append(m.queues[accountID], raw)
	sig := m.signalLocked(accountID)
	m.mu.Unlock()

	select {
	case sig <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the queue head, blocking up to wait.
func (m *MemoryJobQueue) Pop(ctx context.Context, accountID string, wait time.Duration) (*model.Job, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		m.mu.Lock()
		queue := m.queues[accountID]
		if len(queue) > 0 {
			row := queue[0]
			m.queues[accountID] = queue[1:]
			m.mu.Unlock()

			var job model.Job
			if err := json.Unmarshal([]byte(row), &job); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
			}
			return &job, nil
		}
		sig := m.signalLocked(accountID)
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-sig:
		}
	}
}

// List returns queued jobs head-first. Undecodable rows are skipped.
func (m *MemoryJobQueue) List(ctx context.Context, accountID string) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]model.Job, 0, len(m.queues[accountID]))
	for _, row := range m.queues[accountID] {
		var job model.Job
		if err := json.Unmarshal([]byte(row), &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// SaveState persists the job's current state.
func (m *MemoryJobQueue) SaveState(ctx context.Context, accountID string, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobState[accountID+":"+job.JobID] = *job
	return nil
}

// JobState returns the saved state for a job, if any. Test helper.
func (m *MemoryJobQueue) JobState(accountID, jobID string) (model.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobState[accountID+":"+jobID]
	return job, ok
}

// MemoryAccountRepository is an in-memory AccountRepository.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]map[string]*model.Account // userID -> accountID
	order    map[string][]string
}

// NewMemoryAccountRepository creates an empty in-memory account repository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]map[string]*model.Account),
		order:    make(map[string][]string),
	}
}

// Create registers a new account under its tenant.
func (m *MemoryAccountRepository) Create(ctx context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.accounts[account.UserID]
	if !ok {
		byID = make(map[string]*model.Account)
		m.accounts[account.UserID] = byID
	}
	clone := *account
	byID[account.ID] = &clone
	m.order[account.UserID] = append(m.order[account.UserID], account.ID)
	return nil
}

// Get returns the account or nil when it does not exist.
func (m *MemoryAccountRepository) Get(ctx context.Context, userID, accountID string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[userID][accountID]
	if !ok {
		return nil, nil
	}
	clone := *account
	return &clone, nil
}

// Update overwrites the account record.
func (m *MemoryAccountRepository) Update(ctx context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.UserID][account.ID]; !ok {
		return fmt.Errorf("account not found: %s", account.ID)
	}
	clone := *account
	m.accounts[account.UserID][account.ID] = &clone
	return nil
}

// Delete removes the account.
func (m *MemoryAccountRepository) Delete(ctx context.Context, userID, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.accounts[userID], accountID)
	order := m.order[userID]
	for i, id := range order {
		if id == accountID {
			m.order[userID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns the tenant's accounts in creation order.
func (m *MemoryAccountRepository) List(ctx context.Context, userID string) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]model.Account, 0, len(m.order[userID]))
	for _, id := range m.order[userID] {
		if account, ok := m.accounts[userID][id]; ok {
			accounts = append(accounts, *account)
		}
	}
	return accounts, nil
}

var (
	_ EventLogRepository   = (*MemoryEventLog)(nil)
	_ GiftLedgerRepository = (*MemoryGiftLedger)(nil)
	_ JobQueueRepository   = (*MemoryJobQueue)(nil)
	_ AccountRepository    = (*MemoryAccountRepository)(nil)
)
