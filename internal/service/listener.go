package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"giftcanvas-api/internal/livefeed"
	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/realtime"
	"giftcanvas-api/internal/repository"
	"giftcanvas-api/pkg/uid"
)

// StartResult is the outcome of a listener start attempt.
type StartResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// listenerState tracks one active live connection. Status is guarded by
// the service mutex; the connection handle is owned exclusively by the
// dispatch goroutine once started.
type listenerState struct {
	conn      livefeed.Connection
	username  string
	status    string
	createdAt time.Time
	done      chan struct{}
}

// ListenerService owns at most one live connection per account and
// translates raw feed events into ledger, queue and log writes.
//
// There is no automatic reconnect: a mid-session disconnect parks the
// listener in the disconnected status and the operator resolves it with
// an explicit stop/start cycle.
type ListenerService struct {
	provider       livefeed.Provider
	ledger         repository.GiftLedgerRepository
	queue          repository.JobQueueRepository
	logs           *EventLogService
	hub            *realtime.Hub
	connectTimeout time.Duration

	mu        sync.Mutex
	listeners map[string]*listenerState
	starting  map[string]struct{}
}

// NewListenerService creates a listener service.
func NewListenerService(
	provider livefeed.Provider,
	ledger repository.GiftLedgerRepository,
	queue repository.JobQueueRepository,
	logs *EventLogService,
	hub *realtime.Hub,
	connectTimeout time.Duration,
) *ListenerService {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	return &ListenerService{
		provider:       provider,
		ledger:         ledger,
		queue:          queue,
		logs:           logs,
		hub:            hub,
		connectTimeout: connectTimeout,
		listeners:      make(map[string]*listenerState),
		starting:       make(map[string]struct{}),
	}
}

// Start establishes the live connection for an account. Calling it while
// a listener exists (or is connecting) is a no-op returning
// already_running. A failed connect registers nothing, so the caller may
// retry.
func (s *ListenerService) Start(ctx context.Context, accountID, username string) StartResult {
	s.mu.Lock()
	if _, exists := s.listeners[accountID]; exists {
		s.mu.Unlock()
		return StartResult{Status: model.StatusAlreadyRunning}
	}
	if _, inflight := s.starting[accountID]; inflight {
		s.mu.Unlock()
		return StartResult{Status: model.StatusAlreadyRunning}
	}
	s.starting[accountID] = struct{}{}
	s.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	conn, err := s.provider.Connect(connectCtx, username)
	cancel()

	if err != nil {
		s.mu.Lock()
		delete(s.starting, accountID)
		s.mu.Unlock()

		s.appendLog(ctx, accountID, model.LogLevelError, fmt.Sprintf("connection failed: %v", err))
		return StartResult{Status: model.StatusError, Error: err.Error()}
	}

	st := &listenerState{
		conn:      conn,
		username:  username,
		status:    model.StatusRunning,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.listeners[accountID] = st
	delete(s.starting, accountID)
	s.mu.Unlock()

	go s.dispatch(accountID, username, st)

	s.appendLog(ctx, accountID, model.LogLevelInfo, fmt.Sprintf("connected to live stream of @%s", username))
	return StartResult{Status: model.StatusRunning}
}

// Stop disconnects and deregisters the account's listener. Disconnect
// failures are logged but never leave a dangling registry entry.
func (s *ListenerService) Stop(ctx context.Context, accountID string) StartResult {
	s.mu.Lock()
	st, ok := s.listeners[accountID]
	if !ok {
		s.mu.Unlock()
		return StartResult{Status: model.StatusNotRunning}
	}
	delete(s.listeners, accountID)
	s.mu.Unlock()

	if err := st.conn.Disconnect(ctx); err != nil {
		s.appendLog(ctx, accountID, model.LogLevelError, fmt.Sprintf("disconnect failed: %v", err))
	}

	s.appendLog(ctx, accountID, model.LogLevelInfo, fmt.Sprintf("listener stopped for account %s", accountID))
	return StartResult{Status: model.StatusStopped}
}

// Status returns the listener status, stopped when absent.
func (s *ListenerService) Status(accountID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.listeners[accountID]; ok {
		return st.status
	}
	return model.StatusStopped
}

// List returns the registered listeners for display.
func (s *ListenerService) List() []model.ListenerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]model.ListenerInfo, 0, len(s.listeners))
	for accountID, st := range s.listeners {
		infos = append(infos, model.ListenerInfo{
			AccountID: accountID,
			Username:  st.username,
			Status:    st.status,
		})
	}
	return infos
}

// dispatch consumes the connection's event stream one event at a time, so
// handlers for one connection never run concurrently. A handler error is
// logged and the loop continues; the loop exits when the stream closes.
func (s *ListenerService) dispatch(accountID, username string, st *listenerState) {
	defer close(st.done)

	ctx := context.Background()
	for ev := range st.conn.Events() {
		var err error
		switch e := ev.(type) {
		case livefeed.GiftEvent:
			err = s.handleGift(ctx, accountID, e)
		case livefeed.ChatEvent:
			err = s.handleChat(ctx, accountID, e)
		case livefeed.StreamEndEvent:
			s.setStatus(accountID, model.StatusEnded)
			s.appendLog(ctx, accountID, model.LogLevelInfo, fmt.Sprintf("live stream of @%s has ended", username))
		case livefeed.DisconnectEvent:
			s.setStatus(accountID, model.StatusDisconnected)
			s.appendLog(ctx, accountID, model.LogLevelWarn, fmt.Sprintf("lost connection to @%s", username))
		}

		if err != nil {
			s.appendLog(ctx, accountID, model.LogLevelError, fmt.Sprintf("event handling failed: %v", err))
		}
	}
}

// handleGift records the viewer in the gift ledger.
func (s *ListenerService) handleGift(ctx context.Context, accountID string, ev livefeed.GiftEvent) error {
	if err := s.ledger.MarkGift(ctx, accountID, ev.Viewer); err != nil {
		return fmt.Errorf("mark gift: %w", err)
	}
	s.appendLog(ctx, accountID, model.LogLevelGift, fmt.Sprintf("%s sent %s", ev.Viewer, ev.GiftName))
	return nil
}

// handleChat enqueues a drawing job when the comment carries an image URL
// and the viewer has already gifted. Non-gifting chatters are ignored;
// that is the core business rule, not an error.
func (s *ListenerService) handleChat(ctx context.Context, accountID string, ev livefeed.ChatEvent) error {
	imageURL, ok := ExtractImageURL(ev.Comment)
	if !ok {
		return nil
	}

	gifted, err := s.ledger.HasGifted(ctx, accountID, ev.Viewer)
	if err != nil {
		return fmt.Errorf("check gift ledger: %w", err)
	}
	if !gifted {
		return nil
	}

	job := &model.Job{
		JobID:     uid.NewJobID(),
		User:      ev.Viewer,
		ImageURL:  imageURL,
		Status:    model.JobStatusPending,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := s.queue.Push(ctx, accountID, job); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	s.appendLog(ctx, accountID, model.LogLevelQueue, fmt.Sprintf("image from @%s queued", ev.Viewer))

	s.hub.Publish(realtime.AccountTopic(accountID), realtime.Message{
		Type:      realtime.TypeNewJob,
		AccountID: accountID,
		User:      job.User,
		ImageURL:  job.ImageURL,
		JobID:     job.JobID,
	})
	s.appendLog(ctx, accountID, model.LogLevelQueue, fmt.Sprintf("job from @%s dispatched to plugin clients", ev.Viewer))

	return nil
}

// setStatus updates a registered listener's status. No-op once the entry
// has been removed by Stop.
func (s *ListenerService) setStatus(accountID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.listeners[accountID]; ok {
		st.status = status
	}
}

// appendLog writes a log entry, reporting (not propagating) failures.
func (s *ListenerService) appendLog(ctx context.Context, accountID, level, text string) {
	if err := s.logs.Append(ctx, accountID, level, text); err != nil {
		log.Printf("[ListenerService] Failed to write log for %s: %v", accountID, err)
	}
}
