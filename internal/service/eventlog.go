package service

import (
	"context"
	"time"

	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/realtime"
	"giftcanvas-api/internal/repository"
)

// EventLogService is the single write path for account event logs. Every
// append goes to the store (which trims and publishes for cross-process
// consumers) and to the in-process hub for connected dashboard streams,
// in call order.
type EventLogService struct {
	repo repository.EventLogRepository
	hub  *realtime.Hub
}

// NewEventLogService creates an event log service.
func NewEventLogService(repo repository.EventLogRepository, hub *realtime.Hub) *EventLogService {
	return &EventLogService{repo: repo, hub: hub}
}

// Append writes a log entry and broadcasts it.
func (s *EventLogService) Append(ctx context.Context, accountID, level, text string) error {
	entry := model.LogEntry{
		Time:  time.Now().UnixMilli(),
		Level: level,
		Text:  text,
	}

	err := s.repo.Append(ctx, accountID, entry)

	s.hub.Publish(realtime.AccountTopic(accountID), realtime.Message{
		Type:      realtime.TypeLog,
		AccountID: accountID,
		Time:      entry.Time,
		Level:     entry.Level,
		Text:      entry.Text,
	})

	return err
}

// List returns the account's log entries, newest-first.
func (s *EventLogService) List(ctx context.Context, accountID string) ([]model.LogEntry, error) {
	return s.repo.List(ctx, accountID)
}
