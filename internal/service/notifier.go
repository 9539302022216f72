package service

import (
	"context"
	"fmt"

	"giftcanvas-api/internal/model"
)

// Notifier sends messages to viewers. Delivery over the live platform's
// messaging API is an external collaborator; the pipeline records the
// attempt in the event log so the dashboard can show it.
type Notifier struct {
	logs *EventLogService
}

// NewNotifier creates a notifier.
func NewNotifier(logs *EventLogService) *Notifier {
	return &Notifier{logs: logs}
}

// NotifyUser records a notification to one viewer.
func (n *Notifier) NotifyUser(ctx context.Context, accountID, viewer, message string) error {
	return n.logs.Append(ctx, accountID, model.LogLevelNotify, fmt.Sprintf("notified @%s: %s", viewer, message))
}

// NotifyUsers records a notification to each viewer in turn. The first
// failure aborts the batch.
func (n *Notifier) NotifyUsers(ctx context.Context, accountID string, viewers []string, message string) error {
	for _, viewer := range viewers {
		if err := n.NotifyUser(ctx, accountID, viewer, message); err != nil {
			return err
		}
	}
	return nil
}
