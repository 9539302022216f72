package repository

import (
	"context"
	"errors"
	"time"

	"giftcanvas-api/internal/model"
)

// ErrMalformedJob marks a queue payload that failed to deserialize. The
// consumer logs and skips these instead of aborting the loop.
var ErrMalformedJob = errors.New("malformed job payload")

// EventLogRepository persists the bounded per-account event log.
type EventLogRepository interface {
	// Append writes an entry, trims the log to its cap and publishes the
	// entry for cross-process subscribers.
	Append(ctx context.Context, accountID string, entry model.LogEntry) error

	// List returns entries newest-first, malformed rows skipped.
	List(ctx context.Context, accountID string) ([]model.LogEntry, error)
}

// GiftLedgerRepository records which viewers have gifted this session.
type GiftLedgerRepository interface {
	// MarkGift records a gift from the viewer. Idempotent.
	MarkGift(ctx context.Context, accountID, viewer string) error

	// HasGifted reports whether the viewer has gifted on this account.
	HasGifted(ctx context.Context, accountID, viewer string) (bool, error)

	// GiftedViewers returns the viewers who have gifted, unordered.
	GiftedViewers(ctx context.Context, accountID string) ([]string, error)
}

// JobQueueRepository is the per-account FIFO of drawing jobs plus the
// per-job state hash.
type JobQueueRepository interface {
	// Push appends a job to the queue tail.
	Push(ctx context.Context, accountID string, job *model.Job) error

	// Pop removes and returns the queue head, blocking up to wait.
	// Returns (nil, nil) when the queue stayed empty and
	// ErrMalformedJob (wrapped) for undecodable payloads.
	Pop(ctx context.Context, accountID string, wait time.Duration) (*model.Job, error)

	// List returns the queued jobs in order, malformed rows skipped.
	List(ctx context.Context, accountID string) ([]model.Job, error)

	// SaveState persists the job's current state keyed by job id.
	SaveState(ctx context.Context, accountID string, job *model.Job) error
}

// AccountRepository stores tenant-scoped tracked accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	Get(ctx context.Context, userID, accountID string) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, userID, accountID string) error
	List(ctx context.Context, userID string) ([]model.Account, error)
}

// ActivationRepository validates activation keys sold through the payment
// flow (the payment gateway itself is an external collaborator).
type ActivationRepository interface {
	// ValidateKey validates an activation key and binds it to the device
	// on first use.
	ValidateKey(ctx context.Context, key, deviceID string) (*model.ActivationValidation, error)
}

// JobArchiveRepository keeps a durable history of completed jobs.
type JobArchiveRepository interface {
	SaveCompleted(ctx context.Context, accountID string, job *model.Job) error
	ListCompleted(ctx context.Context, accountID string, limit int) ([]model.Job, error)

	// DeleteOlderThan removes archived jobs completed before the cutoff.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)

	Close() error
}
