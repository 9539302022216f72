package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/repository"
)

// JobProcessor executes one drawing job. The production implementation
// drives the robot/plugin integration; it is an external collaborator.
type JobProcessor interface {
	Process(ctx context.Context, accountID string, job *model.Job) error
}

// SimulatedProcessor stands in for the robot integration by sleeping for
// a fixed duration per job.
type SimulatedProcessor struct {
	Delay time.Duration
}

// Process simulates drawing the job's image.
func (p SimulatedProcessor) Process(ctx context.Context, accountID string, job *model.Job) error {
	// A job already in flight runs to completion; cancellation is only
	// observed between jobs.
	time.Sleep(p.Delay)
	return nil
}

// QueueConsumer drains one account's work queue sequentially. One job's
// failure never halts the loop; cancellation is cooperative and checked
// at the top of every iteration.
type QueueConsumer struct {
	queue     repository.JobQueueRepository
	archive   repository.JobArchiveRepository // optional
	logs      *EventLogService
	processor JobProcessor
	popWait   time.Duration
}

// NewQueueConsumer creates a queue consumer. archive may be nil.
func NewQueueConsumer(
	queue repository.JobQueueRepository,
	archive repository.JobArchiveRepository,
	logs *EventLogService,
	processor JobProcessor,
	popWait time.Duration,
) *QueueConsumer {
	if popWait <= 0 {
		popWait = 2 * time.Second
	}
	return &QueueConsumer{
		queue:     queue,
		archive:   archive,
		logs:      logs,
		processor: processor,
		popWait:   popWait,
	}
}

// Run processes the account's queue until ctx is cancelled. It returns
// ctx.Err() on clean shutdown; any other error means the loop died
// unexpectedly and the supervisor should surface it.
func (c *QueueConsumer) Run(ctx context.Context, accountID string) error {
	c.appendLog(ctx, accountID, model.LogLevelInfo, fmt.Sprintf("queue consumer started for account %s", accountID))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := c.queue.Pop(ctx, accountID, c.popWait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, repository.ErrMalformedJob) {
				c.appendLog(ctx, accountID, model.LogLevelError, fmt.Sprintf("dropped malformed job: %v", err))
				continue
			}
			c.appendLog(ctx, accountID, model.LogLevelError, fmt.Sprintf("queue read failed: %v", err))
			// Back off so a broken store doesn't spin the loop.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.popWait):
			}
			continue
		}
		if job == nil {
			continue // bounded wait elapsed with an empty queue
		}

		c.process(ctx, accountID, job)
	}
}

// process runs one job through the processor and records its outcome.
func (c *QueueConsumer) process(ctx context.Context, accountID string, job *model.Job) {
	if err := c.queue.SaveState(ctx, accountID, job); err != nil {
		c.appendLog(ctx, accountID, model.LogLevelError, fmt.Sprintf("failed to save state for job %s: %v", job.JobID, err))
	}
	c.appendLog(ctx, accountID, model.LogLevelQueue, fmt.Sprintf("⏳ started drawing for @%s", job.User))

	err := c.processor.Process(ctx, accountID, job)

	// In-flight jobs run to completion, so the outcome is persisted even
	// when the worker was cancelled mid-job.
	ctx = context.WithoutCancel(ctx)

	if err != nil {
		c.appendLog(ctx, accountID, model.LogLevelError, fmt.Sprintf("job %s failed: %v", job.JobID, err))
		return
	}

	job.Status = model.JobStatusDone
	if err := c.queue.SaveState(ctx, accountID, job); err != nil {
		c.appendLog(ctx, accountID, model.LogLevelError, fmt.Sprintf("failed to save state for job %s: %v", job.JobID, err))
	}
	if c.archive != nil {
		if err := c.archive.SaveCompleted(ctx, accountID, job); err != nil {
			log.Printf("[QueueConsumer] Failed to archive job %s: %v", job.JobID, err)
		}
	}

	c.appendLog(ctx, accountID, model.LogLevelQueue, fmt.Sprintf("✅ finished drawing for @%s", job.User))
}

func (c *QueueConsumer) appendLog(ctx context.Context, accountID, level, text string) {
	if err := c.logs.Append(ctx, accountID, level, text); err != nil {
		log.Printf("[QueueConsumer] Failed to write log for %s: %v", accountID, err)
	}
}
