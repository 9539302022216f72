package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"giftcanvas-api/internal/model"
	"giftcanvas-api/internal/realtime"
	"giftcanvas-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProcessor records processed job ids and can fail on demand.
type recordingProcessor struct {
	mu   sync.Mutex
	jobs []string
	fail map[string]error
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{fail: make(map[string]error)}
}

func (p *recordingProcessor) Process(ctx context.Context, accountID string, job *model.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.fail[job.JobID]; ok {
		return err
	}
	p.jobs = append(p.jobs, job.JobID)
	return nil
}

func (p *recordingProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.jobs))
	copy(out, p.jobs)
	return out
}

type consumerFixture struct {
	consumer  *QueueConsumer
	queue     *repository.MemoryJobQueue
	logs      *repository.MemoryEventLog
	processor *recordingProcessor
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()

	f := &consumerFixture{
		queue:     repository.NewMemoryJobQueue(),
		logs:      repository.NewMemoryEventLog(),
		processor: newRecordingProcessor(),
	}
	logService := NewEventLogService(f.logs, realtime.NewHub())
	f.consumer = NewQueueConsumer(f.queue, nil, logService, f.processor, 20*time.Millisecond)
	return f
}

func (f *consumerFixture) push(t *testing.T, accountID, jobID, user string) {
	t.Helper()

	err := f.queue.Push(context.Background(), accountID, &model.Job{
		JobID:     jobID,
		User:      user,
		ImageURL:  "https://cdn.example.com/" + jobID + ".png",
		Status:    model.JobStatusPending,
		CreatedAt: time.Now().UnixMilli(),
	})
	require.NoError(t, err)
}

func TestConsumerProcessesJobsInOrder(t *testing.T) {
	f := newConsumerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.push(t, "A1", "j1", "alice")
	f.push(t, "A1", "j2", "bob")
	f.push(t, "A1", "j3", "carol")

	done := make(chan error, 1)
	go func() { done <- f.consumer.Run(ctx, "A1") }()

	require.Eventually(t, func() bool {
		return len(f.processor.processed()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"j1", "j2", "j3"}, f.processor.processed())

	// Completed jobs carry the done status in the state record.
	job, ok := f.queue.JobState("A1", "j3")
	require.True(t, ok)
	assert.Equal(t, model.JobStatusDone, job.Status)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit after cancellation")
	}
}

func TestConsumerObservesCancellationWhileIdle(t *testing.T) {
	f := newConsumerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.consumer.Run(ctx, "A1") }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit after cancellation")
	}
}

func TestConsumerSkipsMalformedJobs(t *testing.T) {
	f := newConsumerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.queue.PushRaw(ctx, "A1", "{not json"))
	f.push(t, "A1", "j1", "alice")

	done := make(chan error, 1)
	go func() { done <- f.consumer.Run(ctx, "A1") }()

	require.Eventually(t, func() bool {
		return len(f.processor.processed()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"j1"}, f.processor.processed())

	entries, err := f.logs.List(ctx, "A1")
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if e.Level == model.LogLevelError {
			found = true
		}
	}
	assert.True(t, found, "expected an error log entry for the dropped job")
}

func TestConsumerContinuesAfterProcessorFailure(t *testing.T) {
	f := newConsumerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.processor.fail["j1"] = errors.New("robot jammed")
	f.push(t, "A1", "j1", "alice")
	f.push(t, "A1", "j2", "bob")

	done := make(chan error, 1)
	go func() { done <- f.consumer.Run(ctx, "A1") }()

	require.Eventually(t, func() bool {
		return len(f.processor.processed()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"j2"}, f.processor.processed())

	// The failed job never reaches the done state.
	job, ok := f.queue.JobState("A1", "j1")
	require.True(t, ok)
	assert.Equal(t, model.JobStatusPending, job.Status)
}

// ctxAwareJobQueue refuses writes once the context is cancelled, the way
// the Redis-backed queue does.
type ctxAwareJobQueue struct {
	*repository.MemoryJobQueue
}

func (q *ctxAwareJobQueue) SaveState(ctx context.Context, accountID string, job *model.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.MemoryJobQueue.SaveState(ctx, accountID, job)
}

// blockingProcessor holds a job mid-draw until released.
type blockingProcessor struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingProcessor) Process(ctx context.Context, accountID string, job *model.Job) error {
	close(p.started)
	<-p.release
	return nil
}

func TestConsumerPersistsCompletionAfterCancellation(t *testing.T) {
	queue := &ctxAwareJobQueue{MemoryJobQueue: repository.NewMemoryJobQueue()}
	logs := repository.NewMemoryEventLog()
	archive := newMemoryArchive()
	processor := &blockingProcessor{started: make(chan struct{}), release: make(chan struct{})}
	logService := NewEventLogService(logs, realtime.NewHub())
	consumer := NewQueueConsumer(queue, archive, logService, processor, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queue.Push(ctx, "A1", &model.Job{
		JobID:  "j1",
		User:   "alice",
		Status: model.JobStatusPending,
	}))

	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx, "A1") }()

	// Cancel while the job is drawing, then let it finish.
	<-processor.started
	cancel()
	close(processor.release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit after cancellation")
	}

	// The in-flight job ran to completion, so its outcome is recorded
	// despite the cancelled worker context.
	saved, ok := queue.JobState("A1", "j1")
	require.True(t, ok)
	assert.Equal(t, model.JobStatusDone, saved.Status)

	archived, err := archive.ListCompleted(context.Background(), "A1", 0)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "j1", archived[0].JobID)
}

func TestConsumerIsolatesAccounts(t *testing.T) {
	f := newConsumerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.push(t, "A1", "j1", "alice")
	f.push(t, "A2", "j2", "bob")

	done := make(chan error, 1)
	go func() { done <- f.consumer.Run(ctx, "A1") }()

	require.Eventually(t, func() bool {
		return len(f.processor.processed()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"j1"}, f.processor.processed())

	// The other account's queue is untouched.
	jobs, err := f.queue.List(ctx, "A2")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j2", jobs[0].JobID)
}
