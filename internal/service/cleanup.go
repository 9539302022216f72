package service

import (
	"context"
	"log"
	"sync"
	"time"

	"giftcanvas-api/internal/repository"
)

// CleanupConfig holds configuration for the archive retention scheduler.
type CleanupConfig struct {
	// RetentionPeriod is the age after which archived jobs are deleted.
	RetentionPeriod time.Duration

	// Interval is how often the pruning runs.
	Interval time.Duration
}

// CleanupScheduler periodically prunes old entries from the completed-job
// archive. The live Redis structures are trimmed at write time; only the
// archive grows without bound.
type CleanupScheduler struct {
	archive  repository.JobArchiveRepository
	config   CleanupConfig
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupScheduler creates a cleanup scheduler.
func NewCleanupScheduler(archive repository.JobArchiveRepository, config CleanupConfig) *CleanupScheduler {
	if config.RetentionPeriod == 0 {
		config.RetentionPeriod = 30 * 24 * time.Hour
	}
	if config.Interval == 0 {
		config.Interval = 24 * time.Hour
	}

	return &CleanupScheduler{
		archive: archive,
		config:  config,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *CleanupScheduler) Start() {
	s.ticker = time.NewTicker(s.config.Interval)

	log.Printf("[CleanupScheduler] Started - Interval: %v, Retention: %v",
		s.config.Interval, s.config.RetentionPeriod)

	go s.run()
}

func (s *CleanupScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			log.Printf("[CleanupScheduler] Stopped")
			return
		}
	}
}

func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := s.archive.DeleteOlderThan(ctx, s.config.RetentionPeriod)
	if err != nil {
		log.Printf("[CleanupScheduler] Error during cleanup: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("[CleanupScheduler] Pruned %d archived jobs", deleted)
	}
}

// Stop stops the scheduler.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}
