package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/WebblyCMS/Webbly/internal/search"
)

// Scheduler runs the periodic reindex pass that keeps the cache warm.
type Scheduler struct {
	scheduler gocron.Scheduler
	service   *search.Service
	interval  time.Duration
}

// NewScheduler creates a scheduler that reindexes every interval. An
// interval of zero disables the job entirely; Start becomes a no-op.
func NewScheduler(service *search.Service, interval time.Duration) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: scheduler,
		service:   service,
		interval:  interval,
	}, nil
}

// Start registers the reindex job and starts the scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("⏰ Scheduled reindex disabled (REINDEX_INTERVAL not set)")
		return nil
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.runReindex),
	)
	if err != nil {
		return fmt.Errorf("failed to register reindex job: %w", err)
	}

	s.scheduler.Start()
	log.Printf("⏰ Scheduled reindex every %v", s.interval)
	return nil
}

func (s *Scheduler) runReindex() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	count, err := s.service.Reindex(ctx)
	if err != nil {
		// A manual reindex may be running; skip this tick.
		if errors.Is(err, search.ErrReindexRunning) {
			log.Println("⏭️  [REINDEX] Skipped: reindex already in progress")
			return
		}
		log.Printf("❌ [REINDEX] Failed: %v", err)
		return
	}
	log.Printf("✅ [REINDEX] Completed in %v (%d items)", time.Since(start), count)
}

// Stop shuts the scheduler down, waiting for a running job to finish.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
