package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"xforce-progression/internal/logger"
)

// Refresher reloads a cached data set and reports how many items it holds.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Scheduler periodically refreshes the achievement catalog cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	catalog   Refresher
	timeout   time.Duration
	log       *logger.Logger
}

func New(catalog Refresher, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		catalog:   catalog,
		timeout:   10 * time.Second,
		log:       log,
	}
}

// Start schedules the catalog refresh every interval and runs the scheduler
// in the background. The first refresh runs immediately.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid refresh interval %s", interval)
	}
	if _, err := s.scheduler.Every(interval).Do(s.refreshCatalog); err != nil {
		return fmt.Errorf("schedule catalog refresh: %w", err)
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) refreshCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.catalog.Refresh(ctx)
	if err != nil {
		s.log.Warn("catalog refresh failed", "error", err)
		return
	}
	s.log.Debug("catalog refreshed", "achievements", n)
}
