// Package scheduler runs periodic background jobs for the server.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher reloads cached state from the record store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler wraps a cron runner with jobs that never overlap.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// AddRefresh schedules r.Refresh on the given cron spec (e.g. "@every 5m" or "*/10 * * * *").
// Each run gets its own timeout; failures are logged and the next run retries.
func (s *Scheduler) AddRefresh(spec string, r Refresher, timeout time.Duration) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		if err := r.Refresh(ctx); err != nil {
			log.Printf("scheduler: descriptor refresh failed: %v", err)
			return
		}
		log.Printf("scheduler: descriptors refreshed in %s", time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}
