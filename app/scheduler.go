package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler re-runs a job on a fixed interval until stopped
type Scheduler struct {
	interval time.Duration
	job      func(ctx context.Context) error
	log      *zap.Logger

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler for job
func NewScheduler(interval time.Duration, job func(ctx context.Context) error, log *zap.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		job:      job,
		log:      log.With(zap.String("component", "scheduler")),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start runs the job once, then on every tick. It blocks until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.stopped)
	s.log.Info("Scheduled reloads started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial run
	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.done:
			s.log.Info("Scheduled reloads stopped")
			return
		case <-ctx.Done():
			s.log.Info("Scheduled reloads stopped", zap.Error(ctx.Err()))
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight run to finish. Safe to call more than once,
// but only after Start has been called.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.job(ctx); err != nil {
		s.log.Error("Scheduled reload failed", zap.Error(err))
	}
}
