// Package scheduler runs the periodic purge of idle hand-off sessions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/reqbot/internal/logging"
)

// Purger removes sessions last updated before a cutoff.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int, error)
}

// Scheduler purges sessions older than ttl on a cron schedule.
type Scheduler struct {
	purger   Purger
	ttl      time.Duration
	schedule cron.Schedule
	logger   *slog.Logger
	onPurge  func(n int)
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// OnPurge registers a callback receiving the count of each successful run.
func OnPurge(fn func(n int)) Option {
	return func(s *Scheduler) { s.onPurge = fn }
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a Scheduler. spec is a five-field cron expression or a
// descriptor such as "@hourly" or "@every 30m".
func New(p Purger, spec string, ttl time.Duration, opts ...Option) (*Scheduler, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("purge ttl must be positive, got %s", ttl)
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	s := &Scheduler{
		purger:   p,
		ttl:      ttl,
		schedule: schedule,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the background loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(schedCtx, s.done)
	s.logger.Info("scheduler started", slog.Duration("ttl", s.ttl))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		now := s.now()
		timer := time.NewTimer(s.NextRun(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("session purge failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce purges immediately and returns how many sessions were removed.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.ttl)
	n, err := s.purger.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if s.onPurge != nil {
		s.onPurge(n)
	}
	if n > 0 {
		s.logger.Info("purged idle sessions", slog.Int("count", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}

// NextRun computes the next purge time after from.
func (s *Scheduler) NextRun(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
