// Package jobs runs the periodic maintenance tasks of the lodging service on
// a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by Trigger for names that were never registered.
var ErrUnknownJob = errors.New("jobs: unknown job")

// Func is one run of a job. The context is cancelled when the scheduler stops.
type Func func(ctx context.Context) error

// PendingExpirer cancels pending reservations whose stay already began.
type PendingExpirer interface {
	ExpirePending(ctx context.Context) (int, error)
}

// SessionPruner deletes expired sessions.
type SessionPruner interface {
	PruneSessions(ctx context.Context) error
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	jobs   map[string]Func
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler constructs a Scheduler whose job runs are bounded by timeout.
// A zero timeout leaves runs unbounded.
func NewScheduler(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jobs")
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]Func),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register schedules fn under name using a standard cron spec or an
// "@every <duration>" descriptor.
func (s *Scheduler) Register(name, spec string, fn Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("jobs: %s already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(s.ctx, name, fn) }); err != nil {
		return fmt.Errorf("jobs: schedule %s with %q: %w", name, spec, err)
	}
	s.jobs[name] = fn
	s.logger.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// Trigger runs a registered job immediately on the calling goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, name, fn)
}

// Start begins executing scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling, cancels running jobs and waits for them to return
// or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context, name string, fn Func) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)
	if err != nil {
		s.logger.ErrorContext(ctx, "job failed", "job", name, "error", err, "elapsed", elapsed)
		return err
	}
	s.logger.DebugContext(ctx, "job finished", "job", name, "elapsed", elapsed)
	return nil
}

// PendingSweep adapts an expirer into a job.
func PendingSweep(expirer PendingExpirer) Func {
	return func(ctx context.Context) error {
		_, err := expirer.ExpirePending(ctx)
		return err
	}
}

// SessionPrune adapts a pruner into a job.
func SessionPrune(pruner SessionPruner) Func {
	return pruner.PruneSessions
}

// cronLogger routes the cron runner's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
