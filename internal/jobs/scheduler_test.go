package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type expirerStub struct {
	calls int
	err   error
}

func (e *expirerStub) ExpirePending(context.Context) (int, error) {
	e.calls++
	return e.calls, e.err
}

type prunerStub struct {
	calls int
}

func (p *prunerStub) PruneSessions(context.Context) error {
	p.calls++
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerTrigger(t *testing.T) {
	t.Parallel()

	s := NewScheduler(quietLogger(), time.Second)
	expirer := &expirerStub{}
	pruner := &prunerStub{}

	if err := s.Register("pending-sweep", "@every 5m", PendingSweep(expirer)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := s.Register("session-prune", "@hourly", SessionPrune(pruner)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := s.Trigger(context.Background(), "pending-sweep"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if err := s.Trigger(context.Background(), "session-prune"); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if expirer.calls != 1 || pruner.calls != 1 {
		t.Fatalf("expected each job to run once, got sweep=%d prune=%d", expirer.calls, pruner.calls)
	}

	if err := s.Trigger(context.Background(), "missing"); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestSchedulerSurfacesJobErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("store offline")
	s := NewScheduler(quietLogger(), 0)
	if err := s.Register("pending-sweep", "@every 1m", PendingSweep(&expirerStub{err: boom})); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := s.Trigger(context.Background(), "pending-sweep"); !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
}

func TestSchedulerRegisterValidation(t *testing.T) {
	t.Parallel()

	s := NewScheduler(quietLogger(), 0)
	noop := func(context.Context) error { return nil }

	if err := s.Register("bad", "every now and then", noop); err == nil {
		t.Fatal("expected invalid spec to be rejected")
	}
	if err := s.Register("sweep", "@every 1m", noop); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := s.Register("sweep", "@every 2m", noop); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(quietLogger(), 0)
	if err := s.Register("sweep", "@every 1h", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
