package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/lodging-scheduler/internal/application"
	"github.com/example/lodging-scheduler/internal/config"
	"github.com/example/lodging-scheduler/internal/events"
	httptransport "github.com/example/lodging-scheduler/internal/http"
	"github.com/example/lodging-scheduler/internal/idempotency"
	"github.com/example/lodging-scheduler/internal/jobs"
	"github.com/example/lodging-scheduler/internal/lock"
	"github.com/example/lodging-scheduler/internal/persistence/sqlite"
	"github.com/example/lodging-scheduler/internal/websocket"
)

const (
	pendingSweepJob = "pending-sweep"
	sessionPruneJob = "session-prune"

	idempotencyMemoryEntries = 10000
	jobTimeout               = time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("lodging service stopped", "error", err)
		os.Exit(1)
	}
}

// app holds the wired service graph.
type app struct {
	handler http.Handler
	store   *sqlite.Store
	hub     *websocket.Hub
	jobs    *jobs.Scheduler
	closers []func() error
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	a.store, err = sqlite.Open(ctx, cfg.SQLite(), logger)
	if err != nil {
		return a, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)

	var (
		locker lock.Locker
		idem   idempotency.Store
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		a.closers = append(a.closers, client.Close)
		if err = client.Ping(ctx).Err(); err != nil {
			return a, fmt.Errorf("connect redis: %w", err)
		}
		locker = lock.NewRedisLocker(client, cfg.LockTTL, lock.WithLogger(logger))
		idem = idempotency.NewRedisStore(client, cfg.IdempotencyTTL)
		logger.Info("using redis for room locks and idempotency", "addr", cfg.RedisAddr)
	} else {
		locker = lock.NewKeyedMutex()
		idem = idempotency.NewMemoryStore(cfg.IdempotencyTTL, idempotencyMemoryEntries, time.Now)
	}

	a.hub = websocket.NewHub(logger, time.Now)
	publisher := events.Fanout{a.hub}
	if cfg.AMQPURL != "" {
		amqpPublisher, dialErr := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if dialErr != nil {
			return a, fmt.Errorf("connect amqp: %w", dialErr)
		}
		a.closers = append(a.closers, amqpPublisher.Close)
		publisher = append(publisher, amqpPublisher)
	}

	deps := application.BookingDeps{
		Store:       a.store,
		Locker:      locker,
		Publisher:   publisher,
		Idempotency: idem,
		Now:         time.Now,
		IDGenerator: uuid.NewString,
		Location:    cfg.Location,
		Opening:     cfg.Opening,
		Logger:      logger,
	}
	reservations := application.NewReservationService(deps)
	stays := application.NewStayService(deps)
	occupancy := application.NewOccupancyService(deps)
	rooms := application.NewRoomServiceWithLogger(a.store.Repositories().Rooms, uuid.NewString, time.Now, logger)
	accounts := application.NewAccountService(a.store.Accounts(), uuid.NewString, time.Now, logger)
	auth := application.NewAuthServiceWithLogger(a.store.Accounts(), a.store.Sessions(), nil, func() string { return randomHex(32) }, time.Now, cfg.SessionTTL, logger)

	if cfg.BootstrapStaffEmail != "" {
		created, bootErr := accounts.EnsureBootstrapStaff(ctx, cfg.BootstrapStaffEmail, cfg.BootstrapStaffPassword)
		if bootErr != nil {
			return a, fmt.Errorf("bootstrap staff account: %w", bootErr)
		}
		if created {
			logger.Info("bootstrap staff account created", "email", cfg.BootstrapStaffEmail)
		}
	}

	a.jobs = jobs.NewScheduler(logger, jobTimeout)
	if err = a.jobs.Register(pendingSweepJob, cfg.PendingSweepSpec, jobs.PendingSweep(reservations)); err != nil {
		return a, err
	}
	if err = a.jobs.Register(sessionPruneJob, cfg.SessionPruneSpec, jobs.SessionPrune(auth)); err != nil {
		return a, err
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(auth, logger),
		Accounts:     httptransport.NewAccountHandler(accounts, logger),
		Rooms:        httptransport.NewRoomHandler(rooms, occupancy, reservations, logger),
		Reservations: httptransport.NewReservationHandler(reservations, stays, logger),
		Sessions:     auth,
		Events:       http.HandlerFunc(a.hub.ServeWS),
		Health:       a.store,
		Logger:       logger,
	})
	return a, nil
}

// Close releases external connections in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to release resources", "error", cerr)
		}
	}()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	// Catch up on holds that lapsed while the service was down.
	if err := a.jobs.Trigger(ctx, pendingSweepJob); err != nil {
		logger.Warn("initial pending sweep failed", "error", err)
	}
	a.jobs.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("lodging API listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
	}
	if err := a.jobs.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop jobs", "error", err)
	}
	return nil
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
