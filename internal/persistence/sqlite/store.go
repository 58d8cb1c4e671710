// Package sqlite implements the persistence interfaces on SQLite through
// modernc.org/sqlite. The schema is embedded and migrated on Open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lodging-scheduler/internal/persistence"
	"github.com/example/lodging-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store owns the connection pool and hands out repositories bound either to
// the pool or to a transaction.
type Store struct {
	db     *sql.DB
	retry  RetryConfig
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database described by cfg and applies pending
// migrations.
func Open(ctx context.Context, cfg migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := migration.Open(cfg)
	if err != nil {
		return nil, err
	}

	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(db, time.Now),
		logger,
	)
	if err := manager.Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{db: db, retry: DefaultRetryConfig(), logger: logger.With("component", "sqlite")}, nil
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Repositories returns repositories that run each statement on its own.
func (s *Store) Repositories() persistence.Repositories {
	return bind(s.db)
}

// Accounts returns the account repository.
func (s *Store) Accounts() persistence.AccountRepository {
	return &AccountRepository{q: s.db}
}

// Sessions returns the session repository.
func (s *Store) Sessions() persistence.SessionRepository {
	return &SessionRepository{q: s.db}
}

// WithinTx runs fn in a single transaction. The whole transaction is retried
// when SQLite reports the database busy.
func (s *Store) WithinTx(ctx context.Context, fn persistence.TxFunc) error {
	attempt := 0
	return withRetry(ctx, s.retry, func() error {
		attempt++
		if attempt > 1 {
			s.logger.WarnContext(ctx, "retrying busy transaction", "attempt", attempt)
		}
		return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
			return fn(ctx, bind(tx))
		})
	})
}

func bind(q Queryable) persistence.Repositories {
	return persistence.Repositories{
		Rooms:        &RoomRepository{q: q},
		Reservations: &ReservationRepository{q: q},
		StayEvents:   &StayEventRepository{q: q},
	}
}
