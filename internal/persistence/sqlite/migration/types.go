package migration

import (
	"context"
	"time"
)

// Migration is one versioned SQL script.
type Migration struct {
	Version     string // Version identifier (e.g., "001", "002")
	Description string // Human-readable description of the migration
	SQL         string // SQL statements to execute
	FilePath    string // Path of the script inside its file system
	Checksum    string // SHA-256 of the script
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises applied and pending migrations.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Scanner lists the migrations available to apply.
type Scanner interface {
	Scan() ([]Migration, error)
}

// Executor applies migrations and tracks which have run.
type Executor interface {
	// InitializeVersionTable creates the schema_migrations table if needed.
	InitializeVersionTable(ctx context.Context) error
	// ExecuteMigration runs the migration and records it in one transaction.
	ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error)
	// AppliedMigrations lists recorded migrations in version order.
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}
