// Package migration applies versioned SQL migrations to SQLite databases.
//
// Migration files are read from an fs.FS (normally an embed.FS compiled into
// the binary) and follow the naming convention {version}_{description}.sql,
// e.g. "001_initial_schema.sql". Versions must form a gap-free sequence.
//
// Applied versions are tracked in a schema_migrations table; each migration
// runs in its own transaction and is recorded only after it commits.
//
// Example usage:
//
//	manager := NewManager(NewScanner(files, "migrations"), NewSQLiteExecutor(db, time.Now), logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
