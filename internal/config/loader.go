package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // LODGING_TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/persistence/sqlite/migration"
)

const defaultEnvFile = ".env"

// Config captures environment driven configuration values for the lodging service.
type Config struct {
	HTTPPort        int
	SQLitePath      string
	Location        *time.Location
	Opening         civil.Clock
	SessionTTL      time.Duration
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// Cron specs for the maintenance jobs.
	PendingSweepSpec string
	SessionPruneSpec string

	// RedisAddr enables the distributed room lock and idempotency cache.
	RedisAddr      string
	RedisPassword  string
	LockTTL        time.Duration
	IdempotencyTTL time.Duration

	// AMQPURL enables publishing domain events to a broker.
	AMQPURL      string
	AMQPExchange string

	BootstrapStaffEmail    string
	BootstrapStaffPassword string
}

// SQLite renders the storage settings for the configured database file.
func (c Config) SQLite() migration.SQLiteConfig {
	return migration.DefaultSQLiteConfig(c.SQLitePath)
}

// Load reads an optional dotenv file and parses configuration values from the
// process environment. Variables already set in the environment win over the
// file. The file is LODGING_ENV_FILE when set, otherwise .env if present.
//
// Defaults are applied for optional fields; every missing or malformed value
// is reported in a single error.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("LODGING_ENV_FILE"))
	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := Config{
		HTTPPort:         8080,
		SQLitePath:       "lodging.db",
		Location:         time.UTC,
		SessionTTL:       24 * time.Hour,
		LogLevel:         slog.LevelInfo,
		ShutdownTimeout:  15 * time.Second,
		PendingSweepSpec: "@every 5m",
		SessionPruneSpec: "@hourly",
		LockTTL:          10 * time.Second,
		IdempotencyTTL:   24 * time.Hour,
		AMQPExchange:     "lodging.events",
	}

	p := parser{}

	p.int("LODGING_HTTP_PORT", &cfg.HTTPPort, func(v int) bool { return v > 0 && v < 65536 })
	p.string("LODGING_SQLITE_PATH", &cfg.SQLitePath)

	if name, ok := p.lookup("LODGING_TIMEZONE"); ok {
		loc, err := time.LoadLocation(name)
		if err != nil {
			p.invalid = append(p.invalid, "LODGING_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}
	if value, ok := p.lookup("LODGING_OPENING_TIME"); ok {
		opening, err := civil.ParseClock(value)
		if err != nil {
			p.invalid = append(p.invalid, "LODGING_OPENING_TIME")
		} else {
			cfg.Opening = opening
		}
	}
	if value, ok := p.lookup("LODGING_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(value)); err != nil {
			p.invalid = append(p.invalid, "LODGING_LOG_LEVEL")
		}
	}

	p.duration("LODGING_SESSION_TTL", &cfg.SessionTTL)
	p.duration("LODGING_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	p.schedule("LODGING_PENDING_SWEEP", &cfg.PendingSweepSpec)
	p.schedule("LODGING_SESSION_PRUNE", &cfg.SessionPruneSpec)

	p.string("LODGING_REDIS_ADDR", &cfg.RedisAddr)
	p.string("LODGING_REDIS_PASSWORD", &cfg.RedisPassword)
	p.duration("LODGING_LOCK_TTL", &cfg.LockTTL)
	p.duration("LODGING_IDEMPOTENCY_TTL", &cfg.IdempotencyTTL)

	p.string("LODGING_AMQP_URL", &cfg.AMQPURL)
	p.string("LODGING_AMQP_EXCHANGE", &cfg.AMQPExchange)

	p.string("LODGING_BOOTSTRAP_STAFF_EMAIL", &cfg.BootstrapStaffEmail)
	p.string("LODGING_BOOTSTRAP_STAFF_PASSWORD", &cfg.BootstrapStaffPassword)
	if cfg.BootstrapStaffEmail != "" && cfg.BootstrapStaffPassword == "" {
		p.missing = append(p.missing, "LODGING_BOOTSTRAP_STAFF_PASSWORD")
	}

	if len(p.missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(p.invalid, ", "))
	}
	return cfg, nil
}

// parser collects missing and invalid keys while reading variables.
type parser struct {
	missing []string
	invalid []string
}

func (p *parser) lookup(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

func (p *parser) string(key string, dst *string) {
	if value, ok := p.lookup(key); ok {
		*dst = value
	}
}

func (p *parser) int(key string, dst *int, valid func(int) bool) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil || !valid(n) {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = d
}

func (p *parser) schedule(key string, dst *string) {
	value, ok := p.lookup(key)
	if !ok {
		return
	}
	if _, err := cron.ParseStandard(value); err != nil {
		p.invalid = append(p.invalid, key)
		return
	}
	*dst = value
}
