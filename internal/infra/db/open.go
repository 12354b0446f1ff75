package db

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"intelwire/internal/pkg/config"
)

const pingTimeout = 5 * time.Second

// PoolConfig bounds the shared sql.DB connection pool. Both processes talk
// to the same Postgres instance, so the limits are deliberately modest.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns the production pool limits.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// PoolConfigFromEnv overrides the default pool limits from DB_MAX_OPEN_CONNS,
// DB_MAX_IDLE_CONNS, DB_CONN_MAX_LIFETIME and DB_CONN_MAX_IDLE_TIME. Invalid
// values fall back to the defaults with a warning.
func PoolConfigFromEnv() PoolConfig {
	cfg := DefaultPoolConfig()

	warn := func(r config.LoadResult) {
		if r.Fallback {
			slog.Warn("database pool configuration fallback", slog.String("warning", r.Warning))
		}
	}

	positive := func(v int) error { return config.ValidateIntRange(v, 1, 1000) }

	var r config.LoadResult
	cfg.MaxOpenConns, r = config.LoadEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns, positive)
	warn(r)
	cfg.MaxIdleConns, r = config.LoadEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns, positive)
	warn(r)
	cfg.ConnMaxLifetime, r = config.LoadEnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, config.ValidatePositiveDuration)
	warn(r)
	cfg.ConnMaxIdleTime, r = config.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, config.ValidatePositiveDuration)
	warn(r)

	return cfg
}

// Open connects to the database named by DATABASE_URL, applies the pool
// limits and verifies the connection with a bounded ping. Failures are
// fatal: neither process can do anything useful without the store.
func Open() *sql.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	database, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal(err)
	}

	cfg := PoolConfigFromEnv()
	applyPool(database, cfg)

	slog.Info("database connection pool configured",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	return database
}

func applyPool(database *sql.DB, cfg PoolConfig) {
	database.SetMaxOpenConns(cfg.MaxOpenConns)
	database.SetMaxIdleConns(cfg.MaxIdleConns)
	database.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}
