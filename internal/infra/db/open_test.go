package db

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func clearPoolEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME"} {
		t.Setenv(key, "")
	}
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 10 {
		t.Errorf("conn limits = %d/%d, want 25/10", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != time.Hour {
		t.Errorf("ConnMaxLifetime = %v, want 1h", cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime != 30*time.Minute {
		t.Errorf("ConnMaxIdleTime = %v, want 30m", cfg.ConnMaxIdleTime)
	}
}

func TestPoolConfigFromEnv_Overrides(t *testing.T) {
	clearPoolEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("DB_CONN_MAX_LIFETIME", "2h")

	cfg := PoolConfigFromEnv()
	if cfg.MaxOpenConns != 50 {
		t.Errorf("MaxOpenConns = %d, want 50", cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime != 2*time.Hour {
		t.Errorf("ConnMaxLifetime = %v, want 2h", cfg.ConnMaxLifetime)
	}
	if cfg.MaxIdleConns != 10 {
		t.Errorf("MaxIdleConns = %d, want default 10", cfg.MaxIdleConns)
	}
}

func TestPoolConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	clearPoolEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("DB_MAX_IDLE_CONNS", "0")
	t.Setenv("DB_CONN_MAX_LIFETIME", "-1h")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "forever")

	cfg := PoolConfigFromEnv()
	want := DefaultPoolConfig()
	if cfg != want {
		t.Errorf("PoolConfigFromEnv() = %+v, want defaults %+v", cfg, want)
	}
}

// sql.DB.Stats only exposes the open-connection cap, so that is what the
// test asserts after applying the limits.
func TestApplyPool(t *testing.T) {
	database, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = database.Close() }()

	applyPool(database, PoolConfig{
		MaxOpenConns:    3,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	})

	if got := database.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("MaxOpenConnections = %d, want 3", got)
	}
}
