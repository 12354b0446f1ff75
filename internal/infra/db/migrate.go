package db

import (
	"database/sql"
)

func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id              SERIAL PRIMARY KEY,
    name            TEXT NOT NULL,
    url             TEXT NOT NULL UNIQUE,
    last_crawled_at TIMESTAMPTZ,
    active          BOOLEAN DEFAULT TRUE
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id         SERIAL PRIMARY KEY,
    source_id  INTEGER REFERENCES sources(id),
    title      TEXT NOT NULL,
    content    TEXT NOT NULL,
    summary    TEXT,
    topics     JSONB NOT NULL DEFAULT '[]',
    status     VARCHAR(20) NOT NULL DEFAULT 'draft',
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
    id                    TEXT PRIMARY KEY,
    type                  VARCHAR(50) NOT NULL,
    status                VARCHAR(20) NOT NULL DEFAULT 'pending',
    progress              INTEGER NOT NULL DEFAULT 0,
    data                  JSONB,
    result                JSONB,
    error                 TEXT,
    started_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at          TIMESTAMPTZ,
    estimated_duration_ms BIGINT NOT NULL DEFAULT 0
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS escalations (
    id                TEXT PRIMARY KEY,
    type              VARCHAR(50) NOT NULL,
    priority          VARCHAR(20) NOT NULL,
    title             TEXT NOT NULL,
    description       TEXT NOT NULL,
    context           TEXT,
    confidence_score  DOUBLE PRECISION,
    error_details     TEXT,
    suggested_actions JSONB NOT NULL DEFAULT '[]',
    related           JSONB,
    status            VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    resolved_at       TIMESTAMPTZ,
    resolved_by       TEXT,
    resolution_notes  TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS logs (
    id         BIGSERIAL PRIMARY KEY,
    timestamp  TIMESTAMPTZ NOT NULL DEFAULT now(),
    level      VARCHAR(10) NOT NULL,
    message    TEXT NOT NULL,
    context    TEXT,
    metadata   JSONB,
    error      JSONB,
    request_id TEXT,
    user_id    TEXT,
    session_id TEXT,
    source     TEXT
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_active ON sources(active) WHERE active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_type ON jobs(type)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_started_at ON jobs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_escalations_priority ON escalations(priority)`,
		`CREATE INDEX IF NOT EXISTS idx_escalations_created_at ON escalations(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_level ON logs(level)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_context ON logs(context)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown rolls back the database schema.
// Use with caution: this will delete all data in the affected tables.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS logs`,
		`DROP TABLE IF EXISTS escalations`,
		`DROP TABLE IF EXISTS jobs`,
		`DROP TABLE IF EXISTS articles CASCADE`,
		`DROP TABLE IF EXISTS sources CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
