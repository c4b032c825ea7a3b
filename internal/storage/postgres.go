package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mjhoover1/Intelligent-Investing/internal/config"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

// Open opens a pooled PostgreSQL connection and verifies it with a ping
func Open(dbConfig config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("PostgreSQL connection established",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return db, nil
}

// Migrate creates the schema objects the monitor needs. Statements are
// idempotent so repeated startups are safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rules (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT NOT NULL,
			name             TEXT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			kind             TEXT NOT NULL,
			threshold        DOUBLE PRECISION NOT NULL,
			symbol           TEXT NOT NULL DEFAULT '',
			cooldown_minutes INTEGER NOT NULL DEFAULT 0,
			enabled          BOOLEAN NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_owner_enabled ON rules (owner_id, enabled)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			shares      DOUBLE PRECISION NOT NULL,
			cost_basis  DOUBLE PRECISION NOT NULL,
			acquired_at TIMESTAMPTZ,
			UNIQUE (owner_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS cooldowns (
			rule_id           TEXT NOT NULL,
			symbol            TEXT NOT NULL,
			last_triggered_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (rule_id, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id             TEXT PRIMARY KEY,
			rule_id        TEXT NOT NULL,
			rule_name      TEXT NOT NULL,
			owner_id       TEXT NOT NULL,
			kind           TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			price          DOUBLE PRECISION NOT NULL,
			observed_value DOUBLE PRECISION NOT NULL,
			threshold      DOUBLE PRECISION NOT NULL,
			message        TEXT NOT NULL DEFAULT '',
			triggered_at   TIMESTAMPTZ NOT NULL,
			notified       BOOLEAN NOT NULL DEFAULT FALSE,
			trace_id       TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_triggered_at ON alerts (triggered_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
