// Package database opens the storage backends used by the repositories:
// a pgx connection pool for PostgreSQL and a client for MongoDB.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/mining-service/config"
)

// Connect creates a pgx pool from cfg, pings it and applies migrations.
func Connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.GetDBMaxConnLifetimeDuration()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate creates the schema if missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			membership_tier TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);`,
		`CREATE TABLE IF NOT EXISTS membership_tiers (
			name TEXT PRIMARY KEY,
			coins_per_second DOUBLE PRECISION NOT NULL CHECK (coins_per_second > 0),
			session_duration_seconds BIGINT NOT NULL CHECK (session_duration_seconds > 0),
			daily_reward_coins BIGINT NOT NULL DEFAULT 0 CHECK (daily_reward_coins >= 0)
		);`,
		`CREATE TABLE IF NOT EXISTS mining_sessions (
			user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			accrued_coins BIGINT NOT NULL DEFAULT 0 CHECK (accrued_coins >= 0),
			session_coins BIGINT NOT NULL DEFAULT 0,
			session_start TIMESTAMPTZ,
			session_end TIMESTAMPTZ,
			coins_per_second DOUBLE PRECISION NOT NULL DEFAULT 0,
			tier_name TEXT NOT NULL DEFAULT '',
			last_daily_reward_at TIMESTAMPTZ,
			version BIGINT NOT NULL,
			CHECK ((session_start IS NULL) = (session_end IS NULL)),
			CHECK (session_end IS NULL OR session_end > session_start)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
