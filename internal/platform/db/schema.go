package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Constraint names referenced by repositories when mapping unique violations.
const (
	ConstraintUsersUsername = "users_username_key"
	ConstraintUsersEmail    = "users_email_lower_key"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      VARCHAR(80)  NOT NULL,
		email         VARCHAR(120) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name    VARCHAR(50)  NOT NULL DEFAULT '',
		last_name     VARCHAR(50)  NOT NULL DEFAULT '',
		is_admin      BOOLEAN      NOT NULL DEFAULT FALSE,
		is_active     BOOLEAN      NOT NULL DEFAULT TRUE,
		last_login_at TIMESTAMPTZ,
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CONSTRAINT users_username_key UNIQUE (username)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (LOWER(email))`,
	`CREATE TABLE IF NOT EXISTS posts (
		id         BIGSERIAL PRIMARY KEY,
		title      VARCHAR(200) NOT NULL,
		content    TEXT         NOT NULL,
		summary    VARCHAR(500) NOT NULL DEFAULT '',
		published  BOOLEAN      NOT NULL DEFAULT FALSE,
		owner_id   BIGINT       NOT NULL REFERENCES users (id),
		created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS posts_owner_id_idx ON posts (owner_id)`,
	`CREATE INDEX IF NOT EXISTS posts_published_created_idx ON posts (published, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          BIGSERIAL PRIMARY KEY,
		actor_id    BIGINT       NOT NULL,
		action      VARCHAR(64)  NOT NULL,
		entity      VARCHAR(64)  NOT NULL,
		entity_id   VARCHAR(64)  NOT NULL,
		meta        JSONB,
		occurred_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_occurred_at_idx ON audit_logs (occurred_at DESC)`,
}

// Migrate applies the idempotent schema statements in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

// Reset drops every table and reapplies the schema.
func Reset(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS audit_logs, posts, users CASCADE`); err != nil {
		return fmt.Errorf("platform/db: drop tables: %w", err)
	}
	return Migrate(ctx, pool)
}
