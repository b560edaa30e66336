package repositories

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	name    string
	sql     string
}

// migrations are applied in order; never edit an entry that has shipped.
var migrations = []migration{
	{
		version: 1,
		name:    "users",
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id               BIGSERIAL PRIMARY KEY,
	name             TEXT NOT NULL,
	email            TEXT NOT NULL UNIQUE,
	password_hash    TEXT NOT NULL,
	role             TEXT NOT NULL CHECK (role IN ('Admin', 'User')),
	notifications    JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		version: 2,
		name:    "tasks",
		sql: `
CREATE TABLE IF NOT EXISTS tasks (
	id           BIGSERIAL PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL,
	assigned_to  BIGINT NOT NULL REFERENCES users(id),
	created_by   BIGINT NOT NULL REFERENCES users(id),
	status       TEXT NOT NULL DEFAULT 'To Do' CHECK (status IN ('To Do', 'In Progress', 'Done')),
	priority     TEXT NOT NULL DEFAULT 'Medium' CHECK (priority IN ('Low', 'Medium', 'High')),
	due_date     TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks (assigned_to);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks (created_at DESC);`,
	},
	{
		version: 3,
		name:    "users_telegram_chat",
		sql:     `ALTER TABLE users ADD COLUMN IF NOT EXISTS telegram_chat_id BIGINT;`,
	},
	{
		version: 4,
		name:    "telegram_links",
		sql: `
CREATE TABLE IF NOT EXISTS telegram_links (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	code        TEXT NOT NULL UNIQUE,
	expires_at  TIMESTAMPTZ NOT NULL,
	used        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
	version    INT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	current := 0
	if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: record version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", m.version, err)
		}
		log.Printf("[db][migrate] applied version=%d name=%s", m.version, m.name)
	}
	return nil
}
