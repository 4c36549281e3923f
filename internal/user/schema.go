// AngelaMos | 2026
// schema.go

package user

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/nexxstore/storefront/internal/core"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		phone         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'user',
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		profile_type  TEXT NOT NULL DEFAULT 'individual',
		profile       JSONB NOT NULL DEFAULT '{}'::jsonb,
		balance       BIGINT NOT NULL DEFAULT 0,
		bonus_points  BIGINT NOT NULL DEFAULT 0,
		credit_limit  BIGINT NOT NULL DEFAULT 0,
		permissions   JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email),
		CONSTRAINT users_phone_key UNIQUE (phone),
		CONSTRAINT users_balance_non_negative CHECK (balance >= 0),
		CONSTRAINT users_bonus_non_negative CHECK (bonus_points >= 0),
		CONSTRAINT users_role_check CHECK (
			role IN ('admin', 'manager', 'moderator', 'accountant', 'user')
		),
		CONSTRAINT users_profile_type_check CHECK (
			profile_type IN ('individual', 'legal')
		)
	)`,
	`CREATE INDEX IF NOT EXISTS users_active_idx ON users (is_active)`,
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	return core.ApplySchema(ctx, db, "users", schema)
}
