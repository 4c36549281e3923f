// AngelaMos | 2026
// schema.go

package order

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/nexxstore/storefront/internal/core"
)

// orders.user_id references users, so user.Migrate must run first.
var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS orders_id_seq`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               BIGINT PRIMARY KEY DEFAULT nextval('orders_id_seq'),
		order_number     TEXT NOT NULL
		                 DEFAULT 'NEXX-' || lpad(currval('orders_id_seq')::text, 6, '0'),
		user_id          TEXT NOT NULL REFERENCES users (id),
		items            JSONB NOT NULL DEFAULT '[]'::jsonb,
		subtotal         BIGINT NOT NULL DEFAULT 0,
		delivery_method  TEXT NOT NULL DEFAULT '',
		delivery_cost    BIGINT NOT NULL DEFAULT 0,
		total_amount     BIGINT NOT NULL DEFAULT 0,
		payment_method   TEXT NOT NULL DEFAULT '',
		payment_status   TEXT NOT NULL DEFAULT 'pending',
		status           TEXT NOT NULL DEFAULT 'pending',
		delivery_address TEXT NOT NULL DEFAULT '',
		notes            TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT orders_order_number_key UNIQUE (order_number)
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS orders_created_at_idx ON orders (created_at)`,
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
	return core.ApplySchema(ctx, db, "orders", schema)
}
