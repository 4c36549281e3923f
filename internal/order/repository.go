// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"fmt"
	"time"

	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/money"
)

type Repository interface {
	ListByUserID(ctx context.Context, userID string) ([]Order, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const orderColumns = `id, order_number, user_id, items, subtotal,
		       delivery_method, delivery_cost, total_amount,
		       payment_method, payment_status, status,
		       delivery_address, notes, created_at, updated_at`

// ListByUserID returns a freshly queried, fully materialized slice.
func (r *repository) ListByUserID(
	ctx context.Context,
	userID string,
) ([]Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	orders := []Order{}
	if err := r.db.SelectContext(ctx, &orders, query, userID); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return orders, nil
}

// Stats counts orders overall and since the start of now's month, along
// with that month's revenue and the active customer base.
func (r *repository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	query := `
		SELECT
			(SELECT COUNT(*) FROM users
			  WHERE is_active = TRUE AND role <> 'admin')          AS total_customers,
			(SELECT COUNT(*) FROM orders)                          AS total_orders,
			COUNT(*)                                               AS orders_this_month,
			COALESCE(SUM(total_amount), 0)                         AS revenue_this_month
		FROM orders
		WHERE created_at >= $1`

	var row struct {
		TotalCustomers   int   `db:"total_customers"`
		TotalOrders      int   `db:"total_orders"`
		OrdersThisMonth  int   `db:"orders_this_month"`
		RevenueThisMonth int64 `db:"revenue_this_month"`
	}
	if err := r.db.GetContext(ctx, &row, query, monthStart); err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	return &Stats{
		TotalCustomers:   row.TotalCustomers,
		TotalOrders:      row.TotalOrders,
		OrdersThisMonth:  row.OrdersThisMonth,
		RevenueThisMonth: money.Amount(row.RevenueThisMonth),
	}, nil
}
