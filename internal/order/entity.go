// AngelaMos | 2026
// entity.go

package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexxstore/storefront/internal/money"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID              int64         `json:"id" db:"id"`
	OrderNumber     string        `json:"orderNumber" db:"order_number"`
	UserID          string        `json:"userId" db:"user_id"`
	Items           Items         `json:"items" db:"items"`
	Subtotal        money.Amount  `json:"subtotal" db:"subtotal"`
	DeliveryMethod  string        `json:"deliveryMethod" db:"delivery_method"`
	DeliveryCost    money.Amount  `json:"deliveryCost" db:"delivery_cost"`
	TotalAmount     money.Amount  `json:"totalAmount" db:"total_amount"`
	PaymentMethod   string        `json:"paymentMethod" db:"payment_method"`
	PaymentStatus   PaymentStatus `json:"paymentStatus" db:"payment_status"`
	Status          Status        `json:"status" db:"status"`
	DeliveryAddress string        `json:"deliveryAddress" db:"delivery_address"`
	Notes           string        `json:"notes" db:"notes"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

type Item struct {
	ProductID int64        `json:"productId"`
	Name      string       `json:"name"`
	Price     money.Amount `json:"price"`
	Quantity  int          `json:"quantity"`
	Total     money.Amount `json:"total"`
}

type Items []Item

func (it Items) Value() (driver.Value, error) {
	if it == nil {
		it = Items{}
	}
	b, err := json.Marshal([]Item(it))
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}
	return string(b), nil
}

func (it *Items) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*it = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan order items: unsupported type %T", src)
	}
	return json.Unmarshal(raw, (*[]Item)(it))
}

// Stats is the storefront dashboard summary.
type Stats struct {
	TotalCustomers   int          `json:"totalUsers"`
	TotalOrders      int          `json:"totalOrders"`
	OrdersThisMonth  int          `json:"ordersThisMonth"`
	RevenueThisMonth money.Amount `json:"revenueThisMonth"`
}
