// Package sales records orders, settles them through the pricing engine and
// reports daily totals.
package sales

import (
	"fmt"
	"time"

	"github.com/restopro/restopro/internal/menu"
	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/pricing"
)

var (
	ErrNotFound          = fmt.Errorf("order: %w", httpx.ErrNotFound)
	ErrMenuItemNotFound  = fmt.Errorf("menu item: %w", httpx.ErrNotFound)
	ErrInvalidStatus     = fmt.Errorf("invalid status transition: %w", httpx.ErrConflict)
	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", httpx.ErrConflict)
	ErrItemUnavailable   = fmt.Errorf("menu item unavailable: %w", httpx.ErrValidation)
	ErrDuplicateRequest  = fmt.Errorf("order already recorded for this idempotency key: %w", httpx.ErrConflict)
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// OrderLine is a snapshot of a sold menu item at the time of the order.
type OrderLine struct {
	ID         int64   `json:"id"`
	MenuItemID *int64  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	UnitCost   float64 `json:"unit_cost"`
	Subtotal   float64 `json:"subtotal"`
	LineCost   float64 `json:"line_cost"`
}

// Order is a recorded sale with its settlement.
type Order struct {
	ID          int64              `json:"id"`
	OrderNumber string             `json:"order_number"`
	Platform    pricing.Platform   `json:"platform"`
	Status      Status             `json:"status"`
	Settlement  pricing.Settlement `json:"settlement"`
	Lines       []OrderLine        `json:"lines"`
	OrderedAt   time.Time          `json:"ordered_at"`
	CreatedBy   *int64             `json:"created_by,omitempty"`
}

// ItemInput is one requested menu item of a new order.
type ItemInput struct {
	MenuItemID int64 `json:"menu_item_id" validate:"required,gt=0"`
	Quantity   int   `json:"quantity" validate:"required,min=1"`
}

// CreateOrderInput is the payload for recording an order.
type CreateOrderInput struct {
	Platform string      `json:"platform" validate:"required"`
	Discount float64     `json:"discount" validate:"gte=0"`
	Status   string      `json:"status" validate:"omitempty,oneof=completed pending"`
	Items    []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// MenuSnapshot is the subset of a menu item needed to price an order line.
type MenuSnapshot struct {
	ID          int64
	Name        string
	TotalCost   float64
	Prices      menu.Prices
	Stock       int
	IsAvailable bool
}

// ListFilter selects orders in [From, To).
type ListFilter struct {
	From     time.Time
	To       time.Time
	Platform pricing.Platform
}

// PlatformBreakdown aggregates one platform's orders for a day.
type PlatformBreakdown struct {
	Platform   pricing.Platform `json:"platform"`
	Orders     int              `json:"orders"`
	Revenue    float64          `json:"revenue"`
	Commission float64          `json:"commission"`
	Profit     float64          `json:"profit"`
}

// DailySummary aggregates the non-cancelled orders of a day.
type DailySummary struct {
	Date       string              `json:"date"`
	Orders     int                 `json:"orders"`
	TotalSales float64             `json:"total_sales"`
	Commission float64             `json:"commission"`
	NetRevenue float64             `json:"net_revenue"`
	TotalCost  float64             `json:"total_cost"`
	Profit     float64             `json:"profit"`
	Platforms  []PlatformBreakdown `json:"platforms"`
}

// FormatOrderNumber renders a sequence value as ORD-001. Values beyond three
// digits keep all their digits.
func FormatOrderNumber(n int64) string {
	return fmt.Sprintf("ORD-%03d", n)
}

func platformOf(raw string) pricing.Platform {
	if p, ok := pricing.ParsePlatform(raw); ok {
		return p
	}
	return pricing.Platform(raw)
}
