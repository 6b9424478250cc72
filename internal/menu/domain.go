// Package menu manages menu items and their recommended platform prices.
package menu

import (
	"fmt"
	"time"

	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/pricing"
)

var (
	ErrNotFound  = fmt.Errorf("menu item: %w", httpx.ErrNotFound)
	ErrDuplicate = fmt.Errorf("menu item with this name already exists in the category: %w", httpx.ErrDuplicate)
)

// StockStatus buckets an item's stock relative to its minimum.
type StockStatus string

const (
	StockLow    StockStatus = "low"
	StockMedium StockStatus = "medium"
	StockGood   StockStatus = "good"
)

// StockStatusOf classifies stock against the minimum level.
func StockStatusOf(stock, minStock int) StockStatus {
	switch {
	case stock <= minStock:
		return StockLow
	case float64(stock) <= float64(minStock)*1.5:
		return StockMedium
	default:
		return StockGood
	}
}

// Prices are the recommended whole-currency prices per platform.
type Prices struct {
	Zomato  int64 `json:"zomato"`
	Swiggy  int64 `json:"swiggy"`
	Offline int64 `json:"offline"`
	Online  int64 `json:"online"`
}

// menuPlatforms must all be present in the pricing table.
var menuPlatforms = []pricing.Platform{pricing.PlatformZomato, pricing.PlatformSwiggy, pricing.PlatformOffline, pricing.PlatformOnline}

// PricesFromResults maps engine results onto the stored price columns.
func PricesFromResults(results []pricing.PricingResult) Prices {
	var p Prices
	for _, r := range results {
		switch r.Platform {
		case pricing.PlatformZomato:
			p.Zomato = r.RecommendedPrice
		case pricing.PlatformSwiggy:
			p.Swiggy = r.RecommendedPrice
		case pricing.PlatformOffline:
			p.Offline = r.RecommendedPrice
		case pricing.PlatformOnline:
			p.Online = r.RecommendedPrice
		}
	}
	return p
}

// For returns the selling price on a platform. Dine-in orders use the
// offline price.
func (p Prices) For(platform pricing.Platform) (int64, bool) {
	switch platform {
	case pricing.PlatformZomato:
		return p.Zomato, true
	case pricing.PlatformSwiggy:
		return p.Swiggy, true
	case pricing.PlatformOffline, pricing.PlatformDineIn:
		return p.Offline, true
	case pricing.PlatformOnline:
		return p.Online, true
	default:
		return 0, false
	}
}

// MenuItem is a dish with its cost breakdown and stored prices.
type MenuItem struct {
	ID            int64                 `json:"id"`
	Name          string                `json:"name"`
	Category      string                `json:"category"`
	Description   string                `json:"description"`
	Expenses      pricing.CostBreakdown `json:"expenses"`
	TotalCost     float64               `json:"total_cost"`
	DesiredProfit float64               `json:"desired_profit"`
	Prices        Prices                `json:"prices"`
	Stock         int                   `json:"stock"`
	MinStock      int                   `json:"min_stock"`
	IsAvailable   bool                  `json:"is_available"`
	StockStatus   StockStatus           `json:"stock_status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func (m *MenuItem) refreshStatus() {
	m.StockStatus = StockStatusOf(m.Stock, m.MinStock)
}

// ExpenseInput is one expense line of a request.
type ExpenseInput struct {
	Name string  `json:"name" validate:"required,max=80"`
	Cost float64 `json:"cost" validate:"gte=0"`
}

// ItemInput is the payload for creating or updating a menu item.
type ItemInput struct {
	Name          string         `json:"name" validate:"required,max=120"`
	Category      string         `json:"category" validate:"required,max=60"`
	Description   string         `json:"description" validate:"required,max=500"`
	Expenses      []ExpenseInput `json:"expenses" validate:"required,min=1,dive"`
	DesiredProfit float64        `json:"desired_profit" validate:"gte=0"`
	Stock         int            `json:"stock" validate:"gte=0"`
	MinStock      int            `json:"min_stock" validate:"gte=0"`
}

// QuoteInput is the payload for a price preview.
type QuoteInput struct {
	Expenses      []ExpenseInput `json:"expenses" validate:"required,min=1,dive"`
	DesiredProfit float64        `json:"desired_profit" validate:"gte=0"`
}

// Quote is a price preview.
type Quote struct {
	TotalCost     float64                 `json:"total_cost"`
	DesiredProfit float64                 `json:"desired_profit"`
	Results       []pricing.PricingResult `json:"results"`
	Prices        Prices                  `json:"prices"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Category string
	Search   string
}

func toBreakdown(lines []ExpenseInput) pricing.CostBreakdown {
	out := make(pricing.CostBreakdown, len(lines))
	for i, l := range lines {
		out[i] = pricing.ExpenseLine{Name: l.Name, Cost: l.Cost}
	}
	return out
}
