// Package analytics aggregates recorded orders into dashboard figures.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/pricing"
)

// Range is a dashboard lookback window ending today.
type Range string

const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
	Range1y  Range = "1y"
)

// Ranges lists every supported range.
func Ranges() []Range {
	return []Range{Range7d, Range30d, Range90d, Range1y}
}

// Days is the number of calendar days the range covers, today included.
func (r Range) Days() int {
	switch r {
	case Range30d:
		return 30
	case Range90d:
		return 90
	case Range1y:
		return 365
	default:
		return 7
	}
}

// ParseRange accepts 7d, 30d, 90d or 1y; empty means 7d.
func ParseRange(raw string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(raw))); r {
	case "":
		return Range7d, nil
	case Range7d, Range30d, Range90d, Range1y:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown range %q", httpx.ErrValidation, raw)
	}
}

// Window is the half-open interval [From, To) of business days a range covers.
type Window struct {
	Range Range
	From  time.Time
	To    time.Time
}

// WindowFor builds the window of r ending on the business day containing now.
func WindowFor(r Range, now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{
		Range: r,
		From:  today.AddDate(0, 0, -(r.Days() - 1)),
		To:    today.AddDate(0, 0, 1),
	}
}

// Totals are the raw aggregates behind the KPI card.
type Totals struct {
	Orders  int
	Revenue float64
	Profit  float64
}

// KPISummary contains the headline indicators of the dashboard.
type KPISummary struct {
	TotalRevenue      float64          `json:"total_revenue"`
	TotalOrders       int              `json:"total_orders"`
	AverageOrderValue float64          `json:"average_order_value"`
	TotalProfit       float64          `json:"total_profit"`
	ProfitMargin      float64          `json:"profit_margin"`
	TopItem           string           `json:"top_item"`
	BestPlatform      pricing.Platform `json:"best_platform"`
}

// DailyPoint is one day of the sales series.
type DailyPoint struct {
	Date   string  `json:"date"`
	Sales  float64 `json:"sales"`
	Orders int     `json:"orders"`
	Profit float64 `json:"profit"`
}

// PlatformCount is the number of orders placed on a platform.
type PlatformCount struct {
	Platform pricing.Platform `json:"platform"`
	Orders   int              `json:"orders"`
}

// PlatformShare is a platform's share of all orders.
type PlatformShare struct {
	Platform pricing.Platform `json:"platform"`
	Label    string           `json:"label"`
	Orders   int              `json:"orders"`
	Percent  float64          `json:"percent"`
}

// TopItem is a best-selling dish.
type TopItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// MonthlyPoint is one month of the trend series.
type MonthlyPoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
	Orders  int     `json:"orders"`
}

// Dashboard bundles every section for one range.
type Dashboard struct {
	Range     Range           `json:"range"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	KPIs      KPISummary      `json:"kpis"`
	Daily     []DailyPoint    `json:"daily"`
	Platforms []PlatformShare `json:"platforms"`
	TopItems  []TopItem       `json:"top_items"`
	Monthly   []MonthlyPoint  `json:"monthly"`
}

// TopItemsLimit is the number of dishes in the best-seller list.
const TopItemsLimit = 5
