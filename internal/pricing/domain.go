// Package pricing computes platform selling prices from a cost breakdown and
// settles orders into revenue, commission and profit.
//
// Every function in this package is pure: no I/O, no shared mutable state, so
// the engine is safe for concurrent use.
package pricing

import "strings"

// Platform identifies a sales channel.
type Platform string

const (
	PlatformZomato  Platform = "zomato"
	PlatformSwiggy  Platform = "swiggy"
	PlatformOffline Platform = "offline"
	PlatformOnline  Platform = "online"
	PlatformDineIn  Platform = "dine_in"
)

// platformOrder is the canonical ordering used when a rate table is flattened.
var platformOrder = []Platform{PlatformZomato, PlatformSwiggy, PlatformOffline, PlatformOnline, PlatformDineIn}

// Platforms returns all known platforms in canonical order.
func Platforms() []Platform {
	out := make([]Platform, len(platformOrder))
	copy(out, platformOrder)
	return out
}

// ParsePlatform normalises user input such as "Dine-in" or "ZOMATO".
func ParsePlatform(raw string) (Platform, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, p := range platformOrder {
		if string(p) == normalized {
			return p, true
		}
	}
	return "", false
}

// Label returns a display label for the platform.
func (p Platform) Label() string {
	switch p {
	case PlatformZomato:
		return "Zomato"
	case PlatformSwiggy:
		return "Swiggy"
	case PlatformOffline:
		return "Offline"
	case PlatformOnline:
		return "Online"
	case PlatformDineIn:
		return "Dine-in"
	default:
		return string(p)
	}
}

// ExpenseLine is a single named cost component of a menu item.
type ExpenseLine struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// CostBreakdown is the ordered list of expense lines of a menu item.
type CostBreakdown []ExpenseLine

// TotalCost sums the costs of all lines.
func (b CostBreakdown) TotalCost() float64 {
	var total float64
	for _, line := range b {
		total += line.Cost
	}
	return total
}

// PlatformRate is the commission percentage charged by a platform.
type PlatformRate struct {
	Platform          Platform `json:"platform"`
	CommissionPercent float64  `json:"commission_percent"`
}

// PricingResult is the recommended whole-currency price for one platform.
type PricingResult struct {
	Platform         Platform `json:"platform"`
	RecommendedPrice int64    `json:"recommended_price"`
}

// OrderLine is one sold item of an order.
type OrderLine struct {
	ItemRef   string  `json:"item_ref"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	UnitCost  float64 `json:"unit_cost"`
}

// Subtotal is quantity times unit price.
func (l OrderLine) Subtotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// LineCost is quantity times unit cost.
func (l OrderLine) LineCost() float64 {
	return float64(l.Quantity) * l.UnitCost
}

// Settlement is the financial outcome of an order.
type Settlement struct {
	Platform          Platform `json:"platform,omitempty"`
	CommissionPercent float64  `json:"commission_percent"`
	Subtotal          float64  `json:"subtotal"`
	Discount          float64  `json:"discount"`
	Total             float64  `json:"total"`
	Commission        float64  `json:"commission"`
	NetRevenue        float64  `json:"net_revenue"`
	TotalCost         float64  `json:"total_cost"`
	Profit            float64  `json:"profit"`
}

// DiscountPolicy controls what happens when a discount exceeds the subtotal.
type DiscountPolicy string

const (
	// DiscountClamp floors the order total at zero.
	DiscountClamp DiscountPolicy = "clamp"
	// DiscountReject fails the settlement with ErrInvalidInput.
	DiscountReject DiscountPolicy = "reject"
)

// ParseDiscountPolicy validates a configured policy name.
func ParseDiscountPolicy(raw string) (DiscountPolicy, error) {
	switch DiscountPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DiscountClamp:
		return DiscountClamp, nil
	case DiscountReject:
		return DiscountReject, nil
	default:
		return "", invalid("discount_policy", "must be clamp or reject, got %q", raw)
	}
}
