package pricing

import (
	"fmt"
	"math"
	"strings"
)

// coverSlack is the shortfall below target still treated as covered: four ulps
// of target, the rounding error of the division and multiplication.
func coverSlack(target float64) float64 {
	return 4 * (math.Nextafter(target, math.Inf(1)) - target)
}

// maxPrice is the first float64 that no longer fits an int64.
const maxPrice = float64(math.MaxInt64)

// ComputePlatformPrices returns, for every rate in order, the smallest whole
// price that still yields totalCost+desiredProfit after the platform commission.
func ComputePlatformPrices(breakdown CostBreakdown, desiredProfit float64, rates []PlatformRate) ([]PricingResult, error) {
	if err := validateBreakdown(breakdown); err != nil {
		return nil, err
	}
	if !validAmount(desiredProfit) {
		return nil, invalid("desired_profit", "must be a finite amount of zero or more, got %v", desiredProfit)
	}
	if len(rates) == 0 {
		return nil, invalid("rates", "at least one platform rate is required")
	}
	seen := make(map[Platform]struct{}, len(rates))
	for i, rate := range rates {
		if rate.Platform == "" {
			return nil, invalid(fmt.Sprintf("rates[%d].platform", i), "is required")
		}
		if _, dup := seen[rate.Platform]; dup {
			return nil, invalid(fmt.Sprintf("rates[%d].platform", i), "platform %q listed twice", rate.Platform)
		}
		seen[rate.Platform] = struct{}{}
		if err := validateCommission(fmt.Sprintf("rates[%d].commission_percent", i), rate.CommissionPercent); err != nil {
			return nil, err
		}
	}

	target := breakdown.TotalCost() + desiredProfit
	results := make([]PricingResult, len(rates))
	for i, rate := range rates {
		price, ok := recommendedPrice(target, rate.CommissionPercent)
		if !ok {
			return nil, invalid(fmt.Sprintf("rates[%d]", i), "price for %s exceeds the supported range", rate.Platform)
		}
		results[i] = PricingResult{Platform: rate.Platform, RecommendedPrice: price}
	}
	return results, nil
}

// recommendedPrice is the smallest whole price p with p*(1-c/100) >= target.
// ok is false when that price does not fit an int64.
func recommendedPrice(target, commissionPercent float64) (int64, bool) {
	keep := 1 - commissionPercent/100
	price := math.Ceil(target / keep)
	if math.IsNaN(price) || price >= maxPrice {
		return 0, false
	}
	if lower := price - 1; lower >= 0 && target-lower*keep <= coverSlack(target) {
		price = lower
	}
	return int64(price), true
}

// ComputeOrderSettlement totals the order lines, applies the discount under the
// given policy and splits the result into commission, net revenue and profit.
// Monetary outputs are rounded to two decimals.
func ComputeOrderSettlement(lines []OrderLine, discount, commissionPercent float64, policy DiscountPolicy) (Settlement, error) {
	if !validAmount(discount) {
		return Settlement{}, invalid("discount", "must be a finite amount of zero or more, got %v", discount)
	}
	if err := validateCommission("commission_percent", commissionPercent); err != nil {
		return Settlement{}, err
	}

	var subtotal, totalCost float64
	for i, line := range lines {
		if line.Quantity < 1 {
			return Settlement{}, invalid(fmt.Sprintf("lines[%d].quantity", i), "must be at least 1, got %d", line.Quantity)
		}
		if !validAmount(line.UnitPrice) {
			return Settlement{}, invalid(fmt.Sprintf("lines[%d].unit_price", i), "must be a finite amount of zero or more, got %v", line.UnitPrice)
		}
		if !validAmount(line.UnitCost) {
			return Settlement{}, invalid(fmt.Sprintf("lines[%d].unit_cost", i), "must be a finite amount of zero or more, got %v", line.UnitCost)
		}
		subtotal += line.Subtotal()
		totalCost += line.LineCost()
	}
	if math.IsInf(subtotal, 0) || math.IsInf(totalCost, 0) {
		return Settlement{}, invalid("lines", "order totals exceed the supported range")
	}

	if discount > subtotal && policy == DiscountReject {
		return Settlement{}, invalid("discount", "%v exceeds subtotal %v", discount, subtotal)
	}

	total := math.Max(0, subtotal-discount)
	commission := roundMoney(total * commissionPercent / 100)
	total = roundMoney(total)
	net := roundMoney(total - commission)
	totalCost = roundMoney(totalCost)

	return Settlement{
		CommissionPercent: commissionPercent,
		Subtotal:          roundMoney(subtotal),
		Discount:          roundMoney(discount),
		Total:             total,
		Commission:        commission,
		NetRevenue:        net,
		TotalCost:         totalCost,
		Profit:            roundMoney(net - totalCost),
	}, nil
}

func validateBreakdown(breakdown CostBreakdown) error {
	if len(breakdown) == 0 {
		return invalid("expenses", "at least one expense line is required")
	}
	for i, line := range breakdown {
		if strings.TrimSpace(line.Name) == "" {
			return invalid(fmt.Sprintf("expenses[%d].name", i), "is required")
		}
		if !validAmount(line.Cost) {
			return invalid(fmt.Sprintf("expenses[%d].cost", i), "must be a finite amount of zero or more, got %v", line.Cost)
		}
	}
	return nil
}

// validAmount reports whether v is a finite, non-negative amount.
func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
