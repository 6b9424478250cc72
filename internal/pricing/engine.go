package pricing

import (
	"errors"
	"fmt"
)

// Observer receives engine outcomes, typically to feed metrics.
type Observer interface {
	QuoteComputed(platforms int)
	SettlementComputed(platform Platform)
	InputRejected(operation string)
}

// Engine binds the pricing and settlement rate tables with a discount policy.
// The two tables are deliberately independent.
type Engine struct {
	pricing    RateTable
	settlement RateTable
	policy     DiscountPolicy
	observer   Observer
}

// EngineConfig configures an Engine. Nil tables fall back to the defaults.
type EngineConfig struct {
	PricingRates    RateTable
	SettlementRates RateTable
	DiscountPolicy  DiscountPolicy
	Observer        Observer
}

// NewEngine validates the configuration and builds an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	pricing := cfg.PricingRates
	if pricing == nil {
		pricing = DefaultPricingRates()
	}
	settlement := cfg.SettlementRates
	if settlement == nil {
		settlement = DefaultSettlementRates()
	}
	if err := pricing.Validate(); err != nil {
		return nil, fmt.Errorf("pricing rates: %w", err)
	}
	if err := settlement.Validate(); err != nil {
		return nil, fmt.Errorf("settlement rates: %w", err)
	}
	policy := cfg.DiscountPolicy
	if policy == "" {
		policy = DiscountClamp
	}
	if policy != DiscountClamp && policy != DiscountReject {
		return nil, invalid("discount_policy", "must be clamp or reject, got %q", policy)
	}
	return &Engine{
		pricing:    copyTable(pricing),
		settlement: copyTable(settlement),
		policy:     policy,
		observer:   cfg.Observer,
	}, nil
}

// Quote recommends a price on every platform of the pricing table.
func (e *Engine) Quote(breakdown CostBreakdown, desiredProfit float64) ([]PricingResult, error) {
	results, err := ComputePlatformPrices(breakdown, desiredProfit, e.pricing.Rates())
	if err != nil {
		e.rejected("quote", err)
		return nil, err
	}
	if e.observer != nil {
		e.observer.QuoteComputed(len(results))
	}
	return results, nil
}

// Settle computes the settlement of an order placed on the given platform
// using the settlement table.
func (e *Engine) Settle(lines []OrderLine, discount float64, platform Platform) (Settlement, error) {
	pct, ok := e.settlement.Rate(platform)
	if !ok {
		err := invalid("platform", "no settlement rate configured for %q", platform)
		e.rejected("settle", err)
		return Settlement{}, err
	}
	settlement, err := ComputeOrderSettlement(lines, discount, pct, e.policy)
	if err != nil {
		e.rejected("settle", err)
		return Settlement{}, err
	}
	settlement.Platform = platform
	if e.observer != nil {
		e.observer.SettlementComputed(platform)
	}
	return settlement, nil
}

// PricingRates returns the pricing table in canonical order.
func (e *Engine) PricingRates() []PlatformRate {
	return e.pricing.Rates()
}

// SettlementRates returns the settlement table in canonical order.
func (e *Engine) SettlementRates() []PlatformRate {
	return e.settlement.Rates()
}

// Divergences lists the platforms on which the two tables disagree.
func (e *Engine) Divergences() []Divergence {
	return DivergentPlatforms(e.pricing, e.settlement)
}

// Policy returns the configured discount policy.
func (e *Engine) Policy() DiscountPolicy {
	return e.policy
}

func (e *Engine) rejected(op string, err error) {
	if e.observer != nil && errors.Is(err, ErrInvalidInput) {
		e.observer.InputRejected(op)
	}
}

func copyTable(t RateTable) RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
