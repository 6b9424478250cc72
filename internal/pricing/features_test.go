package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
)

type pricingTestContext struct {
	breakdown  CostBreakdown
	profit     float64
	rates      []PlatformRate
	lines      []OrderLine
	discount   float64
	results    []PricingResult
	settlement Settlement
	err        error
}

func (c *pricingTestContext) reset() {
	*c = pricingTestContext{}
}

func (c *pricingTestContext) aCostBreakdownOf(table *godog.Table) error {
	c.breakdown = CostBreakdown{}
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		cost, err := strconv.ParseFloat(row.Cells[1].Value, 64)
		if err != nil {
			return err
		}
		c.breakdown = append(c.breakdown, ExpenseLine{Name: row.Cells[0].Value, Cost: cost})
	}
	return nil
}

func (c *pricingTestContext) anEmptyCostBreakdown() error {
	c.breakdown = CostBreakdown{}
	return nil
}

func (c *pricingTestContext) aDesiredProfitOf(profit float64) error {
	c.profit = profit
	return nil
}

func (c *pricingTestContext) aCommissionOfPercentOn(pct float64, platform string) error {
	c.rates = append(c.rates, PlatformRate{Platform: Platform(platform), CommissionPercent: pct})
	return nil
}

func (c *pricingTestContext) iComputePlatformPrices() error {
	c.results, c.err = ComputePlatformPrices(c.breakdown, c.profit, c.rates)
	return nil
}

func (c *pricingTestContext) theRecommendedPriceOnIs(platform string, price int64) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %w", c.err)
	}
	for _, r := range c.results {
		if r.Platform == Platform(platform) {
			if r.RecommendedPrice != price {
				return fmt.Errorf("expected %d on %s, got %d", price, platform, r.RecommendedPrice)
			}
			return nil
		}
	}
	return fmt.Errorf("no result for %s", platform)
}

func (c *pricingTestContext) theRequestIsRejectedAsInvalidInput() error {
	if !errors.Is(c.err, ErrInvalidInput) {
		return fmt.Errorf("expected invalid input, got %v", c.err)
	}
	return nil
}

func (c *pricingTestContext) anOrderLineOfXCostingEach(qty int, price, cost float64) error {
	c.lines = append(c.lines, OrderLine{ItemRef: fmt.Sprintf("line-%d", len(c.lines)+1), Quantity: qty, UnitPrice: price, UnitCost: cost})
	return nil
}

func (c *pricingTestContext) aDiscountOf(discount float64) error {
	c.discount = discount
	return nil
}

func (c *pricingTestContext) iSettleTheOrderAtPercentCommission(pct float64) error {
	c.settlement, c.err = ComputeOrderSettlement(c.lines, c.discount, pct, DiscountClamp)
	return nil
}

func (c *pricingTestContext) theSettlementIs(field string, want float64) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %w", c.err)
	}
	var got float64
	switch field {
	case "subtotal":
		got = c.settlement.Subtotal
	case "total":
		got = c.settlement.Total
	case "commission":
		got = c.settlement.Commission
	case "net revenue":
		got = c.settlement.NetRevenue
	case "profit":
		got = c.settlement.Profit
	default:
		return fmt.Errorf("unknown settlement field %q", field)
	}
	if math.Abs(got-want) > 1e-9 {
		return fmt.Errorf("expected %s %v, got %v", field, want, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &pricingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a cost breakdown of:$`, tc.aCostBreakdownOf)
	ctx.Step(`^an empty cost breakdown$`, tc.anEmptyCostBreakdown)
	ctx.Step(`^a desired profit of (-?\d+(?:\.\d+)?)$`, tc.aDesiredProfitOf)
	ctx.Step(`^a commission of (-?\d+(?:\.\d+)?) percent on (\w+)$`, tc.aCommissionOfPercentOn)
	ctx.Step(`^I compute platform prices$`, tc.iComputePlatformPrices)
	ctx.Step(`^the recommended price on (\w+) is (\d+)$`, tc.theRecommendedPriceOnIs)
	ctx.Step(`^the request is rejected as invalid input$`, tc.theRequestIsRejectedAsInvalidInput)
	ctx.Step(`^an order line of (\d+) x (\d+(?:\.\d+)?) costing (\d+(?:\.\d+)?) each$`, tc.anOrderLineOfXCostingEach)
	ctx.Step(`^a discount of (\d+(?:\.\d+)?)$`, tc.aDiscountOf)
	ctx.Step(`^I settle the order at (\d+(?:\.\d+)?) percent commission$`, tc.iSettleTheOrderAtPercentCommission)
	ctx.Step(`^the settlement (subtotal|total|commission|net revenue|profit) is (-?\d+(?:\.\d+)?)$`, tc.theSettlementIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
