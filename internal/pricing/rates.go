package pricing

import (
	"math"
	"sort"
)

// RateTable maps platforms to their commission percentage.
type RateTable map[Platform]float64

// DefaultPricingRates are the commission rates used to recommend menu prices.
func DefaultPricingRates() RateTable {
	return RateTable{
		PlatformZomato:  38,
		PlatformSwiggy:  38,
		PlatformOffline: 20,
		PlatformOnline:  25,
	}
}

// DefaultSettlementRates are the commission rates applied when an order is recorded.
func DefaultSettlementRates() RateTable {
	return RateTable{
		PlatformDineIn: 0,
		PlatformZomato: 20,
		PlatformSwiggy: 20,
		PlatformOnline: 5,
	}
}

// NewRateTable converts raw configuration keys into a validated table.
func NewRateTable(raw map[string]float64) (RateTable, error) {
	table := make(RateTable, len(raw))
	for key, pct := range raw {
		platform, ok := ParsePlatform(key)
		if !ok {
			return nil, invalid("rates", "unknown platform %q", key)
		}
		if _, dup := table[platform]; dup {
			return nil, invalid("rates", "platform %q configured twice", platform)
		}
		table[platform] = pct
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate checks that the table is non-empty and every rate lies in [0,100).
func (t RateTable) Validate() error {
	if len(t) == 0 {
		return invalid("rates", "at least one platform rate is required")
	}
	for platform, pct := range t {
		if err := validateCommission(string(platform), pct); err != nil {
			return err
		}
	}
	return nil
}

// Rate returns the commission for a platform.
func (t RateTable) Rate(p Platform) (float64, bool) {
	pct, ok := t[p]
	return pct, ok
}

// Rates flattens the table in canonical platform order.
func (t RateTable) Rates() []PlatformRate {
	out := make([]PlatformRate, 0, len(t))
	seen := make(map[Platform]struct{}, len(t))
	for _, p := range platformOrder {
		if pct, ok := t[p]; ok {
			out = append(out, PlatformRate{Platform: p, CommissionPercent: pct})
			seen[p] = struct{}{}
		}
	}
	var extra []Platform
	for p := range t {
		if _, ok := seen[p]; !ok {
			extra = append(extra, p)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, p := range extra {
		out = append(out, PlatformRate{Platform: p, CommissionPercent: t[p]})
	}
	return out
}

// Divergence records a platform whose pricing and settlement rates disagree.
type Divergence struct {
	Platform          Platform `json:"platform"`
	PricingPercent    *float64 `json:"pricing_percent"`
	SettlementPercent *float64 `json:"settlement_percent"`
}

// DivergentPlatforms lists the platforms whose commission differs between the
// pricing and settlement tables, including platforms present in only one.
func DivergentPlatforms(pricing, settlement RateTable) []Divergence {
	var out []Divergence
	union := make(RateTable, len(pricing)+len(settlement))
	for p := range pricing {
		union[p] = 0
	}
	for p := range settlement {
		union[p] = 0
	}
	for _, rate := range union.Rates() {
		p := rate.Platform
		pp, inPricing := pricing[p]
		sp, inSettlement := settlement[p]
		if inPricing && inSettlement && math.Abs(pp-sp) < 1e-9 {
			continue
		}
		d := Divergence{Platform: p}
		if inPricing {
			v := pp
			d.PricingPercent = &v
		}
		if inSettlement {
			v := sp
			d.SettlementPercent = &v
		}
		out = append(out, d)
	}
	return out
}

func validateCommission(field string, pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct >= 100 {
		return invalid(field, "commission must be in [0,100), got %v", pct)
	}
	return nil
}
