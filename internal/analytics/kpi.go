package analytics

import (
	"context"

	"github.com/restopro/restopro/internal/pricing"
)

// GetKPISummary resolves the KPI card using cache-aware lookups.
func (s *Service) GetKPISummary(ctx context.Context, w Window) (KPISummary, error) {
	return cached(ctx, s, "kpi", w, func(ctx context.Context) (KPISummary, error) {
		totals, err := s.repo.Totals(ctx, w.From, w.To)
		if err != nil {
			return KPISummary{}, err
		}
		counts, err := s.repo.PlatformCounts(ctx, w.From, w.To)
		if err != nil {
			return KPISummary{}, err
		}
		top, err := s.repo.TopItems(ctx, w.From, w.To, 1)
		if err != nil {
			return KPISummary{}, err
		}
		return BuildKPISummary(totals, counts, top), nil
	})
}

// BuildKPISummary derives the headline figures. Margin and average are zero
// when there is no revenue or no order.
func BuildKPISummary(totals Totals, counts []PlatformCount, top []TopItem) KPISummary {
	k := KPISummary{
		TotalRevenue: round2(totals.Revenue),
		TotalOrders:  totals.Orders,
		TotalProfit:  round2(totals.Profit),
	}
	if totals.Orders > 0 {
		k.AverageOrderValue = round2(totals.Revenue / float64(totals.Orders))
	}
	if totals.Revenue > 0 {
		k.ProfitMargin = round2(totals.Profit / totals.Revenue * 100)
	}
	if len(top) > 0 {
		k.TopItem = top[0].Name
	}
	k.BestPlatform = bestPlatform(counts)
	return k
}

// bestPlatform picks the platform with most orders; ties go to the platform
// listed first in canonical order.
func bestPlatform(counts []PlatformCount) pricing.Platform {
	rank := make(map[pricing.Platform]int)
	for i, p := range pricing.Platforms() {
		rank[p] = i
	}
	var best PlatformCount
	for _, c := range counts {
		if c.Orders == 0 {
			continue
		}
		if best.Platform == "" || c.Orders > best.Orders ||
			(c.Orders == best.Orders && rankOf(rank, c.Platform) < rankOf(rank, best.Platform)) {
			best = c
		}
	}
	return best.Platform
}

func rankOf(rank map[pricing.Platform]int, p pricing.Platform) int {
	if r, ok := rank[p]; ok {
		return r
	}
	return len(rank)
}
