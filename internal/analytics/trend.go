package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/restopro/restopro/internal/pricing"
)

// GetDailySeries returns one point per day of the window, zero-filled.
func (s *Service) GetDailySeries(ctx context.Context, w Window) ([]DailyPoint, error) {
	return cached(ctx, s, "daily", w, func(ctx context.Context) ([]DailyPoint, error) {
		rows, err := s.repo.Daily(ctx, w.From, w.To, s.loc)
		if err != nil {
			return nil, err
		}
		return FillDaily(rows, w), nil
	})
}

// GetPlatformShare returns each platform's share of orders.
func (s *Service) GetPlatformShare(ctx context.Context, w Window) ([]PlatformShare, error) {
	return cached(ctx, s, "platforms", w, func(ctx context.Context) ([]PlatformShare, error) {
		counts, err := s.repo.PlatformCounts(ctx, w.From, w.To)
		if err != nil {
			return nil, err
		}
		return Shares(counts), nil
	})
}

// GetTopItems returns the best-selling dishes by quantity.
func (s *Service) GetTopItems(ctx context.Context, w Window) ([]TopItem, error) {
	return cached(ctx, s, "top_items", w, func(ctx context.Context) ([]TopItem, error) {
		items, err := s.repo.TopItems(ctx, w.From, w.To, TopItemsLimit)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []TopItem{}
		}
		for i := range items {
			items[i].Revenue = round2(items[i].Revenue)
		}
		return items, nil
	})
}

// GetMonthlyTrend returns one point per calendar month touched by the window.
func (s *Service) GetMonthlyTrend(ctx context.Context, w Window) ([]MonthlyPoint, error) {
	return cached(ctx, s, "monthly", w, func(ctx context.Context) ([]MonthlyPoint, error) {
		rows, err := s.repo.Monthly(ctx, w.From, w.To, s.loc)
		if err != nil {
			return nil, err
		}
		return FillMonthly(rows, w), nil
	})
}

// FillDaily lays rows onto every day of the window.
func FillDaily(rows []DailyPoint, w Window) []DailyPoint {
	byDate := make(map[string]DailyPoint, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}
	var out []DailyPoint
	for d := w.From; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		p, ok := byDate[key]
		if !ok {
			p = DailyPoint{Date: key}
		}
		p.Sales = round2(p.Sales)
		p.Profit = round2(p.Profit)
		out = append(out, p)
	}
	return out
}

// FillMonthly lays rows onto every month of the window.
func FillMonthly(rows []MonthlyPoint, w Window) []MonthlyPoint {
	byMonth := make(map[string]MonthlyPoint, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r
	}
	last := w.To.AddDate(0, 0, -1)
	end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, last.Location())
	var out []MonthlyPoint
	for m := time.Date(w.From.Year(), w.From.Month(), 1, 0, 0, 0, 0, w.From.Location()); !m.After(end); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		p, ok := byMonth[key]
		if !ok {
			p = MonthlyPoint{Month: key}
		}
		p.Revenue = round2(p.Revenue)
		p.Profit = round2(p.Profit)
		out = append(out, p)
	}
	return out
}

// Shares converts order counts into percentages, largest first.
func Shares(counts []PlatformCount) []PlatformShare {
	var total int
	for _, c := range counts {
		total += c.Orders
	}
	out := make([]PlatformShare, 0, len(counts))
	if total == 0 {
		return out
	}
	for _, c := range counts {
		if c.Orders == 0 {
			continue
		}
		out = append(out, PlatformShare{
			Platform: c.Platform,
			Label:    c.Platform.Label(),
			Orders:   c.Orders,
			Percent:  round2(float64(c.Orders) / float64(total) * 100),
		})
	}
	rank := make(map[pricing.Platform]int)
	for i, p := range pricing.Platforms() {
		rank[p] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return rankOf(rank, out[i].Platform) < rankOf(rank, out[j].Platform)
	})
	return out
}
