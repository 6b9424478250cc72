package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Service coordinates analytics query execution with the cache layer.
type Service struct {
	repo   Repository
	cache  *Cache
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, loc: loc, logger: logger, now: time.Now}
}

// Window resolves a range against the current business day.
func (s *Service) Window(r Range) Window {
	return WindowFor(r, s.now(), s.loc)
}

// Bump invalidates every cached section.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warmup precomputes every section of every range so the first dashboard
// visit after a bump is served from cache.
func (s *Service) Warmup(ctx context.Context) error {
	for _, r := range Ranges() {
		w := s.Window(r)
		if _, err := s.GetKPISummary(ctx, w); err != nil {
			return fmt.Errorf("warm %s kpis: %w", r, err)
		}
		if _, err := s.GetDailySeries(ctx, w); err != nil {
			return fmt.Errorf("warm %s daily: %w", r, err)
		}
		if _, err := s.GetPlatformShare(ctx, w); err != nil {
			return fmt.Errorf("warm %s platforms: %w", r, err)
		}
		if _, err := s.GetTopItems(ctx, w); err != nil {
			return fmt.Errorf("warm %s top items: %w", r, err)
		}
		if _, err := s.GetMonthlyTrend(ctx, w); err != nil {
			return fmt.Errorf("warm %s monthly: %w", r, err)
		}
	}
	s.logger.Debug("analytics cache warmed", slog.Int("ranges", len(Ranges())))
	return nil
}

// cached serves section from the versioned cache, computing it with load on
// a miss.
func cached[T any](ctx context.Context, s *Service, section string, w Window, load func(context.Context) (T, error)) (T, error) {
	var out T
	key, err := s.cache.BuildKey(ctx, sectionKey(section, w))
	if err != nil {
		return out, err
	}
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	return out, err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
