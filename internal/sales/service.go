package sales

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/pricing"
)

// CacheInvalidator is notified after every committed write so dashboards
// never serve stale figures.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service records and reports orders.
type Service struct {
	repo      Repository
	engine    *pricing.Engine
	cache     CacheInvalidator
	loc       *time.Location
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the service. cache may be nil.
func NewService(repo Repository, engine *pricing.Engine, cache CacheInvalidator, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		engine:    engine,
		cache:     cache,
		loc:       loc,
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrder prices, settles and records an order and decrements menu stock
// in one transaction. A non-empty idempotencyKey makes retries safe.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput, createdBy int64, idempotencyKey string) (*Order, error) {
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	platform, ok := pricing.ParsePlatform(in.Platform)
	if !ok {
		return nil, &httpx.ValidationError{Fields: map[string]string{"platform": "unknown platform"}}
	}
	status := StatusCompleted
	if in.Status != "" {
		status = Status(in.Status)
	}
	items := mergeItems(in.Items)
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MenuItemID)
	}

	order := &Order{
		Platform:  platform,
		Status:    status,
		OrderedAt: s.now().UTC(),
	}
	if createdBy > 0 {
		order.CreatedBy = &createdBy
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if key := strings.TrimSpace(idempotencyKey); key != "" {
			if err := tx.ClaimIdempotencyKey(ctx, key); err != nil {
				return err
			}
		}
		snapshots, err := tx.LockMenuItems(ctx, ids)
		if err != nil {
			return err
		}
		lines, pricingLines, err := buildLines(items, snapshots, platform)
		if err != nil {
			return err
		}
		settlement, err := s.engine.Settle(pricingLines, in.Discount, platform)
		if err != nil {
			return err
		}
		order.Settlement = settlement
		order.Lines = lines

		for _, item := range items {
			if err := tx.AdjustMenuStock(ctx, item.MenuItemID, -item.Quantity); err != nil {
				return err
			}
		}
		number, err := tx.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.bump(ctx)
	s.logger.Info("order recorded",
		slog.String("order_number", order.OrderNumber),
		slog.String("platform", string(order.Platform)),
		slog.Float64("total", order.Settlement.Total),
	)
	return order, nil
}

// CancelOrder cancels a completed or pending order and returns its items to stock.
func (s *Service) CancelOrder(ctx context.Context, id int64) (*Order, error) {
	var order *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			return ErrInvalidStatus
		}
		for _, line := range current.Lines {
			if line.MenuItemID == nil {
				continue
			}
			if err := tx.AdjustMenuStock(ctx, *line.MenuItemID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.UpdateOrderStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		current.Status = StatusCancelled
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bump(ctx)
	s.logger.Info("order cancelled", slog.String("order_number", order.OrderNumber))
	return order, nil
}

// GetOrder returns one order with its lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns the orders of a business day, optionally for one platform.
func (s *Service) ListOrders(ctx context.Context, day time.Time, platform pricing.Platform) ([]Order, error) {
	from, to := s.dayBounds(day)
	return s.repo.ListOrders(ctx, ListFilter{From: from, To: to, Platform: platform})
}

// DailySummary aggregates the non-cancelled orders of a business day.
func (s *Service) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	orders, err := s.ListOrders(ctx, day, "")
	if err != nil {
		return nil, err
	}
	summary := Summarize(orders, s.day(day))
	return &summary, nil
}

// Today returns the current date in the business time zone.
func (s *Service) Today() time.Time {
	return s.day(s.now())
}

// ParseDay parses YYYY-MM-DD in the business time zone; empty means today.
func (s *Service) ParseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.Today(), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, s.loc)
	if err != nil {
		return time.Time{}, &httpx.ValidationError{Fields: map[string]string{"date": "must be YYYY-MM-DD"}}
	}
	return day, nil
}

func (s *Service) day(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

func (s *Service) dayBounds(day time.Time) (time.Time, time.Time) {
	start := s.day(day)
	return start, start.AddDate(0, 0, 1)
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump analytics cache", slog.Any("error", err))
	}
}

// Summarize totals the non-cancelled orders. Platforms appear in canonical
// order and only when they have orders.
func Summarize(orders []Order, day time.Time) DailySummary {
	summary := DailySummary{Date: day.Format(time.DateOnly)}
	byPlatform := make(map[pricing.Platform]*PlatformBreakdown)
	for _, o := range orders {
		if o.Status == StatusCancelled {
			continue
		}
		st := o.Settlement
		summary.Orders++
		summary.TotalSales += st.Total
		summary.Commission += st.Commission
		summary.NetRevenue += st.NetRevenue
		summary.TotalCost += st.TotalCost
		summary.Profit += st.Profit

		b, ok := byPlatform[o.Platform]
		if !ok {
			b = &PlatformBreakdown{Platform: o.Platform}
			byPlatform[o.Platform] = b
		}
		b.Orders++
		b.Revenue += st.Total
		b.Commission += st.Commission
		b.Profit += st.Profit
	}

	summary.TotalSales = round2(summary.TotalSales)
	summary.Commission = round2(summary.Commission)
	summary.NetRevenue = round2(summary.NetRevenue)
	summary.TotalCost = round2(summary.TotalCost)
	summary.Profit = round2(summary.Profit)

	summary.Platforms = make([]PlatformBreakdown, 0, len(byPlatform))
	for _, p := range pricing.Platforms() {
		if b, ok := byPlatform[p]; ok {
			b.Revenue = round2(b.Revenue)
			b.Commission = round2(b.Commission)
			b.Profit = round2(b.Profit)
			summary.Platforms = append(summary.Platforms, *b)
			delete(byPlatform, p)
		}
	}
	rest := make([]pricing.Platform, 0, len(byPlatform))
	for p := range byPlatform {
		rest = append(rest, p)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, p := range rest {
		summary.Platforms = append(summary.Platforms, *byPlatform[p])
	}
	return summary
}

// mergeItems folds repeated menu items into one line, keeping first-seen order.
func mergeItems(in []ItemInput) []ItemInput {
	index := make(map[int64]int, len(in))
	out := make([]ItemInput, 0, len(in))
	for _, item := range in {
		if i, ok := index[item.MenuItemID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.MenuItemID] = len(out)
		out = append(out, item)
	}
	return out
}

func buildLines(items []ItemInput, snapshots map[int64]MenuSnapshot, platform pricing.Platform) ([]OrderLine, []pricing.OrderLine, error) {
	lines := make([]OrderLine, 0, len(items))
	pricingLines := make([]pricing.OrderLine, 0, len(items))
	for _, item := range items {
		snap, ok := snapshots[item.MenuItemID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: id %d", ErrMenuItemNotFound, item.MenuItemID)
		}
		if !snap.IsAvailable {
			return nil, nil, fmt.Errorf("%w: %s", ErrItemUnavailable, snap.Name)
		}
		if snap.Stock < item.Quantity {
			return nil, nil, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, snap.Name, snap.Stock)
		}
		price, ok := snap.Prices.For(platform)
		if !ok {
			return nil, nil, &httpx.ValidationError{Fields: map[string]string{"platform": "no menu price for platform"}}
		}
		id := snap.ID
		pl := pricing.OrderLine{
			ItemRef:   snap.Name,
			Quantity:  item.Quantity,
			UnitPrice: float64(price),
			UnitCost:  snap.TotalCost,
		}
		pricingLines = append(pricingLines, pl)
		lines = append(lines, OrderLine{
			MenuItemID: &id,
			Name:       snap.Name,
			Quantity:   item.Quantity,
			UnitPrice:  pl.UnitPrice,
			UnitCost:   pl.UnitCost,
			Subtotal:   round2(pl.Subtotal()),
			LineCost:   round2(pl.LineCost()),
		})
	}
	return lines, pricingLines, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
