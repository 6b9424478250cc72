package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/pricing"
)

// Service implements menu business rules.
type Service struct {
	repo      Repository
	engine    *pricing.Engine
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService wires the service. The engine's pricing table must cover every
// platform that has a stored price column.
func NewService(repo Repository, engine *pricing.Engine, logger *slog.Logger) (*Service, error) {
	configured := make(map[pricing.Platform]struct{})
	for _, r := range engine.PricingRates() {
		configured[r.Platform] = struct{}{}
	}
	for _, p := range menuPlatforms {
		if _, ok := configured[p]; !ok {
			return nil, fmt.Errorf("menu: pricing rates missing platform %q", p)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, engine: engine, validator: validator.New(), logger: logger}, nil
}

// Quote previews the recommended prices without persisting anything.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (*Quote, error) {
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	breakdown := toBreakdown(in.Expenses)
	results, err := s.engine.Quote(breakdown, in.DesiredProfit)
	if err != nil {
		return nil, err
	}
	return &Quote{
		TotalCost:     breakdown.TotalCost(),
		DesiredProfit: in.DesiredProfit,
		Results:       results,
		Prices:        PricesFromResults(results),
	}, nil
}

// List returns menu items, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]MenuItem, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a single item.
func (s *Service) Get(ctx context.Context, id int64) (*MenuItem, error) {
	return s.repo.Get(ctx, id)
}

// Create validates the input, rejects duplicates and stores the item with
// its recommended prices.
func (s *Service) Create(ctx context.Context, in ItemInput) (*MenuItem, error) {
	item, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByNameCategory(ctx, item.Name, item.Category)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing menu item: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicate
	}
	item.IsAvailable = true
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	item.refreshStatus()
	s.logger.Info("menu item created",
		slog.Int64("menu_item_id", item.ID),
		slog.String("name", item.Name),
		slog.Float64("total_cost", item.TotalCost))
	return item, nil
}

// Update replaces an item's details and recomputes its prices.
func (s *Service) Update(ctx context.Context, id int64, in ItemInput) (*MenuItem, error) {
	item, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByNameCategory(ctx, item.Name, item.Category)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing menu item: %w", err)
	}
	if existing != nil && existing.ID != id {
		return nil, ErrDuplicate
	}
	item.ID = id
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	item.refreshStatus()
	return item, nil
}

// SetAvailability toggles whether an item can be ordered.
func (s *Service) SetAvailability(ctx context.Context, id int64, available bool) (*MenuItem, error) {
	if err := s.repo.SetAvailability(ctx, id, available); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("menu item deleted", slog.Int64("menu_item_id", id))
	return nil
}

// LowStock lists items at or below their minimum stock.
func (s *Service) LowStock(ctx context.Context) ([]MenuItem, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) build(ctx context.Context, in ItemInput) (*MenuItem, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	for i := range in.Expenses {
		in.Expenses[i].Name = strings.TrimSpace(in.Expenses[i].Name)
	}
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	breakdown := toBreakdown(in.Expenses)
	results, err := s.engine.Quote(breakdown, in.DesiredProfit)
	if err != nil {
		return nil, err
	}
	return &MenuItem{
		Name:          in.Name,
		Category:      in.Category,
		Description:   in.Description,
		Expenses:      breakdown,
		TotalCost:     breakdown.TotalCost(),
		DesiredProfit: in.DesiredProfit,
		Prices:        PricesFromResults(results),
		Stock:         in.Stock,
		MinStock:      in.MinStock,
	}, nil
}
