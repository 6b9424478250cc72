package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/restopro/restopro/internal/platform/httpx"
)

// Service implements ingredient and recipe rules.
type Service struct {
	repo      Repository
	listener  StockListener
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the service. listener may be nil.
func NewService(repo Repository, listener StockListener, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, listener: listener, validator: validator.New(), logger: logger, now: time.Now}
}

// List returns ingredients matching the filter, ordered by name.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Ingredient, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one ingredient.
func (s *Service) Get(ctx context.Context, id int64) (*Ingredient, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new ingredient after rejecting duplicate names.
func (s *Service) Create(ctx context.Context, in IngredientInput) (*Ingredient, error) {
	item, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, item.Name, 0); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	item.refreshStatus()
	return item, nil
}

// Update replaces an ingredient's attributes.
func (s *Service) Update(ctx context.Context, id int64, in IngredientInput) (*Ingredient, error) {
	item, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, item.Name, id); err != nil {
		return nil, err
	}
	item.ID = id
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	item.refreshStatus()
	s.notify(ctx, current, item)
	return item, nil
}

// UpdateStock sets an absolute stock level.
func (s *Service) UpdateStock(ctx context.Context, id int64, in StockInput) (*Ingredient, error) {
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateStock(ctx, id, *in.CurrentStock)
	if err != nil {
		return nil, err
	}
	updated.refreshStatus()
	s.notify(ctx, current, updated)
	return updated, nil
}

// Delete removes an ingredient and its recipe lines.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Summary values the whole inventory.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	items, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	summary := Summarize(items)
	return &summary, nil
}

// Critical lists ingredients at or below their minimum.
func (s *Service) Critical(ctx context.Context) ([]Ingredient, error) {
	items, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	var out []Ingredient
	for _, item := range items {
		item.refreshStatus()
		if item.Status == StatusCritical {
			out = append(out, item)
		}
	}
	return out, nil
}

// Recipe returns a menu item's recipe with possible dishes and making cost.
func (s *Service) Recipe(ctx context.Context, menuItemID int64) (*Recipe, error) {
	if err := s.ensureMenuItem(ctx, menuItemID); err != nil {
		return nil, err
	}
	lines, err := s.repo.Recipe(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, menuItemID, lines)
}

// SetRecipe replaces a menu item's recipe. Repeated ingredients are summed.
func (s *Service) SetRecipe(ctx context.Context, menuItemID int64, in RecipeInput) (*Recipe, error) {
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	if err := s.ensureMenuItem(ctx, menuItemID); err != nil {
		return nil, err
	}
	lines := mergeLines(in.Lines)
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.IngredientID
	}
	if len(ids) > 0 {
		known, err := s.repo.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i, l := range lines {
			if _, ok := known[l.IngredientID]; !ok {
				return nil, &httpx.ValidationError{Fields: map[string]string{
					fmt.Sprintf("lines[%d].ingredient_id", i): "unknown ingredient",
				}}
			}
		}
	}
	if err := s.repo.ReplaceRecipe(ctx, menuItemID, lines); err != nil {
		return nil, err
	}
	return s.assemble(ctx, menuItemID, lines)
}

func (s *Service) assemble(ctx context.Context, menuItemID int64, lines []RecipeLine) (*Recipe, error) {
	recipe := &Recipe{MenuItemID: menuItemID, Components: []RecipeComponent{}}
	if len(lines) == 0 {
		return recipe, nil
	}
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.IngredientID
	}
	ingredients, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		ing, ok := ingredients[l.IngredientID]
		if !ok {
			continue
		}
		recipe.Components = append(recipe.Components, RecipeComponent{
			RecipeLine:   l,
			Name:         ing.Name,
			Unit:         ing.Unit,
			CurrentStock: ing.CurrentStock,
			CostPerUnit:  ing.CostPerUnit,
			Cost:         ing.CostPerUnit * l.Quantity,
		})
	}
	recipe.PossibleDishes = PossibleDishes(lines, ingredients)
	recipe.MakingCost = MakingCost(lines, ingredients)
	return recipe, nil
}

func (s *Service) build(ctx context.Context, in IngredientInput) (*Ingredient, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Supplier = strings.TrimSpace(in.Supplier)
	if err := s.validator.StructCtx(ctx, in); err != nil {
		return nil, httpx.NewValidationError(err)
	}
	return &Ingredient{
		Name:         in.Name,
		Category:     Category(in.Category),
		CurrentStock: in.CurrentStock,
		Unit:         Unit(in.Unit),
		MinStock:     in.MinStock,
		MaxStock:     in.MaxStock,
		CostPerUnit:  in.CostPerUnit,
		Supplier:     in.Supplier,
	}, nil
}

func (s *Service) ensureUniqueName(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check existing ingredient: %w", err)
	}
	if existing.ID != selfID {
		return ErrDuplicate
	}
	return nil
}

func (s *Service) ensureMenuItem(ctx context.Context, id int64) error {
	ok, err := s.repo.MenuItemExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMenuItemNotFound
	}
	return nil
}

func (s *Service) notify(ctx context.Context, before, after *Ingredient) {
	if s.listener == nil || before.CurrentStock == after.CurrentStock {
		return
	}
	evt := StockChangedEvent{
		IngredientID: after.ID,
		Name:         after.Name,
		Previous:     before.CurrentStock,
		Current:      after.CurrentStock,
		Unit:         after.Unit,
		MinStock:     after.MinStock,
		Status:       after.Status,
		ChangedAt:    s.now().UTC(),
	}
	if err := s.listener.HandleStockChanged(ctx, evt); err != nil {
		s.logger.Warn("stock change listener", slog.Int64("ingredient_id", after.ID), slog.Any("error", err))
	}
}

func mergeLines(in []RecipeLine) []RecipeLine {
	index := make(map[int64]int, len(in))
	out := make([]RecipeLine, 0, len(in))
	for _, l := range in {
		if i, ok := index[l.IngredientID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.IngredientID] = len(out)
		out = append(out, l)
	}
	return out
}
