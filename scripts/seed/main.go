// Command seed loads a demo restaurant: an owner and a staff account, a priced
// menu, ingredients with recipes and a few days of orders.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/restopro/restopro/internal/app"
	"github.com/restopro/restopro/internal/auth"
	"github.com/restopro/restopro/internal/inventory"
	"github.com/restopro/restopro/internal/menu"
	"github.com/restopro/restopro/internal/platform/db"
	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/pricing"
	"github.com/restopro/restopro/internal/sales"
	"github.com/restopro/restopro/migrations"
)

type noopMail struct{}

func (noopMail) EnqueueMail(ctx context.Context, to, subject, body string) error { return nil }

type noopCache struct{}

func (noopCache) Bump(ctx context.Context) error { return nil }

func main() {
	if err := run(context.Background()); err != nil {
		slog.Default().Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if _, err := db.Migrate(ctx, pool, migrations.Files); err != nil {
		return err
	}

	engineCfg, err := cfg.PricingEngineConfig()
	if err != nil {
		return err
	}
	engine, err := pricing.NewEngine(engineCfg)
	if err != nil {
		return err
	}

	authService := auth.NewService(auth.NewRepository(pool), nil, noopMail{}, cfg.PublicBaseURL, logger)
	owner, err := seedUsers(ctx, authService)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	menuService, err := menu.NewService(menu.NewRepository(pool), engine, logger)
	if err != nil {
		return err
	}
	items, err := seedMenu(ctx, menuService)
	if err != nil {
		return fmt.Errorf("seed menu: %w", err)
	}

	inventoryService := inventory.NewService(inventory.NewRepository(pool), nil, logger)
	if err := seedInventory(ctx, inventoryService, items); err != nil {
		return fmt.Errorf("seed inventory: %w", err)
	}

	salesService := sales.NewService(sales.NewRepository(pool), engine, noopCache{}, cfg.Location(), logger)
	if err := seedOrders(ctx, salesService, items, owner); err != nil {
		return fmt.Errorf("seed orders: %w", err)
	}

	logger.Info("seed complete", slog.Time("at", time.Now()))
	return nil
}

func seedUsers(ctx context.Context, svc *auth.Service) (int64, error) {
	owner, err := svc.Register(ctx, auth.RegisterInput{
		Email: "owner@restopro.local", FirstName: "Asha", LastName: "Rao", Phone: "+91 98450 00001",
		Password: "owner123", ConfirmPassword: "owner123", Role: "owner",
		RestaurantName: "Spice Route", Address: "12 MG Road, Bengaluru",
	})
	if errors.Is(err, httpx.ErrDuplicate) {
		user, err := svc.Authenticate(ctx, auth.LoginInput{Email: "owner@restopro.local", Password: "owner123"})
		if err != nil {
			return 0, err
		}
		return user.ID, nil
	}
	if err != nil {
		return 0, err
	}
	_, err = svc.Register(ctx, auth.RegisterInput{
		Email: "staff@restopro.local", FirstName: "Ravi", LastName: "Kumar",
		Password: "staff123", ConfirmPassword: "staff123", Role: "staff", InviteCode: owner.InviteCode,
	})
	if err != nil && !errors.Is(err, httpx.ErrDuplicate) {
		return 0, err
	}
	return owner.ID, nil
}

func seedMenu(ctx context.Context, svc *menu.Service) (map[string]int64, error) {
	inputs := []menu.ItemInput{
		{Name: "Paneer Tikka", Category: "Starters", Description: "Char-grilled cottage cheese with peppers",
			Expenses: []menu.ExpenseInput{{Name: "Making", Cost: 95}, {Name: "Packaging", Cost: 15}, {Name: "Gas", Cost: 10}},
			DesiredProfit: 60, Stock: 40, MinStock: 10},
		{Name: "Dal Makhani", Category: "Main Course", Description: "Slow cooked black lentils",
			Expenses: []menu.ExpenseInput{{Name: "Making", Cost: 70}, {Name: "Packaging", Cost: 12}},
			DesiredProfit: 50, Stock: 30, MinStock: 8},
		{Name: "Butter Naan", Category: "Breads", Description: "Tandoor baked flatbread",
			Expenses: []menu.ExpenseInput{{Name: "Making", Cost: 12}, {Name: "Packaging", Cost: 3}},
			DesiredProfit: 15, Stock: 120, MinStock: 30},
		{Name: "Masala Chaas", Category: "Beverages", Description: "Spiced buttermilk",
			Expenses: []menu.ExpenseInput{{Name: "Making", Cost: 18}, {Name: "Packaging", Cost: 6}},
			DesiredProfit: 20, Stock: 6, MinStock: 10},
	}
	ids := make(map[string]int64, len(inputs))
	existing, err := svc.List(ctx, menu.ListFilter{})
	if err != nil {
		return nil, err
	}
	for _, item := range existing {
		ids[item.Name] = item.ID
	}
	for _, in := range inputs {
		if _, ok := ids[in.Name]; ok {
			continue
		}
		item, err := svc.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		ids[item.Name] = item.ID
	}
	return ids, nil
}

func seedInventory(ctx context.Context, svc *inventory.Service, items map[string]int64) error {
	inputs := []inventory.IngredientInput{
		{Name: "Paneer", Category: "Dairy", CurrentStock: 8, Unit: "kg", MinStock: 3, MaxStock: 20, CostPerUnit: 360, Supplier: "Nandini Dairy"},
		{Name: "Black Urad Dal", Category: "Grains", CurrentStock: 12, Unit: "kg", MinStock: 4, MaxStock: 25, CostPerUnit: 140, Supplier: "Metro Wholesale"},
		{Name: "Butter", Category: "Dairy", CurrentStock: 1.5, Unit: "kg", MinStock: 2, MaxStock: 10, CostPerUnit: 520, Supplier: "Amul"},
		{Name: "Maida", Category: "Grains", CurrentStock: 25, Unit: "kg", MinStock: 10, MaxStock: 50, CostPerUnit: 42, Supplier: "Metro Wholesale"},
		{Name: "Curd", Category: "Dairy", CurrentStock: 6, Unit: "liters", MinStock: 4, MaxStock: 15, CostPerUnit: 70, Supplier: "Nandini Dairy"},
		{Name: "Garam Masala", Category: "Spices", CurrentStock: 900, Unit: "grams", MinStock: 250, MaxStock: 1000, CostPerUnit: 0.8, Supplier: "MDH"},
	}
	ids := make(map[string]int64, len(inputs))
	existing, err := svc.List(ctx, inventory.ListFilter{})
	if err != nil {
		return err
	}
	for _, ing := range existing {
		ids[ing.Name] = ing.ID
	}
	for _, in := range inputs {
		if _, ok := ids[in.Name]; ok {
			continue
		}
		ing, err := svc.Create(ctx, in)
		if err != nil {
			return err
		}
		ids[ing.Name] = ing.ID
	}

	recipes := map[string][]inventory.RecipeLine{
		"Paneer Tikka": {{IngredientID: ids["Paneer"], Quantity: 0.2}, {IngredientID: ids["Curd"], Quantity: 0.05}, {IngredientID: ids["Garam Masala"], Quantity: 5}},
		"Dal Makhani":  {{IngredientID: ids["Black Urad Dal"], Quantity: 0.12}, {IngredientID: ids["Butter"], Quantity: 0.03}},
		"Butter Naan":  {{IngredientID: ids["Maida"], Quantity: 0.09}, {IngredientID: ids["Butter"], Quantity: 0.01}},
		"Masala Chaas": {{IngredientID: ids["Curd"], Quantity: 0.15}, {IngredientID: ids["Garam Masala"], Quantity: 1}},
	}
	for name, lines := range recipes {
		if _, err := svc.SetRecipe(ctx, items[name], inventory.RecipeInput{Lines: lines}); err != nil {
			return fmt.Errorf("recipe %s: %w", name, err)
		}
	}
	return nil
}

func seedOrders(ctx context.Context, svc *sales.Service, items map[string]int64, createdBy int64) error {
	orders := []sales.CreateOrderInput{
		{Platform: "zomato", Items: []sales.ItemInput{{MenuItemID: items["Paneer Tikka"], Quantity: 2}, {MenuItemID: items["Butter Naan"], Quantity: 4}}},
		{Platform: "swiggy", Discount: 50, Items: []sales.ItemInput{{MenuItemID: items["Dal Makhani"], Quantity: 1}, {MenuItemID: items["Butter Naan"], Quantity: 2}}},
		{Platform: "dine_in", Items: []sales.ItemInput{{MenuItemID: items["Paneer Tikka"], Quantity: 1}, {MenuItemID: items["Masala Chaas"], Quantity: 2}}},
		{Platform: "online", Discount: 20, Items: []sales.ItemInput{{MenuItemID: items["Dal Makhani"], Quantity: 2}}},
		{Platform: "dine_in", Status: "pending", Items: []sales.ItemInput{{MenuItemID: items["Butter Naan"], Quantity: 3}}},
	}
	for i, in := range orders {
		key := fmt.Sprintf("seed-order-%d", i+1)
		if _, err := svc.CreateOrder(ctx, in, createdBy, key); err != nil {
			if errors.Is(err, sales.ErrDuplicateRequest) {
				continue
			}
			return fmt.Errorf("order %d: %w", i+1, err)
		}
	}
	return nil
}
