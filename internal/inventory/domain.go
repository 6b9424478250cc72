// Package inventory tracks ingredient stock and the recipes that consume it.
package inventory

import (
	"fmt"
	"math"
	"time"

	"github.com/restopro/restopro/internal/platform/httpx"
)

var (
	ErrNotFound         = fmt.Errorf("ingredient: %w", httpx.ErrNotFound)
	ErrDuplicate        = fmt.Errorf("ingredient with this name already exists: %w", httpx.ErrDuplicate)
	ErrMenuItemNotFound = fmt.Errorf("menu item: %w", httpx.ErrNotFound)
)

// Category groups ingredients.
type Category string

const (
	CategoryDairy      Category = "Dairy"
	CategoryMeat       Category = "Meat"
	CategoryVegetables Category = "Vegetables"
	CategoryGrains     Category = "Grains"
	CategorySpices     Category = "Spices"
	CategoryPrepared   Category = "Prepared"
	CategoryBeverages  Category = "Beverages"
)

// Categories lists the known categories in display order.
func Categories() []Category {
	return []Category{CategoryDairy, CategoryMeat, CategoryVegetables, CategoryGrains, CategorySpices, CategoryPrepared, CategoryBeverages}
}

// Unit is the measure in which an ingredient is stocked.
type Unit string

const (
	UnitKg     Unit = "kg"
	UnitLiters Unit = "liters"
	UnitPieces Unit = "pieces"
	UnitGrams  Unit = "grams"
	UnitML     Unit = "ml"
)

// StockStatus classifies an ingredient's stock against its thresholds.
type StockStatus string

const (
	StatusCritical    StockStatus = "critical"
	StatusLow         StockStatus = "low"
	StatusOverstocked StockStatus = "overstocked"
	StatusGood        StockStatus = "good"
)

// StatusOf evaluates thresholds in severity order: critical at or below
// minimum, low up to 1.5x minimum, overstocked from 90% of maximum.
func StatusOf(current, minStock, maxStock float64) StockStatus {
	switch {
	case current <= minStock:
		return StatusCritical
	case current <= minStock*1.5:
		return StatusLow
	case maxStock > 0 && current >= maxStock*0.9:
		return StatusOverstocked
	default:
		return StatusGood
	}
}

// Ingredient is a stocked raw material.
type Ingredient struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Category     Category    `json:"category"`
	CurrentStock float64     `json:"current_stock"`
	Unit         Unit        `json:"unit"`
	MinStock     float64     `json:"min_stock"`
	MaxStock     float64     `json:"max_stock"`
	CostPerUnit  float64     `json:"cost_per_unit"`
	Supplier     string      `json:"supplier"`
	Status       StockStatus `json:"status"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Value is the stock valued at cost.
func (i Ingredient) Value() float64 {
	return i.CurrentStock * i.CostPerUnit
}

func (i *Ingredient) refreshStatus() {
	i.Status = StatusOf(i.CurrentStock, i.MinStock, i.MaxStock)
}

// IngredientInput is the payload for creating or updating an ingredient.
type IngredientInput struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Category     string  `json:"category" validate:"required,oneof=Dairy Meat Vegetables Grains Spices Prepared Beverages"`
	CurrentStock float64 `json:"current_stock" validate:"gte=0"`
	Unit         string  `json:"unit" validate:"required,oneof=kg liters pieces grams ml"`
	MinStock     float64 `json:"min_stock" validate:"gte=0"`
	MaxStock     float64 `json:"max_stock" validate:"gtefield=MinStock"`
	CostPerUnit  float64 `json:"cost_per_unit" validate:"gte=0"`
	Supplier     string  `json:"supplier" validate:"max=120"`
}

// StockInput sets a new absolute stock level.
type StockInput struct {
	CurrentStock *float64 `json:"current_stock" validate:"required,gte=0"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Search   string
	Category Category
}

// Summary is the inventory overview card.
type Summary struct {
	ItemCount     int          `json:"item_count"`
	TotalValue    float64      `json:"total_value"`
	CriticalCount int          `json:"critical_count"`
	LowStock      []Ingredient `json:"low_stock"`
}

// Summarize values the stock and lists the critical and low ingredients.
func Summarize(items []Ingredient) Summary {
	s := Summary{ItemCount: len(items), LowStock: []Ingredient{}}
	for _, item := range items {
		item.refreshStatus()
		s.TotalValue += item.Value()
		switch item.Status {
		case StatusCritical:
			s.CriticalCount++
			s.LowStock = append(s.LowStock, item)
		case StatusLow:
			s.LowStock = append(s.LowStock, item)
		}
	}
	s.TotalValue = math.Round(s.TotalValue*100) / 100
	return s
}

// RecipeLine is the quantity of one ingredient needed per dish.
type RecipeLine struct {
	IngredientID int64   `json:"ingredient_id" validate:"required,gt=0"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
}

// RecipeInput replaces the recipe of a menu item.
type RecipeInput struct {
	Lines []RecipeLine `json:"lines" validate:"dive"`
}

// RecipeComponent is a recipe line joined with its ingredient.
type RecipeComponent struct {
	RecipeLine
	Name         string  `json:"name"`
	Unit         Unit    `json:"unit"`
	CurrentStock float64 `json:"current_stock"`
	CostPerUnit  float64 `json:"cost_per_unit"`
	Cost         float64 `json:"cost"`
}

// Recipe is a menu item's ingredient list with what the stock can make.
type Recipe struct {
	MenuItemID     int64             `json:"menu_item_id"`
	Components     []RecipeComponent `json:"components"`
	PossibleDishes int               `json:"possible_dishes"`
	MakingCost     float64           `json:"making_cost"`
}

// PossibleDishes is how many dishes the current stock supports: the minimum
// of floor(stock/quantity) across lines whose ingredient is known. An empty
// recipe makes nothing.
func PossibleDishes(lines []RecipeLine, ingredients map[int64]Ingredient) int {
	possible := -1
	for _, line := range lines {
		ing, ok := ingredients[line.IngredientID]
		if !ok || line.Quantity <= 0 {
			continue
		}
		n := int(math.Floor(ing.CurrentStock/line.Quantity + 1e-9))
		if possible < 0 || n < possible {
			possible = n
		}
	}
	if possible < 0 {
		return 0
	}
	return possible
}

// MakingCost is the ingredient cost of one dish.
func MakingCost(lines []RecipeLine, ingredients map[int64]Ingredient) float64 {
	var total float64
	for _, line := range lines {
		if ing, ok := ingredients[line.IngredientID]; ok {
			total += ing.CostPerUnit * line.Quantity
		}
	}
	return math.Round(total*100) / 100
}
