package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restopro/restopro/internal/platform/db"
)

// Repository persists ingredients and recipes.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Ingredient, error)
	Get(ctx context.Context, id int64) (*Ingredient, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]Ingredient, error)
	FindByName(ctx context.Context, name string) (*Ingredient, error)
	Create(ctx context.Context, item *Ingredient) error
	Update(ctx context.Context, item *Ingredient) error
	UpdateStock(ctx context.Context, id int64, stock float64) (*Ingredient, error)
	Delete(ctx context.Context, id int64) error
	MenuItemExists(ctx context.Context, id int64) (bool, error)
	Recipe(ctx context.Context, menuItemID int64) ([]RecipeLine, error)
	ReplaceRecipe(ctx context.Context, menuItemID int64, lines []RecipeLine) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const ingredientColumns = `SELECT id, name, category, current_stock, unit, min_stock, max_stock, cost_per_unit, supplier, updated_at FROM ingredients`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Ingredient, error) {
	query := ingredientColumns + " WHERE 1=1"
	var args []any
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		query += fmt.Sprintf(" AND lower(name) LIKE $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += " ORDER BY name"
	return r.query(ctx, query, args...)
}

func (r *repository) Get(ctx context.Context, id int64) (*Ingredient, error) {
	return scanIngredient(r.pool.QueryRow(ctx, ingredientColumns+" WHERE id = $1", id))
}

func (r *repository) GetMany(ctx context.Context, ids []int64) (map[int64]Ingredient, error) {
	items, err := r.query(ctx, ingredientColumns+" WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]Ingredient, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*Ingredient, error) {
	return scanIngredient(r.pool.QueryRow(ctx, ingredientColumns+" WHERE lower(name) = lower($1)", name))
}

func (r *repository) Create(ctx context.Context, item *Ingredient) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ingredients (name, category, current_stock, unit, min_stock, max_stock, cost_per_unit, supplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, updated_at`,
		item.Name, string(item.Category), item.CurrentStock, string(item.Unit), item.MinStock, item.MaxStock, item.CostPerUnit, item.Supplier,
	).Scan(&item.ID, &item.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert ingredient: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, item *Ingredient) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE ingredients SET name = $2, category = $3, current_stock = $4, unit = $5, min_stock = $6,
			max_stock = $7, cost_per_unit = $8, supplier = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		item.ID, item.Name, string(item.Category), item.CurrentStock, string(item.Unit), item.MinStock, item.MaxStock, item.CostPerUnit, item.Supplier,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update ingredient: %w", err)
	}
	return nil
}

func (r *repository) UpdateStock(ctx context.Context, id int64, stock float64) (*Ingredient, error) {
	return scanIngredient(r.pool.QueryRow(ctx, `
		UPDATE ingredients SET current_stock = $2, updated_at = NOW() WHERE id = $1
		RETURNING id, name, category, current_stock, unit, min_stock, max_stock, cost_per_unit, supplier, updated_at`,
		id, stock))
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ingredient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MenuItemExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM menu_items WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check menu item: %w", err)
	}
	return exists, nil
}

func (r *repository) Recipe(ctx context.Context, menuItemID int64) ([]RecipeLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT ingredient_id, quantity FROM recipe_lines WHERE menu_item_id = $1 ORDER BY ingredient_id`, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	defer rows.Close()
	var lines []RecipeLine
	for rows.Next() {
		var l RecipeLine
		if err := rows.Scan(&l.IngredientID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan recipe line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) ReplaceRecipe(ctx context.Context, menuItemID int64, lines []RecipeLine) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM recipe_lines WHERE menu_item_id = $1`, menuItemID); err != nil {
			return fmt.Errorf("clear recipe: %w", err)
		}
		if len(lines) == 0 {
			return nil
		}
		rowsSrc := make([][]any, len(lines))
		for i, l := range lines {
			rowsSrc[i] = []any{menuItemID, l.IngredientID, l.Quantity}
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"recipe_lines"},
			[]string{"menu_item_id", "ingredient_id", "quantity"}, pgx.CopyFromRows(rowsSrc))
		if err != nil {
			return fmt.Errorf("insert recipe lines: %w", err)
		}
		return nil
	})
}

func (r *repository) query(ctx context.Context, sql string, args ...any) ([]Ingredient, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query ingredients: %w", err)
	}
	defer rows.Close()
	var items []Ingredient
	for rows.Next() {
		item, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanIngredient(row pgx.Row) (*Ingredient, error) {
	var item Ingredient
	var category, unit string
	err := row.Scan(&item.ID, &item.Name, &category, &item.CurrentStock, &unit, &item.MinStock, &item.MaxStock,
		&item.CostPerUnit, &item.Supplier, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan ingredient: %w", err)
	}
	item.Category = Category(category)
	item.Unit = Unit(unit)
	item.refreshStatus()
	return &item, nil
}
