package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restopro/restopro/internal/platform/db"
)

// Repository defines persistence operations for menu items.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]MenuItem, error)
	Get(ctx context.Context, id int64) (*MenuItem, error)
	FindByNameCategory(ctx context.Context, name, category string) (*MenuItem, error)
	Create(ctx context.Context, item *MenuItem) error
	Update(ctx context.Context, item *MenuItem) error
	SetAvailability(ctx context.Context, id int64, available bool) error
	Delete(ctx context.Context, id int64) error
	LowStock(ctx context.Context) ([]MenuItem, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectColumns = `SELECT id, name, category, description, expenses, total_cost, desired_profit,
	zomato_price, swiggy_price, offline_price, online_price, stock, min_stock, is_available,
	created_at, updated_at FROM menu_items`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]MenuItem, error) {
	query := selectColumns + " WHERE 1=1"
	var args []any
	argPos := 1
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argPos)
		args = append(args, filter.Category)
		argPos++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argPos)
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *repository) Get(ctx context.Context, id int64) (*MenuItem, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, selectColumns+" WHERE id = $1", id))
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) FindByNameCategory(ctx context.Context, name, category string) (*MenuItem, error) {
	return scanItem(r.pool.QueryRow(ctx, selectColumns+" WHERE lower(name) = lower($1) AND category = $2", strings.TrimSpace(name), category))
}

func (r *repository) Create(ctx context.Context, item *MenuItem) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO menu_items (name, category, description, expenses, total_cost, desired_profit,
			zomato_price, swiggy_price, offline_price, online_price, stock, min_stock, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		item.Name, item.Category, item.Description, item.Expenses, item.TotalCost, item.DesiredProfit,
		item.Prices.Zomato, item.Prices.Swiggy, item.Prices.Offline, item.Prices.Online,
		item.Stock, item.MinStock, item.IsAvailable,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, item *MenuItem) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE menu_items SET name = $2, category = $3, description = $4, expenses = $5,
			total_cost = $6, desired_profit = $7, zomato_price = $8, swiggy_price = $9,
			offline_price = $10, online_price = $11, stock = $12, min_stock = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at, is_available`,
		item.ID, item.Name, item.Category, item.Description, item.Expenses, item.TotalCost, item.DesiredProfit,
		item.Prices.Zomato, item.Prices.Swiggy, item.Prices.Offline, item.Prices.Online,
		item.Stock, item.MinStock,
	).Scan(&item.CreatedAt, &item.UpdatedAt, &item.IsAvailable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update menu item: %w", err)
	}
	return nil
}

func (r *repository) SetAvailability(ctx context.Context, id int64, available bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE menu_items SET is_available = $2, updated_at = NOW() WHERE id = $1`, id, available)
	if err != nil {
		return fmt.Errorf("set menu availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) LowStock(ctx context.Context) ([]MenuItem, error) {
	rows, err := r.pool.Query(ctx, selectColumns+" WHERE stock <= min_stock ORDER BY stock ASC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("list low stock menu items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func scanItems(rows pgx.Rows) ([]MenuItem, error) {
	var items []MenuItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanItem(row pgx.Row) (*MenuItem, error) {
	var item MenuItem
	err := row.Scan(
		&item.ID, &item.Name, &item.Category, &item.Description, &item.Expenses,
		&item.TotalCost, &item.DesiredProfit,
		&item.Prices.Zomato, &item.Prices.Swiggy, &item.Prices.Offline, &item.Prices.Online,
		&item.Stock, &item.MinStock, &item.IsAvailable, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan menu item: %w", err)
	}
	item.refreshStatus()
	return &item, nil
}
