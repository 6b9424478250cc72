package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restopro/restopro/internal/pricing"
)

// Repository runs the aggregation queries over non-cancelled orders.
type Repository interface {
	Totals(ctx context.Context, from, to time.Time) (Totals, error)
	Daily(ctx context.Context, from, to time.Time, loc *time.Location) ([]DailyPoint, error)
	PlatformCounts(ctx context.Context, from, to time.Time) ([]PlatformCount, error)
	TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error)
	Monthly(ctx context.Context, from, to time.Time, loc *time.Location) ([]MonthlyPoint, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const activeOrders = `status <> 'cancelled' AND ordered_at >= $1 AND ordered_at < $2`

func (r *repository) Totals(ctx context.Context, from, to time.Time) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)::float8, COALESCE(SUM(profit), 0)::float8
		FROM orders WHERE `+activeOrders, from, to).Scan(&t.Orders, &t.Revenue, &t.Profit)
	if err != nil {
		return Totals{}, fmt.Errorf("analytics totals: %w", err)
	}
	return t, nil
}

func (r *repository) Daily(ctx context.Context, from, to time.Time, loc *time.Location) ([]DailyPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(ordered_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day,
			SUM(total)::float8, COUNT(*), SUM(profit)::float8
		FROM orders WHERE `+activeOrders+`
		GROUP BY day ORDER BY day`, from, to, loc.String())
	if err != nil {
		return nil, fmt.Errorf("analytics daily: %w", err)
	}
	defer rows.Close()
	var out []DailyPoint
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Date, &p.Sales, &p.Orders, &p.Profit); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) PlatformCounts(ctx context.Context, from, to time.Time) ([]PlatformCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT platform, COUNT(*) FROM orders WHERE `+activeOrders+`
		GROUP BY platform ORDER BY platform`, from, to)
	if err != nil {
		return nil, fmt.Errorf("analytics platforms: %w", err)
	}
	defer rows.Close()
	var out []PlatformCount
	for rows.Next() {
		var raw string
		var c PlatformCount
		if err := rows.Scan(&raw, &c.Orders); err != nil {
			return nil, err
		}
		c.Platform = pricing.Platform(raw)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.name, SUM(l.quantity), SUM(l.subtotal)::float8
		FROM order_lines l JOIN orders o ON o.id = l.order_id
		WHERE o.status <> 'cancelled' AND o.ordered_at >= $1 AND o.ordered_at < $2
		GROUP BY l.name
		ORDER BY SUM(l.quantity) DESC, SUM(l.subtotal) DESC, l.name
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics top items: %w", err)
	}
	defer rows.Close()
	var out []TopItem
	for rows.Next() {
		var item TopItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.Revenue); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repository) Monthly(ctx context.Context, from, to time.Time, loc *time.Location) ([]MonthlyPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(ordered_at AT TIME ZONE $3, 'YYYY-MM') AS month,
			SUM(total)::float8, SUM(profit)::float8, COUNT(*)
		FROM orders WHERE `+activeOrders+`
		GROUP BY month ORDER BY month`, from, to, loc.String())
	if err != nil {
		return nil, fmt.Errorf("analytics monthly: %w", err)
	}
	defer rows.Close()
	var out []MonthlyPoint
	for rows.Next() {
		var p MonthlyPoint
		if err := rows.Scan(&p.Month, &p.Revenue, &p.Profit, &p.Orders); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
