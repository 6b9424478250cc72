package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restopro/restopro/internal/platform/db"
	"github.com/restopro/restopro/internal/shared"
)

const idempotencyModule = "sales.order"

// Repository provides persistence for orders.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, error)
}

// TxRepository exposes the operations that run inside an order transaction.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, key string) error
	LockMenuItems(ctx context.Context, ids []int64) (map[int64]MenuSnapshot, error)
	AdjustMenuStock(ctx context.Context, menuItemID int64, delta int) error
	NextOrderNumber(ctx context.Context) (string, error)
	InsertOrder(ctx context.Context, order *Order) error
	GetOrderForUpdate(ctx context.Context, id int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// WithTx wraps fn in a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderColumns = `SELECT id, order_number, platform, status, subtotal, discount, total,
	commission_percent, commission, net_revenue, total_cost, profit, ordered_at, created_by FROM orders`

func (r *repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return getOrder(ctx, r.pool, id, false)
}

func (r *repository) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	query := orderColumns + " WHERE ordered_at >= $1 AND ordered_at < $2"
	args := []any{filter.From, filter.To}
	if filter.Platform != "" {
		query += " AND platform = $3"
		args = append(args, string(filter.Platform))
	}
	query += " ORDER BY ordered_at DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, *order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}
	lines, err := loadLines(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for orderID, ls := range lines {
		orders[index[orderID]].Lines = ls
	}
	return orders, nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if err := shared.Claim(ctx, t.tx, key, idempotencyModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return ErrDuplicateRequest
		}
		return err
	}
	return nil
}

func (t *txRepo) LockMenuItems(ctx context.Context, ids []int64) (map[int64]MenuSnapshot, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, total_cost, zomato_price, swiggy_price, offline_price, online_price, stock, is_available
		FROM menu_items WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock menu items: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]MenuSnapshot, len(ids))
	for rows.Next() {
		var s MenuSnapshot
		if err := rows.Scan(&s.ID, &s.Name, &s.TotalCost, &s.Prices.Zomato, &s.Prices.Swiggy,
			&s.Prices.Offline, &s.Prices.Online, &s.Stock, &s.IsAvailable); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

func (t *txRepo) AdjustMenuStock(ctx context.Context, menuItemID int64, delta int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE menu_items SET stock = stock + $2, updated_at = NOW() WHERE id = $1 AND stock + $2 >= 0`, menuItemID, delta)
	if err != nil {
		return fmt.Errorf("adjust menu stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (t *txRepo) NextOrderNumber(ctx context.Context) (string, error) {
	var n int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return FormatOrderNumber(n), nil
}

func (t *txRepo) InsertOrder(ctx context.Context, order *Order) error {
	s := order.Settlement
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, platform, status, subtotal, discount, total, commission_percent,
			commission, net_revenue, total_cost, profit, ordered_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		order.OrderNumber, string(order.Platform), string(order.Status), s.Subtotal, s.Discount, s.Total,
		s.CommissionPercent, s.Commission, s.NetRevenue, s.TotalCost, s.Profit, order.OrderedAt, order.CreatedBy,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range order.Lines {
		l := &order.Lines[i]
		batch.Queue(`
			INSERT INTO order_lines (order_id, menu_item_id, name, quantity, unit_price, unit_cost, subtotal, line_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			order.ID, l.MenuItemID, l.Name, l.Quantity, l.UnitPrice, l.UnitCost, l.Subtotal, l.LineCost,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&l.ID)
		})
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (*Order, error) {
	return getOrder(ctx, t.tx, id, true)
}

func (t *txRepo) UpdateOrderStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getOrder(ctx context.Context, q querier, id int64, forUpdate bool) (*Order, error) {
	query := orderColumns + " WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	lines, err := loadLines(ctx, q, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[id]
	return order, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var platform, status string
	s := &o.Settlement
	err := row.Scan(&o.ID, &o.OrderNumber, &platform, &status, &s.Subtotal, &s.Discount, &s.Total,
		&s.CommissionPercent, &s.Commission, &s.NetRevenue, &s.TotalCost, &s.Profit, &o.OrderedAt, &o.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Platform = platformOf(platform)
	o.Settlement.Platform = o.Platform
	o.Status = Status(status)
	return &o, nil
}

func loadLines(ctx context.Context, q querier, orderIDs []int64) (map[int64][]OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id, id, menu_item_id, name, quantity, unit_price, unit_cost, subtotal, line_cost
		FROM order_lines WHERE order_id = ANY($1) ORDER BY order_id, id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()
	out := make(map[int64][]OrderLine, len(orderIDs))
	for rows.Next() {
		var orderID int64
		var l OrderLine
		if err := rows.Scan(&orderID, &l.ID, &l.MenuItemID, &l.Name, &l.Quantity, &l.UnitPrice, &l.UnitCost, &l.Subtotal, &l.LineCost); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}
