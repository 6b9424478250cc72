package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restopro/restopro/internal/menu"
	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/pricing"
)

type mockRepository struct {
	mu      sync.Mutex
	menu    map[int64]MenuSnapshot
	orders  map[int64]*Order
	keys    map[string]bool
	nextID  int64
	nextSeq int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		menu: map[int64]MenuSnapshot{
			1: {ID: 1, Name: "Paneer Tikka", TotalCost: 120, Prices: menu.Prices{Zomato: 242, Swiggy: 242, Offline: 188, Online: 200}, Stock: 10, IsAvailable: true},
			2: {ID: 2, Name: "Dal Makhani", TotalCost: 80, Prices: menu.Prices{Zomato: 162, Swiggy: 162, Offline: 125, Online: 134}, Stock: 1, IsAvailable: true},
			3: {ID: 3, Name: "Seasonal Soup", TotalCost: 40, Prices: menu.Prices{Zomato: 97, Swiggy: 97, Offline: 75, Online: 80}, Stock: 5, IsAvailable: false},
		},
		orders: map[int64]*Order{},
		keys:   map[string]bool{},
		nextID: 1,
	}
}

// WithTx runs fn against a copy of the state and commits it only on success.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &mockTx{
		menu:    make(map[int64]MenuSnapshot, len(m.menu)),
		orders:  make(map[int64]*Order, len(m.orders)),
		keys:    make(map[string]bool, len(m.keys)),
		nextID:  m.nextID,
		nextSeq: m.nextSeq,
	}
	for k, v := range m.menu {
		tx.menu[k] = v
	}
	for k, v := range m.orders {
		cp := *v
		tx.orders[k] = &cp
	}
	for k, v := range m.keys {
		tx.keys[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.menu, m.orders, m.keys, m.nextID, m.nextSeq = tx.menu, tx.orders, tx.keys, tx.nextID, tx.nextSeq
	return nil
}

func (m *mockRepository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepository) ListOrders(ctx context.Context, filter ListFilter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.OrderedAt.Before(filter.From) || !o.OrderedAt.Before(filter.To) {
			continue
		}
		if filter.Platform != "" && o.Platform != filter.Platform {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type mockTx struct {
	menu    map[int64]MenuSnapshot
	orders  map[int64]*Order
	keys    map[string]bool
	nextID  int64
	nextSeq int64
}

func (t *mockTx) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if t.keys[key] {
		return ErrDuplicateRequest
	}
	t.keys[key] = true
	return nil
}

func (t *mockTx) LockMenuItems(ctx context.Context, ids []int64) (map[int64]MenuSnapshot, error) {
	out := make(map[int64]MenuSnapshot)
	for _, id := range ids {
		if s, ok := t.menu[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (t *mockTx) AdjustMenuStock(ctx context.Context, id int64, delta int) error {
	s, ok := t.menu[id]
	if !ok {
		return nil
	}
	if s.Stock+delta < 0 {
		return ErrInsufficientStock
	}
	s.Stock += delta
	t.menu[id] = s
	return nil
}

func (t *mockTx) NextOrderNumber(ctx context.Context) (string, error) {
	t.nextSeq++
	return FormatOrderNumber(t.nextSeq), nil
}

func (t *mockTx) InsertOrder(ctx context.Context, order *Order) error {
	order.ID = t.nextID
	t.nextID++
	cp := *order
	t.orders[order.ID] = &cp
	return nil
}

func (t *mockTx) GetOrderForUpdate(ctx context.Context, id int64) (*Order, error) {
	o, ok := t.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *mockTx) UpdateOrderStatus(ctx context.Context, id int64, status Status) error {
	o, ok := t.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

type countingCache struct {
	bumps int
	err   error
}

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return c.err
}

var testNow = time.Date(2026, 3, 14, 13, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mockRepository, *countingCache) {
	t.Helper()
	engine, err := pricing.NewEngine(pricing.EngineConfig{})
	require.NoError(t, err)
	repo := newMockRepository()
	cache := &countingCache{}
	loc := time.FixedZone("IST", 5*3600+1800)
	svc := NewService(repo, engine, cache, loc, nil)
	svc.now = func() time.Time { return testNow }
	return svc, repo, cache
}

func TestCreateOrderSettlesAndDecrementsStock(t *testing.T) {
	svc, repo, cache := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Platform: "Zomato",
		Items:    []ItemInput{{MenuItemID: 1, Quantity: 2}},
	}, 7, "")
	require.NoError(t, err)

	assert.Equal(t, "ORD-001", order.OrderNumber)
	assert.Equal(t, pricing.PlatformZomato, order.Platform)
	assert.Equal(t, StatusCompleted, order.Status)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 242.0, order.Lines[0].UnitPrice)
	assert.Equal(t, 120.0, order.Lines[0].UnitCost)

	st := order.Settlement
	assert.InDelta(t, 484, st.Subtotal, 1e-9)
	assert.InDelta(t, 96.8, st.Commission, 1e-9)
	assert.InDelta(t, 387.2, st.NetRevenue, 1e-9)
	assert.InDelta(t, 240, st.TotalCost, 1e-9)
	assert.InDelta(t, 147.2, st.Profit, 1e-9)
	require.NotNil(t, order.CreatedBy)
	assert.Equal(t, int64(7), *order.CreatedBy)

	assert.Equal(t, 8, repo.menu[1].Stock)
	assert.Equal(t, 1, cache.bumps)
}

func TestCreateOrderDineInUsesOfflinePriceAndZeroCommission(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Platform: "dine-in",
		Discount: 10,
		Items:    []ItemInput{{MenuItemID: 1, Quantity: 1}},
	}, 0, "")
	require.NoError(t, err)

	assert.Equal(t, 188.0, order.Lines[0].UnitPrice)
	assert.InDelta(t, 178, order.Settlement.Total, 1e-9)
	assert.Zero(t, order.Settlement.Commission)
	assert.Nil(t, order.CreatedBy)
}

func TestCreateOrderMergesRepeatedItems(t *testing.T) {
	svc, repo, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Platform: "swiggy",
		Items:    []ItemInput{{MenuItemID: 1, Quantity: 1}, {MenuItemID: 1, Quantity: 2}},
	}, 1, "")
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 3, order.Lines[0].Quantity)
	assert.Equal(t, 7, repo.menu[1].Stock)
}

func TestCreateOrderFailuresRollBack(t *testing.T) {
	cases := []struct {
		name  string
		input CreateOrderInput
		want  error
	}{
		{"insufficient stock", CreateOrderInput{Platform: "zomato", Items: []ItemInput{{MenuItemID: 1, Quantity: 1}, {MenuItemID: 2, Quantity: 2}}}, ErrInsufficientStock},
		{"unavailable", CreateOrderInput{Platform: "zomato", Items: []ItemInput{{MenuItemID: 3, Quantity: 1}}}, ErrItemUnavailable},
		{"unknown item", CreateOrderInput{Platform: "zomato", Items: []ItemInput{{MenuItemID: 42, Quantity: 1}}}, ErrMenuItemNotFound},
		{"offline has no settlement rate", CreateOrderInput{Platform: "offline", Items: []ItemInput{{MenuItemID: 1, Quantity: 1}}}, pricing.ErrInvalidInput},
		{"unknown platform", CreateOrderInput{Platform: "ubereats", Items: []ItemInput{{MenuItemID: 1, Quantity: 1}}}, httpx.ErrValidation},
		{"no items", CreateOrderInput{Platform: "zomato"}, httpx.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, cache := newTestService(t)
			_, err := svc.CreateOrder(context.Background(), tc.input, 1, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, 10, repo.menu[1].Stock)
			assert.Empty(t, repo.orders)
			assert.Zero(t, cache.bumps)
		})
	}
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	svc, repo, _ := newTestService(t)
	in := CreateOrderInput{Platform: "online", Items: []ItemInput{{MenuItemID: 1, Quantity: 1}}}

	_, err := svc.CreateOrder(context.Background(), in, 1, "abc")
	require.NoError(t, err)
	_, err = svc.CreateOrder(context.Background(), in, 1, "abc")
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Len(t, repo.orders, 1)
	assert.Equal(t, 9, repo.menu[1].Stock)
}

func TestCancelOrderRestoresStockOnce(t *testing.T) {
	svc, repo, cache := newTestService(t)
	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Platform: "zomato",
		Status:   "pending",
		Items:    []ItemInput{{MenuItemID: 1, Quantity: 4}},
	}, 1, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, 6, repo.menu[1].Stock)

	cancelled, err := svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, repo.menu[1].Stock)

	_, err = svc.CancelOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.ErrorIs(t, err, httpx.ErrConflict)
	assert.Equal(t, 10, repo.menu[1].Stock)
	assert.Equal(t, 2, cache.bumps)

	_, err = svc.CancelOrder(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCacheBumpFailureDoesNotFailOrder(t *testing.T) {
	svc, _, cache := newTestService(t)
	cache.err = errors.New("redis down")

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Platform: "zomato",
		Items:    []ItemInput{{MenuItemID: 1, Quantity: 1}},
	}, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.bumps)
}

func TestListOrdersUsesBusinessDay(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{Platform: "zomato", Items: []ItemInput{{MenuItemID: 1, Quantity: 1}}}, 1, "")
	require.NoError(t, err)

	today, err := svc.ParseDay("")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", today.Format(time.DateOnly))

	orders, err := svc.ListOrders(context.Background(), today, "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = svc.ListOrders(context.Background(), today, pricing.PlatformSwiggy)
	require.NoError(t, err)
	assert.Empty(t, orders)

	yesterday, err := svc.ParseDay("2026-03-13")
	require.NoError(t, err)
	orders, err = svc.ListOrders(context.Background(), yesterday, "")
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = svc.ParseDay("14/03/2026")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSummarizeExcludesCancelled(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	orders := []Order{
		{Platform: pricing.PlatformSwiggy, Status: StatusCompleted, Settlement: pricing.Settlement{Total: 200, Commission: 40, NetRevenue: 160, TotalCost: 100, Profit: 60}},
		{Platform: pricing.PlatformZomato, Status: StatusCompleted, Settlement: pricing.Settlement{Total: 100.1, Commission: 20.02, NetRevenue: 80.08, TotalCost: 50, Profit: 30.08}},
		{Platform: pricing.PlatformZomato, Status: StatusPending, Settlement: pricing.Settlement{Total: 100.2, Commission: 20.04, NetRevenue: 80.16, TotalCost: 50, Profit: 30.16}},
		{Platform: pricing.PlatformDineIn, Status: StatusCancelled, Settlement: pricing.Settlement{Total: 999, NetRevenue: 999, Profit: 999}},
	}

	s := Summarize(orders, day)
	assert.Equal(t, "2026-03-14", s.Date)
	assert.Equal(t, 3, s.Orders)
	assert.InDelta(t, 400.3, s.TotalSales, 1e-9)
	assert.InDelta(t, 80.06, s.Commission, 1e-9)
	assert.InDelta(t, 120.24, s.Profit, 1e-9)
	require.Len(t, s.Platforms, 2)
	assert.Equal(t, pricing.PlatformZomato, s.Platforms[0].Platform)
	assert.Equal(t, 2, s.Platforms[0].Orders)
	assert.InDelta(t, 200.3, s.Platforms[0].Revenue, 1e-9)
	assert.Equal(t, pricing.PlatformSwiggy, s.Platforms[1].Platform)
}

func TestSummarizeEmptyDay(t *testing.T) {
	s := Summarize(nil, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	assert.Zero(t, s.Orders)
	assert.NotNil(t, s.Platforms)
	assert.Empty(t, s.Platforms)
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD-007", FormatOrderNumber(7))
	assert.Equal(t, "ORD-1234", FormatOrderNumber(1234))
}
