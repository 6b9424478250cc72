package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restopro/restopro/internal/pricing"
)

type mockRepo struct {
	totals      Totals
	daily       []DailyPoint
	counts      []PlatformCount
	top         []TopItem
	monthly     []MonthlyPoint
	totalsCalls atomic.Int32
	dailyCalls  atomic.Int32
	gate        chan struct{}
}

func (m *mockRepo) Totals(ctx context.Context, from, to time.Time) (Totals, error) {
	m.totalsCalls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	return m.totals, nil
}

func (m *mockRepo) Daily(ctx context.Context, from, to time.Time, loc *time.Location) ([]DailyPoint, error) {
	m.dailyCalls.Add(1)
	return m.daily, nil
}

func (m *mockRepo) PlatformCounts(ctx context.Context, from, to time.Time) ([]PlatformCount, error) {
	return m.counts, nil
}

func (m *mockRepo) TopItems(ctx context.Context, from, to time.Time, limit int) ([]TopItem, error) {
	if limit < len(m.top) {
		return m.top[:limit], nil
	}
	return m.top, nil
}

func (m *mockRepo) Monthly(ctx context.Context, from, to time.Time, loc *time.Location) ([]MonthlyPoint, error) {
	return m.monthly, nil
}

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, NewCache(client, time.Minute), time.UTC, nil)
	svc.now = func() time.Time { return testNow }
	return svc, mr
}

func sampleRepo() *mockRepo {
	return &mockRepo{
		totals: Totals{Orders: 4, Revenue: 1000, Profit: 250},
		counts: []PlatformCount{{Platform: pricing.PlatformSwiggy, Orders: 2}, {Platform: pricing.PlatformZomato, Orders: 2}},
		top:    []TopItem{{Name: "Paneer Tikka", Quantity: 6, Revenue: 1200}, {Name: "Dal Makhani", Quantity: 2, Revenue: 300}},
		daily:  []DailyPoint{{Date: "2026-03-10", Sales: 400, Orders: 2, Profit: 100}},
	}
}

func TestGetKPISummaryCaches(t *testing.T) {
	repo := sampleRepo()
	svc, _ := newTestService(t, repo)
	ctx := context.Background()
	w := svc.Window(Range7d)

	kpis, err := svc.GetKPISummary(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, kpis.TotalRevenue)
	assert.Equal(t, 250.0, kpis.AverageOrderValue)
	assert.Equal(t, 25.0, kpis.ProfitMargin)
	assert.Equal(t, "Paneer Tikka", kpis.TopItem)
	assert.Equal(t, pricing.PlatformZomato, kpis.BestPlatform)
	assert.Equal(t, int32(1), repo.totalsCalls.Load())

	_, err = svc.GetKPISummary(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.totalsCalls.Load())

	require.NoError(t, svc.Bump(ctx))
	repo.totals.Revenue = 2000
	kpis, err = svc.GetKPISummary(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, kpis.TotalRevenue)
	assert.Equal(t, int32(2), repo.totalsCalls.Load())
}

func TestConcurrentLoadsShareOneQuery(t *testing.T) {
	repo := sampleRepo()
	repo.gate = make(chan struct{})
	svc, _ := newTestService(t, repo)
	w := svc.Window(Range30d)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetKPISummary(context.Background(), w)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return repo.totalsCalls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.gate)
	wg.Wait()
	assert.Equal(t, int32(1), repo.totalsCalls.Load())
}

func TestDailySeriesZeroFilled(t *testing.T) {
	repo := sampleRepo()
	svc, _ := newTestService(t, repo)

	points, err := svc.GetDailySeries(context.Background(), svc.Window(Range7d))
	require.NoError(t, err)
	require.Len(t, points, 7)
	assert.Equal(t, "2026-03-08", points[0].Date)
	assert.Equal(t, "2026-03-14", points[6].Date)
	assert.Equal(t, 400.0, points[2].Sales)
	assert.Zero(t, points[3].Orders)
}

func TestWarmupPopulatesEveryRange(t *testing.T) {
	repo := sampleRepo()
	svc, mr := newTestService(t, repo)
	require.NoError(t, svc.Warmup(context.Background()))
	assert.Equal(t, int32(4), repo.totalsCalls.Load())
	assert.Equal(t, int32(4), repo.dailyCalls.Load())
	assert.Len(t, mr.Keys(), 1+5*len(Ranges()))

	_, err := svc.GetDailySeries(context.Background(), svc.Window(Range1y))
	require.NoError(t, err)
	assert.Equal(t, int32(4), repo.dailyCalls.Load())
}

func TestServiceWithoutCache(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, nil, time.UTC, nil)
	svc.now = func() time.Time { return testNow }

	_, err := svc.GetKPISummary(context.Background(), svc.Window(Range7d))
	require.NoError(t, err)
	_, err = svc.GetKPISummary(context.Background(), svc.Window(Range7d))
	require.NoError(t, err)
	assert.Equal(t, int32(2), repo.totalsCalls.Load())
	assert.NoError(t, svc.Bump(context.Background()))
}

func TestParseRangeAndWindow(t *testing.T) {
	r, err := ParseRange("")
	require.NoError(t, err)
	assert.Equal(t, Range7d, r)
	r, err = ParseRange("1Y")
	require.NoError(t, err)
	assert.Equal(t, Range1y, r)
	_, err = ParseRange("2w")
	assert.Error(t, err)

	loc := time.FixedZone("IST", 5*3600+1800)
	w := WindowFor(Range30d, time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, "2026-02-14", w.From.Format(time.DateOnly))
	assert.Equal(t, "2026-03-16", w.To.Format(time.DateOnly))
	assert.Equal(t, 30, int(w.To.Sub(w.From).Hours()/24))
}

func TestBuildKPISummaryEmpty(t *testing.T) {
	k := BuildKPISummary(Totals{}, nil, nil)
	assert.Zero(t, k.AverageOrderValue)
	assert.Zero(t, k.ProfitMargin)
	assert.Empty(t, k.TopItem)
	assert.Empty(t, k.BestPlatform)
}

func TestSharesAndMonthly(t *testing.T) {
	shares := Shares([]PlatformCount{
		{Platform: pricing.PlatformDineIn, Orders: 1},
		{Platform: pricing.PlatformZomato, Orders: 2},
	})
	require.Len(t, shares, 2)
	assert.Equal(t, pricing.PlatformZomato, shares[0].Platform)
	assert.InDelta(t, 66.67, shares[0].Percent, 1e-9)
	assert.Equal(t, "Dine-in", shares[1].Label)
	assert.Empty(t, Shares(nil))

	w := WindowFor(Range90d, testNow, time.UTC)
	months := FillMonthly([]MonthlyPoint{{Month: "2026-02", Revenue: 10, Orders: 1}}, w)
	require.Len(t, months, 4)
	assert.Equal(t, "2025-12", months[0].Month)
	assert.Equal(t, "2026-03", months[3].Month)
	assert.Equal(t, 10.0, months[2].Revenue)
}
