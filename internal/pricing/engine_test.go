package pricing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu          sync.Mutex
	quotes      int
	settlements map[Platform]int
	rejected    map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{settlements: map[Platform]int{}, rejected: map[string]int{}}
}

func (o *recordingObserver) QuoteComputed(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quotes++
}

func (o *recordingObserver) SettlementComputed(p Platform) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settlements[p]++
}

func (o *recordingObserver) InputRejected(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected[op]++
}

func TestNewEngineDefaults(t *testing.T) {
	engine, err := NewEngine(EngineConfig{})
	require.NoError(t, err)
	assert.Equal(t, DiscountClamp, engine.Policy())
	assert.Equal(t, DefaultPricingRates().Rates(), engine.PricingRates())
	assert.Equal(t, DefaultSettlementRates().Rates(), engine.SettlementRates())
	assert.NotEmpty(t, engine.Divergences())
}

func TestNewEngineRejectsInvalidTables(t *testing.T) {
	_, err := NewEngine(EngineConfig{PricingRates: RateTable{PlatformZomato: 100}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewEngine(EngineConfig{SettlementRates: RateTable{}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewEngine(EngineConfig{DiscountPolicy: "ignore"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEngineQuoteUsesPricingTable(t *testing.T) {
	observer := newRecordingObserver()
	engine, err := NewEngine(EngineConfig{Observer: observer})
	require.NoError(t, err)

	results, err := engine.Quote(kitchenBreakdown(), 30)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, int64(242), results[0].RecommendedPrice)
	assert.Equal(t, 1, observer.quotes)

	_, err = engine.Quote(CostBreakdown{}, 30)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, observer.rejected["quote"])
}

func TestEngineSettleUsesSettlementTable(t *testing.T) {
	observer := newRecordingObserver()
	engine, err := NewEngine(EngineConfig{Observer: observer})
	require.NoError(t, err)

	lines := []OrderLine{{ItemRef: "paneer-tikka", Quantity: 2, UnitPrice: 299, UnitCost: 180}}
	s, err := engine.Settle(lines, 50, PlatformZomato)
	require.NoError(t, err)
	assert.Equal(t, PlatformZomato, s.Platform)
	assert.Equal(t, 20.0, s.CommissionPercent)
	assert.InDelta(t, 78.4, s.Profit, 1e-9)
	assert.Equal(t, 1, observer.settlements[PlatformZomato])

	s, err = engine.Settle(lines, 0, PlatformDineIn)
	require.NoError(t, err)
	assert.InDelta(t, 598, s.NetRevenue, 1e-9)

	_, err = engine.Settle(lines, 0, PlatformOffline)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, observer.rejected["settle"])
}

func TestEngineRejectPolicy(t *testing.T) {
	engine, err := NewEngine(EngineConfig{DiscountPolicy: DiscountReject})
	require.NoError(t, err)
	_, err = engine.Settle([]OrderLine{{ItemRef: "a", Quantity: 1, UnitPrice: 10}}, 11, PlatformOnline)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEngineConcurrentUse(t *testing.T) {
	engine, err := NewEngine(EngineConfig{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := engine.Quote(kitchenBreakdown(), 30)
			assert.NoError(t, err)
			assert.Equal(t, int64(188), results[2].RecommendedPrice)
		}()
	}
	wg.Wait()
}

func TestEngineCopiesTables(t *testing.T) {
	table := RateTable{PlatformZomato: 30}
	engine, err := NewEngine(EngineConfig{PricingRates: table})
	require.NoError(t, err)
	table[PlatformZomato] = 50
	assert.Equal(t, 30.0, engine.PricingRates()[0].CommissionPercent)
}
