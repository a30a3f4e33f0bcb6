package execution

import (
	"testing"

	"rebalancesim/internal/config"
	"rebalancesim/internal/domain"
	"rebalancesim/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(cash, commissionRate, slippageRate float64) (*Engine, *domain.Portfolio, *domain.TradeLog) {
	cfg := &config.Config{
		InitialCapital:     cash,
		CommissionRate:     commissionRate,
		SlippageRate:       slippageRate,
		RebalanceFrequency: config.RebalanceDaily,
	}
	portfolio := domain.NewPortfolio(cash, nil)
	tradeLog := domain.NewTradeLog()
	return NewEngine(cfg, portfolio, tradeLog, nil), portfolio, tradeLog
}

func seedPosition(t *testing.T, engine *Engine, portfolio *domain.Portfolio, symbol string, quantity int64, price float64) {
	t.Helper()
	order := domain.NewOrder(symbol, quantity, price, util.NewDate(2024, 1, 2))
	trades := engine.ExecuteOrders([]domain.Order{order}, util.NewDate(2024, 1, 2), map[string]float64{symbol: price})
	require.Len(t, trades, 1)
	require.Equal(t, quantity, trades[0].Quantity)
}

func TestExecuteOrders_SellRealizesPnl(t *testing.T) {
	engine, portfolio, tradeLog := newTestEngine(500, 0, 0)
	seedPosition(t, engine, portfolio, "B", 50, 10)
	require.Equal(t, 0.0, portfolio.Cash)

	date := util.NewDate(2024, 1, 10)
	order := domain.NewOrder("B", -50, 12, date)
	trades := engine.ExecuteOrders([]domain.Order{order}, date, map[string]float64{"B": 12})

	require.Len(t, trades, 1)
	trade := trades[0]
	assert.Equal(t, int64(-50), trade.Quantity)
	assert.Equal(t, 12.0, trade.ExecutionPrice)
	assert.Equal(t, -600.0, trade.Amount)
	assert.Equal(t, 100.0, trade.PNL)
	assert.Equal(t, 600.0, portfolio.Cash)
	assert.Equal(t, 2, tradeLog.Len())

	_, held := portfolio.GetPosition("B")
	assert.False(t, held)
}

func TestExecuteOrders_OversellClippedToHeld(t *testing.T) {
	engine, portfolio, _ := newTestEngine(600, 0, 0)
	seedPosition(t, engine, portfolio, "B", 60, 10)

	date := util.NewDate(2024, 1, 10)
	order := domain.NewOrder("B", -100, 10, date)
	trades := engine.ExecuteOrders([]domain.Order{order}, date, map[string]float64{"B": 10})

	require.Len(t, trades, 1)
	assert.Equal(t, int64(-60), trades[0].Quantity)
	_, held := portfolio.GetPosition("B")
	assert.False(t, held)
}

func TestExecuteOrders_SellWithoutPositionDropped(t *testing.T) {
	engine, portfolio, tradeLog := newTestEngine(1000, 0, 0)

	date := util.NewDate(2024, 1, 10)
	order := domain.NewOrder("GHOST", -10, 10, date)
	trades := engine.ExecuteOrders([]domain.Order{order}, date, map[string]float64{"GHOST": 10})

	assert.Empty(t, trades)
	assert.Zero(t, tradeLog.Len())
	assert.Equal(t, 1000.0, portfolio.Cash)
}

func TestExecuteOrders_MissingPriceDropped(t *testing.T) {
	engine, portfolio, _ := newTestEngine(1000, 0, 0)

	date := util.NewDate(2024, 1, 10)
	order := domain.NewOrder("A", 5, 100, date)
	trades := engine.ExecuteOrders([]domain.Order{order}, date, map[string]float64{})

	assert.Empty(t, trades)
	assert.Equal(t, 1000.0, portfolio.Cash)
}

func TestExecuteOrders_BuyClippedToAffordableQuantity(t *testing.T) {
	engine, portfolio, _ := newTestEngine(1000, 0, 0)

	date := util.NewDate(2024, 1, 10)
	order := domain.NewOrder("A", 15, 100, date)
	trades := engine.ExecuteOrders([]domain.Order{order}, date, map[string]float64{"A": 100})

	require.Len(t, trades, 1)
	assert.Equal(t, int64(10), trades[0].Quantity)
	assert.Equal(t, 0.0, portfolio.Cash)
}

func TestExecuteOrders_BuyClipWithCommissionKeepsCashNonNegative(t *testing.T) {
	engine, portfolio, _ := newTestEngine(1000, 0.01, 0)

	date := util.NewDate(2024, 1, 10)
	order := domain.NewOrder("A", 15, 100, date)
	trades := engine.ExecuteOrders([]domain.Order{order}, date, map[string]float64{"A": 100})

	// commission on the requested 15 shares is 15, so (1000-15)/100 caps
	// the fill at 9 shares; the trade carries the commission for 9
	require.Len(t, trades, 1)
	assert.Equal(t, int64(9), trades[0].Quantity)
	assert.Equal(t, 9.0, trades[0].Commission)
	assert.Equal(t, 909.0, trades[0].Amount)
	assert.Equal(t, 91.0, portfolio.Cash)
	assert.GreaterOrEqual(t, portfolio.Cash, 0.0)
}

func TestExecuteOrders_UnaffordableBuyDropped(t *testing.T) {
	engine, portfolio, tradeLog := newTestEngine(50, 0, 0)

	date := util.NewDate(2024, 1, 10)
	order := domain.NewOrder("A", 1, 100, date)
	trades := engine.ExecuteOrders([]domain.Order{order}, date, map[string]float64{"A": 100})

	assert.Empty(t, trades)
	assert.Zero(t, tradeLog.Len())
	assert.Equal(t, 50.0, portfolio.Cash)
}

func TestExecuteOrders_SellsSettleBeforeBuys(t *testing.T) {
	engine, portfolio, _ := newTestEngine(1000, 0, 0)
	seedPosition(t, engine, portfolio, "A", 10, 100)
	require.Equal(t, 0.0, portfolio.Cash)

	date := util.NewDate(2024, 1, 10)
	prices := map[string]float64{"A": 100, "B": 100}
	orders := []domain.Order{
		// buy listed first, but it can only be funded by the sell
		domain.NewOrder("B", 9, 100, date),
		domain.NewOrder("A", -10, 100, date),
	}
	trades := engine.ExecuteOrders(orders, date, prices)

	require.Len(t, trades, 2)
	assert.Equal(t, "A", trades[0].Symbol)
	assert.Equal(t, int64(-10), trades[0].Quantity)
	assert.Equal(t, "B", trades[1].Symbol)
	assert.Equal(t, int64(9), trades[1].Quantity)
	assert.Equal(t, 100.0, portfolio.Cash)
}

func TestExecuteOrders_BuysConsumeCashSequentially(t *testing.T) {
	engine, portfolio, _ := newTestEngine(1500, 0, 0)

	date := util.NewDate(2024, 1, 10)
	prices := map[string]float64{"A": 100, "B": 100}
	orders := []domain.Order{
		domain.NewOrder("A", 10, 100, date),
		domain.NewOrder("B", 10, 100, date),
	}
	trades := engine.ExecuteOrders(orders, date, prices)

	// first buy fills fully, second is clipped to the 500 left over
	require.Len(t, trades, 2)
	assert.Equal(t, int64(10), trades[0].Quantity)
	assert.Equal(t, int64(5), trades[1].Quantity)
	assert.Equal(t, 0.0, portfolio.Cash)
}

func TestExecuteOrders_CashNeverNegativeUnderFrictions(t *testing.T) {
	engine, portfolio, _ := newTestEngine(10000, 0.005, 0.002)

	date := util.NewDate(2024, 1, 10)
	prices := map[string]float64{"A": 137.31, "B": 52.17, "C": 891.02}
	orders := []domain.Order{
		domain.NewOrder("A", 40, 137.31, date),
		domain.NewOrder("B", 80, 52.17, date),
		domain.NewOrder("C", 6, 891.02, date),
	}
	engine.ExecuteOrders(orders, date, prices)

	assert.GreaterOrEqual(t, portfolio.Cash, 0.0)
}

func TestPercentSlippageModel(t *testing.T) {
	model := PercentSlippageModel{Rate: 0.01}
	date := util.NewDate(2024, 1, 10)

	buy := domain.NewOrder("A", 10, 100, date)
	assert.InDelta(t, 101.0, model.ExecutionPrice(buy, 100), 1e-9)

	sell := domain.NewOrder("A", -10, 100, date)
	assert.InDelta(t, 99.0, model.ExecutionPrice(sell, 100), 1e-9)
}

func TestPercentCommissionModel(t *testing.T) {
	model := PercentCommissionModel{Rate: 0.001}

	assert.InDelta(t, 1.0, model.Commission(10, 100), 1e-9)
	assert.InDelta(t, 1.0, model.Commission(-10, 100), 1e-9)
	assert.Zero(t, model.Commission(0, 100))
}

func TestExecuteOrders_SlippageAndCommissionApplied(t *testing.T) {
	engine, portfolio, _ := newTestEngine(100000, 0.001, 0.01)

	date := util.NewDate(2024, 1, 10)
	order := domain.NewOrder("A", 100, 100, date)
	trades := engine.ExecuteOrders([]domain.Order{order}, date, map[string]float64{"A": 100})

	require.Len(t, trades, 1)
	trade := trades[0]
	assert.InDelta(t, 101.0, trade.ExecutionPrice, 1e-9)
	assert.InDelta(t, 10.1, trade.Commission, 1e-9)
	assert.InDelta(t, 10110.1, trade.Amount, 1e-9)
	assert.InDelta(t, 100000-10110.1, portfolio.Cash, 1e-9)
}
