package backtest

import (
	"fmt"
	"time"

	"rebalancesim/internal/allocation"
	"rebalancesim/internal/calculator"
	"rebalancesim/internal/config"
	"rebalancesim/internal/domain"
	"rebalancesim/internal/execution"

	"go.uber.org/zap"
)

// TargetWeightSource supplies target allocations per date. Weights are not
// required to sum to 1; the planner does not renormalize them.
type TargetWeightSource interface {
	TargetWeights(date time.Time) (map[string]float64, bool)
}

// WeightMapSource adapts a precomputed date-keyed weight table into a
// TargetWeightSource.
type WeightMapSource map[time.Time]map[string]float64

func (s WeightMapSource) TargetWeights(date time.Time) (map[string]float64, bool) {
	weights, ok := s[date]
	return weights, ok
}

// Result is the in-process output bundle of one run.
type Result struct {
	InitialCapital   float64
	FinalValue       float64
	ValueHistory     []domain.DatedValue
	Snapshots        []domain.Snapshot
	WeightsHistory   map[time.Time]map[string]float64
	SignalHistory    map[time.Time]map[string]float64
	TradeLog         *domain.TradeLog
	Summary          calculator.Summary
	BenchmarkReturns []domain.DatedValue
}

// Engine is the date-ordered control loop: it pops due pending orders, marks
// the portfolio to market, and on rebalance dates plans and executes (or
// defers) orders. It exclusively owns the portfolio for the duration of a
// run.
type Engine struct {
	cfg       *config.Config
	portfolio *domain.Portfolio
	tradeLog  *domain.TradeLog
	planner   *allocation.Planner
	execution *execution.Engine
	pending   *PendingOrderQueue
	log       *zap.SugaredLogger
}

func NewEngine(cfg *config.Config, log *zap.SugaredLogger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	portfolio := domain.NewPortfolio(cfg.InitialCapital, log)
	tradeLog := domain.NewTradeLog()

	return &Engine{
		cfg:       cfg,
		portfolio: portfolio,
		tradeLog:  tradeLog,
		planner:   allocation.NewPlanner(cfg, log),
		execution: execution.NewEngine(cfg, portfolio, tradeLog, log),
		pending:   NewPendingOrderQueue(),
		log:       log,
	}, nil
}

// Run walks the price axis in chronological order, exactly once per date.
// Errors while planning or executing a date's orders are logged and skip
// that date's trade activity; the run itself continues.
func (e *Engine) Run(prices *domain.PriceTable, source TargetWeightSource) (*Result, error) {
	dates := prices.Dates()
	if len(dates) == 0 {
		return nil, fmt.Errorf("cannot run backtest on empty price table")
	}

	schedule := RebalanceSchedule(dates, e.cfg.RebalanceFrequency)
	weightsHistory := map[time.Time]map[string]float64{}
	signalHistory := map[time.Time]map[string]float64{}

	e.log.Infow("starting backtest",
		"dates", len(dates),
		"initialCapital", e.cfg.InitialCapital,
		"rebalanceFrequency", e.cfg.RebalanceFrequency,
		"executionDelay", e.cfg.ExecutionDelay,
	)

	for i, date := range dates {
		todayPrices := prices.PricesOn(date)

		if due := e.pending.Pop(date); len(due) > 0 {
			e.log.Debugw("executing pending orders", "count", len(due), "date", date.Format("2006-01-02"))
			e.execution.ExecuteOrders(due, date, todayPrices)
		}

		e.portfolio.MarkToMarket(date, todayPrices)

		// recorded every day, not just on trade days, so allocation
		// tracking stays continuous
		weightsHistory[date] = e.portfolio.Weights(nil)

		if !schedule[date] {
			continue
		}

		target, ok := source.TargetWeights(date)
		if !ok || len(target) == 0 {
			continue
		}
		signalHistory[date] = target

		if err := e.rebalanceStep(i, date, target, prices, todayPrices); err != nil {
			e.log.Errorw("skipping trade activity for date", "date", date.Format("2006-01-02"), "error", err)
		}
	}

	if n := e.pending.Len(); n > 0 {
		e.log.Warnw("orders still pending past end of axis, never executed", "dates", n)
	}

	return e.buildResult(prices, weightsHistory, signalHistory)
}

func (e *Engine) rebalanceStep(
	dateIndex int,
	date time.Time,
	target map[string]float64,
	prices *domain.PriceTable,
	todayPrices map[string]float64,
) error {
	orders, err := e.planner.CalculateRebalanceOrders(e.portfolio, target, todayPrices, date)
	if err != nil {
		return fmt.Errorf("failed to plan rebalance orders: %w", err)
	}
	if len(orders) == 0 {
		return nil
	}

	if e.cfg.ExecutionDelay == 0 {
		e.execution.ExecuteOrders(orders, date, todayPrices)
		return nil
	}

	dates := prices.Dates()
	executionIndex := dateIndex + e.cfg.ExecutionDelay
	if executionIndex >= len(dates) {
		e.log.Warnw("execution date past end of axis, dropping orders",
			"orderDate", date.Format("2006-01-02"), "count", len(orders))
		return nil
	}
	e.pending.Add(dates[executionIndex], orders)
	return nil
}

func (e *Engine) buildResult(
	prices *domain.PriceTable,
	weightsHistory map[time.Time]map[string]float64,
	signalHistory map[time.Time]map[string]float64,
) (*Result, error) {
	valueHistory := e.portfolio.ValueHistory()

	summary, err := calculator.CalculateSummary(calculator.CalculateSummaryInput{
		ValueHistory: valueHistory,
		Trades:       e.tradeLog.Trades(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to calculate summary statistics: %w", err)
	}

	finalValue := e.cfg.InitialCapital
	if len(valueHistory) > 0 {
		finalValue = valueHistory[len(valueHistory)-1].Value
	}

	return &Result{
		InitialCapital:   e.cfg.InitialCapital,
		FinalValue:       finalValue,
		ValueHistory:     valueHistory,
		Snapshots:        e.portfolio.Snapshots(),
		WeightsHistory:   weightsHistory,
		SignalHistory:    signalHistory,
		TradeLog:         e.tradeLog,
		Summary:          summary,
		BenchmarkReturns: calculator.BenchmarkReturns(prices),
	}, nil
}

// Portfolio exposes the engine's portfolio, mainly for tests and callers
// that want to inspect final state.
func (e *Engine) Portfolio() *domain.Portfolio {
	return e.portfolio
}
