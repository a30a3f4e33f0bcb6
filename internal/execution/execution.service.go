package execution

import (
	"math"
	"time"

	"rebalancesim/internal/config"
	"rebalancesim/internal/domain"

	"go.uber.org/zap"
)

// SlippageModel computes the fill price for an order: buys pay more, sells
// receive less.
type SlippageModel interface {
	ExecutionPrice(order domain.Order, price float64) float64
}

type PercentSlippageModel struct {
	Rate float64
}

func (m PercentSlippageModel) ExecutionPrice(order domain.Order, price float64) float64 {
	if order.Quantity > 0 {
		return price * (1 + m.Rate)
	}
	return price * (1 - m.Rate)
}

// CommissionModel computes the transaction cost for a fill.
type CommissionModel interface {
	Commission(quantity int64, executionPrice float64) float64
}

type PercentCommissionModel struct {
	Rate float64
}

func (m PercentCommissionModel) Commission(quantity int64, executionPrice float64) float64 {
	return math.Abs(float64(quantity)*executionPrice) * m.Rate
}

// Engine validates orders against live portfolio state, applies cost models,
// mutates the portfolio and appends to the trade log. It holds the only
// read-write reference to the portfolio for the duration of a call.
type Engine struct {
	portfolio  *domain.Portfolio
	tradeLog   *domain.TradeLog
	slippage   SlippageModel
	commission CommissionModel
	log        *zap.SugaredLogger
}

func NewEngine(cfg *config.Config, portfolio *domain.Portfolio, tradeLog *domain.TradeLog, log *zap.SugaredLogger) *Engine {
	return NewEngineWithModels(
		portfolio,
		tradeLog,
		PercentSlippageModel{Rate: cfg.SlippageRate},
		PercentCommissionModel{Rate: cfg.CommissionRate},
		log,
	)
}

func NewEngineWithModels(
	portfolio *domain.Portfolio,
	tradeLog *domain.TradeLog,
	slippage SlippageModel,
	commission CommissionModel,
	log *zap.SugaredLogger,
) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		portfolio:  portfolio,
		tradeLog:   tradeLog,
		slippage:   slippage,
		commission: commission,
		log:        log,
	}
}

// ExecuteOrders fills the given orders against the supplied prices. All
// sells are processed before any buy, so buys draw on the cash the sells
// freed. Buys consume the shared cash balance sequentially in input order.
// Rejected orders produce no trade.
func (e *Engine) ExecuteOrders(orders []domain.Order, executionDate time.Time, prices map[string]float64) []*domain.Trade {
	if len(orders) == 0 {
		return nil
	}

	dateStr := executionDate.Format("2006-01-02")
	e.log.Debugw("executing orders", "count", len(orders), "date", dateStr)

	executed := []*domain.Trade{}

	sellOrders := []domain.Order{}
	buyOrders := []domain.Order{}
	for _, order := range orders {
		if order.Quantity < 0 {
			sellOrders = append(sellOrders, order)
		} else if order.Quantity > 0 {
			buyOrders = append(buyOrders, order)
		}
	}

	sellTrades := []*domain.Trade{}
	for _, order := range sellOrders {
		validated, ok := e.validateSell(order, prices, dateStr)
		if !ok {
			continue
		}

		price := prices[validated.Symbol]
		executionPrice := e.slippage.ExecutionPrice(validated, price)
		commission := e.commission.Commission(validated.Quantity, executionPrice)
		// quantity is negative, so amount is negative: a net cash inflow
		amount := float64(validated.Quantity)*executionPrice - commission

		sellTrades = append(sellTrades, domain.NewTrade(validated, executionDate, executionPrice, commission, amount))
	}

	for _, trade := range sellTrades {
		applied, pnl := e.portfolio.ApplyTrade(trade)
		if !applied {
			continue
		}
		trade.PNL = pnl
		e.tradeLog.Add(trade)
		executed = append(executed, trade)
		e.log.Debugw("sold", "symbol", trade.Symbol, "quantity", -trade.Quantity, "price", trade.ExecutionPrice, "pnl", pnl, "date", dateStr)
	}

	// buys run against the post-sell cash balance, in the priority order the
	// planner established
	for _, order := range buyOrders {
		validated, ok := e.validateBuy(order, prices, dateStr, e.portfolio.Cash)
		if !ok {
			continue
		}

		price := prices[validated.Symbol]
		executionPrice := e.slippage.ExecutionPrice(validated, price)
		commission := e.commission.Commission(validated.Quantity, executionPrice)
		amount := float64(validated.Quantity)*executionPrice + commission

		trade := domain.NewTrade(validated, executionDate, executionPrice, commission, amount)
		applied, _ := e.portfolio.ApplyTrade(trade)
		if !applied {
			e.log.Errorw("failed to apply buy trade", "symbol", validated.Symbol, "date", dateStr)
			continue
		}

		e.tradeLog.Add(trade)
		executed = append(executed, trade)
		e.log.Debugw("bought", "symbol", trade.Symbol, "quantity", trade.Quantity, "price", trade.ExecutionPrice, "amount", amount, "date", dateStr)
	}

	return executed
}

// validateSell clips an oversized sell to the held quantity and drops sells
// with no backing position or price.
func (e *Engine) validateSell(order domain.Order, prices map[string]float64, dateStr string) (domain.Order, bool) {
	if _, ok := prices[order.Symbol]; !ok {
		e.log.Warnw("no price, skipping sell", "symbol", order.Symbol, "date", dateStr)
		return domain.Order{}, false
	}

	pos, ok := e.portfolio.GetPosition(order.Symbol)
	if !ok || pos.Quantity <= 0 {
		e.log.Warnw("no position to sell", "symbol", order.Symbol, "date", dateStr)
		return domain.Order{}, false
	}

	sellQuantity := -order.Quantity
	if sellQuantity > pos.Quantity {
		e.log.Warnw("clipping sell to held quantity",
			"symbol", order.Symbol, "requested", sellQuantity, "held", pos.Quantity, "date", dateStr)
		order.Quantity = -pos.Quantity
	}

	return order, true
}

// validateBuy clips a buy the available cash cannot cover. The clip quantity
// is derived from the commission of the requested quantity, not re-derived
// for the clipped one; the trade itself carries the recomputed commission.
func (e *Engine) validateBuy(order domain.Order, prices map[string]float64, dateStr string, availableCash float64) (domain.Order, bool) {
	price, ok := prices[order.Symbol]
	if !ok {
		e.log.Warnw("no price, skipping buy", "symbol", order.Symbol, "date", dateStr)
		return domain.Order{}, false
	}

	executionPrice := e.slippage.ExecutionPrice(order, price)
	commission := e.commission.Commission(order.Quantity, executionPrice)
	totalAmount := float64(order.Quantity)*executionPrice + commission

	if totalAmount <= availableCash {
		return order, true
	}

	if availableCash <= commission {
		e.log.Warnw("insufficient cash for even one share",
			"symbol", order.Symbol, "commission", commission, "date", dateStr)
		return domain.Order{}, false
	}

	maxShares := int64((availableCash - commission) / executionPrice)
	if maxShares <= 0 {
		e.log.Warnw("insufficient cash for even one share",
			"symbol", order.Symbol, "price", executionPrice, "commission", commission, "date", dateStr)
		return domain.Order{}, false
	}

	e.log.Warnw("clipping buy to affordable quantity",
		"symbol", order.Symbol, "requested", order.Quantity, "affordable", maxShares, "date", dateStr)
	order.Quantity = maxShares
	return order, true
}
