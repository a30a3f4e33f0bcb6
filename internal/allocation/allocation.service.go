package allocation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"rebalancesim/internal/config"
	"rebalancesim/internal/domain"

	"go.uber.org/zap"
)

const (
	// safety margin applied to available cash before sizing buys, absorbs
	// rounding error between estimated and executed costs
	cashBufferFactor = 0.999
	// dollar deltas at or below this are treated as noise
	dollarChangeEpsilon = 0.01
)

// Planner turns target weights into discrete share orders under cash
// constraints. It reads portfolio state but never mutates it.
type Planner struct {
	commissionRate float64
	slippageRate   float64
	log            *zap.SugaredLogger
}

func NewPlanner(cfg *config.Config, log *zap.SugaredLogger) *Planner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Planner{
		commissionRate: cfg.CommissionRate,
		slippageRate:   cfg.SlippageRate,
		log:            log,
	}
}

// CalculateRebalanceOrders compares the portfolio against target weights and
// produces the sell-then-buy order list for one rebalance date.
func (p *Planner) CalculateRebalanceOrders(
	portfolio *domain.Portfolio,
	targetWeights map[string]float64,
	prices map[string]float64,
	orderDate time.Time,
) ([]domain.Order, error) {
	totalValue := portfolio.TotalValue(prices)
	if totalValue <= 0 {
		return nil, fmt.Errorf("cannot rebalance portfolio with total value %f", totalValue)
	}

	deltas := p.ComparePositions(portfolio.Positions, targetWeights, totalValue, prices)
	return p.GenerateOrders(deltas, prices, orderDate, portfolio.Cash, portfolio.Positions), nil
}

// ComparePositions computes the signed dollar change per symbol needed to
// move current weights to target weights. Symbols absent from the target get
// target weight 0; symbols absent from current get current weight 0. Deltas
// within the noise epsilon are dropped.
func (p *Planner) ComparePositions(
	currentPositions map[string]*domain.Position,
	targetWeights map[string]float64,
	portfolioValue float64,
	prices map[string]float64,
) map[string]float64 {
	currentWeights := map[string]float64{}
	for symbol, pos := range currentPositions {
		if price, ok := prices[symbol]; ok {
			currentWeights[symbol] = float64(pos.Quantity) * price / portfolioValue
		} else {
			p.log.Warnw("no price for held symbol, using last known value", "symbol", symbol)
			currentWeights[symbol] = pos.Value / portfolioValue
		}
	}

	union := map[string]bool{}
	for symbol := range currentWeights {
		union[symbol] = true
	}
	for symbol := range targetWeights {
		union[symbol] = true
	}

	deltas := map[string]float64{}
	for symbol := range union {
		delta := (targetWeights[symbol] - currentWeights[symbol]) * portfolioValue
		if math.Abs(delta) > dollarChangeEpsilon {
			deltas[symbol] = delta
		}
	}
	return deltas
}

type buyEstimate struct {
	symbol          string
	quantity        int64
	price           float64
	adjustedPrice   float64
	totalCost       float64
	singleShareCost float64
	dollarChange    float64
}

// GenerateOrders converts dollar deltas into orders: sells first (sized
// against held quantity), then buys sized against available cash plus the
// cash the sells are estimated to free. When the buy estimates exceed
// buffered cash, buys are scaled proportionally and topped up greedily in
// descending dollar-delta priority order.
func (p *Planner) GenerateOrders(
	dollarChanges map[string]float64,
	prices map[string]float64,
	orderDate time.Time,
	availableCash float64,
	currentPositions map[string]*domain.Position,
) []domain.Order {
	orders := []domain.Order{}

	buyChanges := map[string]float64{}
	sellChanges := map[string]float64{}
	for symbol, change := range dollarChanges {
		if _, ok := prices[symbol]; !ok {
			p.log.Warnw("no price available, skipping", "symbol", symbol, "date", orderDate.Format("2006-01-02"))
			continue
		}
		if change > 0 {
			buyChanges[symbol] = change
			continue
		}
		pos, held := currentPositions[symbol]
		if !held || pos.Quantity <= 0 {
			p.log.Warnw("no position to sell, skipping", "symbol", symbol, "date", orderDate.Format("2006-01-02"))
			continue
		}
		sellChanges[symbol] = change
	}

	// sells in symbol order for reproducible runs
	sellSymbols := make([]string, 0, len(sellChanges))
	for symbol := range sellChanges {
		sellSymbols = append(sellSymbols, symbol)
	}
	sort.Strings(sellSymbols)

	cashFreed := 0.0
	for _, symbol := range sellSymbols {
		price := prices[symbol]
		quantity := int64(math.Round(math.Abs(sellChanges[symbol]) / price))

		held := currentPositions[symbol].Quantity
		if quantity > held {
			p.log.Warnw("clipping sell to held quantity", "symbol", symbol, "requested", quantity, "held", held)
			quantity = held
		}
		if quantity <= 0 {
			p.log.Warnw("no shares to sell, skipping", "symbol", symbol)
			continue
		}

		// pre-execution estimate of the cash this sell frees, net of commission
		notional := float64(quantity) * price
		cashFreed += notional - notional*p.commissionRate

		orders = append(orders, domain.NewOrder(symbol, -quantity, price, orderDate))
	}

	totalAvailableCash := availableCash + cashFreed
	if totalAvailableCash <= 0 || len(buyChanges) == 0 {
		return orders
	}

	estimates := []buyEstimate{}
	totalEstimatedCost := 0.0
	for symbol, change := range buyChanges {
		price := prices[symbol]
		quantity := int64(math.Round(change / price))
		if quantity <= 0 {
			continue
		}

		adjustedPrice := price * (1 + p.slippageRate)
		cost := float64(quantity) * adjustedPrice
		totalCost := cost + cost*p.commissionRate

		estimates = append(estimates, buyEstimate{
			symbol:          symbol,
			quantity:        quantity,
			price:           price,
			adjustedPrice:   adjustedPrice,
			totalCost:       totalCost,
			singleShareCost: adjustedPrice * (1 + p.commissionRate),
			dollarChange:    change,
		})
		totalEstimatedCost += totalCost
	}
	if len(estimates) == 0 {
		return orders
	}

	// highest dollar delta first; ties broken by symbol for determinism
	sort.Slice(estimates, func(i, j int) bool {
		if estimates[i].dollarChange != estimates[j].dollarChange {
			return estimates[i].dollarChange > estimates[j].dollarChange
		}
		return estimates[i].symbol < estimates[j].symbol
	})

	bufferedCash := totalAvailableCash * cashBufferFactor
	if totalEstimatedCost <= bufferedCash {
		for _, est := range estimates {
			orders = append(orders, domain.NewOrder(est.symbol, est.quantity, est.price, orderDate))
		}
		return orders
	}

	p.log.Debugw("buy estimates exceed buffered cash, scaling",
		"bufferedCash", bufferedCash, "estimatedCost", totalEstimatedCost, "date", orderDate.Format("2006-01-02"))

	scalingFactor := bufferedCash / totalEstimatedCost
	accepted := map[string]int64{}
	remainingCash := totalAvailableCash

	for _, est := range estimates {
		scaled := int64(float64(est.quantity) * scalingFactor)
		if scaled < 1 && est.singleShareCost <= remainingCash {
			scaled = 1
		}
		if scaled <= 0 {
			continue
		}

		cost := float64(scaled) * est.adjustedPrice
		total := cost + cost*p.commissionRate
		if total <= remainingCash {
			accepted[est.symbol] = scaled
			remainingCash -= total
		}
	}

	// greedy top-up: spend leftover cash on more shares, priority order,
	// never past the original unscaled quantity
	if remainingCash > 0 {
		for _, est := range estimates {
			current, ok := accepted[est.symbol]
			if !ok || est.singleShareCost > remainingCash {
				continue
			}
			additional := int64(remainingCash / est.singleShareCost)
			if max := est.quantity - current; additional > max {
				additional = max
			}
			if additional <= 0 {
				continue
			}
			accepted[est.symbol] = current + additional
			cost := float64(additional) * est.adjustedPrice
			remainingCash -= cost + cost*p.commissionRate
		}
	}

	for _, est := range estimates {
		quantity, ok := accepted[est.symbol]
		if !ok || quantity <= 0 {
			continue
		}
		if quantity < est.quantity {
			p.log.Debugw("scaled buy under cash constraints",
				"symbol", est.symbol, "original", est.quantity, "scaled", quantity)
		}
		orders = append(orders, domain.NewOrder(est.symbol, quantity, est.price, orderDate))
	}

	return orders
}
