package domain

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Position is a single holding. Quantity is whole shares and stays positive
// while the position exists; CostBasis is the weighted-average price paid per
// held share; Value is quantity times the last price seen at mark-to-market.
type Position struct {
	Symbol    string
	Quantity  int64
	CostBasis float64
	Value     float64
}

// Snapshot is the portfolio state recorded at mark-to-market for one date.
// Positions are value copies, so later mutations don't leak into history.
type Snapshot struct {
	Date       time.Time
	Cash       float64
	Positions  map[string]Position
	TotalValue float64
	Weights    map[string]float64
}

// DatedValue is one point of the portfolio value time series.
type DatedValue struct {
	Date  time.Time
	Value float64
}

// CashWeightKey is the pseudo-symbol under which the cash weight is reported.
const CashWeightKey = "Cash"

// Portfolio is the single source of truth for cash, open positions and the
// per-date snapshot history. It is owned by the simulation driver; the
// execution engine mutates it through ApplyTrade and MarkToMarket.
type Portfolio struct {
	InitialCapital float64
	Cash           float64
	Positions      map[string]*Position

	history map[time.Time]Snapshot
	log     *zap.SugaredLogger
}

func NewPortfolio(initialCapital float64, log *zap.SugaredLogger) *Portfolio {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Portfolio{
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		Positions:      map[string]*Position{},
		history:        map[time.Time]Snapshot{},
		log:            log,
	}
}

func (p *Portfolio) GetPosition(symbol string) (*Position, bool) {
	pos, ok := p.Positions[symbol]
	return pos, ok
}

func (p *Portfolio) HeldSymbols() []string {
	symbols := []string{}
	for symbol := range p.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// ApplyTrade mutates cash and positions from an executed trade. Cash always
// moves by the trade's signed amount, which already nets commission. The
// returned pnl is nonzero only for applied sells and excludes commission.
func (p *Portfolio) ApplyTrade(t *Trade) (bool, float64) {
	p.Cash -= t.Amount

	if t.Quantity > 0 {
		p.addPosition(t.Symbol, t.Quantity, t.ExecutionPrice)
		return true, 0
	}
	return p.removePosition(t.Symbol, -t.Quantity, t.ExecutionPrice)
}

func (p *Portfolio) addPosition(symbol string, quantity int64, price float64) {
	pos, ok := p.Positions[symbol]
	if !ok {
		p.Positions[symbol] = &Position{
			Symbol:    symbol,
			Quantity:  quantity,
			CostBasis: price,
			Value:     float64(quantity) * price,
		}
		return
	}

	newQuantity := pos.Quantity + quantity
	if newQuantity == 0 {
		delete(p.Positions, symbol)
		return
	}

	// weighted-average cost basis across the old lot and the new fill
	newCost := pos.CostBasis*float64(pos.Quantity) + float64(quantity)*price
	pos.Quantity = newQuantity
	pos.CostBasis = newCost / float64(newQuantity)
	pos.Value = float64(newQuantity) * price
}

func (p *Portfolio) removePosition(symbol string, quantity int64, price float64) (bool, float64) {
	pos, ok := p.Positions[symbol]
	if !ok {
		p.log.Warnw("position not found, dropping sell", "symbol", symbol)
		return false, 0
	}
	if quantity > pos.Quantity {
		p.log.Warnw("insufficient quantity to remove", "symbol", symbol, "requested", quantity, "held", pos.Quantity)
		return false, 0
	}

	pnl := float64(quantity) * (price - pos.CostBasis)

	remaining := pos.Quantity - quantity
	if remaining > 0 {
		pos.Quantity = remaining
		pos.Value = float64(remaining) * price
	} else {
		delete(p.Positions, symbol)
	}

	return true, pnl
}

// MarkToMarket refreshes position values from the supplied prices and records
// a snapshot keyed by date, replacing any prior snapshot for the same date.
// A held symbol missing from prices keeps its last computed value.
func (p *Portfolio) MarkToMarket(date time.Time, prices map[string]float64) Snapshot {
	for symbol, pos := range p.Positions {
		price, ok := prices[symbol]
		if !ok {
			p.log.Warnw("no price at mark-to-market, keeping last value", "symbol", symbol, "date", date.Format("2006-01-02"))
			continue
		}
		pos.Value = float64(pos.Quantity) * price
	}

	positions := map[string]Position{}
	total := p.Cash
	for symbol, pos := range p.Positions {
		positions[symbol] = *pos
		total += pos.Value
	}

	snap := Snapshot{
		Date:       date,
		Cash:       p.Cash,
		Positions:  positions,
		TotalValue: total,
		Weights:    p.Weights(nil),
	}
	p.history[date] = snap
	return snap
}

// TotalValue returns cash plus the value of all positions. When prices is
// non-nil, held symbols present in it are revalued; symbols absent fall back
// to their last computed value.
func (p *Portfolio) TotalValue(prices map[string]float64) float64 {
	total := p.Cash
	for symbol, pos := range p.Positions {
		if prices != nil {
			if price, ok := prices[symbol]; ok {
				total += float64(pos.Quantity) * price
				continue
			}
		}
		total += pos.Value
	}
	return total
}

// Weights returns per-symbol weights plus a "Cash" entry, renormalized to sum
// to 1 when floating drift is detected.
func (p *Portfolio) Weights(prices map[string]float64) map[string]float64 {
	total := p.TotalValue(prices)

	if total <= 0 {
		weights := map[string]float64{}
		for symbol := range p.Positions {
			weights[symbol] = 0
		}
		if p.Cash == 0 && len(p.Positions) == 0 {
			weights[CashWeightKey] = 1
		} else {
			weights[CashWeightKey] = 0
		}
		return weights
	}

	weights := map[string]float64{}
	for symbol, pos := range p.Positions {
		value := pos.Value
		if prices != nil {
			if price, ok := prices[symbol]; ok {
				value = float64(pos.Quantity) * price
			}
		}
		weights[symbol] = value / total
	}
	weights[CashWeightKey] = math.Max(0, p.Cash/total)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum != 0 && math.Abs(sum-1) > 1e-8 {
		for k := range weights {
			weights[k] /= sum
		}
	}

	return weights
}

// ValueHistory returns the total-value time series in chronological order.
func (p *Portfolio) ValueHistory() []DatedValue {
	values := make([]DatedValue, 0, len(p.history))
	for date, snap := range p.history {
		values = append(values, DatedValue{Date: date, Value: snap.TotalValue})
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].Date.Before(values[j].Date)
	})
	return values
}

// Snapshots returns the recorded snapshots in chronological order.
func (p *Portfolio) Snapshots() []Snapshot {
	snaps := make([]Snapshot, 0, len(p.history))
	for _, snap := range p.history {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Date.Before(snaps[j].Date)
	})
	return snaps
}
