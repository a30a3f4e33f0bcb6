package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderType string

const OrderTypeMarket OrderType = "MARKET"

// Order is a request for a discrete number of shares. Quantity is signed:
// positive buys, negative sells. Price is the reference price at planning
// time, not the fill price.
type Order struct {
	OrderID   uuid.UUID
	Symbol    string
	Quantity  int64
	Price     float64
	Type      OrderType
	OrderDate time.Time
}

func NewOrder(symbol string, quantity int64, price float64, orderDate time.Time) Order {
	return Order{
		OrderID:   uuid.New(),
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		Type:      OrderTypeMarket,
		OrderDate: orderDate,
	}
}

// Trade is an executed order. Amount is the signed cash effect including
// commission: positive for buys (cash out), negative for sells (cash in).
// PNL is assigned once, when the trade is applied to the portfolio.
type Trade struct {
	TradeID        uuid.UUID
	OrderID        uuid.UUID
	Symbol         string
	Quantity       int64
	OrderDate      time.Time
	ExecutionDate  time.Time
	ExecutionPrice float64
	Commission     float64
	Amount         float64
	PNL            float64
}

func NewTrade(order Order, executionDate time.Time, executionPrice, commission, amount float64) *Trade {
	return &Trade{
		TradeID:        uuid.New(),
		OrderID:        order.OrderID,
		Symbol:         order.Symbol,
		Quantity:       order.Quantity,
		OrderDate:      order.OrderDate,
		ExecutionDate:  executionDate,
		ExecutionPrice: executionPrice,
		Commission:     commission,
		Amount:         amount,
	}
}

// TradeLog is an append-only record of executed trades in execution order.
type TradeLog struct {
	trades []*Trade
}

func NewTradeLog() *TradeLog {
	return &TradeLog{trades: []*Trade{}}
}

func (l *TradeLog) Add(t *Trade) {
	l.trades = append(l.trades, t)
}

func (l *TradeLog) Trades() []*Trade {
	return l.trades
}

func (l *TradeLog) Len() int {
	return len(l.trades)
}

func (l *TradeLog) TradesForSymbol(symbol string) []*Trade {
	out := []*Trade{}
	for _, t := range l.trades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}

func (l *TradeLog) TradesForDate(date time.Time) []*Trade {
	out := []*Trade{}
	for _, t := range l.trades {
		if t.ExecutionDate.Equal(date) {
			out = append(out, t)
		}
	}
	return out
}
