package backtest

import (
	"time"

	"rebalancesim/internal/domain"
)

// PendingOrderQueue holds orders whose execution is deferred to a later
// trading day. It is mutated only by the simulation driver.
type PendingOrderQueue struct {
	byDate map[time.Time][]domain.Order
}

func NewPendingOrderQueue() *PendingOrderQueue {
	return &PendingOrderQueue{byDate: map[time.Time][]domain.Order{}}
}

func (q *PendingOrderQueue) Add(executionDate time.Time, orders []domain.Order) {
	q.byDate[executionDate] = append(q.byDate[executionDate], orders...)
}

// Pop removes and returns the orders due on the given date, or nil.
func (q *PendingOrderQueue) Pop(date time.Time) []domain.Order {
	orders, ok := q.byDate[date]
	if !ok {
		return nil
	}
	delete(q.byDate, date)
	return orders
}

// Len reports the number of dates that still have orders queued.
func (q *PendingOrderQueue) Len() int {
	return len(q.byDate)
}
