package calculator

import (
	"rebalancesim/internal/domain"
)

// BenchmarkReturns computes an equal-weight benchmark daily-return series
// from the price table: the mean of the per-symbol returns of the symbols
// priced on both the current and prior date. The first date returns 0.
func BenchmarkReturns(prices *domain.PriceTable) []domain.DatedValue {
	dates := prices.Dates()
	if len(dates) == 0 {
		return nil
	}

	out := make([]domain.DatedValue, 0, len(dates))
	out = append(out, domain.DatedValue{Date: dates[0], Value: 0})

	for i := 1; i < len(dates); i++ {
		prev := prices.PricesOn(dates[i-1])
		curr := prices.PricesOn(dates[i])

		sum := 0.0
		n := 0
		for _, symbol := range prices.Symbols() {
			p0, ok0 := prev[symbol]
			p1, ok1 := curr[symbol]
			if !ok0 || !ok1 || p0 <= 0 {
				continue
			}
			sum += p1/p0 - 1
			n++
		}

		ret := 0.0
		if n > 0 {
			ret = sum / float64(n)
		}
		out = append(out, domain.DatedValue{Date: dates[i], Value: ret})
	}

	return out
}
