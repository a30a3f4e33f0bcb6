package signals

import (
	"time"

	"rebalancesim/internal/domain"
)

// EqualWeightGenerator targets 1/N across the universe on every date.
type EqualWeightGenerator struct{}

func (g EqualWeightGenerator) GenerateSignals(prices *domain.PriceTable) (map[time.Time]map[string]float64, error) {
	symbols := prices.Symbols()
	out := map[time.Time]map[string]float64{}
	if len(symbols) == 0 {
		return out, nil
	}

	equal := 1.0 / float64(len(symbols))
	for _, date := range prices.Dates() {
		weights := map[string]float64{}
		for _, symbol := range symbols {
			weights[symbol] = equal
		}
		out[date] = weights
	}
	return out, nil
}
