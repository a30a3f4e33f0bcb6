package signals

import (
	"sort"
	"time"

	"rebalancesim/internal/domain"

	"go.uber.org/zap"
)

// TrendGenerator scores each symbol by the alignment of three EMAs: strength
// is the short/medium ratio plus the medium/long ratio, floored at zero.
// Weights are proportional to positive strength; dates with no positive
// trend produce no signal.
type TrendGenerator struct {
	ShortSpan  int
	MediumSpan int
	LongSpan   int

	log *zap.SugaredLogger
}

func (g TrendGenerator) GenerateSignals(prices *domain.PriceTable) (map[time.Time]map[string]float64, error) {
	strengths := g.trendStrengths(prices)

	out := map[time.Time]map[string]float64{}
	for _, date := range prices.Dates() {
		positive := map[string]float64{}
		for symbol, s := range strengths[date] {
			if s > 0 {
				positive[symbol] = s
			}
		}
		if len(positive) == 0 {
			continue
		}
		out[date] = validateWeights(positive, g.log)
	}
	return out, nil
}

// trendStrengths computes, per date and symbol, max(0, st/mt-1 + mt/lt-1).
// Price gaps are forward-filled; symbols with no observation yet score 0.
func (g TrendGenerator) trendStrengths(prices *domain.PriceTable) map[time.Time]map[string]float64 {
	dates := prices.Dates()
	symbols := prices.Symbols()

	out := map[time.Time]map[string]float64{}
	for _, date := range dates {
		out[date] = map[string]float64{}
	}

	for _, symbol := range symbols {
		series := forwardFilledSeries(prices, symbol)

		short := emaSeries(series, g.ShortSpan)
		medium := emaSeries(series, g.MediumSpan)
		long := emaSeries(series, g.LongSpan)

		for i, date := range dates {
			if series[i] <= 0 || medium[i] == 0 || long[i] == 0 {
				out[date][symbol] = 0
				continue
			}
			strength := (short[i]/medium[i] - 1) + (medium[i]/long[i] - 1)
			if strength < 0 {
				strength = 0
			}
			out[date][symbol] = strength
		}
	}
	return out
}

func forwardFilledSeries(prices *domain.PriceTable, symbol string) []float64 {
	dates := prices.Dates()
	series := make([]float64, len(dates))
	last := 0.0
	for i, date := range dates {
		if price, ok := prices.PricesOn(date)[symbol]; ok {
			last = price
		}
		series[i] = last
	}
	return series
}

// emaSeries computes the adjusted exponential moving average with
// alpha = 2/(span+1). Leading zeros (no observation yet) stay zero.
func emaSeries(values []float64, span int) []float64 {
	alpha := 2.0 / (float64(span) + 1)
	decay := 1 - alpha

	out := make([]float64, len(values))
	num, den := 0.0, 0.0
	started := false
	for i, v := range values {
		if !started {
			if v == 0 {
				continue
			}
			started = true
		}
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// TopNGenerator equal-weights the N strongest positive trends per date.
type TopNGenerator struct {
	N     int
	Trend TrendGenerator
}

func (g TopNGenerator) GenerateSignals(prices *domain.PriceTable) (map[time.Time]map[string]float64, error) {
	strengths := g.Trend.trendStrengths(prices)

	out := map[time.Time]map[string]float64{}
	for _, date := range prices.Dates() {
		type scored struct {
			symbol   string
			strength float64
		}
		candidates := []scored{}
		for symbol, s := range strengths[date] {
			if s > 0 {
				candidates = append(candidates, scored{symbol, s})
			}
		}
		if len(candidates) == 0 {
			continue
		}

		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].strength != candidates[j].strength {
				return candidates[i].strength > candidates[j].strength
			}
			return candidates[i].symbol < candidates[j].symbol
		})

		n := g.N
		if n > len(candidates) {
			n = len(candidates)
		}

		weights := map[string]float64{}
		for _, c := range candidates[:n] {
			weights[c.symbol] = 1.0 / float64(n)
		}
		out[date] = weights
	}
	return out, nil
}
