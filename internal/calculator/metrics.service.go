package calculator

import (
	"fmt"
	"math"

	"rebalancesim/internal/domain"

	"github.com/montanaflynn/stats"
)

// Summary holds the performance statistics computed from the value and trade
// history of one run.
type Summary struct {
	TotalReturn          float64
	CAGR                 float64
	AnnualizedVolatility float64
	SharpeRatio          float64
	MaxDrawdown          float64
	Turnover             float64
	WinRate              float64
}

type CalculateSummaryInput struct {
	ValueHistory []domain.DatedValue
	Trades       []*domain.Trade
}

// CalculateSummary derives the summary statistics. Sharpe uses a 0%
// baseline over CAGR; volatility is the sample stdev of daily returns
// annualized with sqrt(252). Runs shorter than two dates produce a zero
// summary.
func CalculateSummary(in CalculateSummaryInput) (Summary, error) {
	out := Summary{WinRate: winRate(in.Trades)}

	values := in.ValueHistory
	if len(values) < 2 {
		return out, nil
	}

	first := values[0].Value
	last := values[len(values)-1].Value
	if first <= 0 {
		return Summary{}, fmt.Errorf("cannot compute returns from non-positive starting value %f", first)
	}

	out.TotalReturn = last/first - 1

	years := values[len(values)-1].Date.Sub(values[0].Date).Hours() / (365.25 * 24)
	if years > 0 {
		out.CAGR = math.Pow(last/first, 1/years) - 1
	}

	returns := make([]float64, 0, len(values)-1)
	rawValues := make([]float64, 0, len(values))
	for i, v := range values {
		rawValues = append(rawValues, v.Value)
		if i > 0 {
			returns = append(returns, v.Value/values[i-1].Value-1)
		}
	}

	if len(returns) > 1 {
		stdev, err := stats.StandardDeviationSample(returns)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to calculate stdev of returns: %w", err)
		}
		out.AnnualizedVolatility = stdev * math.Sqrt(252)
	}
	if out.AnnualizedVolatility > 0 {
		out.SharpeRatio = out.CAGR / out.AnnualizedVolatility
	}

	out.MaxDrawdown = maxDrawdown(rawValues)

	if len(in.Trades) > 0 {
		totalTraded := 0.0
		for _, t := range in.Trades {
			totalTraded += math.Abs(t.Amount)
		}
		mean, err := stats.Mean(rawValues)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to calculate mean portfolio value: %w", err)
		}
		if mean > 0 {
			// divide by two so a round trip counts once
			out.Turnover = totalTraded / 2 / mean
		}
	}

	return out, nil
}

func maxDrawdown(values []float64) float64 {
	worst := 0.0
	runningMax := values[0]
	for _, v := range values {
		if v > runningMax {
			runningMax = v
		}
		if runningMax > 0 {
			if dd := v/runningMax - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func winRate(trades []*domain.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PNL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}
