package signals

import (
	"fmt"
	"time"

	"rebalancesim/internal/domain"

	"go.uber.org/zap"
)

// Generator produces target weight maps per date from price history. Weight
// generation sits entirely outside the simulation core; the driver consumes
// the output through its TargetWeightSource seam.
type Generator interface {
	GenerateSignals(prices *domain.PriceTable) (map[time.Time]map[string]float64, error)
}

const (
	StrategyEqualWeight = "equal_weight"
	StrategyTrend       = "trend"
	StrategyTopN        = "top_n"
)

type Options struct {
	ShortSpan  int
	MediumSpan int
	LongSpan   int
	TopN       int
	Log        *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.ShortSpan == 0 {
		o.ShortSpan = 10
	}
	if o.MediumSpan == 0 {
		o.MediumSpan = 50
	}
	if o.LongSpan == 0 {
		o.LongSpan = 150
	}
	if o.TopN == 0 {
		o.TopN = 5
	}
	if o.Log == nil {
		o.Log = zap.NewNop().Sugar()
	}
	return o
}

// New builds a generator by strategy name.
func New(strategy string, opts Options) (Generator, error) {
	opts = opts.withDefaults()
	switch strategy {
	case StrategyEqualWeight:
		return EqualWeightGenerator{}, nil
	case StrategyTrend:
		return TrendGenerator{
			ShortSpan:  opts.ShortSpan,
			MediumSpan: opts.MediumSpan,
			LongSpan:   opts.LongSpan,
			log:        opts.Log,
		}, nil
	case StrategyTopN:
		return TopNGenerator{
			N: opts.TopN,
			Trend: TrendGenerator{
				ShortSpan:  opts.ShortSpan,
				MediumSpan: opts.MediumSpan,
				LongSpan:   opts.LongSpan,
				log:        opts.Log,
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

// validateWeights clamps negative weights to zero and normalizes the rest to
// sum to 1. An all-zero set falls back to equal weighting.
func validateWeights(weights map[string]float64, log *zap.SugaredLogger) map[string]float64 {
	if len(weights) == 0 {
		return map[string]float64{}
	}

	out := map[string]float64{}
	total := 0.0
	for symbol, w := range weights {
		if w < 0 {
			if log != nil {
				log.Warnw("negative weight, clamping to 0", "symbol", symbol, "weight", w)
			}
			w = 0
		}
		out[symbol] = w
		total += w
	}

	if total > 0 {
		for symbol := range out {
			out[symbol] /= total
		}
		return out
	}

	equal := 1.0 / float64(len(out))
	for symbol := range out {
		out[symbol] = equal
	}
	return out
}
