package domain

import (
	"fmt"
	"sort"
	"time"
)

// AssetPrice is one observed price point.
type AssetPrice struct {
	Symbol string
	Price  float64
	Date   time.Time
}

// PriceTable is a fully materialized, date-indexed price series: an ordered
// trading-day axis with one price map per date. Gaps are allowed; a symbol
// simply has no entry in that date's map.
type PriceTable struct {
	dates   []time.Time
	index   map[time.Time]int
	prices  map[time.Time]map[string]float64
	symbols []string
}

func NewPriceTable(records []AssetPrice) (*PriceTable, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot build price table from 0 records")
	}

	prices := map[time.Time]map[string]float64{}
	symbolSet := map[string]bool{}
	for _, r := range records {
		if r.Price <= 0 {
			return nil, fmt.Errorf("non-positive price %f for %s on %s", r.Price, r.Symbol, r.Date.Format("2006-01-02"))
		}
		if _, ok := prices[r.Date]; !ok {
			prices[r.Date] = map[string]float64{}
		}
		prices[r.Date][r.Symbol] = r.Price
		symbolSet[r.Symbol] = true
	}

	dates := make([]time.Time, 0, len(prices))
	for date := range prices {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	index := map[time.Time]int{}
	for i, date := range dates {
		index[date] = i
	}

	symbols := make([]string, 0, len(symbolSet))
	for symbol := range symbolSet {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	return &PriceTable{
		dates:   dates,
		index:   index,
		prices:  prices,
		symbols: symbols,
	}, nil
}

// Dates returns the ordered trading-day axis.
func (t *PriceTable) Dates() []time.Time {
	return t.dates
}

func (t *PriceTable) Symbols() []string {
	return t.symbols
}

func (t *PriceTable) Len() int {
	return len(t.dates)
}

// PricesOn returns the per-symbol price map for a date. Symbols without an
// observation that day are absent from the map.
func (t *PriceTable) PricesOn(date time.Time) map[string]float64 {
	return t.prices[date]
}

// IndexOf returns the position of date on the trading-day axis.
func (t *PriceTable) IndexOf(date time.Time) (int, bool) {
	i, ok := t.index[date]
	return i, ok
}

func (t *PriceTable) Contains(date time.Time) bool {
	_, ok := t.index[date]
	return ok
}
