package backtest

import (
	"time"

	"rebalancesim/internal/config"
)

// RebalanceSchedule marks the dates on which the portfolio is rebalanced:
// every axis date for daily, otherwise the last trading day of each calendar
// week/month/quarter/year covered by the axis. The final axis date always
// closes its (possibly partial) period.
func RebalanceSchedule(dates []time.Time, freq config.RebalanceFrequency) map[time.Time]bool {
	schedule := map[time.Time]bool{}

	if freq == config.RebalanceDaily {
		for _, d := range dates {
			schedule[d] = true
		}
		return schedule
	}

	for i, d := range dates {
		if i == len(dates)-1 || periodKey(dates[i+1], freq) != periodKey(d, freq) {
			schedule[d] = true
		}
	}
	return schedule
}

func periodKey(t time.Time, freq config.RebalanceFrequency) int {
	switch freq {
	case config.RebalanceWeekly:
		year, week := t.ISOWeek()
		return year*100 + week
	case config.RebalanceMonthly:
		return t.Year()*100 + int(t.Month())
	case config.RebalanceQuarterly:
		return t.Year()*10 + (int(t.Month())-1)/3
	case config.RebalanceYearly:
		return t.Year()
	}
	return 0
}
