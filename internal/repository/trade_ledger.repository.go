package repository

import (
	"fmt"
	"io"
	"os"
	"sort"

	"rebalancesim/internal/domain"
	"rebalancesim/internal/util"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// LedgerRow is one trade rendered for reporting: money fields are
// cent-rounded decimals so the exported ledger is stable and exact.
type LedgerRow struct {
	Date           string          `csv:"date"`
	Symbol         string          `csv:"symbol"`
	Action         string          `csv:"action"`
	Quantity       int64           `csv:"quantity"`
	ExecutionPrice decimal.Decimal `csv:"execution_price"`
	TotalNotional  decimal.Decimal `csv:"total_notional"`
	ExecutionDate  string          `csv:"execution_date"`
	RealizedPNL    decimal.Decimal `csv:"realized_pnl"`
}

// BuildLedger converts the trade log into ledger rows sorted by execution
// date, breaking ties by insertion order.
func BuildLedger(log *domain.TradeLog) []LedgerRow {
	trades := log.Trades()

	rows := make([]LedgerRow, 0, len(trades))
	for _, t := range trades {
		action := "buy"
		quantity := t.Quantity
		if t.Quantity < 0 {
			action = "sell"
			quantity = -t.Quantity
		}
		rows = append(rows, LedgerRow{
			Date:           util.FormatDate(t.OrderDate),
			Symbol:         t.Symbol,
			Action:         action,
			Quantity:       quantity,
			ExecutionPrice: decimal.NewFromFloat(t.ExecutionPrice).Round(4),
			TotalNotional:  decimal.NewFromFloat(t.Amount).Round(2),
			ExecutionDate:  util.FormatDate(t.ExecutionDate),
			RealizedPNL:    decimal.NewFromFloat(t.PNL).Round(2),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ExecutionDate < rows[j].ExecutionDate
	})
	return rows
}

func WriteLedger(w io.Writer, rows []LedgerRow) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write ledger csv: %w", err)
	}
	return nil
}

func WriteLedgerFile(path string, rows []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create ledger file: %w", err)
	}
	defer f.Close()
	return WriteLedger(f, rows)
}
