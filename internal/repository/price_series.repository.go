package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"rebalancesim/internal/domain"
	"rebalancesim/internal/util"
)

// LoadPriceSeriesCSV reads a wide price CSV (a date column followed by one
// column per symbol) into a fully materialized price table. Empty cells are
// gaps, tolerated by last-known-value fallback during valuation.
func LoadPriceSeriesCSV(path string) (*domain.PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open price file: %w", err)
	}
	defer f.Close()

	table, err := ParsePriceSeries(f)
	if err != nil {
		return nil, fmt.Errorf("could not parse price file %s: %w", path, err)
	}
	return table, nil
}

// ParsePriceSeries parses wide CSV price data. The symbol columns are
// dynamic, so this uses a raw csv reader rather than struct-tag mapping.
func ParsePriceSeries(r io.Reader) (*domain.PriceTable, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("price csv needs a date column and at least one symbol column")
	}
	symbols := header[1:]

	records := []domain.AssetPrice{}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		line++

		date, err := util.ParseDate(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		for i, symbol := range symbols {
			cell := strings.TrimSpace(row[i+1])
			if cell == "" {
				continue
			}
			price, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid price %q for %s: %w", line, cell, symbol, err)
			}
			records = append(records, domain.AssetPrice{
				Symbol: symbol,
				Price:  price,
				Date:   date,
			})
		}
	}

	return domain.NewPriceTable(records)
}
