package main

import (
	"fmt"
	"os"

	"rebalancesim/internal/backtest"
	"rebalancesim/internal/config"
	"rebalancesim/internal/logger"
	"rebalancesim/internal/repository"
	"rebalancesim/internal/signals"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rebalancesim",
		Short:         "Simulates a rebalanced portfolio over a historical price series",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		pricesPath string
		configPath string
		strategy   string
		ledgerPath string
		topN       int
		shortSpan  int
		mediumSpan int
		longSpan   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New()
			defer log.Sync()

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			prices, err := repository.LoadPriceSeriesCSV(pricesPath)
			if err != nil {
				return fmt.Errorf("failed to load prices: %w", err)
			}

			generator, err := signals.New(strategy, signals.Options{
				ShortSpan:  shortSpan,
				MediumSpan: mediumSpan,
				LongSpan:   longSpan,
				TopN:       topN,
				Log:        log,
			})
			if err != nil {
				return err
			}

			targets, err := generator.GenerateSignals(prices)
			if err != nil {
				return fmt.Errorf("failed to generate signals: %w", err)
			}

			engine, err := backtest.NewEngine(cfg, log)
			if err != nil {
				return err
			}

			result, err := engine.Run(prices, backtest.WeightMapSource(targets))
			if err != nil {
				return fmt.Errorf("backtest failed: %w", err)
			}

			printSummary(result)

			if ledgerPath != "" {
				rows := repository.BuildLedger(result.TradeLog)
				if err := repository.WriteLedgerFile(ledgerPath, rows); err != nil {
					return err
				}
				fmt.Printf("wrote %d ledger rows to %s\n", len(rows), ledgerPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pricesPath, "prices", "", "path to wide price CSV (date column + one column per symbol)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to JSON run configuration")
	cmd.Flags().StringVar(&strategy, "strategy", signals.StrategyEqualWeight, "target weight strategy: equal_weight, trend or top_n")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "optional path to write the trade ledger CSV")
	cmd.Flags().IntVar(&topN, "top-n", 5, "number of assets held by the top_n strategy")
	cmd.Flags().IntVar(&shortSpan, "short-span", 10, "short EMA span for trend strategies")
	cmd.Flags().IntVar(&mediumSpan, "medium-span", 50, "medium EMA span for trend strategies")
	cmd.Flags().IntVar(&longSpan, "long-span", 150, "long EMA span for trend strategies")
	cobra.CheckErr(cmd.MarkFlagRequired("prices"))
	cobra.CheckErr(cmd.MarkFlagRequired("config"))

	return cmd
}

func printSummary(result *backtest.Result) {
	fmt.Printf("Initial capital:       %14.2f\n", result.InitialCapital)
	fmt.Printf("Final value:           %14.2f\n", result.FinalValue)
	fmt.Printf("Total return:          %13.2f%%\n", result.Summary.TotalReturn*100)
	fmt.Printf("CAGR:                  %13.2f%%\n", result.Summary.CAGR*100)
	fmt.Printf("Annualized volatility: %13.2f%%\n", result.Summary.AnnualizedVolatility*100)
	fmt.Printf("Sharpe ratio:          %14.2f\n", result.Summary.SharpeRatio)
	fmt.Printf("Max drawdown:          %13.2f%%\n", result.Summary.MaxDrawdown*100)
	fmt.Printf("Turnover:              %13.2f%%\n", result.Summary.Turnover*100)
	fmt.Printf("Win rate:              %13.2f%%\n", result.Summary.WinRate*100)
	fmt.Printf("Trades executed:       %14d\n", result.TradeLog.Len())
}
