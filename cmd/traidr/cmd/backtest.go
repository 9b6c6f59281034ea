package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/techben7/traidr/backtest"
	"github.com/techben7/traidr/config"
	"github.com/techben7/traidr/feed"
	"github.com/techben7/traidr/journal"
	"github.com/techben7/traidr/market"
	"github.com/techben7/traidr/pkg/id"
	"github.com/techben7/traidr/risk"
	"github.com/techben7/traidr/scanner"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars through a scanner and print the results",
	Long: `Backtest loads the configured bar data, runs the fill simulator over
it with the configured scanner and risk policy, then writes the trade
ledger and records the run in the journal database.

Example:
  traidr backtest -c traidr.yaml --ledger ledger.csv`,
	RunE: runBacktest,
}

var (
	btLedgerPath string
	btDBPath     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&btLedgerPath, "ledger", "", "trade ledger CSV path (overrides config)")
	backtestCmd.Flags().StringVar(&btDBPath, "db", "", "journal SQLite path (overrides config)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return err
	}
	if btLedgerPath != "" {
		cfg.Journal.LedgerFile = btLedgerPath
	}
	if btDBPath != "" {
		cfg.Journal.DBPath = btDBPath
	}

	ds, err := loadData(ctx, cfg)
	if err != nil {
		return err
	}

	sc, err := scanner.ByName(cfg.Scanner.Name, cfg.Scanner.Params)
	if err != nil {
		return err
	}

	opts := cfg.Options()
	ev := risk.NewEvaluator(cfg.Policy(), risk.NewState(cfg.Location()))
	engine, err := backtest.New(ds, opts, sc, ev)
	if err != nil {
		return err
	}

	runID := id.New()
	log.Info().
		Str("run_id", runID).
		Str("scanner", cfg.Scanner.Name).
		Strs("symbols", cfg.Data.Symbols).
		Int("bars", len(ds.TimeIndex())).
		Msg("starting backtest")

	trades, sum, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	if cfg.Journal.LedgerFile != "" {
		if err := writeLedgerFile(cfg.Journal.LedgerFile, trades); err != nil {
			return err
		}
		log.Info().Str("path", cfg.Journal.LedgerFile).Int("trades", len(trades)).Msg("ledger written")
	}

	if cfg.Journal.DBPath != "" {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		rec := journal.NewRunRecord(runID, cfg.Scanner.Name, opts, sum)
		if err := j.RecordRun(ctx, rec, trades); err != nil {
			return fmt.Errorf("journal run: %w", err)
		}
		log.Info().Str("db", cfg.Journal.DBPath).Msg("run journaled")
	}

	backtest.PrintSummary(os.Stdout, sum)
	return nil
}

func loadData(ctx context.Context, cfg *config.Config) (*market.DataSet, error) {
	src := &feed.CSVSource{Dir: cfg.Data.Dir}
	from, to := cfg.Window()

	ds, err := feed.LoadDataSet(ctx, src, cfg.Data.Symbols, from, to, cfg.Data.Timeframe, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	return ds, nil
}

func writeLedgerFile(path string, trades []backtest.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ledger %s: %w", path, err)
	}
	defer f.Close()

	if err := backtest.WriteLedger(f, trades); err != nil {
		return fmt.Errorf("write ledger %s: %w", path, err)
	}
	return f.Close()
}
