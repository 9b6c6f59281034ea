package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/techben7/traidr/config"
	"github.com/techben7/traidr/journal"
	"github.com/techben7/traidr/optimize"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search scanner parameters with randomized train/test trials",
	Long: `Optimize loads the configured data once, splits it into train and
test ranges at the configured boundary, then runs randomized parameter
trials across a worker pool. Each trial is scored in-sample and
out-of-sample; the final ranking blends both.

Example:
  traidr optimize -c traidr.yaml --trials 500`,
	RunE: runOptimize,
}

var (
	optTrials int
	optTop    int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().IntVar(&optTrials, "trials", 0, "number of trials (overrides config)")
	optimizeCmd.Flags().IntVar(&optTop, "top", 0, "top-K size (overrides config)")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return err
	}
	if optTrials > 0 {
		cfg.Optimize.Trials = optTrials
	}
	if optTop > 0 {
		cfg.Optimize.TopK = optTop
	}

	ds, err := loadData(ctx, cfg)
	if err != nil {
		return err
	}

	from, to := cfg.Window()
	split := cfg.Split()
	train := ds.Slice(from, split)
	test := ds.Slice(split, to)
	log.Info().
		Time("split", split).
		Int("train_bars", len(train.TimeIndex())).
		Int("test_bars", len(test.TimeIndex())).
		Msg("train/test split")

	driver, err := optimize.NewDriver(cfg.OptimizeDriverConfig(), train, test, log)
	if err != nil {
		return err
	}

	res, err := driver.Run(ctx)
	if err != nil {
		return fmt.Errorf("run optimization: %w", err)
	}

	if cfg.Journal.RankingFile != "" {
		if err := optimize.WriteRanking(cfg.Journal.RankingFile, res); err != nil {
			return err
		}
	}
	if cfg.Journal.TopKFile != "" {
		if err := optimize.WriteTopK(cfg.Journal.TopKFile, res); err != nil {
			return err
		}
	}

	if cfg.Journal.DBPath != "" {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		if err := j.RecordOptimization(ctx, res); err != nil {
			return fmt.Errorf("journal optimization: %w", err)
		}
	}

	optimize.PrintRanking(os.Stdout, res, cfg.Optimize.TopK)
	return nil
}
