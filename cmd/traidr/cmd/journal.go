package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/techben7/traidr/journal"
	"github.com/techben7/traidr/pkg/id"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect recorded runs and trials",
}

var jrnDBPath string

var journalRunCmd = &cobra.Command{
	Use:   "run <run_id>",
	Short: "Show one recorded backtest run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(jrnDBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		rec, err := j.GetRun(context.Background(), args[0])
		if err != nil {
			return err
		}

		if minted, err := id.Minted(rec.RunID); err == nil {
			fmt.Printf("run      %s (minted %s)\n", rec.RunID, minted.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Printf("run      %s\n", rec.RunID)
		}
		fmt.Printf("scanner  %s on %s [%s]\n", rec.Scanner, rec.Symbols, rec.Timeframe)
		fmt.Printf("trades   %d (%d filled, %d no-fill)\n", rec.Trades, rec.Filled, rec.NoFills)
		fmt.Printf("wins     %d / losses %d (win rate %.1f%%)\n", rec.Wins, rec.Losses, rec.WinRate*100)
		fmt.Printf("pnl      %s (avg R %.2f, PF %.2f, max DD %s)\n",
			rec.TotalPnL, rec.AvgR, rec.ProfitFactor, rec.MaxDrawdown)
		return nil
	},
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <run_id>",
	Short: "List one run's trades",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(jrnDBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		rows, err := j.ListTrades(context.Background(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "symbol\tdir\toutcome\tqty\tfill\texit\tpnl\tR")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				r.Symbol, r.Direction, r.Outcome, r.Quantity,
				r.EntryFill, r.ExitPrice, r.PnL, r.RMultiple)
		}
		return w.Flush()
	},
}

var journalTrialsCmd = &cobra.Command{
	Use:   "trials <run_id>",
	Short: "List one optimization run's ranked trials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(jrnDBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		rows, err := j.ListTrials(context.Background(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "rank\tfinal\ttrain\ttest\tpenalized")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.3f\t%v\n",
				r.Rank, r.FinalScore, r.TrainScore, r.TestScore, r.Penalized)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunCmd, journalTradesCmd, journalTrialsCmd)

	journalCmd.PersistentFlags().StringVar(&jrnDBPath, "db", "./traidr.db", "path to journal SQLite database")
}
