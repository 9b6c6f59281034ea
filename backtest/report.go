package backtest

import (
	"fmt"
	"io"
)

// PrintSummary writes a human-readable run summary.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Summary")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Trades:        %d (%d filled, %d no-fill)\n", s.Trades, s.Filled, s.NoFills)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRate*100)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total P&L:     $%s\n", s.TotalPnL.StringFixed(2))
	fmt.Fprintf(w, "Avg P&L:       $%s\n", s.AvgPnL.StringFixed(2))
	fmt.Fprintf(w, "Avg R:         %.2f\n", s.AvgR)

	if s.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", s.ProfitFactor)
	}
	fmt.Fprintf(w, "Max Drawdown:  $%s\n", s.MaxDrawdown.StringFixed(2))
	if s.Trades > 0 {
		fmt.Fprintf(w, "No-Fill Rate:  %.2f%%\n", s.NoFillFraction*100)
	}
}
