package backtest

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var ledgerHeader = []string{
	"symbol", "direction", "quantity",
	"signal_time", "entry_time", "exit_time",
	"entry_limit", "entry_fill", "stop", "target", "exit_price",
	"outcome", "pnl", "r_multiple",
}

// WriteLedger writes the trade ledger as CSV rows with ISO-8601 UTC
// timestamps, the format downstream tooling consumes.
func WriteLedger(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			t.Symbol,
			t.Direction.String(),
			strconv.FormatInt(t.Quantity, 10),
			iso(t.SignalTime),
			iso(t.EntryTime),
			iso(t.ExitTime),
			t.EntryLimit.String(),
			t.EntryFill.String(),
			t.Stop.String(),
			t.Target.String(),
			t.ExitPrice.String(),
			string(t.Outcome),
			t.PnL.String(),
			t.RMultiple.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// iso formats a timestamp as RFC3339 UTC; unfilled trades have zero
// entry/exit times, written as empty fields.
func iso(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
