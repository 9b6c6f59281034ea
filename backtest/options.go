// Package backtest replays a pre-loaded bar dataset forward in time and
// turns scanner candidates into a simulated trade ledger.
//
// The engine is a pure fold over the dataset's global time index: no I/O,
// no wall clock, single-threaded. That is what makes it safe to re-run
// thousands of times against the same shared DataSet during optimization.
package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/market"
)

// TieBreak resolves the same-bar stop/target ambiguity. When one bar's
// range covers both the stop and the target, OHLC data cannot tell which
// was touched first; the rule is a modeling choice, applied consistently,
// and it decides whether results are biased pessimistically or
// optimistically.
type TieBreak int

const (
	// ConservativeStopFirst assumes the worse outcome for the trader.
	ConservativeStopFirst TieBreak = iota
	// OptimisticTakeProfitFirst assumes the better outcome.
	OptimisticTakeProfitFirst
)

func (tb TieBreak) String() string {
	if tb == OptimisticTakeProfitFirst {
		return "OptimisticTakeProfitFirst"
	}
	return "ConservativeStopFirst"
}

// Options configure one simulation run.
type Options struct {
	Symbols   []string
	Timeframe string

	// MaxWindowBars caps each symbol's rolling window handed to the
	// scanner. It bounds indicator-lookback memory; it must exceed the
	// slowest indicator's warm-up or signals silently vanish.
	MaxWindowBars int

	// MaxBarsToFillEntry is how many bars after the signal the entry limit
	// may wait for a touch before the attempt is recorded as NoFill.
	MaxBarsToFillEntry int

	// EntryBufferPct widens the limit past the candidate entry in the
	// direction of the trade (long: above, short: below).
	EntryBufferPct decimal.Decimal

	// SlippagePct nudges every fill and exit price against the trader.
	SlippagePct decimal.Decimal

	// Commission is a flat charge per fill (entry and exit).
	Commission decimal.Decimal

	// TakeProfitR sets a target at this R-multiple from entry when the
	// candidate itself carries none. Zero leaves such trades target-less.
	TakeProfitR float64

	// FlattenAt force-closes open positions at this market-local time of
	// day. Zero disables intraday flattening (positions still close at the
	// end of the dataset).
	FlattenAt market.TimeOfDay

	// Sessions gates signal generation. Exits and flattening always run.
	Sessions market.SessionMask

	// Hours describe the market's trading day for session classification.
	Hours market.Hours

	TieBreak TieBreak
}

// DefaultOptions returns the baseline intraday US-equity configuration.
func DefaultOptions(symbols []string, timeframe string) Options {
	return Options{
		Symbols:            symbols,
		Timeframe:          timeframe,
		MaxWindowBars:      400,
		MaxBarsToFillEntry: 3,
		EntryBufferPct:     decimal.NewFromFloat(0.001),
		SlippagePct:        decimal.NewFromFloat(0.0005),
		Commission:         decimal.NewFromInt(1),
		FlattenAt:          market.TimeOfDay{Hour: 15, Minute: 55},
		Sessions:           market.TradeRegular,
		Hours:              market.USEquityHours,
		TieBreak:           ConservativeStopFirst,
	}
}

// Validate fails fast on structural configuration errors, before any
// simulation starts.
func (o Options) Validate() error {
	if len(o.Symbols) == 0 {
		return fmt.Errorf("backtest options: empty symbol list")
	}
	if o.MaxWindowBars <= 0 {
		return fmt.Errorf("backtest options: MaxWindowBars must be positive, got %d", o.MaxWindowBars)
	}
	if o.MaxBarsToFillEntry <= 0 {
		return fmt.Errorf("backtest options: MaxBarsToFillEntry must be positive, got %d", o.MaxBarsToFillEntry)
	}
	if o.SlippagePct.IsNegative() || o.EntryBufferPct.IsNegative() {
		return fmt.Errorf("backtest options: slippage and entry buffer must be non-negative")
	}
	if o.Commission.IsNegative() {
		return fmt.Errorf("backtest options: commission must be non-negative")
	}
	if o.Sessions == 0 {
		return fmt.Errorf("backtest options: no trading sessions enabled")
	}
	return nil
}
