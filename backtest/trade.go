package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/market"
	"github.com/techben7/traidr/scanner"
)

// Outcome is the terminal state of one trade attempt.
type Outcome string

const (
	OutcomeNoFill     Outcome = "NoFill"
	OutcomeStop       Outcome = "Stop"
	OutcomeTakeProfit Outcome = "TakeProfit"
	OutcomeEndOfDay   Outcome = "EndOfDay"
)

// Position is one open simulated position. The engine holds at most one
// per symbol; a Position is created on entry fill and destroyed when it
// converts into a Trade.
type Position struct {
	Symbol    string
	Direction market.Direction
	Quantity  int64

	SignalTime time.Time
	EntryTime  time.Time

	EntryLimit decimal.Decimal // limit the order rested at
	EntryFill  decimal.Decimal // actual filled price, post-slippage
	Stop       decimal.Decimal
	Target     decimal.Decimal // zero means none

	EntryCommission decimal.Decimal

	// Candidate is the originating setup, kept for diagnostics.
	Candidate scanner.Candidate
}

// Trade is the append-only terminal record of one attempted trade. Every
// candidate the engine accepts produces exactly one Trade, including
// attempts that never filled (Outcome == NoFill, zero P&L).
type Trade struct {
	Symbol    string
	Direction market.Direction
	Quantity  int64

	SignalTime time.Time
	EntryTime  time.Time
	ExitTime   time.Time

	EntryLimit decimal.Decimal
	EntryFill  decimal.Decimal
	Stop       decimal.Decimal
	Target     decimal.Decimal
	ExitPrice  decimal.Decimal

	Outcome Outcome

	PnL       decimal.Decimal // realized dollars, net of commission
	RMultiple decimal.Decimal // P&L per share over initial risk per share

	// Diagnostics.
	RiskPerShare   decimal.Decimal
	RewardPerShare decimal.Decimal
}

// Filled reports whether the entry ever executed.
func (t Trade) Filled() bool { return t.Outcome != OutcomeNoFill }
