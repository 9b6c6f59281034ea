package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// State holds the mutable daily risk counters. It is owned by the caller —
// one fresh State per backtest run or optimization trial — and passed by
// reference into the Evaluator. Counters roll over automatically when an
// update arrives on a new trading day in the market time zone.
type State struct {
	loc *time.Location

	day          time.Time // midnight, market-local, of the current day
	TradesToday  int
	RealizedPnL  decimal.Decimal // realized today, market-local day
	lastTradeAt  map[string]time.Time
}

func NewState(loc *time.Location) *State {
	if loc == nil {
		loc = time.UTC
	}
	return &State{
		loc:         loc,
		lastTradeAt: make(map[string]time.Time),
	}
}

// roll resets the daily counters when now falls on a new market-local day.
// Per-symbol cooldown stamps survive the roll: a cooldown is a spacing rule,
// not a daily budget.
func (s *State) roll(now time.Time) {
	local := now.In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	if day.Equal(s.day) {
		return
	}
	s.day = day
	s.TradesToday = 0
	s.RealizedPnL = decimal.Zero
}

// RecordFill counts an entry fill against the daily trade cap and stamps
// the symbol's cooldown clock.
func (s *State) RecordFill(symbol string, now time.Time) {
	s.roll(now)
	s.TradesToday++
	s.lastTradeAt[symbol] = now
}

// RecordPnL adds a realized trade result to today's running total.
func (s *State) RecordPnL(pnl decimal.Decimal, now time.Time) {
	s.roll(now)
	s.RealizedPnL = s.RealizedPnL.Add(pnl)
}

// LastTrade returns when the symbol last filled, if ever.
func (s *State) LastTrade(symbol string) (time.Time, bool) {
	t, ok := s.lastTradeAt[symbol]
	return t, ok
}
