package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/scanner"
)

// Decision is the outcome of evaluating one candidate. When blocked,
// Reason carries the first failed check; checks short-circuit in a fixed
// order so the reason is deterministic.
type Decision struct {
	Allowed       bool
	Reason        string
	Quantity      int64
	EstimatedRisk decimal.Decimal // dollars at risk if the stop is hit
}

func block(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Evaluator applies a Policy against caller-owned State.
type Evaluator struct {
	Policy Policy
	State  *State
}

func NewEvaluator(p Policy, s *State) *Evaluator {
	return &Evaluator{Policy: p, State: s}
}

// Evaluate allows or blocks a candidate and computes the share quantity.
// takeProfit may be zero (no target). Checks run in order: daily trade cap,
// daily loss cap, symbol cooldown, price sanity, stop distance, reward:risk,
// sizing.
func (e *Evaluator) Evaluate(c scanner.Candidate, takeProfit decimal.Decimal, now time.Time) Decision {
	p := e.Policy
	s := e.State
	s.roll(now)

	if p.MaxDailyTrades > 0 && s.TradesToday >= p.MaxDailyTrades {
		return block("daily trade cap reached (%d)", p.MaxDailyTrades)
	}

	if limit := p.DailyLossLimit(); !limit.IsZero() && s.RealizedPnL.LessThanOrEqual(limit) {
		return block("daily loss limit hit (%s <= %s)", s.RealizedPnL, limit)
	}

	if p.SymbolCooldown > 0 {
		if last, ok := s.LastTrade(c.Symbol); ok && now.Sub(last) < p.SymbolCooldown {
			return block("%s in cooldown until %s", c.Symbol,
				last.Add(p.SymbolCooldown).UTC().Format(time.RFC3339))
		}
	}

	if !c.Entry.IsPositive() || !c.Stop.IsPositive() {
		return block("entry/stop must be positive (entry=%s stop=%s)", c.Entry, c.Stop)
	}

	riskPerShare := c.Entry.Sub(c.Stop).Abs()
	if riskPerShare.IsZero() {
		return block("stop equals entry")
	}

	stopDistPct, _ := riskPerShare.Div(c.Entry).Float64()
	if stopDistPct < p.MinStopDistancePct {
		return block("stop too tight: %.4f%% < %.4f%%", stopDistPct*100, p.MinStopDistancePct*100)
	}
	if p.MaxStopDistancePct > 0 && stopDistPct > p.MaxStopDistancePct {
		return block("stop too wide: %.4f%% > %.4f%%", stopDistPct*100, p.MaxStopDistancePct*100)
	}

	if p.MinRewardRisk > 0 && !takeProfit.IsZero() {
		reward := takeProfit.Sub(c.Entry).Abs()
		rr, _ := reward.Div(riskPerShare).Float64()
		if rr < p.MinRewardRisk {
			return block("reward:risk %.2f below minimum %.2f", rr, p.MinRewardRisk)
		}
	}

	qty := sizePosition(p, c.Entry, riskPerShare)
	if qty <= 0 {
		return block("sized to zero shares (risk/share %s)", riskPerShare)
	}

	return Decision{
		Allowed:       true,
		Quantity:      qty,
		EstimatedRisk: riskPerShare.Mul(decimal.NewFromInt(qty)),
	}
}

// RecordFill counts an entry fill against the daily counters.
func (e *Evaluator) RecordFill(symbol string, now time.Time) {
	e.State.RecordFill(symbol, now)
}

// RecordPnL books a realized trade result against the daily loss cap.
func (e *Evaluator) RecordPnL(pnl decimal.Decimal, now time.Time) {
	e.State.RecordPnL(pnl, now)
}

// sizePosition is min(riskBudget/riskPerShare, maxNotional/entry, maxShares),
// each floored to whole shares.
func sizePosition(p Policy, entry, riskPerShare decimal.Decimal) int64 {
	qty := p.RiskBudget().Div(riskPerShare).IntPart()

	if p.MaxNotional.IsPositive() {
		if byNotional := p.MaxNotional.Div(entry).IntPart(); byNotional < qty {
			qty = byNotional
		}
	}
	if p.MaxShares > 0 && p.MaxShares < qty {
		qty = p.MaxShares
	}
	return qty
}
