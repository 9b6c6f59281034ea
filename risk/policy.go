// Package risk gates trade candidates and sizes positions.
package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy is the static per-trade risk configuration. It never changes
// during a run; mutable counters live in State.
type Policy struct {
	AccountEquity decimal.Decimal // used for risk budget and loss caps

	RiskPerTradePct float64         // fraction of equity risked per trade, e.g. 0.01
	MaxShares       int64           // hard cap on position size
	MaxNotional     decimal.Decimal // hard cap on entry * quantity

	MaxDailyTrades  int           // 0 disables
	MaxDailyLossPct float64       // fraction of equity; 0 disables
	SymbolCooldown  time.Duration // min gap between trades in one symbol; 0 disables

	MinStopDistancePct float64 // |entry-stop| / entry must be at least this
	MaxStopDistancePct float64 // ... and at most this; 0 disables
	MinRewardRisk      float64 // only enforced when a target is set; 0 disables
}

// DefaultPolicy is a conservative small-account starting point.
func DefaultPolicy() Policy {
	return Policy{
		AccountEquity:      decimal.NewFromInt(30_000),
		RiskPerTradePct:    0.01,
		MaxShares:          2_000,
		MaxNotional:        decimal.NewFromInt(25_000),
		MaxDailyTrades:     10,
		MaxDailyLossPct:    0.03,
		SymbolCooldown:     15 * time.Minute,
		MinStopDistancePct: 0.002,
		MaxStopDistancePct: 0.05,
		MinRewardRisk:      1.5,
	}
}

// RiskBudget is the dollar amount the policy allows to lose on one trade.
func (p Policy) RiskBudget() decimal.Decimal {
	return p.AccountEquity.Mul(decimal.NewFromFloat(p.RiskPerTradePct))
}

// DailyLossLimit is the realized-loss level (a negative number) at which
// trading stops for the day. Zero means no limit.
func (p Policy) DailyLossLimit() decimal.Decimal {
	if p.MaxDailyLossPct <= 0 {
		return decimal.Zero
	}
	return p.AccountEquity.Mul(decimal.NewFromFloat(p.MaxDailyLossPct)).Neg()
}
