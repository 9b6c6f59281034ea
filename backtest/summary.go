package backtest

import (
	"github.com/shopspring/decimal"
)

// maxProfitFactor caps the ratio when a run has no losing trades, keeping
// the composite optimization score finite.
const maxProfitFactor = 100.0

// Summary aggregates a trade ledger. It is derived, recomputed from
// scratch each run, never mutated incrementally.
type Summary struct {
	Trades  int `json:"trades"`
	Filled  int `json:"filled"`
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	NoFills int `json:"no_fills"`

	TotalPnL decimal.Decimal `json:"total_pnl"`
	AvgPnL   decimal.Decimal `json:"avg_pnl"`

	WinRate      float64 `json:"win_rate"`      // wins over filled
	AvgR         float64 `json:"avg_r"`         // mean R-multiple over filled
	ProfitFactor float64 `json:"profit_factor"` // gross wins over gross losses

	// MaxDrawdown is the peak-to-trough decline of the cumulative realized
	// P&L curve over filled trades, in ledger order. Always >= 0.
	MaxDrawdown decimal.Decimal `json:"max_drawdown"`

	NoFillFraction float64 `json:"no_fill_fraction"`
}

// Summarize computes the aggregate record for a ledger.
func Summarize(trades []Trade) Summary {
	s := Summary{
		TotalPnL:    decimal.Zero,
		AvgPnL:      decimal.Zero,
		MaxDrawdown: decimal.Zero,
	}
	s.Trades = len(trades)
	if s.Trades == 0 {
		return s
	}

	var (
		grossWin, grossLoss decimal.Decimal
		sumR                decimal.Decimal
		equity, peak        decimal.Decimal
	)

	for _, t := range trades {
		if !t.Filled() {
			s.NoFills++
			continue
		}
		s.Filled++
		s.TotalPnL = s.TotalPnL.Add(t.PnL)
		sumR = sumR.Add(t.RMultiple)

		switch {
		case t.PnL.IsPositive():
			s.Wins++
			grossWin = grossWin.Add(t.PnL)
		case t.PnL.IsNegative():
			s.Losses++
			grossLoss = grossLoss.Add(t.PnL.Neg())
		}

		equity = equity.Add(t.PnL)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if dd := peak.Sub(equity); dd.GreaterThan(s.MaxDrawdown) {
			s.MaxDrawdown = dd
		}
	}

	s.NoFillFraction = float64(s.NoFills) / float64(s.Trades)

	if s.Filled > 0 {
		filled := decimal.NewFromInt(int64(s.Filled))
		s.AvgPnL = s.TotalPnL.Div(filled)
		s.WinRate = float64(s.Wins) / float64(s.Filled)
		s.AvgR, _ = sumR.Div(filled).Float64()
	}

	switch {
	case grossLoss.IsPositive():
		s.ProfitFactor, _ = grossWin.Div(grossLoss).Float64()
		if s.ProfitFactor > maxProfitFactor {
			s.ProfitFactor = maxProfitFactor
		}
	case grossWin.IsPositive():
		s.ProfitFactor = maxProfitFactor
	}

	return s
}
