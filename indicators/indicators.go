// Package indicators provides technical analysis indicators over price bars.
package indicators

import (
	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/market"
)

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to reuse across repeated backtest runs
// provided Reset is called between them.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value. Callers should always check Ready();
	// before warmup the result is zero.
	Value() decimal.Decimal
}

// Calculate folds a full bar series through an indicator and returns the
// final value. Convenience for scanners that recompute over a window.
func Calculate(ind Indicator, bars []market.Bar) decimal.Decimal {
	ind.Reset()
	for _, b := range bars {
		ind.Update(b)
	}
	return ind.Value()
}
