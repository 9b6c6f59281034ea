// Package market defines the core price-bar data model shared by the
// scanner, risk, and backtest packages.
//
// All prices are decimal.Decimal. Backtests replay the same arithmetic
// thousands of times during optimization, and binary floating point
// accumulates drift across that many round trips.
package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a trade: +1 long, -1 short.
type Direction int8

const (
	Long  Direction = +1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "Long"
	case Short:
		return "Short"
	}
	return fmt.Sprintf("Direction(%d)", int8(d))
}

// Sign returns the direction as a decimal multiplier (+1 or -1),
// so that P/L = Sign * (exit - entry) * quantity for both directions.
func (d Direction) Sign() decimal.Decimal {
	if d == Short {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Bar is one OHLCV observation for a symbol over a fixed interval.
// Bars are immutable once produced; Time is always UTC.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Range returns High - Low.
func (b Bar) Range() decimal.Decimal {
	return b.High.Sub(b.Low)
}

// Typical returns (High + Low + Close) / 3, the price VWAP accumulates.
func (b Bar) Typical() decimal.Decimal {
	return b.High.Add(b.Low).Add(b.Close).Div(decimal.NewFromInt(3))
}

func (b Bar) String() string {
	return fmt.Sprintf("%s %s O:%s H:%s L:%s C:%s V:%d",
		b.Symbol, b.Time.UTC().Format(time.RFC3339),
		b.Open, b.High, b.Low, b.Close, b.Volume)
}
