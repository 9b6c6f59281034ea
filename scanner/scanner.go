// Package scanner detects candidate trade setups from bar windows.
//
// Scanners are pure functions of the windows they are given: they never
// look past the last bar of a window, never keep state between calls, and
// never touch the clock. The backtest engine relies on that purity for its
// no-look-ahead guarantee.
package scanner

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/market"
)

// Candidate is a proposed trade setup at one instant in time. It is
// produced fresh by a scan and never mutated afterward.
type Candidate struct {
	Symbol    string
	Direction market.Direction

	Entry      decimal.Decimal
	Stop       decimal.Decimal
	TakeProfit decimal.Decimal // zero means no target

	// Descriptive metrics for scoring and logging.
	SignalTime  time.Time
	RangePct    decimal.Decimal // consolidation tightness at signal
	VolumeRatio decimal.Decimal // last bar volume vs lookback average
	Note        string
}

// Scanner emits zero or more candidates from the current rolling windows.
// The windows map and its bar slices must be treated as read-only.
type Scanner interface {
	Name() string
	Scan(windows map[string][]market.Bar) []Candidate
}

// Params are the tunable thresholds shared by the scanner family. The
// optimization driver samples these from configured ranges; a scanner uses
// the subset that applies to its heuristic.
type Params struct {
	Lookback          int     `json:"lookback" yaml:"lookback"`                       // consolidation window, in bars
	MaxRangePct       float64 `json:"max_range_pct" yaml:"max_range_pct"`             // tightness gate: (hi-lo)/close over lookback
	BreakoutBufferPct float64 `json:"breakout_buffer_pct" yaml:"breakout_buffer_pct"` // close must clear the range edge by this much
	MinVolumeRatio    float64 `json:"min_volume_ratio" yaml:"min_volume_ratio"`       // last volume / average lookback volume
	StopATRMult       float64 `json:"stop_atr_mult" yaml:"stop_atr_mult"`             // stop distance in ATR multiples
	ATRPeriod         int     `json:"atr_period" yaml:"atr_period"`
	EMAPeriod         int     `json:"ema_period" yaml:"ema_period"` // trend filter for flag/pullback variants
}

// Defaults returns a workable mid-range parameter set.
func Defaults() Params {
	return Params{
		Lookback:          20,
		MaxRangePct:       0.02,
		BreakoutBufferPct: 0.001,
		MinVolumeRatio:    1.5,
		StopATRMult:       1.5,
		ATRPeriod:         14,
		EMAPeriod:         20,
	}
}

// ByName constructs a scanner from its configured name.
func ByName(name string, p Params) (Scanner, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "breakout", "":
		return NewBreakout(p), nil
	case "flag":
		return NewFlag(p), nil
	case "pullback":
		return NewPullback(p), nil
	default:
		return nil, fmt.Errorf("unknown scanner %q (supported: breakout, flag, pullback)", name)
	}
}

// rangeOver returns the highest high and lowest low over bars.
func rangeOver(bars []market.Bar) (hi, lo decimal.Decimal) {
	hi, lo = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High.GreaterThan(hi) {
			hi = b.High
		}
		if b.Low.LessThan(lo) {
			lo = b.Low
		}
	}
	return hi, lo
}

// volumeRatio returns last bar volume over the average of the preceding bars.
func volumeRatio(bars []market.Bar) decimal.Decimal {
	if len(bars) < 2 {
		return decimal.Zero
	}
	var sum int64
	for _, b := range bars[:len(bars)-1] {
		sum += b.Volume
	}
	if sum == 0 {
		return decimal.Zero
	}
	avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(bars) - 1)))
	return decimal.NewFromInt(bars[len(bars)-1].Volume).Div(avg)
}
