package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/market"
)

// EMA is a streaming Exponential Moving Average over bar closes.
// The first value is seeded with an SMA of the first `period` closes,
// then smoothed with alpha = 2/(period+1).
type EMA struct {
	period int
	alpha  decimal.Decimal

	count     int
	warmupSum decimal.Decimal
	ema       decimal.Decimal
}

func NewEMA(period int) *EMA {
	two := decimal.NewFromInt(2)
	return &EMA{
		period: period,
		alpha:  two.Div(decimal.NewFromInt(int64(period + 1))),
	}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *EMA) Warmup() int { return e.period }

func (e *EMA) Reset() {
	e.count = 0
	e.warmupSum = decimal.Zero
	e.ema = decimal.Zero
}

func (e *EMA) Update(b market.Bar) {
	e.count++
	if e.count <= e.period {
		e.warmupSum = e.warmupSum.Add(b.Close)
		if e.count == e.period {
			e.ema = e.warmupSum.Div(decimal.NewFromInt(int64(e.period)))
		}
		return
	}
	// ema += alpha * (close - ema)
	e.ema = e.ema.Add(e.alpha.Mul(b.Close.Sub(e.ema)))
}

func (e *EMA) Ready() bool { return e.count >= e.period }

func (e *EMA) Value() decimal.Decimal {
	if !e.Ready() {
		return decimal.Zero
	}
	return e.ema
}
