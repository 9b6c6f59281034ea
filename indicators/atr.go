package indicators

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/market"
)

// ATR is a streaming Average True Range with Wilder smoothing.
type ATR struct {
	period int

	count     int
	warmupSum decimal.Decimal
	atr       decimal.Decimal

	prev    market.Bar
	hasPrev bool
}

func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

// Warmup needs period+1 bars because TR requires a previous close.
func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Reset() {
	a.count = 0
	a.warmupSum = decimal.Zero
	a.atr = decimal.Zero
	a.hasPrev = false
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}

	tr := trueRange(b, a.prev)
	a.prev = b

	if a.count < a.period {
		a.warmupSum = a.warmupSum.Add(tr)
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum.Div(decimal.NewFromInt(int64(a.period)))
		}
		return
	}

	// Wilder: atr = (atr*(n-1) + tr) / n
	n := decimal.NewFromInt(int64(a.period))
	a.atr = a.atr.Mul(n.Sub(decimal.NewFromInt(1))).Add(tr).Div(n)
}

func (a *ATR) Ready() bool { return a.count >= a.period }

func (a *ATR) Value() decimal.Decimal {
	if !a.Ready() {
		return decimal.Zero
	}
	return a.atr
}

// trueRange is max(H-L, |H-prevC|, |L-prevC|).
func trueRange(cur, prev market.Bar) decimal.Decimal {
	hl := cur.High.Sub(cur.Low)
	hc := cur.High.Sub(prev.Close).Abs()
	lc := cur.Low.Sub(prev.Close).Abs()

	tr := hl
	if hc.GreaterThan(tr) {
		tr = hc
	}
	if lc.GreaterThan(tr) {
		tr = lc
	}
	return tr
}
