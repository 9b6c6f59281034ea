package indicators

import (
	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/market"
)

// VWAP is a streaming volume-weighted average price over typical prices
// ((H+L+C)/3), accumulated from the first update. Callers that want a
// session VWAP reset it at the session boundary.
type VWAP struct {
	sumPV decimal.Decimal
	sumV  decimal.Decimal
	count int
}

func NewVWAP() *VWAP {
	return &VWAP{}
}

func (v *VWAP) Name() string { return "VWAP" }

func (v *VWAP) Warmup() int { return 1 }

func (v *VWAP) Reset() {
	v.sumPV = decimal.Zero
	v.sumV = decimal.Zero
	v.count = 0
}

func (v *VWAP) Update(b market.Bar) {
	vol := decimal.NewFromInt(b.Volume)
	v.sumPV = v.sumPV.Add(b.Typical().Mul(vol))
	v.sumV = v.sumV.Add(vol)
	v.count++
}

func (v *VWAP) Ready() bool { return v.count >= 1 && v.sumV.IsPositive() }

func (v *VWAP) Value() decimal.Decimal {
	if !v.Ready() {
		return decimal.Zero
	}
	return v.sumPV.Div(v.sumV)
}
