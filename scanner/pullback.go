package scanner

import (
	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/indicators"
	"github.com/techben7/traidr/market"
)

// Pullback detects trend-continuation entries at the fast EMA: price in an
// established trend dips to touch the EMA and the last bar closes back in
// the trend's direction. Long-only above a rising EMA, short mirrored.
type Pullback struct {
	p Params
}

func NewPullback(p Params) *Pullback {
	return &Pullback{p: p}
}

func (s *Pullback) Name() string { return "pullback" }

func (s *Pullback) Scan(windows map[string][]market.Bar) []Candidate {
	var out []Candidate
	for sym, bars := range windows {
		if c, ok := s.scanSymbol(sym, bars); ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *Pullback) scanSymbol(sym string, bars []market.Bar) (Candidate, bool) {
	need := s.p.EMAPeriod + 2
	if a := s.p.ATRPeriod + 1; a > need {
		need = a
	}
	if len(bars) < need {
		return Candidate{}, false
	}

	last := bars[len(bars)-1]
	if !last.Close.IsPositive() {
		return Candidate{}, false
	}

	// EMA as of the prior bar and as of now: the slope is the trend filter.
	emaPrev := indicators.Calculate(indicators.NewEMA(s.p.EMAPeriod), bars[:len(bars)-1])
	emaNow := indicators.Calculate(indicators.NewEMA(s.p.EMAPeriod), bars)
	if emaNow.IsZero() || emaPrev.IsZero() {
		return Candidate{}, false
	}

	atr := indicators.Calculate(indicators.NewATR(s.p.ATRPeriod), bars)
	if !atr.IsPositive() {
		return Candidate{}, false
	}
	stopDist := atr.Mul(decimal.NewFromFloat(s.p.StopATRMult))

	vr := volumeRatio(bars[len(bars)-1-min(s.p.Lookback, len(bars)-1):])

	c := Candidate{
		Symbol:      sym,
		SignalTime:  last.Time,
		RangePct:    last.Range().Div(last.Close),
		VolumeRatio: vr,
	}

	rising := emaNow.GreaterThan(emaPrev)
	falling := emaNow.LessThan(emaPrev)
	touched := last.Low.LessThanOrEqual(emaNow) && last.High.GreaterThanOrEqual(emaNow)

	switch {
	case rising && touched && last.Close.GreaterThan(emaNow):
		c.Direction = market.Long
		c.Entry = last.Close
		c.Stop = last.Close.Sub(stopDist)
		c.Note = "pullback to rising EMA"
	case falling && touched && last.Close.LessThan(emaNow):
		c.Direction = market.Short
		c.Entry = last.Close
		c.Stop = last.Close.Add(stopDist)
		c.Note = "rally to falling EMA"
	default:
		return Candidate{}, false
	}

	if !c.Stop.IsPositive() {
		return Candidate{}, false
	}
	return c, true
}
