package scanner

import (
	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/indicators"
	"github.com/techben7/traidr/market"
)

// Flag detects pole-and-flag continuations: a strong directional move (the
// pole) followed by a short, tight consolidation (the flag), entered when
// the last bar resumes in the pole's direction. The flag portion reuses the
// breakout tightness gate; the pole is measured in ATR multiples.
type Flag struct {
	p Params
}

// poleATRMult is how far price must have run, in ATRs, over the lookback
// preceding the flag for the move to count as a pole.
const poleATRMult = 3.0

func NewFlag(p Params) *Flag {
	return &Flag{p: p}
}

func (s *Flag) Name() string { return "flag" }

func (s *Flag) Scan(windows map[string][]market.Bar) []Candidate {
	var out []Candidate
	for sym, bars := range windows {
		if c, ok := s.scanSymbol(sym, bars); ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *Flag) scanSymbol(sym string, bars []market.Bar) (Candidate, bool) {
	flagLen := s.p.Lookback / 2
	if flagLen < 3 {
		flagLen = 3
	}
	need := s.p.Lookback + flagLen + 1
	if a := s.p.ATRPeriod + 1; a > need {
		need = a
	}
	if len(bars) < need {
		return Candidate{}, false
	}

	last := bars[len(bars)-1]
	flag := bars[len(bars)-1-flagLen : len(bars)-1]
	pole := bars[len(bars)-1-flagLen-s.p.Lookback : len(bars)-1-flagLen]

	atr := indicators.Calculate(indicators.NewATR(s.p.ATRPeriod), bars)
	if !atr.IsPositive() || !last.Close.IsPositive() {
		return Candidate{}, false
	}

	poleMove := pole[len(pole)-1].Close.Sub(pole[0].Open)
	minPole := atr.Mul(decimal.NewFromFloat(poleATRMult))

	flagHi, flagLo := rangeOver(flag)
	rangePct := flagHi.Sub(flagLo).Div(last.Close)
	if rangePct.GreaterThan(decimal.NewFromFloat(s.p.MaxRangePct)) {
		return Candidate{}, false
	}

	vr := volumeRatio(bars[len(bars)-1-flagLen:])
	if vr.LessThan(decimal.NewFromFloat(s.p.MinVolumeRatio)) {
		return Candidate{}, false
	}

	buffer := decimal.NewFromFloat(s.p.BreakoutBufferPct)
	stopDist := atr.Mul(decimal.NewFromFloat(s.p.StopATRMult))

	c := Candidate{
		Symbol:      sym,
		SignalTime:  last.Time,
		RangePct:    rangePct,
		VolumeRatio: vr,
	}

	switch {
	case poleMove.GreaterThanOrEqual(minPole) &&
		last.Close.GreaterThan(flagHi.Mul(decimal.NewFromInt(1).Add(buffer))):
		c.Direction = market.Long
		c.Entry = last.Close
		c.Stop = flagLo
		c.Note = "bull flag continuation"
	case poleMove.LessThanOrEqual(minPole.Neg()) &&
		last.Close.LessThan(flagLo.Mul(decimal.NewFromInt(1).Sub(buffer))):
		c.Direction = market.Short
		c.Entry = last.Close
		c.Stop = flagHi
		c.Note = "bear flag continuation"
	default:
		return Candidate{}, false
	}

	// Flag stops sit at the far edge of the flag; fall back to an ATR stop
	// when the flag is degenerate (edge on the entry price).
	if c.Stop.Equal(c.Entry) {
		if c.Direction == market.Long {
			c.Stop = c.Entry.Sub(stopDist)
		} else {
			c.Stop = c.Entry.Add(stopDist)
		}
	}
	if !c.Stop.IsPositive() {
		return Candidate{}, false
	}
	return c, true
}
