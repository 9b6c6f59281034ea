package scanner

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/indicators"
	"github.com/techben7/traidr/market"
)

// Breakout detects range-contraction breakouts: a tight consolidation over
// the lookback window, then a close beyond the range edge on expanded
// volume. Emits Long above the range high and Short below the range low.
type Breakout struct {
	p Params
}

func NewBreakout(p Params) *Breakout {
	return &Breakout{p: p}
}

func (s *Breakout) Name() string { return "breakout" }

func (s *Breakout) Scan(windows map[string][]market.Bar) []Candidate {
	var out []Candidate
	for sym, bars := range windows {
		if c, ok := s.scanSymbol(sym, bars); ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *Breakout) scanSymbol(sym string, bars []market.Bar) (Candidate, bool) {
	need := s.p.Lookback + 1
	if a := s.p.ATRPeriod + 1; a > need {
		need = a
	}
	if len(bars) < need {
		return Candidate{}, false
	}

	last := bars[len(bars)-1]
	window := bars[len(bars)-1-s.p.Lookback : len(bars)-1]

	hi, lo := rangeOver(window)
	if !last.Close.IsPositive() {
		return Candidate{}, false
	}
	rangePct := hi.Sub(lo).Div(last.Close)
	if rangePct.GreaterThan(decimal.NewFromFloat(s.p.MaxRangePct)) {
		return Candidate{}, false
	}

	vr := volumeRatio(bars[len(bars)-1-s.p.Lookback:])
	if vr.LessThan(decimal.NewFromFloat(s.p.MinVolumeRatio)) {
		return Candidate{}, false
	}

	atr := indicators.Calculate(indicators.NewATR(s.p.ATRPeriod), bars)
	if !atr.IsPositive() {
		return Candidate{}, false
	}
	stopDist := atr.Mul(decimal.NewFromFloat(s.p.StopATRMult))

	buffer := decimal.NewFromFloat(s.p.BreakoutBufferPct)
	upTrigger := hi.Mul(decimal.NewFromInt(1).Add(buffer))
	downTrigger := lo.Mul(decimal.NewFromInt(1).Sub(buffer))

	c := Candidate{
		Symbol:      sym,
		SignalTime:  last.Time,
		RangePct:    rangePct,
		VolumeRatio: vr,
	}

	switch {
	case last.Close.GreaterThan(upTrigger):
		c.Direction = market.Long
		c.Entry = last.Close
		c.Stop = last.Close.Sub(stopDist)
		c.Note = fmt.Sprintf("breakout above %s", hi)
	case last.Close.LessThan(downTrigger):
		c.Direction = market.Short
		c.Entry = last.Close
		c.Stop = last.Close.Add(stopDist)
		c.Note = fmt.Sprintf("breakdown below %s", lo)
	default:
		return Candidate{}, false
	}

	if !c.Stop.IsPositive() {
		return Candidate{}, false
	}
	return c, true
}
