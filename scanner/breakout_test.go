package scanner

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techben7/traidr/market"
)

// tightWindow builds lookback bars oscillating in [low, high] on baseVolume,
// then one final bar closing at lastClose on lastVolume.
func tightWindow(lookback int, low, high, lastClose float64, baseVolume, lastVolume int64) []market.Bar {
	t0 := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	mid := (low + high) / 2

	var bars []market.Bar
	for i := 0; i < lookback; i++ {
		bars = append(bars, market.Bar{
			Symbol: "TEST",
			Time:   t0.Add(time.Duration(i) * time.Minute),
			Open:   decimal.NewFromFloat(mid),
			High:   decimal.NewFromFloat(high),
			Low:    decimal.NewFromFloat(low),
			Close:  decimal.NewFromFloat(mid),
			Volume: baseVolume,
		})
	}
	hi, lo := mid, mid
	if lastClose > hi {
		hi = lastClose
	}
	if lastClose < lo {
		lo = lastClose
	}
	bars = append(bars, market.Bar{
		Symbol: "TEST",
		Time:   t0.Add(time.Duration(lookback) * time.Minute),
		Open:   decimal.NewFromFloat(mid),
		High:   decimal.NewFromFloat(hi + 0.05),
		Low:    decimal.NewFromFloat(lo - 0.05),
		Close:  decimal.NewFromFloat(lastClose),
		Volume: lastVolume,
	})
	return bars
}

func testParams() Params {
	p := Defaults()
	p.Lookback = 15
	p.ATRPeriod = 5
	p.MaxRangePct = 0.05
	p.MinVolumeRatio = 1.5
	return p
}

func TestBreakoutEmitsLongAboveRange(t *testing.T) {
	t.Parallel()

	s := NewBreakout(testParams())
	bars := tightWindow(20, 9.90, 10.10, 10.25, 10000, 30000)

	cands := s.Scan(map[string][]market.Bar{"TEST": bars})
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "TEST", c.Symbol)
	assert.Equal(t, market.Long, c.Direction)
	assert.True(t, c.Entry.Equal(decimal.NewFromFloat(10.25)))
	assert.True(t, c.Stop.LessThan(c.Entry), "stop %s must be below entry %s", c.Stop, c.Entry)
	assert.True(t, c.Stop.IsPositive())
	assert.Equal(t, bars[len(bars)-1].Time, c.SignalTime)
	assert.True(t, c.VolumeRatio.GreaterThanOrEqual(decimal.NewFromFloat(1.5)))
}

func TestBreakoutEmitsShortBelowRange(t *testing.T) {
	t.Parallel()

	s := NewBreakout(testParams())
	bars := tightWindow(20, 9.90, 10.10, 9.75, 10000, 30000)

	cands := s.Scan(map[string][]market.Bar{"TEST": bars})
	require.Len(t, cands, 1)
	assert.Equal(t, market.Short, cands[0].Direction)
	assert.True(t, cands[0].Stop.GreaterThan(cands[0].Entry))
}

func TestBreakoutRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bars []market.Bar
	}{
		{"inside range", tightWindow(20, 9.90, 10.10, 10.00, 10000, 30000)},
		{"no volume expansion", tightWindow(20, 9.90, 10.10, 10.25, 10000, 10000)},
		{"window too short", tightWindow(3, 9.90, 10.10, 10.25, 10000, 30000)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewBreakout(testParams())
			assert.Empty(t, s.Scan(map[string][]market.Bar{"TEST": tt.bars}))
		})
	}
}

func TestBreakoutRejectsWideRange(t *testing.T) {
	t.Parallel()

	p := testParams()
	p.MaxRangePct = 0.005 // tighter than the 2% window below
	s := NewBreakout(p)

	bars := tightWindow(20, 9.90, 10.10, 10.25, 10000, 30000)
	assert.Empty(t, s.Scan(map[string][]market.Bar{"TEST": bars}))
}

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"breakout", "flag", "pullback"} {
		s, err := ByName(name, Defaults())
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	_, err := ByName("gartley", Defaults())
	assert.Error(t, err)
}
