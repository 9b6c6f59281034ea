package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(sym string, t time.Time, px float64) Bar {
	p := decimal.NewFromFloat(px)
	return Bar{Symbol: sym, Time: t, Open: p, High: p, Low: p, Close: p, Volume: 1000}
}

func TestNewDataSetSortsAndIndexes(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	bars := []Bar{
		bar("MSFT", t0.Add(2*time.Minute), 400),
		bar("AAPL", t0.Add(1*time.Minute), 190),
		bar("AAPL", t0, 189),
		bar("MSFT", t0, 399),
	}

	ds, err := NewDataSet("1m", time.UTC, bars)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, ds.Symbols())

	aapl := ds.Bars("AAPL")
	require.Len(t, aapl, 2)
	assert.True(t, aapl[0].Time.Before(aapl[1].Time))

	// Union of distinct timestamps: t0, t0+1m, t0+2m.
	idx := ds.TimeIndex()
	require.Len(t, idx, 3)
	assert.Equal(t, t0, idx[0])
	assert.Equal(t, t0.Add(2*time.Minute), idx[2])
}

func TestNewDataSetRejectsDuplicateTimestamps(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	_, err := NewDataSet("1m", time.UTC, []Bar{
		bar("AAPL", t0, 190),
		bar("AAPL", t0, 191),
	})
	assert.Error(t, err)
}

func TestSliceIsHalfOpenAndShared(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC)
	var bars []Bar
	for i := 0; i < 10; i++ {
		bars = append(bars, bar("SPY", t0.Add(time.Duration(i)*time.Minute), 500+float64(i)))
	}
	ds, err := NewDataSet("1m", time.UTC, bars)
	require.NoError(t, err)

	sub := ds.Slice(t0.Add(2*time.Minute), t0.Add(5*time.Minute))
	require.Len(t, sub.Bars("SPY"), 3)
	assert.Equal(t, t0.Add(2*time.Minute), sub.Bars("SPY")[0].Time)
	assert.Equal(t, t0.Add(4*time.Minute), sub.Bars("SPY")[2].Time)
	assert.Len(t, sub.TimeIndex(), 3)

	// A slice outside the range drops the symbol entirely.
	empty := ds.Slice(t0.Add(time.Hour), t0.Add(2*time.Hour))
	assert.True(t, empty.Empty())
	assert.Empty(t, empty.Symbols())
}
