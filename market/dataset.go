package market

import (
	"fmt"
	"sort"
	"time"
)

// DataSet holds per-symbol bar series for one timeframe, pre-loaded and
// immutable for the duration of a backtest. The same DataSet is shared
// read-only across concurrent optimization trials, so nothing here may
// mutate after Build.
type DataSet struct {
	Timeframe string
	Location  *time.Location // market time zone, e.g. America/New_York

	bars    map[string][]Bar
	symbols []string
	index   []time.Time // sorted union of distinct bar timestamps
}

// NewDataSet groups bars by symbol, sorts each series ascending by time,
// and builds the global time index. It rejects duplicate (symbol, time)
// pairs: a duplicate means the upstream feed is broken and any replay over
// it would double-count.
func NewDataSet(timeframe string, loc *time.Location, bars []Bar) (*DataSet, error) {
	if loc == nil {
		loc = time.UTC
	}

	bySym := make(map[string][]Bar)
	for _, b := range bars {
		bySym[b.Symbol] = append(bySym[b.Symbol], b)
	}

	seen := make(map[time.Time]struct{})
	for sym, series := range bySym {
		sort.Slice(series, func(i, j int) bool {
			return series[i].Time.Before(series[j].Time)
		})
		for i := 1; i < len(series); i++ {
			if series[i].Time.Equal(series[i-1].Time) {
				return nil, fmt.Errorf("duplicate bar for %s at %s",
					sym, series[i].Time.UTC().Format(time.RFC3339))
			}
		}
		for _, b := range series {
			seen[b.Time] = struct{}{}
		}
		bySym[sym] = series
	}

	index := make([]time.Time, 0, len(seen))
	for t := range seen {
		index = append(index, t)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	symbols := make([]string, 0, len(bySym))
	for sym := range bySym {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	return &DataSet{
		Timeframe: timeframe,
		Location:  loc,
		bars:      bySym,
		symbols:   symbols,
		index:     index,
	}, nil
}

// Symbols returns the symbol universe in sorted order.
func (d *DataSet) Symbols() []string { return d.symbols }

// Bars returns the full ordered series for one symbol. Callers must treat
// the returned slice as read-only.
func (d *DataSet) Bars(symbol string) []Bar { return d.bars[symbol] }

// TimeIndex returns the sorted union of all distinct bar timestamps across
// all symbols. This is the clock a replay walks: symbols with no bar at a
// given instant are simply absent at that step.
func (d *DataSet) TimeIndex() []time.Time { return d.index }

// Empty reports whether the dataset holds no bars at all.
func (d *DataSet) Empty() bool { return len(d.index) == 0 }

// Slice returns a view restricted to [from, to). Bar slices are shared with
// the parent, not copied; the view is as immutable as the parent.
func (d *DataSet) Slice(from, to time.Time) *DataSet {
	sub := &DataSet{
		Timeframe: d.Timeframe,
		Location:  d.Location,
		bars:      make(map[string][]Bar, len(d.bars)),
	}

	for _, sym := range d.symbols {
		series := d.bars[sym]
		lo := sort.Search(len(series), func(i int) bool { return !series[i].Time.Before(from) })
		hi := sort.Search(len(series), func(i int) bool { return !series[i].Time.Before(to) })
		if lo < hi {
			sub.bars[sym] = series[lo:hi:hi]
			sub.symbols = append(sub.symbols, sym)
		}
	}

	lo := sort.Search(len(d.index), func(i int) bool { return !d.index[i].Before(from) })
	hi := sort.Search(len(d.index), func(i int) bool { return !d.index[i].Before(to) })
	sub.index = d.index[lo:hi:hi]

	return sub
}
