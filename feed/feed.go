// Package feed loads historical bar data into market.DataSet values.
//
// The backtest engine never performs I/O itself: a Source is drained once,
// up front, and the resulting DataSet is shared read-only across every run
// that follows (including all optimization trials).
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/techben7/traidr/market"
)

// Source provides historical bars for a symbol universe. Implementations
// must return bars with no duplicate (symbol, time) pairs; order does not
// matter, NewDataSet sorts.
type Source interface {
	GetHistoricalBars(ctx context.Context, symbols []string, from, to time.Time, timeframe string) ([]market.Bar, error)
}

// LoadDataSet drains a Source for [from, to) and builds an immutable DataSet.
func LoadDataSet(ctx context.Context, src Source, symbols []string, from, to time.Time, timeframe string, loc *time.Location) (*market.DataSet, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("load dataset: empty symbol list")
	}
	if !to.After(from) {
		return nil, fmt.Errorf("load dataset: range end %s not after start %s",
			to.UTC().Format(time.RFC3339), from.UTC().Format(time.RFC3339))
	}

	bars, err := src.GetHistoricalBars(ctx, symbols, from, to, timeframe)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	ds, err := market.NewDataSet(timeframe, loc, bars)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return ds, nil
}

// MemorySource serves a fixed bar slice. Used in tests and for replaying
// pre-fetched data.
type MemorySource struct {
	Bars []market.Bar
}

func (m *MemorySource) GetHistoricalBars(_ context.Context, symbols []string, from, to time.Time, _ string) ([]market.Bar, error) {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}

	var out []market.Bar
	for _, b := range m.Bars {
		if !want[b.Symbol] {
			continue
		}
		if b.Time.Before(from) || !b.Time.Before(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
