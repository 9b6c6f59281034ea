// Package optimize explores scanner/exit parameter combinations with
// randomized search and scores them out-of-sample.
//
// Trials are independent: each owns a fresh risk state and scanner
// instance and reads the shared immutable datasets, so they run safely
// across a worker pool.
package optimize

import (
	"fmt"
	"math/rand"

	"github.com/techben7/traidr/scanner"
)

// Range is a closed interval sampled uniformly.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (r Range) Sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

func (r Range) valid() bool { return r.Max >= r.Min }

// IntRange is a closed integer interval sampled uniformly.
type IntRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func (r IntRange) Sample(rng *rand.Rand) int {
	return r.Min + rng.Intn(r.Max-r.Min+1)
}

func (r IntRange) valid() bool { return r.Max >= r.Min }

// Ranges bounds every sampled parameter. Indicator periods are not
// sampled; they come from the base scanner params.
type Ranges struct {
	Lookback           IntRange `json:"lookback" yaml:"lookback"`
	MaxRangePct        Range    `json:"max_range_pct" yaml:"max_range_pct"`
	BreakoutBufferPct  Range    `json:"breakout_buffer_pct" yaml:"breakout_buffer_pct"`
	MinVolumeRatio     Range    `json:"min_volume_ratio" yaml:"min_volume_ratio"`
	StopATRMult        Range    `json:"stop_atr_mult" yaml:"stop_atr_mult"`
	TakeProfitR        Range    `json:"take_profit_r" yaml:"take_profit_r"`
	MaxBarsToFillEntry IntRange `json:"max_bars_to_fill_entry" yaml:"max_bars_to_fill_entry"`
	EntryBufferPct     Range    `json:"entry_buffer_pct" yaml:"entry_buffer_pct"`
}

// DefaultRanges spans the workable intraday breakout parameter space.
func DefaultRanges() Ranges {
	return Ranges{
		Lookback:           IntRange{Min: 10, Max: 40},
		MaxRangePct:        Range{Min: 0.005, Max: 0.04},
		BreakoutBufferPct:  Range{Min: 0.0, Max: 0.005},
		MinVolumeRatio:     Range{Min: 1.0, Max: 3.0},
		StopATRMult:        Range{Min: 0.5, Max: 3.0},
		TakeProfitR:        Range{Min: 1.0, Max: 4.0},
		MaxBarsToFillEntry: IntRange{Min: 1, Max: 10},
		EntryBufferPct:     Range{Min: 0.0, Max: 0.003},
	}
}

func (r Ranges) Validate() error {
	if !r.Lookback.valid() || !r.MaxBarsToFillEntry.valid() {
		return fmt.Errorf("optimize ranges: integer range has max < min")
	}
	for name, rr := range map[string]Range{
		"max_range_pct":       r.MaxRangePct,
		"breakout_buffer_pct": r.BreakoutBufferPct,
		"min_volume_ratio":    r.MinVolumeRatio,
		"stop_atr_mult":       r.StopATRMult,
		"take_profit_r":       r.TakeProfitR,
		"entry_buffer_pct":    r.EntryBufferPct,
	} {
		if !rr.valid() {
			return fmt.Errorf("optimize ranges: %s has max < min", name)
		}
		// A negative sample would fail Options.Validate mid-run, deep
		// inside a trial; reject the range up front instead.
		if rr.Min < 0 {
			return fmt.Errorf("optimize ranges: %s must be non-negative", name)
		}
	}
	if r.Lookback.Min < 2 {
		return fmt.Errorf("optimize ranges: lookback minimum must be at least 2")
	}
	if r.MaxBarsToFillEntry.Min < 1 {
		return fmt.Errorf("optimize ranges: max_bars_to_fill_entry minimum must be at least 1")
	}
	return nil
}

// TrialParams is one fully sampled configuration: scanner thresholds plus
// the exit/fill knobs the simulator applies.
type TrialParams struct {
	Scanner            scanner.Params `json:"scanner"`
	TakeProfitR        float64        `json:"take_profit_r"`
	MaxBarsToFillEntry int            `json:"max_bars_to_fill_entry"`
	EntryBufferPct     float64        `json:"entry_buffer_pct"`
}

// Sample draws one TrialParams. base supplies the fixed indicator periods.
func (r Ranges) Sample(rng *rand.Rand, base scanner.Params) TrialParams {
	p := base
	p.Lookback = r.Lookback.Sample(rng)
	p.MaxRangePct = r.MaxRangePct.Sample(rng)
	p.BreakoutBufferPct = r.BreakoutBufferPct.Sample(rng)
	p.MinVolumeRatio = r.MinVolumeRatio.Sample(rng)
	p.StopATRMult = r.StopATRMult.Sample(rng)

	return TrialParams{
		Scanner:            p,
		TakeProfitR:        r.TakeProfitR.Sample(rng),
		MaxBarsToFillEntry: r.MaxBarsToFillEntry.Sample(rng),
		EntryBufferPct:     r.EntryBufferPct.Sample(rng),
	}
}
