package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techben7/traidr/market"
	"github.com/techben7/traidr/risk"
	"github.com/techben7/traidr/scanner"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

var t0 = time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC) // Monday, regular session in UTC terms

// mkBar builds one bar i minutes after t0.
func mkBar(sym string, i int, o, h, l, c float64) market.Bar {
	return market.Bar{
		Symbol: sym,
		Time:   t0.Add(time.Duration(i) * time.Minute),
		Open:   dec(o), High: dec(h), Low: dec(l), Close: dec(c),
		Volume: 10000,
	}
}

// flatBars builds n identical bars trading well above the given level.
func flatBars(sym string, n int, px float64) []market.Bar {
	var bars []market.Bar
	for i := 0; i < n; i++ {
		bars = append(bars, mkBar(sym, i, px, px+0.05, px-0.05, px))
	}
	return bars
}

func mustDataSet(t *testing.T, bars []market.Bar) *market.DataSet {
	t.Helper()
	ds, err := market.NewDataSet("1m", time.UTC, bars)
	require.NoError(t, err)
	return ds
}

// scriptedScanner emits fixed candidates when a symbol's window tip reaches
// the scheduled time, and records what it was shown for look-ahead checks.
type scriptedScanner struct {
	script  map[time.Time][]scanner.Candidate // keyed by last bar time of the symbol
	maxSeen []time.Time                       // max bar timestamp per Scan call
}

func (s *scriptedScanner) Name() string { return "scripted" }

func (s *scriptedScanner) Scan(windows map[string][]market.Bar) []scanner.Candidate {
	var maxTS time.Time
	var out []scanner.Candidate
	for _, bars := range windows {
		if len(bars) == 0 {
			continue
		}
		tip := bars[len(bars)-1].Time
		if tip.After(maxTS) {
			maxTS = tip
		}
		out = append(out, s.script[tip]...)
	}
	s.maxSeen = append(s.maxSeen, maxTS)
	return out
}

// allowAll approves every candidate at a fixed quantity and counts calls.
type allowAll struct {
	qty   int64
	evals int
	fills int
	pnls  int
}

func (a *allowAll) Evaluate(c scanner.Candidate, _ decimal.Decimal, _ time.Time) risk.Decision {
	a.evals++
	return risk.Decision{
		Allowed:       true,
		Quantity:      a.qty,
		EstimatedRisk: c.Entry.Sub(c.Stop).Abs().Mul(decimal.NewFromInt(a.qty)),
	}
}

func (a *allowAll) RecordFill(string, time.Time) { a.fills++ }

func (a *allowAll) RecordPnL(decimal.Decimal, time.Time) { a.pnls++ }

// plainOptions disables slippage, commission, buffer, and flatten so price
// arithmetic in assertions is exact.
func plainOptions(symbols ...string) Options {
	o := DefaultOptions(symbols, "1m")
	o.EntryBufferPct = decimal.Zero
	o.SlippagePct = decimal.Zero
	o.Commission = decimal.Zero
	o.FlattenAt = market.TimeOfDay{}
	o.Sessions = market.TradeAll
	return o
}

func longAt(sym string, entry, stop, target float64) scanner.Candidate {
	c := scanner.Candidate{
		Symbol:    sym,
		Direction: market.Long,
		Entry:     dec(entry),
		Stop:      dec(stop),
	}
	if target != 0 {
		c.TakeProfit = dec(target)
	}
	return c
}

func shortAt(sym string, entry, stop, target float64) scanner.Candidate {
	c := scanner.Candidate{
		Symbol:    sym,
		Direction: market.Short,
		Entry:     dec(entry),
		Stop:      dec(stop),
	}
	if target != 0 {
		c.TakeProfit = dec(target)
	}
	return c
}

func runEngine(t *testing.T, ds *market.DataSet, opts Options, sc scanner.Scanner, ev RiskEvaluator) ([]Trade, Summary) {
	t.Helper()
	e, err := New(ds, opts, sc, ev)
	require.NoError(t, err)
	trades, sum, err := e.Run(context.Background())
	require.NoError(t, err)
	return trades, sum
}

func TestNoFillWhenLimitNeverTouched(t *testing.T) {
	t.Parallel()

	// 20 bars all trading above 10.00; one Long candidate entry=10.00
	// stop=9.50 signaled at bar 15; bars 16-18 never touch the limit.
	bars := flatBars("TEST", 20, 10.50)
	ds := mustDataSet(t, bars)

	sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{
		bars[15].Time: {longAt("TEST", 10.00, 9.50, 0)},
	}}
	ev := &allowAll{qty: 100}

	opts := plainOptions("TEST")
	opts.MaxBarsToFillEntry = 3

	trades, sum := runEngine(t, ds, opts, sc, ev)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, OutcomeNoFill, tr.Outcome)
	assert.True(t, tr.PnL.IsZero())
	assert.True(t, tr.RMultiple.IsZero())
	assert.Equal(t, bars[15].Time, tr.SignalTime)
	assert.True(t, tr.EntryTime.IsZero())
	assert.Equal(t, 0, ev.fills)
	assert.Equal(t, 1, sum.NoFills)
	assert.Equal(t, 0, sum.Filled)
}

func TestEntryFillsWithSlippage(t *testing.T) {
	t.Parallel()

	bars := flatBars("TEST", 20, 10.50)
	// Bar 16 dips to 9.90, touching the 10.00 limit from above.
	bars[16] = mkBar("TEST", 16, 10.50, 10.55, 9.90, 10.40)

	ds := mustDataSet(t, bars)
	sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{
		bars[15].Time: {longAt("TEST", 10.00, 9.50, 0)},
	}}
	ev := &allowAll{qty: 100}

	opts := plainOptions("TEST")
	opts.MaxBarsToFillEntry = 3
	opts.SlippagePct = dec(0.001)

	trades, sum := runEngine(t, ds, opts, sc, ev)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.True(t, tr.Filled())
	assert.Equal(t, bars[16].Time, tr.EntryTime)
	// Fill = limit 10.00 nudged against the trader by 0.1%.
	assert.True(t, tr.EntryFill.Equal(dec(10.01)), "got %s", tr.EntryFill)
	assert.True(t, tr.ExitTime.After(tr.EntryTime) || tr.ExitTime.Equal(tr.EntryTime))
	assert.True(t, tr.EntryTime.After(tr.SignalTime))
	assert.Equal(t, OutcomeEndOfDay, tr.Outcome) // closed at dataset end
	assert.Equal(t, 1, ev.fills)
	assert.Equal(t, 1, sum.Filled)
}

func TestSameBarTieBreak(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cand     scanner.Candidate
		tieBreak TieBreak
		want     Outcome
		wantExit float64
	}{
		{"long conservative", longAt("TEST", 10.00, 9.50, 11.00), ConservativeStopFirst, OutcomeStop, 9.50},
		{"long optimistic", longAt("TEST", 10.00, 9.50, 11.00), OptimisticTakeProfitFirst, OutcomeTakeProfit, 11.00},
		{"short conservative", shortAt("TEST", 10.00, 10.50, 9.00), ConservativeStopFirst, OutcomeStop, 10.50},
		{"short optimistic", shortAt("TEST", 10.00, 10.50, 9.00), OptimisticTakeProfitFirst, OutcomeTakeProfit, 9.00},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bars := flatBars("TEST", 8, 10.00)
			// Bar 6 sweeps both the stop and the target.
			bars[6] = mkBar("TEST", 6, 10.00, 11.50, 8.90, 10.00)
			ds := mustDataSet(t, bars)

			sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{
				bars[4].Time: {tt.cand},
			}}
			ev := &allowAll{qty: 100}

			opts := plainOptions("TEST")
			opts.TieBreak = tt.tieBreak

			trades, _ := runEngine(t, ds, opts, sc, ev)

			require.Len(t, trades, 1)
			tr := trades[0]
			assert.Equal(t, tt.want, tr.Outcome)
			assert.True(t, tr.ExitPrice.Equal(dec(tt.wantExit)), "got %s", tr.ExitPrice)
			assert.Equal(t, bars[6].Time, tr.ExitTime)
		})
	}
}

func TestEndOfDayFlatten(t *testing.T) {
	t.Parallel()

	// Bars running 15:30 through 16:00 UTC; flatten at 15:55.
	base := time.Date(2025, 3, 3, 15, 30, 0, 0, time.UTC)
	var bars []market.Bar
	for i := 0; i <= 30; i++ {
		b := mkBar("TEST", 0, 10.00, 10.05, 9.95, 10.00)
		b.Time = base.Add(time.Duration(i) * time.Minute)
		bars = append(bars, b)
	}
	ds := mustDataSet(t, bars)

	sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{
		bars[2].Time: {longAt("TEST", 10.00, 9.00, 0)},
	}}
	ev := &allowAll{qty: 100}

	opts := plainOptions("TEST")
	opts.FlattenAt = market.TimeOfDay{Hour: 15, Minute: 55}

	trades, _ := runEngine(t, ds, opts, sc, ev)

	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, OutcomeEndOfDay, tr.Outcome)
	// First bar at or past 15:55 forces the close, not the dataset end.
	assert.Equal(t, time.Date(2025, 3, 3, 15, 55, 0, 0, time.UTC), tr.ExitTime)
	assert.True(t, tr.ExitPrice.Equal(dec(10.00)))
}

func TestScannerNeverSeesFutureBars(t *testing.T) {
	t.Parallel()

	bars := flatBars("TEST", 30, 10.00)
	ds := mustDataSet(t, bars)

	sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{}}
	ev := &allowAll{qty: 100}

	runEngine(t, ds, plainOptions("TEST"), sc, ev)

	// One scan per time step; the newest bar shown must be exactly the
	// bar of that step, never later.
	require.Len(t, sc.maxSeen, len(bars))
	for i, seen := range sc.maxSeen {
		assert.Equal(t, bars[i].Time, seen, "scan %d leaked a future bar", i)
	}
}

func TestOnePositionPerSymbolAndLedgerCompleteness(t *testing.T) {
	t.Parallel()

	// Candidate re-signaled every bar; fills on the next bar and stops out
	// on the same bar, so positions churn constantly.
	bars := flatBars("TEST", 40, 10.00)
	script := make(map[time.Time][]scanner.Candidate)
	for _, b := range bars {
		script[b.Time] = []scanner.Candidate{longAt("TEST", 10.00, 9.96, 10.50)}
	}
	ds := mustDataSet(t, bars)

	sc := &scriptedScanner{script: script}
	ev := &allowAll{qty: 100}

	trades, _ := runEngine(t, ds, plainOptions("TEST"), sc, ev)

	// Every evaluated candidate became exactly one trade.
	assert.Equal(t, ev.evals, len(trades))

	// Filled trades for one symbol never overlap in time.
	var lastExit time.Time
	for _, tr := range trades {
		if !tr.Filled() {
			continue
		}
		assert.False(t, tr.EntryTime.Before(lastExit),
			"trade entered %s before prior exit %s", tr.EntryTime, lastExit)
		lastExit = tr.ExitTime
	}
}

func TestRMultipleSignConsistency(t *testing.T) {
	t.Parallel()

	t.Run("winning long", func(t *testing.T) {
		t.Parallel()

		bars := flatBars("TEST", 10, 10.00)
		bars[5] = mkBar("TEST", 5, 10.00, 10.60, 9.98, 10.55) // hits 10.50 target
		ds := mustDataSet(t, bars)

		sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{
			bars[3].Time: {longAt("TEST", 10.00, 9.50, 10.50)},
		}}
		trades, _ := runEngine(t, ds, plainOptions("TEST"), sc, &allowAll{qty: 100})

		require.Len(t, trades, 1)
		require.Equal(t, OutcomeTakeProfit, trades[0].Outcome)
		assert.True(t, trades[0].PnL.IsPositive())
		assert.True(t, trades[0].RMultiple.IsPositive())
		// 0.50 gained on 0.50 risked.
		assert.True(t, trades[0].RMultiple.Equal(decimal.NewFromInt(1)), "got %s", trades[0].RMultiple)
	})

	t.Run("winning short", func(t *testing.T) {
		t.Parallel()

		bars := flatBars("TEST", 10, 10.00)
		bars[5] = mkBar("TEST", 5, 10.00, 10.02, 9.40, 9.45) // hits 9.50 target
		ds := mustDataSet(t, bars)

		sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{
			bars[3].Time: {shortAt("TEST", 10.00, 10.50, 9.50)},
		}}
		trades, _ := runEngine(t, ds, plainOptions("TEST"), sc, &allowAll{qty: 100})

		require.Len(t, trades, 1)
		require.Equal(t, OutcomeTakeProfit, trades[0].Outcome)
		assert.True(t, trades[0].PnL.IsPositive())
		assert.True(t, trades[0].RMultiple.IsPositive())
	})
}

func TestSessionFilterBlocksSignalsNotExits(t *testing.T) {
	t.Parallel()

	// 03:30 UTC is outside every session for a UTC-hours market; with the
	// market's own clock in UTC nothing should signal there.
	night := time.Date(2025, 3, 3, 3, 30, 0, 0, time.UTC)
	var bars []market.Bar
	for i := 0; i < 10; i++ {
		b := mkBar("TEST", 0, 10.00, 10.05, 9.95, 10.00)
		b.Time = night.Add(time.Duration(i) * time.Minute)
		bars = append(bars, b)
	}
	ds := mustDataSet(t, bars)

	script := make(map[time.Time][]scanner.Candidate)
	for _, b := range bars {
		script[b.Time] = []scanner.Candidate{longAt("TEST", 10.00, 9.50, 0)}
	}
	sc := &scriptedScanner{script: script}
	ev := &allowAll{qty: 100}

	opts := plainOptions("TEST")
	opts.Sessions = market.TradeRegular

	trades, _ := runEngine(t, ds, opts, sc, ev)
	assert.Empty(t, trades)
	assert.Zero(t, ev.evals)
}

func TestExitsFireOutsideSessions(t *testing.T) {
	t.Parallel()

	// Position opens during regular hours; the stop is swept by an evening
	// bar that falls outside every enabled session. Exit handling must run
	// anyway, only signal generation is gated.
	bars := flatBars("TEST", 4, 10.00)
	evening := mkBar("TEST", 452, 10.00, 10.05, 9.40, 9.45) // 22:02, stop swept
	bars = append(bars, evening)
	ds := mustDataSet(t, bars)

	sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{
		bars[1].Time: {longAt("TEST", 10.00, 9.50, 0)},
	}}
	ev := &allowAll{qty: 100}

	opts := plainOptions("TEST")
	opts.Sessions = market.TradeRegular

	trades, _ := runEngine(t, ds, opts, sc, ev)

	require.Len(t, trades, 1)
	assert.Equal(t, OutcomeStop, trades[0].Outcome)
	assert.Equal(t, evening.Time, trades[0].ExitTime)
	assert.True(t, trades[0].ExitPrice.Equal(dec(9.50)), "got %s", trades[0].ExitPrice)
	// The evening bar itself never reached the scanner.
	assert.Len(t, sc.maxSeen, 4)
}

func TestMultiSymbolIndependentLifecycles(t *testing.T) {
	t.Parallel()

	// AAA trades every minute; BBB only on odd minutes and stops printing
	// at minute 13. The replay walks the union of both clocks, skipping
	// each symbol's gaps, and each position lives on its own series.
	var bars []market.Bar
	for i := 0; i < 20; i++ {
		bars = append(bars, mkBar("AAA", i, 10.00, 10.05, 9.95, 10.00))
	}
	for i := 1; i <= 13; i += 2 {
		bars = append(bars, mkBar("BBB", i, 20.00, 20.05, 19.95, 20.00))
	}
	ds := mustDataSet(t, bars)

	sc := &scriptedScanner{script: map[time.Time][]scanner.Candidate{
		t0.Add(5 * time.Minute): {longAt("AAA", 10.00, 9.00, 0)},
		t0.Add(7 * time.Minute): {longAt("BBB", 20.00, 19.00, 0)},
	}}
	ev := &allowAll{qty: 100}

	trades, sum := runEngine(t, ds, plainOptions("AAA", "BBB"), sc, ev)

	require.Len(t, trades, 2)
	assert.Equal(t, 2, sum.Filled)
	assert.Equal(t, 2, ev.evals)

	bysym := map[string]Trade{}
	for _, tr := range trades {
		bysym[tr.Symbol] = tr
	}

	aaa := bysym["AAA"]
	require.Equal(t, OutcomeEndOfDay, aaa.Outcome)
	assert.Equal(t, t0.Add(6*time.Minute), aaa.EntryTime)
	assert.Equal(t, t0.Add(19*time.Minute), aaa.ExitTime)

	// BBB has no bar at minute 8, so the fill lands on its next print, and
	// it closes at its own final bar, not AAA's.
	bbb := bysym["BBB"]
	require.Equal(t, OutcomeEndOfDay, bbb.Outcome)
	assert.Equal(t, t0.Add(9*time.Minute), bbb.EntryTime)
	assert.Equal(t, t0.Add(13*time.Minute), bbb.ExitTime)
}

func TestCancellationAbortsCleanly(t *testing.T) {
	t.Parallel()

	bars := flatBars("TEST", 10, 10.00)
	ds := mustDataSet(t, bars)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := New(ds, plainOptions("TEST"), &scriptedScanner{}, &allowAll{qty: 1})
	require.NoError(t, err)

	trades, _, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, trades)
}

func TestNewRejectsBadOptions(t *testing.T) {
	t.Parallel()

	ds := mustDataSet(t, flatBars("TEST", 5, 10.00))

	_, err := New(ds, plainOptions(), &scriptedScanner{}, &allowAll{})
	assert.Error(t, err, "empty symbol list")

	opts := plainOptions("TEST")
	opts.MaxBarsToFillEntry = 0
	_, err = New(ds, opts, &scriptedScanner{}, &allowAll{})
	assert.Error(t, err)
}
