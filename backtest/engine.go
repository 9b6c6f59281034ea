package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/market"
	"github.com/techben7/traidr/risk"
	"github.com/techben7/traidr/scanner"
)

// RiskEvaluator gates candidates and sizes positions. *risk.Evaluator
// satisfies it; tests substitute fakes.
type RiskEvaluator interface {
	Evaluate(c scanner.Candidate, takeProfit decimal.Decimal, now time.Time) risk.Decision
	RecordFill(symbol string, now time.Time)
	RecordPnL(pnl decimal.Decimal, now time.Time)
}

// Engine replays one DataSet with one scanner and one risk evaluator.
// It is single-use: construct, Run once, read the ledger.
type Engine struct {
	ds   *market.DataSet
	opts Options
	scan scanner.Scanner
	risk RiskEvaluator

	windows map[string][]market.Bar
	cursor  map[string]int // next unconsumed index into ds.Bars(sym)
	open    map[string]*Position
	trades  []Trade
}

// New validates options and prepares an engine. The DataSet is treated as
// read-only and may be shared with other engines running concurrently.
func New(ds *market.DataSet, opts Options, scan scanner.Scanner, ev RiskEvaluator) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Symbol iteration order is part of the engine's determinism contract.
	symbols := make([]string, len(opts.Symbols))
	copy(symbols, opts.Symbols)
	sort.Strings(symbols)
	opts.Symbols = symbols

	return &Engine{
		ds:      ds,
		opts:    opts,
		scan:    scan,
		risk:    ev,
		windows: make(map[string][]market.Bar, len(opts.Symbols)),
		cursor:  make(map[string]int, len(opts.Symbols)),
		open:    make(map[string]*Position),
	}, nil
}

// Run walks the global time index in ascending order. Cancellation is
// checked once per time step; on cancellation the ledger produced so far is
// returned intact alongside ctx.Err().
func (e *Engine) Run(ctx context.Context) ([]Trade, Summary, error) {
	for _, ts := range e.ds.TimeIndex() {
		if err := ctx.Err(); err != nil {
			return e.trades, Summarize(e.trades), err
		}
		e.step(ts)
	}
	e.closeRemaining()
	return e.trades, Summarize(e.trades), nil
}

// step advances the replay to one timestamp: consume bars, run exits,
// flatten, then scan for new entries if the session allows.
func (e *Engine) step(ts time.Time) {
	arrived := e.consume(ts)

	// Exits first, in sorted symbol order for determinism.
	for _, sym := range e.opts.Symbols {
		bar, ok := arrived[sym]
		if !ok {
			continue
		}
		pos := e.open[sym]
		if pos == nil || ts.Before(pos.EntryTime) {
			// No position, or its forward-searched fill hasn't happened yet.
			continue
		}

		if px, outcome, hit := e.checkExit(pos, bar); hit {
			e.closePosition(pos, ts, px, outcome)
			continue
		}

		if !e.opts.FlattenAt.IsZero() && e.opts.FlattenAt.Reached(ts, e.ds.Location) {
			e.closePosition(pos, ts, bar.Close, OutcomeEndOfDay)
		}
	}

	// Outside the configured sessions we only manage exits.
	if !e.opts.Sessions.Contains(e.opts.Hours.Classify(ts, e.ds.Location)) {
		return
	}

	cands := e.scan.Scan(e.windows)
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Symbol != cands[j].Symbol {
			return cands[i].Symbol < cands[j].Symbol
		}
		return cands[i].Direction > cands[j].Direction
	})

	for _, c := range cands {
		if e.open[c.Symbol] != nil {
			continue
		}
		if _, known := e.cursor[c.Symbol]; !known {
			continue
		}
		e.attemptEntry(c, ts)
	}
}

// consume appends each symbol's bar at ts (if any) to its rolling window
// and returns the bars that arrived this step.
func (e *Engine) consume(ts time.Time) map[string]market.Bar {
	arrived := make(map[string]market.Bar)
	for _, sym := range e.opts.Symbols {
		series := e.ds.Bars(sym)
		i, ok := e.cursor[sym]
		if !ok {
			e.cursor[sym] = 0
			i = 0
		}
		if i >= len(series) || !series[i].Time.Equal(ts) {
			continue
		}

		e.cursor[sym] = i + 1
		arrived[sym] = series[i]

		w := append(e.windows[sym], series[i])
		if len(w) > e.opts.MaxWindowBars {
			w = w[len(w)-e.opts.MaxWindowBars:]
		}
		e.windows[sym] = w
	}
	return arrived
}

// attemptEntry sizes a candidate and searches forward for a limit fill.
// Every accepted candidate ends as exactly one Trade: an open position now
// or a NoFill record.
func (e *Engine) attemptEntry(c scanner.Candidate, ts time.Time) {
	target := c.TakeProfit
	if target.IsZero() && e.opts.TakeProfitR > 0 {
		r := c.Entry.Sub(c.Stop).Abs().Mul(decimal.NewFromFloat(e.opts.TakeProfitR))
		if c.Direction == market.Long {
			target = c.Entry.Add(r)
		} else {
			target = c.Entry.Sub(r)
		}
	}

	d := e.risk.Evaluate(c, target, ts)
	if !d.Allowed {
		return
	}

	one := decimal.NewFromInt(1)
	var limit decimal.Decimal
	if c.Direction == market.Long {
		limit = c.Entry.Mul(one.Add(e.opts.EntryBufferPct))
	} else {
		limit = c.Entry.Mul(one.Sub(e.opts.EntryBufferPct))
	}

	series := e.ds.Bars(c.Symbol)
	start := e.cursor[c.Symbol]
	end := min(start+e.opts.MaxBarsToFillEntry, len(series))

	for i := start; i < end; i++ {
		bar := series[i]
		var touched bool
		if c.Direction == market.Long {
			touched = bar.Low.LessThanOrEqual(limit)
		} else {
			touched = bar.High.GreaterThanOrEqual(limit)
		}
		if !touched {
			continue
		}

		var fill decimal.Decimal
		if c.Direction == market.Long {
			fill = limit.Mul(one.Add(e.opts.SlippagePct))
		} else {
			fill = limit.Mul(one.Sub(e.opts.SlippagePct))
		}

		e.open[c.Symbol] = &Position{
			Symbol:          c.Symbol,
			Direction:       c.Direction,
			Quantity:        d.Quantity,
			SignalTime:      ts,
			EntryTime:       bar.Time,
			EntryLimit:      limit,
			EntryFill:       fill,
			Stop:            c.Stop,
			Target:          target,
			EntryCommission: e.opts.Commission,
			Candidate:       c,
		}
		e.risk.RecordFill(c.Symbol, bar.Time)
		return
	}

	// Patience exhausted: the limit was never touched.
	e.trades = append(e.trades, Trade{
		Symbol:       c.Symbol,
		Direction:    c.Direction,
		Quantity:     d.Quantity,
		SignalTime:   ts,
		EntryLimit:   limit,
		Stop:         c.Stop,
		Target:       target,
		Outcome:      OutcomeNoFill,
		PnL:          decimal.Zero,
		RMultiple:    decimal.Zero,
		RiskPerShare: c.Entry.Sub(c.Stop).Abs(),
	})
}

// checkExit models stop/target hits within one bar. When both trigger,
// TieBreak decides; OHLC data alone cannot say which came first.
func (e *Engine) checkExit(p *Position, b market.Bar) (decimal.Decimal, Outcome, bool) {
	hasTarget := p.Target.IsPositive()

	var stopHit, targetHit bool
	switch p.Direction {
	case market.Long:
		stopHit = b.Low.LessThanOrEqual(p.Stop)
		targetHit = hasTarget && b.High.GreaterThanOrEqual(p.Target)
	case market.Short:
		stopHit = b.High.GreaterThanOrEqual(p.Stop)
		targetHit = hasTarget && b.Low.LessThanOrEqual(p.Target)
	}

	switch {
	case stopHit && targetHit:
		if e.opts.TieBreak == OptimisticTakeProfitFirst {
			return p.Target, OutcomeTakeProfit, true
		}
		return p.Stop, OutcomeStop, true
	case stopHit:
		return p.Stop, OutcomeStop, true
	case targetHit:
		return p.Target, OutcomeTakeProfit, true
	}
	return decimal.Zero, "", false
}

// closePosition converts an open position into its terminal Trade, applying
// exit slippage against the trader and the exit commission.
func (e *Engine) closePosition(p *Position, ts time.Time, rawExit decimal.Decimal, outcome Outcome) {
	one := decimal.NewFromInt(1)

	var exit decimal.Decimal
	if p.Direction == market.Long {
		exit = rawExit.Mul(one.Sub(e.opts.SlippagePct))
	} else {
		exit = rawExit.Mul(one.Add(e.opts.SlippagePct))
	}

	qty := decimal.NewFromInt(p.Quantity)
	gross := p.Direction.Sign().Mul(exit.Sub(p.EntryFill)).Mul(qty)
	pnl := gross.Sub(p.EntryCommission).Sub(e.opts.Commission)

	riskPerShare := p.EntryFill.Sub(p.Stop).Abs()
	var rMultiple decimal.Decimal
	if riskPerShare.IsPositive() && p.Quantity > 0 {
		rMultiple = pnl.Div(qty).Div(riskPerShare)
	}

	var rewardPerShare decimal.Decimal
	if p.Target.IsPositive() {
		rewardPerShare = p.Target.Sub(p.EntryFill).Abs()
	}

	e.trades = append(e.trades, Trade{
		Symbol:         p.Symbol,
		Direction:      p.Direction,
		Quantity:       p.Quantity,
		SignalTime:     p.SignalTime,
		EntryTime:      p.EntryTime,
		ExitTime:       ts,
		EntryLimit:     p.EntryLimit,
		EntryFill:      p.EntryFill,
		Stop:           p.Stop,
		Target:         p.Target,
		ExitPrice:      exit,
		Outcome:        outcome,
		PnL:            pnl,
		RMultiple:      rMultiple,
		RiskPerShare:   riskPerShare,
		RewardPerShare: rewardPerShare,
	})

	e.risk.RecordPnL(pnl, ts)
	delete(e.open, p.Symbol)
}

// closeRemaining force-closes anything still open once the time index is
// exhausted, at each symbol's last known close.
func (e *Engine) closeRemaining() {
	for _, sym := range e.opts.Symbols {
		pos := e.open[sym]
		if pos == nil {
			continue
		}
		w := e.windows[sym]
		if len(w) == 0 {
			continue
		}
		last := w[len(w)-1]
		e.closePosition(pos, last.Time, last.Close, OutcomeEndOfDay)
	}
}
