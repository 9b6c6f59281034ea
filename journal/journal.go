// Package journal persists backtest runs, their trade ledgers, and
// optimization trials so results survive the process and can be compared
// across sessions.
package journal

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/backtest"
	"github.com/techben7/traidr/optimize"
)

// RunRecord is one completed simulation: identity, the configuration that
// shaped it, and the summary stats.
type RunRecord struct {
	RunID     string
	Created   time.Time
	Scanner   string
	Timeframe string
	Symbols   string // comma-joined
	TieBreak  string

	Trades  int
	Filled  int
	NoFills int
	Wins    int
	Losses  int

	TotalPnL     decimal.Decimal
	WinRate      float64
	AvgR         float64
	ProfitFactor float64
	MaxDrawdown  decimal.Decimal
}

// TradeRow is one terminal trade attributed to a run.
type TradeRow struct {
	RunID      string
	Symbol     string
	Direction  string
	Outcome    string
	Quantity   int64
	SignalTime time.Time
	EntryTime  time.Time
	ExitTime   time.Time
	EntryFill  decimal.Decimal
	ExitPrice  decimal.Decimal
	PnL        decimal.Decimal
	RMultiple  decimal.Decimal
}

// TrialRow is one optimization trial attributed to an optimization run.
type TrialRow struct {
	RunID      string
	TrialID    string
	Seq        int
	Rank       int
	ParamsJSON string
	TrainScore float64
	TestScore  float64
	FinalScore float64
	Penalized  bool
}

// Journal records simulation output.
type Journal interface {
	RecordRun(ctx context.Context, run RunRecord, trades []backtest.Trade) error
	RecordOptimization(ctx context.Context, res *optimize.Result) error
	Close() error
}

// NewRunRecord builds a RunRecord from a finished simulation.
func NewRunRecord(runID, scannerName string, opts backtest.Options, s backtest.Summary) RunRecord {
	return RunRecord{
		RunID:        runID,
		Created:      time.Now().UTC(),
		Scanner:      scannerName,
		Timeframe:    opts.Timeframe,
		Symbols:      strings.Join(opts.Symbols, ","),
		TieBreak:     opts.TieBreak.String(),
		Trades:       s.Trades,
		Filled:       s.Filled,
		NoFills:      s.NoFills,
		Wins:         s.Wins,
		Losses:       s.Losses,
		TotalPnL:     s.TotalPnL,
		WinRate:      s.WinRate,
		AvgR:         s.AvgR,
		ProfitFactor: s.ProfitFactor,
		MaxDrawdown:  s.MaxDrawdown,
	}
}

func tradeRow(runID string, t backtest.Trade) TradeRow {
	return TradeRow{
		RunID:      runID,
		Symbol:     t.Symbol,
		Direction:  t.Direction.String(),
		Outcome:    string(t.Outcome),
		Quantity:   t.Quantity,
		SignalTime: t.SignalTime,
		EntryTime:  t.EntryTime,
		ExitTime:   t.ExitTime,
		EntryFill:  t.EntryFill,
		ExitPrice:  t.ExitPrice,
		PnL:        t.PnL,
		RMultiple:  t.RMultiple,
	}
}
