package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/techben7/traidr/backtest"
	"github.com/techben7/traidr/optimize"
)

// SQLite is the durable Journal backed by a single database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// RecordRun stores one run and its full ledger in a single transaction.
func (j *SQLite) RecordRun(ctx context.Context, run RunRecord, trades []backtest.Trade) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, scanner, timeframe, symbols, tie_break,
		 trades, filled, no_fills, wins, losses,
		 total_pnl, win_rate, avg_r, profit_factor, max_drawdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Created, run.Scanner, run.Timeframe, run.Symbols, run.TieBreak,
		run.Trades, run.Filled, run.NoFills, run.Wins, run.Losses,
		run.TotalPnL.String(), run.WinRate, run.AvgR, run.ProfitFactor, run.MaxDrawdown.String(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades
		(run_id, symbol, direction, outcome, quantity,
		 signal_time, entry_time, exit_time,
		 entry_fill, exit_price, pnl, r_multiple)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		r := tradeRow(run.RunID, t)
		_, err := stmt.ExecContext(ctx,
			r.RunID, r.Symbol, r.Direction, r.Outcome, r.Quantity,
			r.SignalTime, r.EntryTime, r.ExitTime,
			r.EntryFill.String(), r.ExitPrice.String(), r.PnL.String(), r.RMultiple.String(),
		)
		if err != nil {
			return fmt.Errorf("insert trade %s/%s: %w", r.RunID, r.Symbol, err)
		}
	}

	return tx.Commit()
}

// RecordOptimization stores every ranked trial of one optimization run.
func (j *SQLite) RecordOptimization(ctx context.Context, res *optimize.Result) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO opt_trials
		(run_id, trial_id, seq, rank, params_json,
		 train_score, test_score, final_score, penalized)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range res.Trials {
		params, err := json.Marshal(t.Params)
		if err != nil {
			return fmt.Errorf("marshal trial %s params: %w", t.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			res.RunID, t.ID, t.Seq, t.Rank, string(params),
			t.TrainScore, t.TestScore, t.FinalScore, t.Penalized,
		)
		if err != nil {
			return fmt.Errorf("insert trial %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
