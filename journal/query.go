package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// GetRun returns a single run record by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, scanner, timeframe, symbols, tie_break,
		       trades, filled, no_fills, wins, losses,
		       total_pnl, win_rate, avg_r, profit_factor, max_drawdown
		FROM runs
		WHERE run_id = ?`, runID)

	var (
		rec            RunRecord
		totalPnL, maxDD string
	)
	err := row.Scan(
		&rec.RunID, &rec.Created, &rec.Scanner, &rec.Timeframe, &rec.Symbols, &rec.TieBreak,
		&rec.Trades, &rec.Filled, &rec.NoFills, &rec.Wins, &rec.Losses,
		&totalPnL, &rec.WinRate, &rec.AvgR, &rec.ProfitFactor, &maxDD,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}

	if rec.TotalPnL, err = decimal.NewFromString(totalPnL); err != nil {
		return RunRecord{}, fmt.Errorf("run %q total_pnl: %w", runID, err)
	}
	if rec.MaxDrawdown, err = decimal.NewFromString(maxDD); err != nil {
		return RunRecord{}, fmt.Errorf("run %q max_drawdown: %w", runID, err)
	}
	return rec, nil
}

// ListTrades returns a run's ledger ordered by signal time.
func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]TradeRow, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, symbol, direction, outcome, quantity,
		       signal_time, entry_time, exit_time,
		       entry_fill, exit_price, pnl, r_multiple
		FROM trades
		WHERE run_id = ?
		ORDER BY signal_time ASC, symbol ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRow
	for rows.Next() {
		var (
			r                            TradeRow
			fill, exitPx, pnl, rMultiple string
		)
		err := rows.Scan(
			&r.RunID, &r.Symbol, &r.Direction, &r.Outcome, &r.Quantity,
			&r.SignalTime, &r.EntryTime, &r.ExitTime,
			&fill, &exitPx, &pnl, &rMultiple,
		)
		if err != nil {
			return nil, err
		}
		if r.EntryFill, err = decimal.NewFromString(fill); err != nil {
			return nil, err
		}
		if r.ExitPrice, err = decimal.NewFromString(exitPx); err != nil {
			return nil, err
		}
		if r.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, err
		}
		if r.RMultiple, err = decimal.NewFromString(rMultiple); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTrials returns an optimization run's trials, best rank first.
func (j *SQLite) ListTrials(ctx context.Context, runID string) ([]TrialRow, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, trial_id, seq, rank, params_json,
		       train_score, test_score, final_score, penalized
		FROM opt_trials
		WHERE run_id = ?
		ORDER BY rank ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrialRow
	for rows.Next() {
		var r TrialRow
		err := rows.Scan(
			&r.RunID, &r.TrialID, &r.Seq, &r.Rank, &r.ParamsJSON,
			&r.TrainScore, &r.TestScore, &r.FinalScore, &r.Penalized,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
