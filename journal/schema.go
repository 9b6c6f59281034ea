package journal

// Prices and P&L are stored as TEXT: SQLite REAL would round-trip through
// binary floats and lose the exact decimal values the simulator produced.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	scanner TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	symbols TEXT NOT NULL,
	tie_break TEXT NOT NULL,
	trades INTEGER NOT NULL,
	filled INTEGER NOT NULL,
	no_fills INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	total_pnl TEXT NOT NULL,
	win_rate REAL NOT NULL,
	avg_r REAL NOT NULL,
	profit_factor REAL NOT NULL,
	max_drawdown TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	outcome TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	signal_time DATETIME NOT NULL,
	entry_time DATETIME,
	exit_time DATETIME,
	entry_fill TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	pnl TEXT NOT NULL,
	r_multiple TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);

CREATE TABLE IF NOT EXISTS opt_trials (
	run_id TEXT NOT NULL,
	trial_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	params_json TEXT NOT NULL,
	train_score REAL NOT NULL,
	test_score REAL NOT NULL,
	final_score REAL NOT NULL,
	penalized INTEGER NOT NULL,
	PRIMARY KEY (run_id, trial_id)
);

CREATE INDEX IF NOT EXISTS idx_opt_trials_run ON opt_trials(run_id);
`
