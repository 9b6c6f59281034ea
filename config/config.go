// Package config loads and validates the complete application
// configuration from a YAML or JSON file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/techben7/traidr/backtest"
	"github.com/techben7/traidr/market"
	"github.com/techben7/traidr/optimize"
	"github.com/techben7/traidr/risk"
	"github.com/techben7/traidr/scanner"
)

var validate = validator.New()

// Config is the full application configuration.
type Config struct {
	Data     DataConfig     `json:"data" yaml:"data" validate:"required"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Scanner  ScannerConfig  `json:"scanner" yaml:"scanner"`
	Optimize OptimizeConfig `json:"optimize" yaml:"optimize"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// DataConfig locates the bar data and defines the train/test split.
type DataConfig struct {
	Dir       string   `json:"dir" yaml:"dir" validate:"required"`
	Symbols   []string `json:"symbols" yaml:"symbols" validate:"required,min=1"`
	Timeframe string   `json:"timeframe" yaml:"timeframe" validate:"required"`
	Location  string   `json:"location" yaml:"location"` // IANA zone, default America/New_York

	From      string `json:"from" yaml:"from" validate:"required"`             // RFC3339
	To        string `json:"to" yaml:"to" validate:"required"`                 // RFC3339, exclusive
	SplitTime string `json:"split_time,omitempty" yaml:"split_time,omitempty"` // train/test boundary
}

// BacktestConfig maps onto backtest.Options.
type BacktestConfig struct {
	MaxWindowBars      int     `json:"max_window_bars" yaml:"max_window_bars"`
	MaxBarsToFillEntry int     `json:"max_bars_to_fill_entry" yaml:"max_bars_to_fill_entry"`
	EntryBufferPct     float64 `json:"entry_buffer_pct" yaml:"entry_buffer_pct" validate:"gte=0"`
	SlippagePct        float64 `json:"slippage_pct" yaml:"slippage_pct" validate:"gte=0"`
	Commission         float64 `json:"commission" yaml:"commission" validate:"gte=0"`
	TakeProfitR        float64 `json:"take_profit_r" yaml:"take_profit_r" validate:"gte=0"`
	FlattenAt          string  `json:"flatten_at" yaml:"flatten_at"` // "15:55", empty disables
	Sessions           string  `json:"sessions" yaml:"sessions"`     // "regular", "pre,regular,after", "all"
	TieBreak           string  `json:"tie_break" yaml:"tie_break" validate:"omitempty,oneof=conservative optimistic"`
}

// RiskConfig maps onto risk.Policy.
type RiskConfig struct {
	AccountEquity      float64 `json:"account_equity" yaml:"account_equity" validate:"gt=0"`
	RiskPerTradePct    float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct" validate:"gt=0,lte=1"`
	MaxShares          int64   `json:"max_shares" yaml:"max_shares" validate:"gt=0"`
	MaxNotional        float64 `json:"max_notional" yaml:"max_notional" validate:"gt=0"`
	MaxDailyTrades     int     `json:"max_daily_trades" yaml:"max_daily_trades" validate:"gte=0"`
	MaxDailyLossPct    float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct" validate:"gte=0,lte=1"`
	SymbolCooldown     string  `json:"symbol_cooldown" yaml:"symbol_cooldown"` // e.g. "15m"
	MinStopDistancePct float64 `json:"min_stop_distance_pct" yaml:"min_stop_distance_pct" validate:"gte=0"`
	MaxStopDistancePct float64 `json:"max_stop_distance_pct" yaml:"max_stop_distance_pct" validate:"gte=0"`
	MinRewardRisk      float64 `json:"min_reward_risk" yaml:"min_reward_risk" validate:"gte=0"`
}

// ScannerConfig selects the setup scanner and its thresholds.
type ScannerConfig struct {
	Name   string         `json:"name" yaml:"name" validate:"required,oneof=breakout flag pullback"`
	Params scanner.Params `json:"params" yaml:"params"`
}

// OptimizeConfig maps onto optimize.Config.
type OptimizeConfig struct {
	Trials  int              `json:"trials" yaml:"trials" validate:"gte=0"`
	TopK    int              `json:"top_k" yaml:"top_k" validate:"gte=0"`
	Seed    int64            `json:"seed" yaml:"seed"`
	Workers int              `json:"workers" yaml:"workers" validate:"gte=0"`
	Ranges  optimize.Ranges  `json:"ranges" yaml:"ranges"`
	Weights optimize.Weights `json:"weights" yaml:"weights"`
}

// JournalConfig names the output files.
type JournalConfig struct {
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	LedgerFile  string `json:"ledger_file,omitempty" yaml:"ledger_file,omitempty"`
	RankingFile string `json:"ranking_file,omitempty" yaml:"ranking_file,omitempty"`
	TopKFile    string `json:"top_k_file,omitempty" yaml:"top_k_file,omitempty"`
}

// LoadFromFile reads a YAML or JSON config and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the config, YAML for .yaml/.yml paths, JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks field constraints and everything the struct tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := time.LoadLocation(c.Data.Location); err != nil {
		return fmt.Errorf("data.location: %w", err)
	}
	from, err := time.Parse(time.RFC3339, c.Data.From)
	if err != nil {
		return fmt.Errorf("data.from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, c.Data.To)
	if err != nil {
		return fmt.Errorf("data.to: %w", err)
	}
	if !to.After(from) {
		return fmt.Errorf("data.to must be after data.from")
	}
	if c.Data.SplitTime != "" {
		split, err := time.Parse(time.RFC3339, c.Data.SplitTime)
		if err != nil {
			return fmt.Errorf("data.split_time: %w", err)
		}
		if !split.After(from) || !split.Before(to) {
			return fmt.Errorf("data.split_time must fall inside [from, to)")
		}
	}

	if c.Backtest.FlattenAt != "" {
		if _, err := parseTimeOfDay(c.Backtest.FlattenAt); err != nil {
			return fmt.Errorf("backtest.flatten_at: %w", err)
		}
	}
	if _, err := parseSessions(c.Backtest.Sessions); err != nil {
		return fmt.Errorf("backtest.sessions: %w", err)
	}
	if c.Risk.SymbolCooldown != "" {
		if _, err := time.ParseDuration(c.Risk.SymbolCooldown); err != nil {
			return fmt.Errorf("risk.symbol_cooldown: %w", err)
		}
	}
	if c.Risk.MaxStopDistancePct > 0 && c.Risk.MaxStopDistancePct < c.Risk.MinStopDistancePct {
		return fmt.Errorf("risk.max_stop_distance_pct must be >= min_stop_distance_pct")
	}
	if c.Optimize.Trials > 0 {
		if err := c.Optimize.Ranges.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Location returns the market time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Data.Location)
	if err != nil {
		// Validate already rejected bad zones.
		panic(err)
	}
	return loc
}

// Window returns the configured [from, to) data range.
func (c *Config) Window() (time.Time, time.Time) {
	from, _ := time.Parse(time.RFC3339, c.Data.From)
	to, _ := time.Parse(time.RFC3339, c.Data.To)
	return from, to
}

// Split returns the train/test boundary, defaulting to 70% through the
// configured window when split_time is not set.
func (c *Config) Split() time.Time {
	if c.Data.SplitTime != "" {
		t, _ := time.Parse(time.RFC3339, c.Data.SplitTime)
		return t
	}
	from, to := c.Window()
	return from.Add(time.Duration(float64(to.Sub(from)) * 0.7))
}

// Options materializes the simulator options.
func (c *Config) Options() backtest.Options {
	opts := backtest.DefaultOptions(c.Data.Symbols, c.Data.Timeframe)

	if c.Backtest.MaxWindowBars > 0 {
		opts.MaxWindowBars = c.Backtest.MaxWindowBars
	}
	if c.Backtest.MaxBarsToFillEntry > 0 {
		opts.MaxBarsToFillEntry = c.Backtest.MaxBarsToFillEntry
	}
	opts.EntryBufferPct = decimal.NewFromFloat(c.Backtest.EntryBufferPct)
	opts.SlippagePct = decimal.NewFromFloat(c.Backtest.SlippagePct)
	opts.Commission = decimal.NewFromFloat(c.Backtest.Commission)
	opts.TakeProfitR = c.Backtest.TakeProfitR

	if c.Backtest.FlattenAt == "" {
		opts.FlattenAt = market.TimeOfDay{}
	} else {
		opts.FlattenAt, _ = parseTimeOfDay(c.Backtest.FlattenAt)
	}
	opts.Sessions, _ = parseSessions(c.Backtest.Sessions)
	if c.Backtest.TieBreak == "optimistic" {
		opts.TieBreak = backtest.OptimisticTakeProfitFirst
	}
	return opts
}

// Policy materializes the risk policy.
func (c *Config) Policy() risk.Policy {
	cooldown := time.Duration(0)
	if c.Risk.SymbolCooldown != "" {
		cooldown, _ = time.ParseDuration(c.Risk.SymbolCooldown)
	}
	return risk.Policy{
		AccountEquity:      decimal.NewFromFloat(c.Risk.AccountEquity),
		RiskPerTradePct:    c.Risk.RiskPerTradePct,
		MaxShares:          c.Risk.MaxShares,
		MaxNotional:        decimal.NewFromFloat(c.Risk.MaxNotional),
		MaxDailyTrades:     c.Risk.MaxDailyTrades,
		MaxDailyLossPct:    c.Risk.MaxDailyLossPct,
		SymbolCooldown:     cooldown,
		MinStopDistancePct: c.Risk.MinStopDistancePct,
		MaxStopDistancePct: c.Risk.MaxStopDistancePct,
		MinRewardRisk:      c.Risk.MinRewardRisk,
	}
}

// OptimizeDriverConfig materializes the optimization configuration.
func (c *Config) OptimizeDriverConfig() optimize.Config {
	return optimize.Config{
		ScannerName: c.Scanner.Name,
		BaseParams:  c.Scanner.Params,
		Options:     c.Options(),
		Policy:      c.Policy(),
		Ranges:      c.Optimize.Ranges,
		Weights:     c.Optimize.Weights,
		Trials:      c.Optimize.Trials,
		TopK:        c.Optimize.TopK,
		Seed:        c.Optimize.Seed,
		Workers:     c.Optimize.Workers,
	}
}

func parseTimeOfDay(s string) (market.TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return market.TimeOfDay{}, fmt.Errorf("want HH:MM, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return market.TimeOfDay{}, fmt.Errorf("out of range: %q", s)
	}
	return market.TimeOfDay{Hour: h, Minute: m}, nil
}

func parseSessions(s string) (market.SessionMask, error) {
	if s == "" {
		return market.TradeRegular, nil
	}
	if s == "all" {
		return market.TradeAll, nil
	}
	var mask market.SessionMask
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "pre":
			mask |= market.TradePreMarket
		case "regular":
			mask |= market.TradeRegular
		case "after":
			mask |= market.TradeAfterHours
		default:
			return 0, fmt.Errorf("unknown session %q", part)
		}
	}
	return mask, nil
}

// Default returns a runnable starting configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:       "./data",
			Symbols:   []string{"AAPL"},
			Timeframe: "1m",
			Location:  "America/New_York",
			From:      "2025-01-02T00:00:00Z",
			To:        "2025-06-30T00:00:00Z",
		},
		Backtest: BacktestConfig{
			MaxWindowBars:      400,
			MaxBarsToFillEntry: 3,
			EntryBufferPct:     0.001,
			SlippagePct:        0.0005,
			Commission:         1,
			TakeProfitR:        2,
			FlattenAt:          "15:55",
			Sessions:           "regular",
			TieBreak:           "conservative",
		},
		Risk: RiskConfig{
			AccountEquity:      30_000,
			RiskPerTradePct:    0.01,
			MaxShares:          2_000,
			MaxNotional:        25_000,
			MaxDailyTrades:     10,
			MaxDailyLossPct:    0.03,
			SymbolCooldown:     "15m",
			MinStopDistancePct: 0.002,
			MaxStopDistancePct: 0.05,
			MinRewardRisk:      1.5,
		},
		Scanner: ScannerConfig{
			Name:   "breakout",
			Params: scanner.Defaults(),
		},
		Optimize: OptimizeConfig{
			Trials:  200,
			TopK:    10,
			Seed:    1,
			Workers: 0,
			Ranges:  optimize.DefaultRanges(),
			Weights: optimize.DefaultWeights(),
		},
		Journal: JournalConfig{
			DBPath:      "./traidr.db",
			LedgerFile:  "./ledger.csv",
			RankingFile: "./ranking.json",
			TopKFile:    "./topk.json",
		},
	}
}
