package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techben7/traidr/backtest"
	"github.com/techben7/traidr/market"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "cfg.yaml", `
data:
  dir: ./bars
  symbols: [TSLA, NVDA]
  timeframe: 5m
  from: "2025-02-03T00:00:00Z"
  to: "2025-05-01T00:00:00Z"
backtest:
  sessions: "pre,regular"
  tie_break: optimistic
  flatten_at: "15:45"
scanner:
  name: pullback
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"TSLA", "NVDA"}, cfg.Data.Symbols)
	assert.Equal(t, "pullback", cfg.Scanner.Name)

	opts := cfg.Options()
	assert.Equal(t, backtest.OptimisticTakeProfitFirst, opts.TieBreak)
	assert.Equal(t, market.TradePreMarket|market.TradeRegular, opts.Sessions)
	assert.Equal(t, market.TimeOfDay{Hour: 15, Minute: 45}, opts.FlattenAt)
	// Defaults survive where the file is silent.
	assert.Equal(t, 400, opts.MaxWindowBars)
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "cfg.json", `{
  "data": {
    "dir": "./bars",
    "symbols": ["SPY"],
    "timeframe": "1m",
    "from": "2025-01-02T00:00:00Z",
    "to": "2025-03-01T00:00:00Z"
  }
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY"}, cfg.Data.Symbols)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"reversed window", `
data: {dir: d, symbols: [A], timeframe: 1m, from: "2025-03-01T00:00:00Z", to: "2025-01-02T00:00:00Z"}
`},
		{"unknown scanner", `
data: {dir: d, symbols: [A], timeframe: 1m, from: "2025-01-02T00:00:00Z", to: "2025-03-01T00:00:00Z"}
scanner: {name: momo}
`},
		{"bad session name", `
data: {dir: d, symbols: [A], timeframe: 1m, from: "2025-01-02T00:00:00Z", to: "2025-03-01T00:00:00Z"}
backtest: {sessions: "lunch"}
`},
		{"bad flatten time", `
data: {dir: d, symbols: [A], timeframe: 1m, from: "2025-01-02T00:00:00Z", to: "2025-03-01T00:00:00Z"}
backtest: {flatten_at: "25:99"}
`},
		{"split outside window", `
data: {dir: d, symbols: [A], timeframe: 1m, from: "2025-01-02T00:00:00Z", to: "2025-03-01T00:00:00Z", split_time: "2025-06-01T00:00:00Z"}
`},
		{"bad cooldown", `
data: {dir: d, symbols: [A], timeframe: 1m, from: "2025-01-02T00:00:00Z", to: "2025-03-01T00:00:00Z"}
risk: {symbol_cooldown: "quarter hour"}
`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, "bad.yaml", tt.body)
			_, err := LoadFromFile(path)
			assert.Error(t, err)
		})
	}
}

func TestSplitDefaultsToSeventyPercent(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Data.From = "2025-01-01T00:00:00Z"
	cfg.Data.To = "2025-01-11T00:00:00Z"
	cfg.Data.SplitTime = ""

	split := cfg.Split()
	from, to := cfg.Window()
	assert.True(t, split.After(from) && split.Before(to))
	assert.Equal(t, from.AddDate(0, 0, 7), split)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Data.Symbols = []string{"QQQ"}
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"QQQ"}, got.Data.Symbols)
}
