package optimize

import (
	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/backtest"
)

// lowSamplePenalty demotes trials with too few filled trades to the bottom
// of the ranking without excluding them: the full table stays inspectable.
const lowSamplePenalty = 1000.0

// Weights configure the composite fitness score and the train/test blend.
type Weights struct {
	AvgR         float64 `json:"avg_r" yaml:"avg_r"`
	ProfitFactor float64 `json:"profit_factor" yaml:"profit_factor"`
	WinRate      float64 `json:"win_rate" yaml:"win_rate"`
	MinWinRate   float64 `json:"min_win_rate" yaml:"min_win_rate"` // win rate below this subtracts
	Drawdown     float64 `json:"drawdown" yaml:"drawdown"`
	NoFill       float64 `json:"no_fill" yaml:"no_fill"`

	TrainWeight float64 `json:"train_weight" yaml:"train_weight"`
	TestWeight  float64 `json:"test_weight" yaml:"test_weight"`

	// MinFilledTrades is the floor below which a trial (train or test) is
	// penalized as statistically unreliable.
	MinFilledTrades int `json:"min_filled_trades" yaml:"min_filled_trades"`
}

// DefaultWeights favors out-of-sample performance and punishes drawdown.
func DefaultWeights() Weights {
	return Weights{
		AvgR:            1.0,
		ProfitFactor:    0.5,
		WinRate:         2.0,
		MinWinRate:      0.40,
		Drawdown:        3.0,
		NoFill:          1.0,
		TrainWeight:     0.4,
		TestWeight:      0.6,
		MinFilledTrades: 20,
	}
}

// Score computes the composite fitness of one run:
//
//	AvgR*wR + PF*wPF + (WinRate-minWR)*wWR - DrawdownPct*wDD - NoFillFrac*wNF
//
// Drawdown is normalized by account equity so runs at different account
// sizes remain comparable.
func Score(s backtest.Summary, equity decimal.Decimal, w Weights) float64 {
	var ddPct float64
	if equity.IsPositive() {
		ddPct, _ = s.MaxDrawdown.Div(equity).Float64()
	}

	return s.AvgR*w.AvgR +
		s.ProfitFactor*w.ProfitFactor +
		(s.WinRate-w.MinWinRate)*w.WinRate -
		ddPct*w.Drawdown -
		s.NoFillFraction*w.NoFill
}

// Blend combines train and test scores into the final ranking score,
// applying the low-sample penalty when either leg has too few fills.
func Blend(trainScore, testScore float64, trainFilled, testFilled int, w Weights) (float64, bool) {
	final := trainScore*w.TrainWeight + testScore*w.TestWeight
	if w.MinFilledTrades > 0 && (trainFilled < w.MinFilledTrades || testFilled < w.MinFilledTrades) {
		return final - lowSamplePenalty, true
	}
	return final, false
}
