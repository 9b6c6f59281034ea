package optimize

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/techben7/traidr/backtest"
	"github.com/techben7/traidr/market"
	"github.com/techben7/traidr/pkg/id"
	"github.com/techben7/traidr/risk"
	"github.com/techben7/traidr/scanner"
)

// Config drives one optimization run.
type Config struct {
	ScannerName string
	BaseParams  scanner.Params // fixed indicator periods; thresholds get sampled

	// Options is the base simulator configuration; sampled exit/fill knobs
	// override MaxBarsToFillEntry, EntryBufferPct, and TakeProfitR per trial.
	Options backtest.Options
	Policy  risk.Policy

	Ranges  Ranges
	Weights Weights

	Trials  int
	TopK    int
	Seed    int64
	Workers int // 0 means GOMAXPROCS
}

func (c Config) validate() error {
	if c.Trials <= 0 {
		return fmt.Errorf("optimize config: Trials must be positive, got %d", c.Trials)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("optimize config: TopK must be positive, got %d", c.TopK)
	}
	if err := c.Ranges.Validate(); err != nil {
		return err
	}
	return c.Options.Validate()
}

// Trial is one sampled parameter set and its train/test results.
type Trial struct {
	ID  string `json:"id"`
	Seq int    `json:"seq"` // sampling sequence number, ties broken by it

	Params TrialParams `json:"params"`

	Train backtest.Summary `json:"train"`
	Test  backtest.Summary `json:"test"`

	TrainScore float64 `json:"train_score"`
	TestScore  float64 `json:"test_score"`
	FinalScore float64 `json:"final_score"`
	Penalized  bool    `json:"penalized"` // too few filled trades

	Rank int `json:"rank"`
}

// Result is a completed optimization run: every trial ranked best-first,
// plus the top-K subset for quick inspection.
type Result struct {
	RunID   string        `json:"run_id"`
	Scanner string        `json:"scanner"`
	Trials  []Trial       `json:"trials"`
	TopK    []Trial       `json:"top_k"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Driver runs randomized-search trials over a fixed train/test split.
// Both datasets are loaded once and shared read-only across all trials.
type Driver struct {
	cfg   Config
	train *market.DataSet
	test  *market.DataSet
	log   zerolog.Logger
}

// NewDriver validates the configuration and the train/test split. The two
// datasets must not overlap in time; an overlap silently leaks in-sample
// information into the out-of-sample score.
func NewDriver(cfg Config, train, test *market.DataSet, log zerolog.Logger) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if train == nil || train.Empty() {
		return nil, fmt.Errorf("optimize: empty train dataset")
	}
	if test == nil || test.Empty() {
		return nil, fmt.Errorf("optimize: empty test dataset")
	}
	if overlaps(train, test) {
		return nil, fmt.Errorf("optimize: train and test date ranges overlap")
	}
	return &Driver{cfg: cfg, train: train, test: test, log: log}, nil
}

func overlaps(a, b *market.DataSet) bool {
	ai, bi := a.TimeIndex(), b.TimeIndex()
	aStart, aEnd := ai[0], ai[len(ai)-1]
	bStart, bEnd := bi[0], bi[len(bi)-1]
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// Run executes all trials across a worker pool and returns them ranked by
// FinalScore, best first. A cancelled context aborts between trials; an
// underperforming trial never aborts the run, only structural failures do.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	workers := d.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > d.cfg.Trials {
		workers = d.cfg.Trials
	}

	jobs := make(chan int, d.cfg.Trials)
	for seq := 0; seq < d.cfg.Trials; seq++ {
		jobs <- seq
	}
	close(jobs)

	out := make(chan Trial, d.cfg.Trials)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seq := range jobs {
				// Cancellation is checked once per trial; the simulator
				// checks it once per time step internally.
				if ctx.Err() != nil {
					return
				}
				trial, err := d.runTrial(ctx, seq)
				if err != nil {
					errs <- err
					return
				}
				out <- trial
			}
		}()
	}

	wg.Wait()
	close(out)
	close(errs)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := <-errs; err != nil {
		return nil, err
	}

	trials := make([]Trial, 0, d.cfg.Trials)
	for t := range out {
		trials = append(trials, t)
	}

	sort.Slice(trials, func(i, j int) bool {
		if trials[i].FinalScore != trials[j].FinalScore {
			return trials[i].FinalScore > trials[j].FinalScore
		}
		return trials[i].Seq < trials[j].Seq
	})
	for i := range trials {
		trials[i].Rank = i + 1
	}

	topK := d.cfg.TopK
	if topK > len(trials) {
		topK = len(trials)
	}

	res := &Result{
		RunID:   id.New(),
		Scanner: d.cfg.ScannerName,
		Trials:  trials,
		TopK:    trials[:topK],
		Elapsed: time.Since(start),
	}

	if len(trials) > 0 {
		best := trials[0]
		d.log.Info().
			Str("run_id", res.RunID).
			Int("trials", len(trials)).
			Float64("best_score", best.FinalScore).
			Dur("elapsed", res.Elapsed).
			Msg("optimization complete")
	}
	return res, nil
}

// runTrial samples one parameter set and scores it on train and test data
// with fresh risk state for each leg. The per-trial RNG is seeded from the
// run seed and the sequence number, so results are reproducible regardless
// of worker scheduling.
func (d *Driver) runTrial(ctx context.Context, seq int) (Trial, error) {
	rng := rand.New(rand.NewSource(d.cfg.Seed + int64(seq)))
	params := d.cfg.Ranges.Sample(rng, d.cfg.BaseParams)

	trainSum, err := d.runLeg(ctx, d.train, params)
	if err != nil {
		return Trial{}, err
	}
	testSum, err := d.runLeg(ctx, d.test, params)
	if err != nil {
		return Trial{}, err
	}

	trainScore := Score(trainSum, d.cfg.Policy.AccountEquity, d.cfg.Weights)
	testScore := Score(testSum, d.cfg.Policy.AccountEquity, d.cfg.Weights)
	final, penalized := Blend(trainScore, testScore, trainSum.Filled, testSum.Filled, d.cfg.Weights)

	d.log.Debug().
		Int("seq", seq).
		Int("train_filled", trainSum.Filled).
		Int("test_filled", testSum.Filled).
		Float64("final_score", final).
		Bool("penalized", penalized).
		Msg("trial complete")

	return Trial{
		ID:         uuid.NewString(),
		Seq:        seq,
		Params:     params,
		Train:      trainSum,
		Test:       testSum,
		TrainScore: trainScore,
		TestScore:  testScore,
		FinalScore: final,
		Penalized:  penalized,
	}, nil
}

// runLeg runs the simulator once over one dataset with the sampled params.
func (d *Driver) runLeg(ctx context.Context, ds *market.DataSet, params TrialParams) (backtest.Summary, error) {
	sc, err := scanner.ByName(d.cfg.ScannerName, params.Scanner)
	if err != nil {
		return backtest.Summary{}, err
	}

	opts := d.cfg.Options
	opts.MaxBarsToFillEntry = params.MaxBarsToFillEntry
	opts.EntryBufferPct = decimal.NewFromFloat(params.EntryBufferPct)
	opts.TakeProfitR = params.TakeProfitR

	ev := risk.NewEvaluator(d.cfg.Policy, risk.NewState(ds.Location))
	engine, err := backtest.New(ds, opts, sc, ev)
	if err != nil {
		return backtest.Summary{}, err
	}

	_, sum, err := engine.Run(ctx)
	if err != nil {
		return backtest.Summary{}, err
	}
	return sum, nil
}
