package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ulikunitz/xz"

	"github.com/techben7/traidr/market"
)

// CSVSource reads per-symbol bar files from a directory. It looks for
// <SYMBOL>_<timeframe>.csv and falls back to the same name with a .xz
// suffix (archived datasets are stored xz-compressed).
//
// Expected columns: time,open,high,low,close,volume with an RFC3339 UTC
// timestamp and a single header row.
type CSVSource struct {
	Dir string
}

func (s *CSVSource) GetHistoricalBars(ctx context.Context, symbols []string, from, to time.Time, timeframe string) ([]market.Bar, error) {
	var out []market.Bar
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars, err := s.readSymbol(sym, timeframe, from, to)
		if err != nil {
			return nil, fmt.Errorf("csv source %s: %w", sym, err)
		}
		out = append(out, bars...)
	}
	return out, nil
}

func (s *CSVSource) readSymbol(symbol, timeframe string, from, to time.Time) ([]market.Bar, error) {
	base := filepath.Join(s.Dir, fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), timeframe))

	f, err := os.Open(base)
	if err == nil {
		defer f.Close()
		return parseBars(f, symbol, from, to)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	xf, err := os.Open(base + ".xz")
	if err != nil {
		return nil, fmt.Errorf("no bar file %s(.xz)", base)
	}
	defer xf.Close()

	xr, err := xz.NewReader(xf)
	if err != nil {
		return nil, fmt.Errorf("open xz: %w", err)
	}
	return parseBars(xr, symbol, from, to)
}

func parseBars(r io.Reader, symbol string, from, to time.Time) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6

	// Header row.
	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var bars []market.Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		line++

		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q: %w", line, rec[0], err)
		}
		ts = ts.UTC()
		if ts.Before(from) || !ts.Before(to) {
			continue
		}

		b := market.Bar{Symbol: symbol, Time: ts}
		if b.Open, err = decimal.NewFromString(rec[1]); err != nil {
			return nil, fmt.Errorf("line %d: bad open %q: %w", line, rec[1], err)
		}
		if b.High, err = decimal.NewFromString(rec[2]); err != nil {
			return nil, fmt.Errorf("line %d: bad high %q: %w", line, rec[2], err)
		}
		if b.Low, err = decimal.NewFromString(rec[3]); err != nil {
			return nil, fmt.Errorf("line %d: bad low %q: %w", line, rec[3], err)
		}
		if b.Close, err = decimal.NewFromString(rec[4]); err != nil {
			return nil, fmt.Errorf("line %d: bad close %q: %w", line, rec[4], err)
		}
		if b.Volume, err = strconv.ParseInt(rec[5], 10, 64); err != nil {
			return nil, fmt.Errorf("line %d: bad volume %q: %w", line, rec[5], err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}
