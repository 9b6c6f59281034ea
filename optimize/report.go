package optimize

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// WriteRanking serializes the full ranked trial list as indented JSON.
func WriteRanking(path string, res *Result) error {
	return writeJSON(path, res)
}

// WriteTopK serializes only the top-K subset, the file meant for quick
// inspection after a long run.
func WriteTopK(path string, res *Result) error {
	return writeJSON(path, struct {
		RunID   string  `json:"run_id"`
		Scanner string  `json:"scanner"`
		TopK    []Trial `json:"top_k"`
	}{
		RunID:   res.RunID,
		Scanner: res.Scanner,
		TopK:    res.TopK,
	})
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// PrintRanking writes a compact human-readable leaderboard.
func PrintRanking(w io.Writer, res *Result, limit int) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Optimization %s (%s scanner, %d trials)\n", res.RunID, res.Scanner, len(res.Trials))
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "%-5s %-9s %-9s %-9s %-7s %-7s %s\n",
		"rank", "final", "train", "test", "fills", "winrate", "flags")

	for _, t := range res.Trials {
		if limit > 0 && t.Rank > limit {
			break
		}
		flags := ""
		if t.Penalized {
			flags = "LOW-SAMPLE"
		}
		fmt.Fprintf(w, "%-5d %-9.3f %-9.3f %-9.3f %-7d %-7.2f %s\n",
			t.Rank, t.FinalScore, t.TrainScore, t.TestScore,
			t.Train.Filled+t.Test.Filled, t.Test.WinRate, flags)
	}
}
