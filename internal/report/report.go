// Package report renders tuning runs for the console.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/treasury-tuner/internal/tuner"
)

// Money renders an amount compactly: $100M, $2.5M, $750K, $420. Digits past
// the first decimal are truncated.
func Money(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1e9:
		return sign + "$" + humanize.FtoaWithDigits(v/1e9, 1) + "B"
	case v >= 1e6:
		return sign + "$" + humanize.FtoaWithDigits(v/1e6, 1) + "M"
	case v >= 1e3:
		return sign + "$" + humanize.FtoaWithDigits(v/1e3, 1) + "K"
	default:
		return sign + "$" + humanize.FtoaWithDigits(v, 0)
	}
}

// Exact renders an amount with thousands separators: $100,000,000.
func Exact(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

// Percent renders a rate in [0,1] as "48.2%".
func Percent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

// WriteResult prints the best match for one agent count.
func WriteResult(w io.Writer, r *tuner.Result) {
	fmt.Fprintf(w, "\n--- %d players (%s) ---\n", r.NumAgents, r.Roster)
	fmt.Fprintf(w, "Scanned %s parameter combinations\n", humanize.Comma(int64(r.Candidates)))
	fmt.Fprintf(w, "Best match: Treasury=%s, MaxExtract=%s, Interest=%s, Turns=%d\n",
		Money(r.Params.Treasury), Money(r.Params.MaxExtraction), Percent(r.Params.InterestRate), r.Params.MaxTurns)
	fmt.Fprintf(w, "Resulting bankruptcy rate: %s\n", Percent(r.Rate))
}

// WriteRun prints every result followed by a summary table.
func WriteRun(w io.Writer, run *tuner.Run) {
	for _, r := range run.Results {
		WriteResult(w, r)
	}

	fmt.Fprintf(w, "\n\n=== RECOMMENDED PARAMETERS (%s search, %s games per candidate) ===\n",
		run.Search, humanize.Comma(int64(run.NumGames)))
	header := fmt.Sprintf("%-8s %-14s %-12s %-9s %-6s %s", "Players", "Treasury", "MaxExtract", "Interest", "Turns", "Bankruptcy")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))
	for _, r := range run.Results {
		fmt.Fprintf(w, "%-8d %-14s %-12s %-9s %-6d %s\n",
			r.NumAgents, Exact(r.Params.Treasury), Money(r.Params.MaxExtraction),
			Percent(r.Params.InterestRate), r.Params.MaxTurns, Percent(r.Rate))
	}
	fmt.Fprintf(w, "\nRun %s  seed=%d  took %s\n", run.ID, run.Seed, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
}
