package report

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// HeadwaySummary describes the spacing between a lane's accepted crossings,
// in frames. A lane needs at least two crossings to have any headways.
type HeadwaySummary struct {
	Lane      string
	Crossings int
	Mean      float64 // mean frames between consecutive crossings
	P50       float64
	P85       float64
}

// SummarizeHeadways computes per-lane headway statistics from the frame
// indices of accepted crossings. The input map is keyed by lane name; each
// slice need not be sorted.
func SummarizeHeadways(crossings map[string][]int64) []HeadwaySummary {
	lanes := make([]string, 0, len(crossings))
	for lane := range crossings {
		lanes = append(lanes, lane)
	}
	sort.Strings(lanes)

	out := make([]HeadwaySummary, 0, len(lanes))
	for _, lane := range lanes {
		seqs := append([]int64(nil), crossings[lane]...)
		sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

		s := HeadwaySummary{Lane: lane, Crossings: len(seqs)}
		if len(seqs) >= 2 {
			gaps := make([]float64, len(seqs)-1)
			for i := 1; i < len(seqs); i++ {
				gaps[i-1] = float64(seqs[i] - seqs[i-1])
			}
			sort.Float64s(gaps)
			s.Mean = stat.Mean(gaps, nil)
			s.P50 = stat.Quantile(0.5, stat.Empirical, gaps, nil)
			s.P85 = stat.Quantile(0.85, stat.Empirical, gaps, nil)
		}
		out = append(out, s)
	}
	return out
}

// WriteSummaries renders the headway table beneath a count report.
func WriteSummaries(w io.Writer, summaries []HeadwaySummary) error {
	if _, err := fmt.Fprintln(w, "Lane | Crossings | Mean Headway | P50 | P85"); err != nil {
		return err
	}
	for _, s := range summaries {
		if s.Crossings < 2 {
			if _, err := fmt.Fprintf(w, "%s | %d | - | - | -\n", s.Lane, s.Crossings); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s | %d | %.1f | %.1f | %.1f\n",
			s.Lane, s.Crossings, s.Mean, s.P50, s.P85); err != nil {
			return err
		}
	}
	return nil
}
