// Package report renders and parses the end-of-run lane count report, the
// headway summary derived from recorded crossings, and an optional chart.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// header is the first line of every text report. Parse rejects files that do
// not start with it.
const header = "Lane | Vehicle Count"

// Entry is one lane's final count.
type Entry struct {
	Lane  string
	Count int64
}

// Report is the ordered set of final lane counts. Entry order is the configured
// lane order, so repeated runs of the same configuration produce byte-identical
// output.
type Report struct {
	Entries []Entry
}

// FromCounts builds a report from a lane to count mapping, ordered by the
// given lane display names. Lanes missing from counts appear with count 0.
func FromCounts(order []string, counts map[string]int64) *Report {
	r := &Report{Entries: make([]Entry, 0, len(order))}
	for _, lane := range order {
		r.Entries = append(r.Entries, Entry{Lane: lane, Count: counts[lane]})
	}
	return r
}

// Write renders the report as a text table.
func (r *Report) Write(w io.Writer) error {
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if strings.Contains(e.Lane, "|") {
			return fmt.Errorf("lane name %q contains the column separator", e.Lane)
		}
		if _, err := fmt.Fprintf(w, "%s | %d\n", e.Lane, e.Count); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the report to path, replacing any existing file.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := r.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

// Parse reads a text report back. It is the inverse of Write for any report
// Write accepts. The count table ends at the first blank line; anything after
// it, such as an appended headway summary, is a trailer and is ignored.
func Parse(rd io.Reader) (*Report, error) {
	sc := bufio.NewScanner(rd)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read report: %w", err)
		}
		return nil, fmt.Errorf("empty report")
	}
	if got := strings.TrimRight(sc.Text(), "\r"); got != header {
		return nil, fmt.Errorf("bad report header %q", got)
	}

	r := &Report{}
	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if text == "" {
			break
		}
		sep := strings.LastIndex(text, " | ")
		if sep < 0 {
			return nil, fmt.Errorf("line %d: missing column separator", line)
		}
		count, err := strconv.ParseInt(text[sep+3:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad count: %w", line, err)
		}
		r.Entries = append(r.Entries, Entry{Lane: text[:sep], Count: count})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return r, nil
}

// ParseFile reads a report written by WriteFile.
func ParseFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Total returns the sum of all lane counts.
func (r *Report) Total() int64 {
	var n int64
	for _, e := range r.Entries {
		n += e.Count
	}
	return n
}

// Busiest returns the lane with the highest count, ties going to the lane
// listed first. Empty reports return an empty lane name.
func (r *Report) Busiest() Entry {
	var best Entry
	for i, e := range r.Entries {
		if i == 0 || e.Count > best.Count {
			best = e
		}
	}
	return best
}

// Sorted returns the entries ordered by descending count, names breaking ties,
// without modifying the report.
func (r *Report) Sorted() []Entry {
	out := make([]Entry, len(r.Entries))
	copy(out, r.Entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Lane < out[j].Lane
	})
	return out
}
