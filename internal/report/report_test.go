package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReportRoundTrip(t *testing.T) {
	in := FromCounts(
		[]string{"Colombo Lane", "Kandy Lane", "Galle Lane"},
		map[string]int64{"Colombo Lane": 12, "Galle Lane": 7},
	)

	var buf bytes.Buffer
	if err := in.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := "Lane | Vehicle Count\nColombo Lane | 12\nKandy Lane | 0\nGalle Lane | 7\n"
	if buf.String() != want {
		t.Fatalf("rendered report = %q, want %q", buf.String(), want)
	}

	out, err := Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-wrote +parsed):\n%s", diff)
	}
}

func TestReportFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lane_counts.txt")
	in := FromCounts([]string{"a", "b"}, map[string]int64{"a": 3, "b": 1})
	if err := in.WriteFile(path); err != nil {
		t.Fatalf("write file: %v", err)
	}
	out, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}
}

func TestParseIgnoresHeadwayTrailer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lane_counts.txt")
	in := FromCounts([]string{"a", "b"}, map[string]int64{"a": 4, "b": 2})
	if err := in.WriteFile(path); err != nil {
		t.Fatalf("write file: %v", err)
	}

	// The daemon appends the headway table beneath the counts at shutdown;
	// the count table must still parse back.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fmt.Fprintln(f); err != nil {
		t.Fatal(err)
	}
	summaries := SummarizeHeadways(map[string][]int64{"a": {10, 40, 70, 100}, "b": {5}})
	if err := WriteSummaries(f, summaries); err != nil {
		t.Fatalf("write summaries: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse with trailer: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("counts lost beneath the trailer:\n%s", diff)
	}
}

func TestParseRejectsMalformedReports(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"bad header", "Lanes | Counts\na | 1\n"},
		{"missing separator", "Lane | Vehicle Count\na 1\n"},
		{"bad count", "Lane | Vehicle Count\na | many\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.text)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tc.text)
			}
		})
	}
}

func TestWriteRejectsSeparatorInLaneName(t *testing.T) {
	r := &Report{Entries: []Entry{{Lane: "a | b", Count: 1}}}
	if err := r.Write(&bytes.Buffer{}); err == nil {
		t.Error("Write accepted a lane name containing the separator")
	}
}

func TestBusiestAndTotal(t *testing.T) {
	r := FromCounts([]string{"a", "b", "c"}, map[string]int64{"a": 2, "b": 5, "c": 5})
	if got := r.Total(); got != 12 {
		t.Errorf("Total = %d, want 12", got)
	}
	// Ties go to the lane listed first.
	if got := r.Busiest(); got.Lane != "b" {
		t.Errorf("Busiest = %q, want b", got.Lane)
	}
	sorted := r.Sorted()
	if sorted[0].Lane != "b" || sorted[1].Lane != "c" || sorted[2].Lane != "a" {
		t.Errorf("Sorted order = %v", sorted)
	}
}

func TestSummarizeHeadways(t *testing.T) {
	got := SummarizeHeadways(map[string][]int64{
		"a": {100, 10, 40, 70},   // unsorted on purpose; gaps of 30 each
		"b": {5},                 // too few crossings for headways
		"c": {},                  // never crossed
	})

	if len(got) != 3 {
		t.Fatalf("summaries = %d, want 3", len(got))
	}
	a := got[0]
	if a.Lane != "a" || a.Crossings != 4 {
		t.Fatalf("lane a summary = %+v", a)
	}
	if math.Abs(a.Mean-30) > 1e-9 || math.Abs(a.P50-30) > 1e-9 || math.Abs(a.P85-30) > 1e-9 {
		t.Errorf("lane a headways = mean %.2f p50 %.2f p85 %.2f, want 30s", a.Mean, a.P50, a.P85)
	}
	if got[1].Crossings != 1 || got[1].Mean != 0 {
		t.Errorf("lane b summary = %+v", got[1])
	}
	if got[2].Crossings != 0 {
		t.Errorf("lane c summary = %+v", got[2])
	}
}

func TestRenderChartProducesHTML(t *testing.T) {
	r := FromCounts([]string{"a", "b"}, map[string]int64{"a": 4, "b": 9})
	var buf bytes.Buffer
	if err := r.RenderChart(&buf, "Traffic Counts"); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "Traffic Counts") {
		t.Error("chart HTML lacks the title")
	}
	if !strings.Contains(html, "echarts") {
		t.Error("chart HTML lacks the echarts bootstrap")
	}
}
