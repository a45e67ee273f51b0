package control

import "testing"

func newTestSelector(minGreen int) *Selector {
	order := []string{"A", "B", "C"}
	phases := map[string]int{"A": 0, "B": 1, "C": 2}
	return NewSelector(order, phases, minGreen)
}

func TestFirstLaneToReachMaximumWins(t *testing.T) {
	s := newTestSelector(0)

	d := s.Evaluate(map[string]int64{"A": 5, "B": 3, "C": 3}, 0)
	if d == nil || d.LaneID != "A" {
		t.Fatalf("counts {A:5,B:3,C:3}: got %+v, want lane A", d)
	}

	s = newTestSelector(0)
	d = s.Evaluate(map[string]int64{"A": 3, "B": 5, "C": 5}, 0)
	if d == nil || d.LaneID != "B" {
		t.Fatalf("counts {A:3,B:5,C:5}: got %+v, want lane B (first to reach max, not C)", d)
	}
	if d.Phase != 1 {
		t.Errorf("decision phase = %d, want 1", d.Phase)
	}
}

func TestRoundRobinFallbackOnEmptyCounts(t *testing.T) {
	s := newTestSelector(0)
	empty := map[string]int64{"A": 0, "B": 0, "C": 0}

	// Current phase 0 belongs to A, so the fallback grants B.
	d := s.Evaluate(empty, 0)
	if d == nil || d.LaneID != "B" {
		t.Fatalf("fallback from phase 0: got %+v, want lane B", d)
	}

	// From B's phase the rotation continues to C.
	d = s.Evaluate(empty, 1)
	if d == nil || d.LaneID != "C" {
		t.Fatalf("fallback from phase 1: got %+v, want lane C", d)
	}

	// The cycle wraps from the last lane back to the first.
	d = s.Evaluate(empty, 2)
	if d == nil || d.LaneID != "A" {
		t.Fatalf("fallback from phase 2: got %+v, want lane A", d)
	}
}

func TestFallbackOnUnknownPhaseSelectsFirstLane(t *testing.T) {
	s := newTestSelector(0)
	d := s.Evaluate(map[string]int64{}, -1)
	if d == nil || d.LaneID != "A" {
		t.Fatalf("unknown phase fallback: got %+v, want lane A", d)
	}
}

func TestExtensionResetsGreenTimerWithoutActuation(t *testing.T) {
	s := newTestSelector(10)

	if d := s.Evaluate(map[string]int64{"A": 4}, 0); d == nil || d.LaneID != "A" {
		t.Fatalf("initial decision should grant A")
	}
	s.ObserveSteps(7)

	// A is still the busiest: extend, reset the timer, no decision.
	if d := s.Evaluate(map[string]int64{"A": 4}, 0); d != nil {
		t.Fatalf("extension produced a decision: %+v", d)
	}
	if s.GreenElapsed() != 0 {
		t.Errorf("green timer = %d after extension, want 0", s.GreenElapsed())
	}
}

func TestMinimumGreenBlocksEarlySwitch(t *testing.T) {
	s := newTestSelector(10)

	if d := s.Evaluate(map[string]int64{"A": 4, "B": 1}, 0); d == nil || d.LaneID != "A" {
		t.Fatalf("initial decision should grant A")
	}

	// B now dominates, but A has held green for under the minimum.
	s.ObserveSteps(5)
	if d := s.Evaluate(map[string]int64{"A": 1, "B": 9}, 0); d != nil {
		t.Fatalf("switch before minimum green: %+v", d)
	}

	// Once the minimum elapses the switch goes through.
	s.ObserveSteps(5)
	d := s.Evaluate(map[string]int64{"A": 1, "B": 9}, 0)
	if d == nil || d.LaneID != "B" {
		t.Fatalf("switch after minimum green: got %+v, want lane B", d)
	}
	if s.CurrentLane() != "B" {
		t.Errorf("current lane = %q, want B", s.CurrentLane())
	}
}

func TestDecisionTicksAreStrictlyOrdered(t *testing.T) {
	s := newTestSelector(0)

	counts := []map[string]int64{
		{"A": 1},
		{"B": 2},
		{"C": 3},
	}
	var lastTick int64
	for _, c := range counts {
		d := s.Evaluate(c, 0)
		if d == nil {
			t.Fatalf("expected a decision for %v", c)
		}
		if d.Tick <= lastTick {
			t.Fatalf("tick %d not greater than previous %d", d.Tick, lastTick)
		}
		lastTick = d.Tick
	}
}
