package counting

import "testing"

func TestObserveCountsInsideBandOnly(t *testing.T) {
	d := NewCrossingDeduplicator(550, 6, 30, 15)

	if d.Observe(100, 500, 1) {
		t.Errorf("centroid far above the line should not be a candidate")
	}
	if d.Observe(100, 556, 1) {
		t.Errorf("centroid exactly offset pixels away should not count (strict <)")
	}
	if !d.Observe(100, 553, 1) {
		t.Errorf("centroid inside the band should count")
	}
}

func TestObserveDeduplicatesNearbyCrossings(t *testing.T) {
	d := NewCrossingDeduplicator(550, 6, 30, 15)

	if !d.Observe(100, 550, 10) {
		t.Fatalf("first crossing should count")
	}
	// Same vehicle a few frames later, slightly moved: duplicate.
	if d.Observe(110, 548, 12) {
		t.Errorf("crossing within radius and cooldown should be suppressed")
	}
	// Far away in x at the same time: a different vehicle.
	if !d.Observe(300, 550, 12) {
		t.Errorf("crossing outside the spatial radius should count")
	}
	// Same spot but after the cooldown has elapsed: a new vehicle.
	if !d.Observe(100, 550, 25) {
		t.Errorf("crossing after the cooldown window should count")
	}
}

func TestObserveRadiusAndCooldownBoundsAreStrict(t *testing.T) {
	d := NewCrossingDeduplicator(550, 6, 30, 15)

	if !d.Observe(100, 550, 1) {
		t.Fatalf("first crossing should count")
	}
	// Exactly radius pixels away is outside the dedup neighbourhood.
	if !d.Observe(130, 550, 2) {
		t.Errorf("|dx| == radius should count as a second vehicle")
	}
	// Exactly cooldown frames later is outside the window.
	if !d.Observe(100, 550, 16) {
		t.Errorf("seq delta == cooldown should count as a new vehicle")
	}
}

func TestPruneBoundsHistory(t *testing.T) {
	d := NewCrossingDeduplicator(550, 6, 30, 15)

	d.Observe(50, 550, 1)
	d.Observe(150, 550, 5)
	d.Observe(250, 550, 10)
	if got := d.HistoryLen(); got != 3 {
		t.Fatalf("history length = %d, want 3", got)
	}

	d.Prune(20)
	if got := d.HistoryLen(); got != 1 {
		t.Errorf("after prune at seq 20 history length = %d, want 1 (only seq 10)", got)
	}

	d.Prune(100)
	if got := d.HistoryLen(); got != 0 {
		t.Errorf("after long idle history length = %d, want 0", got)
	}
}

func TestLaneCounterMonotonic(t *testing.T) {
	c := NewLaneCounter("lane1")
	if c.LaneID() != "lane1" {
		t.Errorf("lane id = %q", c.LaneID())
	}

	prev := c.Value()
	for i := 0; i < 100; i++ {
		got := c.Increment()
		if got != prev+1 {
			t.Fatalf("increment %d: got %d, want %d", i, got, prev+1)
		}
		prev = got
	}
	if c.Value() != 100 {
		t.Errorf("final count = %d, want 100", c.Value())
	}
}
