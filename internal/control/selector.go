// Package control implements the adaptive phase selection loop: on a fixed
// step cadence it reads per-lane demand and decides which approach holds
// green, preferring the busiest lane while a round-robin fallback keeps any
// lane from starving.
package control

// Decision is one phase switch produced by the selector. It is applied
// immediately by a SignalActuator and then discarded.
type Decision struct {
	LaneID string
	Phase  int
	Tick   int64
}

// Selector holds the phase-selection state: the deterministic lane order, the
// lane-to-phase mapping, the phase-keyed round-robin fallback, and the green
// timer for the lane currently held green.
//
// Tie-breaking is intentional and exact: the first lane to reach the maximum
// count in iteration order wins. Later lanes with an equal count do not
// displace it.
type Selector struct {
	order        []string
	phases       map[string]int
	fallbackNext map[int]string // current phase -> next lane in cyclic order
	minGreen     int            // steps

	currentLane string
	greenSteps  int
	tick        int64
}

// NewSelector builds a selector. order is the deterministic lane iteration
// order; phases must be total over it (validated by config). The round-robin
// fallback maps each lane's phase to the next lane in order, wrapping.
func NewSelector(order []string, phases map[string]int, minGreenSteps int) *Selector {
	next := make(map[int]string, len(order))
	for i, lane := range order {
		next[phases[lane]] = order[(i+1)%len(order)]
	}
	if minGreenSteps < 0 {
		minGreenSteps = 0
	}
	return &Selector{
		order:        order,
		phases:       phases,
		fallbackNext: next,
		minGreen:     minGreenSteps,
	}
}

// CurrentLane returns the lane currently granted green, or "" before the
// first decision.
func (s *Selector) CurrentLane() string { return s.currentLane }

// GreenElapsed returns the steps accumulated since the current lane last
// gained or extended its green.
func (s *Selector) GreenElapsed() int { return s.greenSteps }

// ObserveSteps accumulates elapsed simulation steps into the green timer.
func (s *Selector) ObserveSteps(n int) {
	if n > 0 {
		s.greenSteps += n
	}
}

// Evaluate runs one control tick against the given per-lane counts and the
// signal's current phase. Pass a negative currentPhase when the phase query
// failed; the fallback then selects the first configured lane.
//
// A nil return means no actuation: either the busiest lane already holds
// green (its interval is extended) or the minimum green has not yet elapsed.
func (s *Selector) Evaluate(counts map[string]int64, currentPhase int) *Decision {
	s.tick++

	candidate := s.busiest(counts)
	if candidate == "" {
		// No demand anywhere: rotate off the currently active phase so no
		// approach waits forever on an empty intersection.
		var ok bool
		candidate, ok = s.fallbackNext[currentPhase]
		if !ok {
			candidate = s.order[0]
		}
	}

	if candidate == s.currentLane {
		// Extend the green interval; no actuator call.
		s.greenSteps = 0
		return nil
	}
	if s.currentLane != "" && s.greenSteps < s.minGreen {
		return nil
	}

	s.currentLane = candidate
	s.greenSteps = 0
	return &Decision{LaneID: candidate, Phase: s.phases[candidate], Tick: s.tick}
}

// busiest returns the first lane in iteration order holding the strictly
// greatest count, or "" when every count is zero.
func (s *Selector) busiest(counts map[string]int64) string {
	var max int64
	lane := ""
	for _, id := range s.order {
		if c := counts[id]; c > max {
			max = c
			lane = id
		}
	}
	return lane
}
