package control

import (
	"errors"
	"strings"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/counting"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/monitoring"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/sim"
)

// CountSource supplies the per-lane demand the selector ranks. The loop reads
// it every evaluation tick, so implementations must tolerate concurrent calls
// alongside whatever produces the counts.
type CountSource interface {
	LaneCount(laneID string) (int64, error)
}

// CameraCounts reads cumulative demand straight from the pipeline's lane
// counters. Counter reads are atomic snapshots, so this is safe while the
// workers are still counting. Note the totals only ever grow; a loop that
// needs queues that drain as vehicles are served should seed an intersection
// from the totals and use EngineCounts instead.
type CameraCounts struct {
	counters map[string]*counting.LaneCounter
}

// NewCameraCounts wraps the per-lane counters.
func NewCameraCounts(counters map[string]*counting.LaneCounter) *CameraCounts {
	return &CameraCounts{counters: counters}
}

// LaneCount returns the cumulative camera count for the lane.
func (c *CameraCounts) LaneCount(laneID string) (int64, error) {
	ctr, ok := c.counters[laneID]
	if !ok {
		return 0, sim.ErrUnknownLane
	}
	return ctr.Value(), nil
}

// EngineCounts reads demand from the engine's per-lane vehicle queries. When
// the engine rejects a configured lane identifier, the source lists the
// engine's actual lanes and remaps the configured id to the closest match
// (substring match either way), remembering the correction for later ticks.
type EngineCounts struct {
	engine sim.Engine
	remap  map[string]string
}

// NewEngineCounts wraps the engine as a count source.
func NewEngineCounts(engine sim.Engine) *EngineCounts {
	return &EngineCounts{engine: engine, remap: make(map[string]string)}
}

// LaneCount queries the engine, recovering from unknown-lane errors via the
// lane listing.
func (e *EngineCounts) LaneCount(laneID string) (int64, error) {
	id := laneID
	if mapped, ok := e.remap[laneID]; ok {
		id = mapped
	}

	n, err := e.engine.LaneVehicleCount(id)
	if err == nil {
		return int64(n), nil
	}
	if !errors.Is(err, sim.ErrUnknownLane) {
		return 0, err
	}

	available, listErr := e.engine.LaneIDs()
	if listErr != nil {
		return 0, err
	}
	monitoring.Logf("lane %q unknown to engine; available lanes: %v", laneID, available)
	for _, cand := range available {
		if strings.Contains(cand, laneID) || strings.Contains(laneID, cand) {
			e.remap[laneID] = cand
			m, retryErr := e.engine.LaneVehicleCount(cand)
			if retryErr != nil {
				return 0, retryErr
			}
			monitoring.Logf("lane %q remapped to engine lane %q", laneID, cand)
			return int64(m), nil
		}
	}
	return 0, err
}
