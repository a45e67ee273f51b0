package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultDischargePerStep is how many queued vehicles leave a green lane on
// each simulation step when the config does not say otherwise.
const DefaultDischargePerStep = 1

// LaneScript describes one approach lane of the simulated intersection:
// which phase grants it green and when vehicles arrive.
type LaneScript struct {
	SignalPhase     int           // phase index granting this lane green
	InitialVehicles int           // vehicles queued before step 1
	Arrivals        map[int64]int // step -> vehicles arriving on that step
}

// IntersectionConfig configures the in-process simulator.
type IntersectionConfig struct {
	SignalID         string
	InitialPhase     int
	DischargePerStep int // vehicles leaving the green lane per step
	Lanes            map[string]LaneScript
}

// Intersection is a deterministic in-process Engine: a single signalised
// junction with scripted arrivals and queue discharge while a lane holds
// green. Per-lane queues are guarded the same way for concurrent count
// queries from the control loop and the status endpoint.
type Intersection struct {
	cfg IntersectionConfig

	mu        sync.RWMutex
	started   bool
	closed    bool
	step      int64
	phase     int
	queues    map[string]int
	remaining int // queued plus not-yet-arrived vehicles
}

// NewIntersection builds an unstarted simulator from the config.
func NewIntersection(cfg IntersectionConfig) *Intersection {
	if cfg.DischargePerStep <= 0 {
		cfg.DischargePerStep = DefaultDischargePerStep
	}
	return &Intersection{cfg: cfg}
}

// Start validates the script and initialises the queues.
func (in *Intersection) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ErrClosed
	}
	if in.started {
		return nil
	}
	if len(in.cfg.Lanes) == 0 {
		return fmt.Errorf("%w: no lanes configured", ErrStartFailed)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	in.queues = make(map[string]int, len(in.cfg.Lanes))
	in.remaining = 0
	for id, lane := range in.cfg.Lanes {
		in.queues[id] = lane.InitialVehicles
		in.remaining += lane.InitialVehicles
		for _, n := range lane.Arrivals {
			in.remaining += n
		}
	}
	in.phase = in.cfg.InitialPhase
	in.step = 0
	in.started = true
	return nil
}

// AdvanceStep applies one step of arrivals and green-lane discharge.
func (in *Intersection) AdvanceStep() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.usable(); err != nil {
		return err
	}

	in.step++
	for id, lane := range in.cfg.Lanes {
		if n := lane.Arrivals[in.step]; n > 0 {
			in.queues[id] += n
		}
		if lane.SignalPhase == in.phase {
			departed := in.cfg.DischargePerStep
			if departed > in.queues[id] {
				departed = in.queues[id]
			}
			in.queues[id] -= departed
			in.remaining -= departed
		}
	}
	return nil
}

// Step returns the current simulation step.
func (in *Intersection) Step() int64 {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.step
}

// LaneVehicleCount returns the queue length of one lane.
func (in *Intersection) LaneVehicleCount(laneID string) (int, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if err := in.usable(); err != nil {
		return 0, err
	}
	n, ok := in.queues[laneID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLane, laneID)
	}
	return n, nil
}

// Phase returns the active phase of the signal.
func (in *Intersection) Phase(signalID string) (int, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if err := in.usable(); err != nil {
		return 0, err
	}
	if signalID != in.cfg.SignalID {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, signalID)
	}
	return in.phase, nil
}

// SetPhase switches the signal. The phase must be one a configured lane maps
// to; anything else is a protocol error, not an abort.
func (in *Intersection) SetPhase(signalID string, phase int) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.usable(); err != nil {
		return err
	}
	if signalID != in.cfg.SignalID {
		return fmt.Errorf("%w: %q", ErrUnknownSignal, signalID)
	}
	known := false
	for _, lane := range in.cfg.Lanes {
		if lane.SignalPhase == phase {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %d", ErrUnknownPhase, phase)
	}
	in.phase = phase
	return nil
}

// RemainingVehicles returns queued plus not-yet-arrived vehicles.
func (in *Intersection) RemainingVehicles() (int, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if err := in.usable(); err != nil {
		return 0, err
	}
	return in.remaining, nil
}

// LaneIDs lists the configured lanes in a stable order.
func (in *Intersection) LaneIDs() ([]string, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.closed {
		return nil, ErrClosed
	}
	ids := make([]string, 0, len(in.cfg.Lanes))
	for id := range in.cfg.Lanes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SignalIDs lists the single configured signal.
func (in *Intersection) SignalIDs() ([]string, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.closed {
		return nil, ErrClosed
	}
	return []string{in.cfg.SignalID}, nil
}

// Close shuts the simulator down. Further calls fail with ErrClosed.
func (in *Intersection) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.closed = true
	in.started = false
	return nil
}

// usable must be called with a lock held.
func (in *Intersection) usable() error {
	if in.closed {
		return ErrClosed
	}
	if !in.started {
		return ErrNotStarted
	}
	return nil
}

var _ Engine = (*Intersection)(nil)
