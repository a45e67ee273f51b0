package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/monitoring"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/sim"
)

// DefaultLogEverySteps is the progress-logging cadence of the control loop.
const DefaultLogEverySteps = 10

// LoopConfig ties the loop's cadence together. Pacing is purely a
// visualisation courtesy; correctness never depends on it.
type LoopConfig struct {
	SignalID             string
	LaneOrder            []string
	ControlIntervalSteps int
	WarmupSteps          int
	LogEverySteps        int
	Pacing               time.Duration
}

// Loop advances the engine step by step and re-evaluates the signal phase on
// a fixed cadence. It runs until the engine reports no remaining vehicles or
// the context is cancelled. Phase decisions are strictly ordered by tick.
type Loop struct {
	engine   sim.Engine
	selector *Selector
	counts   CountSource
	actuator SignalActuator
	cfg      LoopConfig
}

// NewLoop wires a control loop. The selector, count source and actuator are
// supplied by the caller so camera-driven and simulation-driven demand share
// one loop implementation.
func NewLoop(engine sim.Engine, selector *Selector, counts CountSource, actuator SignalActuator, cfg LoopConfig) *Loop {
	if cfg.ControlIntervalSteps <= 0 {
		cfg.ControlIntervalSteps = 1
	}
	if cfg.LogEverySteps <= 0 {
		cfg.LogEverySteps = DefaultLogEverySteps
	}
	return &Loop{engine: engine, selector: selector, counts: counts, actuator: actuator, cfg: cfg}
}

// Run drives the loop to completion. Protocol errors are tick-local: they are
// logged and the tick is skipped. Only engine failures (a query or step that
// is not a protocol error) end the run early.
func (l *Loop) Run(ctx context.Context) error {
	// Let the simulation settle before the first evaluation.
	for i := 0; i < l.cfg.WarmupSteps; i++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := l.engine.AdvanceStep(); err != nil {
			return fmt.Errorf("warmup step: %w", err)
		}
	}

	step := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		remaining, err := l.engine.RemainingVehicles()
		if err != nil {
			return fmt.Errorf("remaining vehicles: %w", err)
		}
		if remaining == 0 {
			monitoring.Logf("control loop complete after %d steps", step)
			return nil
		}

		if step%l.cfg.ControlIntervalSteps == 0 {
			l.evaluateTick(step)
		}

		if err := l.engine.AdvanceStep(); err != nil {
			return fmt.Errorf("advance step: %w", err)
		}
		step++
		l.selector.ObserveSteps(1)

		if step%l.cfg.LogEverySteps == 0 {
			monitoring.Logf("step %d: lane counts %v (green: %s)", step, l.snapshotCounts(), l.selector.CurrentLane())
		}

		if l.cfg.Pacing > 0 {
			select {
			case <-time.After(l.cfg.Pacing):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// evaluateTick performs one phase re-evaluation. Any protocol failure inside
// the tick is logged and the tick is skipped; the loop itself keeps running.
func (l *Loop) evaluateTick(step int) {
	counts := l.snapshotCounts()

	currentPhase, err := l.engine.Phase(l.cfg.SignalID)
	if err != nil {
		if !errors.Is(err, sim.ErrUnknownSignal) && !errors.Is(err, sim.ErrUnknownLane) {
			monitoring.Logf("phase query failed at step %d: %v", step, err)
		} else {
			monitoring.Logf("phase query rejected at step %d: %v", step, err)
		}
		// Negative phase makes the selector fall back to the first lane.
		currentPhase = -1
	}

	d := l.selector.Evaluate(counts, currentPhase)
	if d == nil {
		return
	}

	if err := l.actuator.Apply(*d); err != nil {
		monitoring.Logf("failed to set phase %d for %s at step %d: %v", d.Phase, d.LaneID, step, err)
		return
	}
	monitoring.Logf("tick %d: green to %s (phase %d, count %d)", d.Tick, d.LaneID, d.Phase, counts[d.LaneID])
}

func (l *Loop) snapshotCounts() map[string]int64 {
	counts := make(map[string]int64, len(l.cfg.LaneOrder))
	for _, lane := range l.cfg.LaneOrder {
		n, err := l.counts.LaneCount(lane)
		if err != nil {
			monitoring.Logf("count query for %s failed: %v", lane, err)
			continue
		}
		counts[lane] = n
	}
	return counts
}
