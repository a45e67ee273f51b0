package control

import (
	"errors"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/monitoring"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/sim"
)

// SignalActuator applies a phase decision to the signal device. The loop
// invokes it only when the decision actually changes the granted lane.
type SignalActuator interface {
	Apply(d Decision) error
}

// EngineActuator drives the engine's signal. An unknown-signal error is
// recoverable: when the engine reports exactly one signal, the actuator
// corrects its identifier and retries; otherwise the tick is skipped.
type EngineActuator struct {
	engine   sim.Engine
	signalID string
}

// NewEngineActuator binds the actuator to a signal on the engine.
func NewEngineActuator(engine sim.Engine, signalID string) *EngineActuator {
	return &EngineActuator{engine: engine, signalID: signalID}
}

// SignalID returns the identifier currently used for the signal; it may have
// been corrected after an unknown-signal recovery.
func (a *EngineActuator) SignalID() string { return a.signalID }

// Apply sets the decision's phase on the signal.
func (a *EngineActuator) Apply(d Decision) error {
	err := a.engine.SetPhase(a.signalID, d.Phase)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sim.ErrUnknownSignal) {
		return err
	}

	available, listErr := a.engine.SignalIDs()
	if listErr != nil {
		return err
	}
	monitoring.Logf("signal %q unknown to engine; available signals: %v", a.signalID, available)
	if len(available) != 1 {
		return err
	}
	a.signalID = available[0]
	return a.engine.SetPhase(a.signalID, d.Phase)
}
