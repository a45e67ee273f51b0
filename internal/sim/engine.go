// Package sim defines the traffic-signal engine contract and an in-process
// intersection simulator that implements it. The real simulation binary (or
// signal hardware) is an external collaborator; everything in this module
// talks to it through the Engine interface.
package sim

import (
	"context"
	"errors"
)

// Protocol errors. Unknown identifiers are recoverable: the caller is expected
// to log, rediscover identifiers via LaneIDs/SignalIDs, and retry or skip the
// operation for that tick. Only ErrStartFailed aborts a run.
var (
	// ErrUnknownLane reports a lane identifier the engine does not know.
	ErrUnknownLane = errors.New("sim: unknown lane")
	// ErrUnknownSignal reports a signal identifier the engine does not know.
	ErrUnknownSignal = errors.New("sim: unknown signal")
	// ErrUnknownPhase reports a phase index no controlled lane maps to.
	ErrUnknownPhase = errors.New("sim: unknown phase")
	// ErrNotStarted reports a query or command before Start succeeded.
	ErrNotStarted = errors.New("sim: engine not started")
	// ErrClosed reports use of an engine after Close.
	ErrClosed = errors.New("sim: engine closed")
	// ErrStartFailed reports that the engine refused to start. Fatal.
	ErrStartFailed = errors.New("sim: engine failed to start")
)

// Engine is the control surface of a traffic simulation or signal device.
// Implementations must return the typed protocol errors above so callers can
// branch on the kind with errors.Is rather than matching strings.
type Engine interface {
	// Start brings the engine up. A failure here is fatal to the run.
	Start(ctx context.Context) error

	// AdvanceStep advances the simulation by one step.
	AdvanceStep() error

	// LaneVehicleCount returns the number of vehicles currently on the lane.
	LaneVehicleCount(laneID string) (int, error)

	// Phase returns the active phase index of the signal.
	Phase(signalID string) (int, error)

	// SetPhase switches the signal to the given phase.
	SetPhase(signalID string, phase int) error

	// RemainingVehicles returns the number of vehicles still queued or yet
	// to arrive. A run is complete when this reaches zero.
	RemainingVehicles() (int, error)

	// LaneIDs lists the lane identifiers the engine knows about, for
	// recovery after ErrUnknownLane.
	LaneIDs() ([]string, error)

	// SignalIDs lists the signal identifiers the engine knows about, for
	// recovery after ErrUnknownSignal.
	SignalIDs() ([]string, error)

	// Close shuts the engine down. Idempotent.
	Close() error
}
