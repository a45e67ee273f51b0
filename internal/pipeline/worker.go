package pipeline

import (
	"context"
	"time"

	"github.com/anggasct/fluo"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/counting"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/monitoring"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/vision"
)

// Worker lifecycle states.
const (
	StateIdle     = "idle"
	StateOpening  = "opening"
	StateRunning  = "running"
	StateDraining = "draining"
	StateClosed   = "closed"
)

// Worker lifecycle events.
const (
	eventStart      = "start"
	eventOpened     = "open_ok"
	eventOpenFailed = "open_failed"
	eventStreamEnd  = "stream_end"
	eventCancelled  = "cancelled"
	eventReleased   = "released"
)

// terminalPublishTimeout bounds how long a worker waits to hand over its
// terminal sentinel during shutdown before giving up.
const terminalPublishTimeout = 2 * time.Second

// lifecycleDefinition is the shared state machine every lane worker
// instantiates: Idle -> Opening -> Running -> Draining -> Closed, with a
// direct Opening -> Closed edge for streams that fail to open.
var lifecycleDefinition = fluo.NewMachine().
	State(StateIdle).Initial().
	To(StateOpening).On(eventStart).
	State(StateOpening).
	To(StateRunning).On(eventOpened).
	To(StateClosed).On(eventOpenFailed).
	State(StateRunning).
	To(StateDraining).On(eventStreamEnd).
	To(StateDraining).On(eventCancelled).
	State(StateDraining).
	To(StateClosed).On(eventReleased).
	State(StateClosed).Final().
	Build()

// WorkerConfig assembles one lane's detection chain.
type WorkerConfig struct {
	LaneID      string
	DisplayName string
	Source      vision.FrameSource
	Segmenter   *vision.MotionSegmenter
	Extractor   *vision.BlobExtractor
	Dedup       *counting.CrossingDeduplicator
	Counter     *counting.LaneCounter
	Bus         *Bus

	// Pacing throttles playback for visualisation only; counting
	// correctness never depends on it.
	Pacing time.Duration
}

// Worker runs one lane's pipeline: read a frame, segment motion, extract
// blobs, deduplicate crossings, update the lane counter, publish. Errors are
// lane-local: a broken stream ends this lane's contribution and nothing else.
type Worker struct {
	cfg       WorkerConfig
	lifecycle fluo.Machine
}

// NewWorker builds a worker around the configured chain.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.LaneID
	}
	return &Worker{
		cfg:       cfg,
		lifecycle: lifecycleDefinition.CreateInstance(),
	}
}

// State reports the lifecycle state, for tests and the status endpoint.
func (w *Worker) State() string {
	if w.lifecycle.CurrentState() == "" {
		return StateIdle
	}
	return w.lifecycle.CurrentState()
}

// Run drives the lane to completion. It always publishes a terminal sentinel
// carrying the lane's final count (0 when the stream never opened), then
// returns. Run must be called at most once.
func (w *Worker) Run(ctx context.Context) {
	name := w.cfg.DisplayName
	if err := w.lifecycle.Start(); err != nil {
		monitoring.Logf("%s - lifecycle start failed: %v", name, err)
		return
	}
	w.lifecycle.HandleEvent(eventStart, nil)

	if err := w.cfg.Source.Open(); err != nil {
		monitoring.Logf("%s - could not open stream: %v", name, err)
		w.lifecycle.HandleEvent(eventOpenFailed, nil)
		w.publishTerminal()
		return
	}
	w.lifecycle.HandleEvent(eventOpened, nil)
	monitoring.Logf("%s - stream open, counting started", name)

	for {
		if ctx.Err() != nil {
			w.lifecycle.HandleEvent(eventCancelled, nil)
			break
		}

		frame, err := w.cfg.Source.Next()
		if err != nil {
			// End of stream, or a corrupt frame treated as one.
			w.lifecycle.HandleEvent(eventStreamEnd, nil)
			break
		}

		mask := w.cfg.Segmenter.Apply(frame)
		blobs := w.cfg.Extractor.Extract(mask, frame.Seq)

		flash := false
		var crossX, crossY int
		for _, b := range blobs {
			if w.cfg.Dedup.Observe(b.CX, b.CY, frame.Seq) {
				n := w.cfg.Counter.Increment()
				monitoring.Logf("%s - vehicle counter: %d", name, n)
				flash = true
				crossX, crossY = b.CX, b.CY
			}
		}
		w.cfg.Dedup.Prune(frame.Seq)

		item := Item{
			LaneID:    w.cfg.LaneID,
			Frame:     frame,
			Count:     w.cfg.Counter.Value(),
			LineFlash: flash,
			CrossX:    crossX,
			CrossY:    crossY,
		}
		if !w.cfg.Bus.Publish(ctx, item) {
			w.lifecycle.HandleEvent(eventCancelled, nil)
			break
		}

		if w.cfg.Pacing > 0 {
			select {
			case <-time.After(w.cfg.Pacing):
			case <-ctx.Done():
			}
		}
	}

	if err := w.cfg.Source.Release(); err != nil {
		monitoring.Logf("%s - release failed: %v", name, err)
	}
	w.publishTerminal()
	w.lifecycle.HandleEvent(eventReleased, nil)
	monitoring.Logf("%s - final vehicle count: %d", name, w.cfg.Counter.Value())
}

// publishTerminal hands the lane's final count to the consumer. The wait is
// bounded: during shutdown the consumer may already be draining, and a lane
// must never block process exit.
func (w *Worker) publishTerminal() {
	item := Item{
		LaneID:   w.cfg.LaneID,
		Count:    w.cfg.Counter.Value(),
		Terminal: true,
	}
	if !w.cfg.Bus.PublishTimeout(item, terminalPublishTimeout) {
		monitoring.Logf("%s - terminal sentinel dropped (consumer gone)", w.cfg.DisplayName)
	}
}
