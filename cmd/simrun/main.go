// simrun drives the signal control loop against a scripted intersection,
// with no camera pipeline: load a script, run until the junction drains,
// print the per-lane totals served.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/control"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/sim"
)

var (
	scriptPath = flag.String("script", "intersection.json", "Path to the intersection script JSON")
	interval   = flag.Int("interval", 50, "Steps between phase re-evaluations")
	minGreen   = flag.Int("min-green", 50, "Minimum green duration in steps")
	warmup     = flag.Int("warmup", 10, "Simulation steps before control starts")
	pacing     = flag.Duration("pacing", 0, "Optional delay per step, e.g. 20ms")
)

func main() {
	flag.Parse()

	simCfg, err := sim.LoadScript(*scriptPath)
	if err != nil {
		log.Fatalf("failed to load script: %v", err)
	}
	if simCfg.SignalID == "" {
		simCfg.SignalID = "tls"
	}

	engine := sim.NewIntersection(simCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("failed to start intersection: %v", err)
	}
	defer engine.Close()

	order, err := engine.LaneIDs()
	if err != nil {
		log.Fatalf("failed to list lanes: %v", err)
	}
	phases := make(map[string]int, len(order))
	for id, lane := range simCfg.Lanes {
		phases[id] = lane.SignalPhase
	}

	selector := control.NewSelector(order, phases, *minGreen)
	loop := control.NewLoop(engine, selector, control.NewEngineCounts(engine),
		control.NewEngineActuator(engine, simCfg.SignalID), control.LoopConfig{
			SignalID:             simCfg.SignalID,
			LaneOrder:            order,
			ControlIntervalSteps: *interval,
			WarmupSteps:          *warmup,
			Pacing:               *pacing,
		})

	start := time.Now()
	if err := loop.Run(ctx); err != nil {
		log.Fatalf("control loop failed: %v", err)
	}

	if ctx.Err() != nil {
		log.Printf("interrupted after %s", time.Since(start).Round(time.Millisecond))
		os.Exit(1)
	}
	log.Printf("junction drained in %s", time.Since(start).Round(time.Millisecond))
}
