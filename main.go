package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/api"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/config"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/control"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/counting"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/monitoring"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/pipeline"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/report"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/sim"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/store"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/vision"
)

var (
	configPath = flag.String("config", "config.json", "Path to the JSON configuration file")
	devMode    = flag.Bool("dev", false, "Run with synthetic lane sources instead of raw frame dumps")
	listen     = flag.String("listen", "", "Listen address (overrides the config file)")
	headless   = flag.Bool("headless", false, "Skip the status HTTP server")
)

const migrationsDir = "migrations"

// lane bundles everything one monitored approach owns.
type lane struct {
	cfg     config.Lane
	counter *counting.LaneCounter
	worker  *pipeline.Worker
}

func buildLanes(cfg *config.Config, bus *pipeline.Bus) []*lane {
	pacing := time.Duration(cfg.GetPacingMillis()) * time.Millisecond
	lanes := make([]*lane, 0, len(cfg.Lanes))
	for _, lc := range cfg.Lanes {
		var src vision.FrameSource
		if *devMode {
			src = &vision.SyntheticSource{
				LaneID:      lc.ID,
				Width:       cfg.GetFrameWidth(),
				Height:      cfg.GetFrameHeight(),
				TotalFrames: 600,
				Vehicles: []vision.ScriptedVehicle{
					{EnterSeq: 20, X: 560, Width: 120, Height: 120, SpeedPx: 12},
					{EnterSeq: 120, X: 620, Width: 120, Height: 120, SpeedPx: 12},
					{EnterSeq: 260, X: 560, Width: 120, Height: 120, SpeedPx: 12},
				},
			}
		} else {
			src = vision.NewRawFileSource(lc.ID, lc.Source, cfg.GetFrameWidth(), cfg.GetFrameHeight())
		}

		counter := counting.NewLaneCounter(lc.ID)
		w := pipeline.NewWorker(pipeline.WorkerConfig{
			LaneID:      lc.ID,
			DisplayName: lc.DisplayName(),
			Source:      src,
			Segmenter: vision.NewMotionSegmenter(cfg.GetFrameWidth(), cfg.GetFrameHeight(), vision.SegmenterParams{
				LearningRate: cfg.GetLearningRate(),
			}),
			Extractor: vision.NewBlobExtractor(cfg.GetMinBlobWidth(), cfg.GetMinBlobHeight()),
			Dedup: counting.NewCrossingDeduplicator(
				cfg.GetCountLineY(), cfg.GetCrossingOffset(),
				cfg.GetDedupRadius(), int64(cfg.GetCooldownFrames()),
			),
			Counter: counter,
			Bus:     bus,
			Pacing:  pacing,
		})
		lanes = append(lanes, &lane{cfg: lc, counter: counter, worker: w})
	}
	return lanes
}

// buildEngine assembles the intersection the control loop drives. With
// counts_from=simulation the script file supplies queues and arrivals; with
// counts_from=camera each lane's queue is seeded with the vehicles counted
// from its stream, so the junction holds exactly the sensed demand.
func buildEngine(cfg *config.Config, finals map[string]int64) (*sim.Intersection, error) {
	if cfg.GetCountsFrom() == config.CountsFromSimulation {
		path := cfg.GetSimConfig()
		if path == "" {
			return nil, fmt.Errorf("counts_from=simulation requires sim_config")
		}
		simCfg, err := sim.LoadScript(path)
		if err != nil {
			return nil, err
		}
		if simCfg.SignalID == "" {
			simCfg.SignalID = cfg.GetSignalID()
		}
		return sim.NewIntersection(simCfg), nil
	}

	simCfg := sim.IntersectionConfig{
		SignalID: cfg.GetSignalID(),
		Lanes:    make(map[string]sim.LaneScript, len(cfg.Lanes)),
	}
	for _, lc := range cfg.Lanes {
		simCfg.Lanes[lc.ID] = sim.LaneScript{
			SignalPhase:     lc.SignalPhase,
			InitialVehicles: int(finals[lc.ID]),
		}
	}
	return sim.NewIntersection(simCfg), nil
}

func runControl(ctx context.Context, cfg *config.Config, engine *sim.Intersection) error {
	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Close()

	order := cfg.LaneOrder()
	selector := control.NewSelector(order, cfg.LanePhaseMap(), cfg.GetMinGreenSteps())

	// Demand is always the live queue occupancy. Cumulative camera totals
	// would pin the green on the historically busiest lane and the junction
	// would never drain; seeding the queues from those totals and reading
	// them back as they discharge keeps every lane's outstanding demand
	// honest.
	counts := control.NewEngineCounts(engine)

	loop := control.NewLoop(engine, selector, counts, control.NewEngineActuator(engine, cfg.GetSignalID()), control.LoopConfig{
		SignalID:             cfg.GetSignalID(),
		LaneOrder:            order,
		ControlIntervalSteps: cfg.GetControlIntervalSteps(),
		WarmupSteps:          cfg.GetWarmupSteps(),
		Pacing:               time.Duration(cfg.GetPacingMillis()) * time.Millisecond,
	})
	return loop.Run(ctx)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Persistence failures never stop the run; counting proceeds without a
	// database and the report still lands on disk.
	var db *store.Store
	if path := cfg.GetDatabasePath(); path != "" {
		db, err = store.Open(path)
		if err != nil {
			log.Printf("failed to open database: %v (continuing without persistence)", err)
		} else if err := db.MigrateUp(migrationsDir); err != nil {
			log.Printf("failed to migrate database: %v (continuing without persistence)", err)
			db.Close()
			db = nil
		}
	}
	if db != nil {
		defer db.Close()
	}

	runID := ""
	if db != nil {
		snapshot, _ := json.Marshal(cfg)
		runID, err = db.BeginRun(string(snapshot))
		if err != nil {
			log.Printf("failed to record run: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := pipeline.NewBus(0)
	lanes := buildLanes(cfg, bus)

	counters := make(map[string]*counting.LaneCounter, len(lanes))
	workers := make(map[string]*pipeline.Worker, len(lanes))
	for _, ln := range lanes {
		counters[ln.cfg.ID] = ln.counter
		workers[ln.cfg.ID] = ln.worker
	}

	var wg sync.WaitGroup

	// Status HTTP server, up for the whole run.
	var server *http.Server
	var statusAPI *api.Server
	if !*headless && !cfg.GetHeadless() {
		addr := cfg.GetListen()
		if *listen != "" {
			addr = *listen
		}
		statusAPI = api.NewServer(cfg, counters, workers, db)

		mux := http.NewServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", statusAPI.ServeMux()))
		server = &http.Server{Addr: addr, Handler: mux}

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("status server listening on %s", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("status server failed: %v", err)
			}
		}()
	}

	// Counting stage: one worker per lane, one consumer folding the counts.
	for _, ln := range lanes {
		wg.Add(1)
		go func(w *pipeline.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(ln.worker)
	}

	consumer := pipeline.NewConsumer(bus, pipeline.ConsumerConfig{
		Lanes: cfg.LaneOrder(),
		OnItem: func(item pipeline.Item) {
			if item.LineFlash && db != nil && runID != "" {
				if err := db.RecordCrossing(runID, item.LaneID, item.Frame.Seq, item.CrossX, item.CrossY); err != nil {
					monitoring.Logf("failed to record crossing: %v", err)
				}
			}
		},
	})
	finals := consumer.Run(ctx)

	for _, ln := range lanes {
		log.Printf("%s - final vehicle count: %d", ln.cfg.DisplayName(), finals[ln.cfg.ID])
	}

	// Control stage: drive the signal until the junction drains or we are
	// told to stop.
	engine, err := buildEngine(cfg, finals)
	if err != nil {
		log.Printf("failed to build intersection: %v (skipping control stage)", err)
	} else {
		if statusAPI != nil {
			statusAPI.SetEngine(engine)
		}
		if err := runControl(ctx, cfg, engine); err != nil {
			log.Printf("control loop failed: %v", err)
		}
	}

	// Shutdown: report, chart, persistence.
	rep := report.FromCounts(displayOrder(cfg), displayCounts(cfg, finals))
	if path := cfg.GetReportPath(); path != "" {
		if err := rep.WriteFile(path); err != nil {
			log.Printf("failed to write report: %v", err)
		} else {
			log.Printf("report written to %s", path)
			appendHeadways(path, cfg, db, runID)
		}
	}
	if path := cfg.GetChartPath(); path != "" {
		if err := rep.RenderChartFile(path, "Vehicle Counts"); err != nil {
			log.Printf("failed to render chart: %v", err)
		}
	}
	if db != nil && runID != "" {
		if err := db.RecordFinalCounts(runID, finals); err != nil {
			log.Printf("failed to record final counts: %v", err)
		}
		if err := db.FinishRun(runID); err != nil {
			log.Printf("failed to finish run: %v", err)
		}
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("status server shutdown error: %v", err)
		}
	}

	wg.Wait()
	log.Printf("shutdown complete")
}

// appendHeadways adds the per-lane headway table beneath the count report,
// built from the crossings the run recorded.
func appendHeadways(path string, cfg *config.Config, db *store.Store, runID string) {
	if db == nil || runID == "" {
		return
	}
	crossings := make(map[string][]int64, len(cfg.Lanes))
	for _, lc := range cfg.Lanes {
		seqs, err := db.CrossingSeqs(runID, lc.ID)
		if err != nil {
			log.Printf("failed to load crossings for %s: %v", lc.ID, err)
			return
		}
		crossings[lc.DisplayName()] = seqs
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to append headways: %v", err)
		return
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f); err != nil {
		log.Printf("failed to append headways: %v", err)
		return
	}
	if err := report.WriteSummaries(f, report.SummarizeHeadways(crossings)); err != nil {
		log.Printf("failed to append headways: %v", err)
	}
}

func displayOrder(cfg *config.Config) []string {
	order := make([]string, 0, len(cfg.Lanes))
	for _, lc := range cfg.Lanes {
		order = append(order, lc.DisplayName())
	}
	return order
}

func displayCounts(cfg *config.Config, finals map[string]int64) map[string]int64 {
	counts := make(map[string]int64, len(cfg.Lanes))
	for _, lc := range cfg.Lanes {
		counts[lc.DisplayName()] = finals[lc.ID]
	}
	return counts
}
