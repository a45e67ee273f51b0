// Package api serves the status endpoint: live lane counts, worker lifecycle
// states and the current signal phase as JSON, plus the recorded runs.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/config"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/counting"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/pipeline"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/sim"
	"github.com/Imashie/Traffic-Light-Controller-by-Camera-Detection/internal/store"
)

type Server struct {
	cfg      *config.Config
	counters map[string]*counting.LaneCounter
	workers  map[string]*pipeline.Worker
	db       *store.Store // may be nil when persistence is unavailable

	mu     sync.RWMutex
	engine sim.Engine // nil until the control stage starts
}

func NewServer(cfg *config.Config, counters map[string]*counting.LaneCounter, workers map[string]*pipeline.Worker, db *store.Store) *Server {
	return &Server{
		cfg:      cfg,
		counters: counters,
		workers:  workers,
		db:       db,
	}
}

// SetEngine attaches the simulation engine once the control stage owns one.
// The status handler picks it up on the next request.
func (s *Server) SetEngine(engine sim.Engine) {
	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
}

func (s *Server) currentEngine() sim.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/runs", s.listRuns)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<html><body><h1>Traffic Light Controller</h1>" +
		`<p><a href="/api/status">status</a> | <a href="/api/runs">runs</a></p>` +
		"</body></html>"))
}

type laneStatus struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
	State string `json:"state,omitempty"`
}

type statusResponse struct {
	Lanes     []laneStatus `json:"lanes"`
	Phase     *int         `json:"phase,omitempty"`
	Remaining *int         `json:"remaining,omitempty"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{}
	for _, lane := range s.cfg.Lanes {
		ls := laneStatus{ID: lane.ID, Name: lane.DisplayName()}
		if c := s.counters[lane.ID]; c != nil {
			ls.Count = c.Value()
		}
		if wk := s.workers[lane.ID]; wk != nil {
			ls.State = wk.State()
		}
		resp.Lanes = append(resp.Lanes, ls)
	}

	if engine := s.currentEngine(); engine != nil {
		if phase, err := engine.Phase(s.cfg.GetSignalID()); err == nil {
			resp.Phase = &phase
		}
		if remaining, err := engine.RemainingVehicles(); err == nil {
			resp.Remaining = &remaining
		}
	}

	writeJSON(w, resp)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "persistence unavailable", http.StatusServiceUnavailable)
		return
	}

	runs, err := s.db.Runs(50)
	if err != nil {
		http.Error(w, "Failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
