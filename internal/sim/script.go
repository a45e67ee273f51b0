package sim

import (
	"encoding/json"
	"fmt"
	"os"
)

// scriptFile is the JSON shape of an intersection script. Arrival keys are
// step numbers.
type scriptFile struct {
	SignalID         string                  `json:"signal_id"`
	InitialPhase     int                     `json:"initial_phase"`
	DischargePerStep int                     `json:"discharge_per_step"`
	Lanes            map[string]scriptedLane `json:"lanes"`
}

type scriptedLane struct {
	SignalPhase     int           `json:"signal_phase"`
	InitialVehicles int           `json:"initial_vehicles"`
	Arrivals        map[int64]int `json:"arrivals,omitempty"`
}

// LoadScript reads an IntersectionConfig from a JSON script file.
func LoadScript(path string) (IntersectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IntersectionConfig{}, fmt.Errorf("read sim script: %w", err)
	}

	var f scriptFile
	if err := json.Unmarshal(data, &f); err != nil {
		return IntersectionConfig{}, fmt.Errorf("parse sim script: %w", err)
	}
	if len(f.Lanes) == 0 {
		return IntersectionConfig{}, fmt.Errorf("sim script %s has no lanes", path)
	}

	cfg := IntersectionConfig{
		SignalID:         f.SignalID,
		InitialPhase:     f.InitialPhase,
		DischargePerStep: f.DischargePerStep,
		Lanes:            make(map[string]LaneScript, len(f.Lanes)),
	}
	for id, lane := range f.Lanes {
		cfg.Lanes[id] = LaneScript{
			SignalPhase:     lane.SignalPhase,
			InitialVehicles: lane.InitialVehicles,
			Arrivals:        lane.Arrivals,
		}
	}
	return cfg, nil
}
