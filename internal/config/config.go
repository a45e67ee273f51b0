// Package config loads the immutable run configuration: the monitored lanes,
// detection thresholds, control cadence and output locations. The structure is
// built once at startup and passed by reference into each component; nothing
// mutates it afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults applied when a field is omitted from the JSON file.
const (
	DefaultSignalID             = "tls"
	DefaultFrameWidth           = 1280
	DefaultFrameHeight          = 720
	DefaultMinBlobWidth         = 80
	DefaultMinBlobHeight        = 80
	DefaultCountLineY           = 550
	DefaultCrossingOffset       = 6
	DefaultDedupRadius          = 30
	DefaultCooldownFrames       = 15
	DefaultControlIntervalSteps = 50
	DefaultMinGreenSteps        = 50
	DefaultWarmupSteps          = 10
	DefaultPacingMillis         = 0
	DefaultCountsFrom           = CountsFromCamera
	DefaultDatabasePath         = "traffic_counts.db"
	DefaultReportPath           = "lane_counts.txt"
	DefaultListenAddr           = ":8080"
)

// Values for the counts_from field: where the junction's vehicle demand
// originates. "camera" seeds each lane's queue with the total counted from
// its stream; "simulation" loads queues and arrivals from the sim_config
// script. Either way the control loop reads the live queues as they drain.
const (
	CountsFromCamera     = "camera"
	CountsFromSimulation = "simulation"
)

// Lane describes one monitored approach: its identifier, display name, frame
// source and the signal phase that grants it green.
type Lane struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Source      string `json:"source"` // path to the 8-bit planar frame dump
	SignalPhase int    `json:"signal_phase"`
}

// DisplayName returns Name, falling back to the lane ID.
func (l Lane) DisplayName() string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}

// Config is the root run configuration. Pointer fields distinguish "omitted"
// from zero so partial JSON files are safe; the Get* accessors supply
// defaults. Lane order in the file is the deterministic lane iteration order
// used for tie-breaking.
type Config struct {
	Lanes []Lane `json:"lanes"`

	SignalID *string `json:"signal_id,omitempty"`

	// Frame geometry of the raw dumps
	FrameWidth  *int `json:"frame_width,omitempty"`
	FrameHeight *int `json:"frame_height,omitempty"`

	// Detection thresholds
	MinBlobWidth   *int     `json:"min_blob_width,omitempty"`
	MinBlobHeight  *int     `json:"min_blob_height,omitempty"`
	CountLineY     *int     `json:"count_line_y,omitempty"`
	CrossingOffset *int     `json:"crossing_offset,omitempty"`
	DedupRadius    *int     `json:"dedup_radius,omitempty"`
	CooldownFrames *int     `json:"cooldown_frames,omitempty"`
	LearningRate   *float64 `json:"learning_rate,omitempty"`

	// Control cadence
	ControlIntervalSteps *int    `json:"control_interval_steps,omitempty"`
	MinGreenSteps        *int    `json:"min_green_steps,omitempty"`
	WarmupSteps          *int    `json:"warmup_steps,omitempty"`
	CountsFrom           *string `json:"counts_from,omitempty"`

	// Run mode and outputs
	Headless     *bool   `json:"headless,omitempty"`
	PacingMillis *int    `json:"pacing_millis,omitempty"`
	SimConfig    *string `json:"sim_config,omitempty"`
	DatabasePath *string `json:"database_path,omitempty"`
	ReportPath   *string `json:"report_path,omitempty"`
	ChartPath    *string `json:"chart_path,omitempty"`
	Listen       *string `json:"listen,omitempty"`
}

// Load reads and validates a Config from a JSON file. Fields omitted from the
// file keep their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks structural invariants: at least one lane, unique lane IDs
// and display names (the report is keyed by display name), and a total
// one-to-one lane-to-phase mapping (required for the phase-keyed round-robin
// fallback to be well defined).
func (c *Config) Validate() error {
	if len(c.Lanes) == 0 {
		return fmt.Errorf("at least one lane is required")
	}
	seenID := make(map[string]bool, len(c.Lanes))
	seenName := make(map[string]string, len(c.Lanes))
	seenPhase := make(map[int]string, len(c.Lanes))
	for i, lane := range c.Lanes {
		if lane.ID == "" {
			return fmt.Errorf("lane %d: missing id", i)
		}
		if seenID[lane.ID] {
			return fmt.Errorf("duplicate lane id %q", lane.ID)
		}
		seenID[lane.ID] = true
		if other, dup := seenName[lane.DisplayName()]; dup {
			return fmt.Errorf("lanes %q and %q share the display name %q", other, lane.ID, lane.DisplayName())
		}
		seenName[lane.DisplayName()] = lane.ID
		if lane.SignalPhase < 0 {
			return fmt.Errorf("lane %q: negative signal phase", lane.ID)
		}
		if other, dup := seenPhase[lane.SignalPhase]; dup {
			return fmt.Errorf("lanes %q and %q map to the same signal phase %d", other, lane.ID, lane.SignalPhase)
		}
		seenPhase[lane.SignalPhase] = lane.ID
	}
	if c.CountsFrom != nil {
		switch *c.CountsFrom {
		case CountsFromCamera, CountsFromSimulation:
		default:
			return fmt.Errorf("counts_from must be %q or %q, got %q", CountsFromCamera, CountsFromSimulation, *c.CountsFrom)
		}
	}
	if c.GetCountsFrom() == CountsFromSimulation && c.GetSimConfig() == "" {
		return fmt.Errorf("counts_from=%s requires sim_config", CountsFromSimulation)
	}
	for _, f := range []struct {
		name string
		v    *int
	}{
		{"frame_width", c.FrameWidth},
		{"frame_height", c.FrameHeight},
		{"min_blob_width", c.MinBlobWidth},
		{"min_blob_height", c.MinBlobHeight},
		{"crossing_offset", c.CrossingOffset},
		{"dedup_radius", c.DedupRadius},
		{"cooldown_frames", c.CooldownFrames},
		{"control_interval_steps", c.ControlIntervalSteps},
	} {
		if f.v != nil && *f.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", f.name, *f.v)
		}
	}
	if c.LearningRate != nil && (*c.LearningRate <= 0 || *c.LearningRate > 1) {
		return fmt.Errorf("learning_rate must be in (0, 1], got %v", *c.LearningRate)
	}
	return nil
}

// LaneOrder returns the deterministic lane iteration order (file order).
func (c *Config) LaneOrder() []string {
	order := make([]string, len(c.Lanes))
	for i, lane := range c.Lanes {
		order[i] = lane.ID
	}
	return order
}

// LanePhaseMap returns the lane -> phase mapping. Validate guarantees it is
// total over the configured lanes.
func (c *Config) LanePhaseMap() map[string]int {
	m := make(map[string]int, len(c.Lanes))
	for _, lane := range c.Lanes {
		m[lane.ID] = lane.SignalPhase
	}
	return m
}

func (c *Config) GetSignalID() string {
	if c.SignalID != nil {
		return *c.SignalID
	}
	return DefaultSignalID
}

func (c *Config) GetFrameWidth() int {
	if c.FrameWidth != nil {
		return *c.FrameWidth
	}
	return DefaultFrameWidth
}

func (c *Config) GetFrameHeight() int {
	if c.FrameHeight != nil {
		return *c.FrameHeight
	}
	return DefaultFrameHeight
}

func (c *Config) GetMinBlobWidth() int {
	if c.MinBlobWidth != nil {
		return *c.MinBlobWidth
	}
	return DefaultMinBlobWidth
}

func (c *Config) GetMinBlobHeight() int {
	if c.MinBlobHeight != nil {
		return *c.MinBlobHeight
	}
	return DefaultMinBlobHeight
}

func (c *Config) GetCountLineY() int {
	if c.CountLineY != nil {
		return *c.CountLineY
	}
	return DefaultCountLineY
}

func (c *Config) GetCrossingOffset() int {
	if c.CrossingOffset != nil {
		return *c.CrossingOffset
	}
	return DefaultCrossingOffset
}

func (c *Config) GetDedupRadius() int {
	if c.DedupRadius != nil {
		return *c.DedupRadius
	}
	return DefaultDedupRadius
}

func (c *Config) GetCooldownFrames() int {
	if c.CooldownFrames != nil {
		return *c.CooldownFrames
	}
	return DefaultCooldownFrames
}

func (c *Config) GetLearningRate() float64 {
	if c.LearningRate != nil {
		return *c.LearningRate
	}
	return 0 // segmenter applies its own default
}

func (c *Config) GetControlIntervalSteps() int {
	if c.ControlIntervalSteps != nil {
		return *c.ControlIntervalSteps
	}
	return DefaultControlIntervalSteps
}

func (c *Config) GetMinGreenSteps() int {
	if c.MinGreenSteps != nil {
		return *c.MinGreenSteps
	}
	return DefaultMinGreenSteps
}

func (c *Config) GetWarmupSteps() int {
	if c.WarmupSteps != nil {
		return *c.WarmupSteps
	}
	return DefaultWarmupSteps
}

func (c *Config) GetCountsFrom() string {
	if c.CountsFrom != nil {
		return *c.CountsFrom
	}
	return DefaultCountsFrom
}

func (c *Config) GetHeadless() bool {
	if c.Headless != nil {
		return *c.Headless
	}
	return false
}

func (c *Config) GetPacingMillis() int {
	if c.PacingMillis != nil {
		return *c.PacingMillis
	}
	return DefaultPacingMillis
}

func (c *Config) GetSimConfig() string {
	if c.SimConfig != nil {
		return *c.SimConfig
	}
	return ""
}

func (c *Config) GetDatabasePath() string {
	if c.DatabasePath != nil {
		return *c.DatabasePath
	}
	return DefaultDatabasePath
}

func (c *Config) GetReportPath() string {
	if c.ReportPath != nil {
		return *c.ReportPath
	}
	return DefaultReportPath
}

func (c *Config) GetChartPath() string {
	if c.ChartPath != nil {
		return *c.ChartPath
	}
	return ""
}

func (c *Config) GetListen() string {
	if c.Listen != nil {
		return *c.Listen
	}
	return DefaultListenAddr
}
