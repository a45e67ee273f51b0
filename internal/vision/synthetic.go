package vision

import (
	"fmt"
	"time"
)

// Default pixel values for synthetic footage.
const (
	// SyntheticBackgroundLevel is the flat luminance of the empty road.
	SyntheticBackgroundLevel = 60
	// SyntheticVehicleLevel is the luminance of a scripted vehicle body.
	SyntheticVehicleLevel = 220
)

// ScriptedVehicle describes one vehicle in a synthetic stream. The vehicle is a
// solid rectangle that enters above the frame at EnterSeq and moves straight
// down SpeedPx pixels per frame.
type ScriptedVehicle struct {
	EnterSeq int64 // frame at which the vehicle's leading edge reaches y=0
	X        int   // left edge
	Width    int
	Height   int
	SpeedPx  int // downward pixels per frame
}

// SyntheticSource renders deterministic scripted traffic. It stands in for the
// external video decoder in dev mode and in tests, the same way a mock serial
// port stands in for radar hardware.
type SyntheticSource struct {
	LaneID      string
	Width       int
	Height      int
	TotalFrames int64
	Vehicles    []ScriptedVehicle

	opened bool
	seq    int64
}

// Open validates the scripted geometry.
func (s *SyntheticSource) Open() error {
	if s.Width <= 0 || s.Height <= 0 || s.TotalFrames <= 0 {
		return fmt.Errorf("synthetic source %s: invalid script", s.LaneID)
	}
	s.opened = true
	return nil
}

// Next renders the next scripted frame.
func (s *SyntheticSource) Next() (*Frame, error) {
	if !s.opened || s.seq >= s.TotalFrames {
		return nil, ErrEndOfStream
	}
	s.seq++

	pix := make([]uint8, s.Width*s.Height)
	for i := range pix {
		pix[i] = SyntheticBackgroundLevel
	}
	for _, v := range s.Vehicles {
		if s.seq < v.EnterSeq {
			continue
		}
		top := int(s.seq-v.EnterSeq)*v.SpeedPx - v.Height
		for y := top; y < top+v.Height; y++ {
			if y < 0 || y >= s.Height {
				continue
			}
			for x := v.X; x < v.X+v.Width; x++ {
				if x < 0 || x >= s.Width {
					continue
				}
				pix[y*s.Width+x] = SyntheticVehicleLevel
			}
		}
	}

	return &Frame{
		LaneID:   s.LaneID,
		Seq:      s.seq,
		Width:    s.Width,
		Height:   s.Height,
		Pix:      pix,
		Captured: time.Now(),
	}, nil
}

// Release marks the script finished.
func (s *SyntheticSource) Release() error {
	s.opened = false
	return nil
}
