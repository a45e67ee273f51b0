package vision

import "testing"

// makeTestSegmenter uses a large learning rate and no morphology so that
// classification decisions are deterministic and pixel-exact.
func makeTestSegmenter(w, h int) *MotionSegmenter {
	return NewMotionSegmenter(w, h, SegmenterParams{
		LearningRate:        0.5,
		ClosenessMultiplier: 2.0,
		SpreadFloorLevels:   6.0,
		WarmupFrames:        3,
		BlurRadius:          0,
		DilateRadius:        0,
		CloseRadius:         0,
		ClosePasses:         0,
	})
}

func flatFrame(lane string, seq int64, w, h int, level uint8) *Frame {
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = level
	}
	return &Frame{LaneID: lane, Seq: seq, Width: w, Height: h, Pix: pix}
}

func TestMotionSegmenterStaticBackgroundStaysQuiet(t *testing.T) {
	ms := makeTestSegmenter(16, 16)

	for seq := int64(1); seq <= 10; seq++ {
		mask := ms.Apply(flatFrame("lane1", seq, 16, 16, 80))
		if got := mask.ForegroundCount(); got != 0 {
			t.Fatalf("frame %d: static scene produced %d foreground pixels", seq, got)
		}
	}
}

func TestMotionSegmenterMovingBlockIsForeground(t *testing.T) {
	ms := makeTestSegmenter(16, 16)

	// Settle the background well past warmup.
	for seq := int64(1); seq <= 8; seq++ {
		ms.Apply(flatFrame("lane1", seq, 16, 16, 80))
	}

	// Drop a bright 4x4 block into the settled scene.
	f := flatFrame("lane1", 9, 16, 16, 80)
	for y := 4; y < 8; y++ {
		for x := 4; x < 8; x++ {
			f.Pix[y*16+x] = 220
		}
	}
	mask := ms.Apply(f)

	if got := mask.ForegroundCount(); got != 16 {
		t.Errorf("expected exactly the 16 block pixels as foreground, got %d", got)
	}
	if !mask.At(5, 5) {
		t.Errorf("block interior should be foreground")
	}
	if mask.At(0, 0) {
		t.Errorf("settled background should not be foreground")
	}
}

func TestMotionSegmenterWarmupSuppressesForeground(t *testing.T) {
	ms := makeTestSegmenter(8, 8)

	ms.Apply(flatFrame("lane1", 1, 8, 8, 80))
	// Frame 2 is wildly divergent but still inside warmup.
	mask := ms.Apply(flatFrame("lane1", 2, 8, 8, 250))
	if got := mask.ForegroundCount(); got != 0 {
		t.Errorf("warmup frame produced %d foreground pixels, want 0", got)
	}
}

func TestMotionSegmenterGeometryChangeResetsModel(t *testing.T) {
	ms := makeTestSegmenter(8, 8)
	for seq := int64(1); seq <= 5; seq++ {
		ms.Apply(flatFrame("lane1", seq, 8, 8, 80))
	}

	// A frame with different geometry restarts the model, so warmup applies
	// again and nothing is reported as foreground.
	mask := ms.Apply(flatFrame("lane1", 6, 12, 12, 250))
	if got := mask.ForegroundCount(); got != 0 {
		t.Errorf("post-reset frame produced %d foreground pixels, want 0", got)
	}
	if ms.FrameCount() != 1 {
		t.Errorf("expected model reset to frame count 1, got %d", ms.FrameCount())
	}
}

func TestMotionSegmenterNilFrame(t *testing.T) {
	ms := makeTestSegmenter(8, 8)
	mask := ms.Apply(nil)
	if mask == nil || mask.ForegroundCount() != 0 {
		t.Errorf("nil frame should yield an empty mask")
	}
}
